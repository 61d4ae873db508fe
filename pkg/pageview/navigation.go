package pageview

import (
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/pageview/loadstate"
	"github.com/entrhq/pageview/pkg/types"
)

// NotifyLoadState reports a navigation lifecycle change from the loader.
// A new provisional load abandons whatever the previous navigation queued.
func (c *Coordinator) NotifyLoadState(state loadstate.State) {
	prev := c.load.State()
	if state == loadstate.Provisional && (prev == loadstate.Provisional || prev == loadstate.Committed) {
		if n := c.queue.CancelAll(); n > 0 {
			c.logger.Debugf("navigation abandoned: dropped %d deferred actions", n)
		}
	}
	c.load.TransitionTo(state)
	c.drain()
}

// SetRestoringFromCache marks the next commit as a back/forward restore
// that keeps its negotiated viewport.
func (c *Coordinator) SetRestoringFromCache(restoring bool) {
	c.restoring = restoring
	c.load.SetRestoringFromCache(restoring)
}

// SetLoadingDeferred starts or ends deferral of host-visible actions.
// Ending it replays the queue.
func (c *Coordinator) SetLoadingDeferred(deferred bool) {
	if deferred == c.deferring {
		return
	}
	c.deferring = deferred
	if deferred {
		c.logger.Debugf("deferring host-visible actions")
		c.emit(types.NewWillDeferLoadingEvent())
		return
	}
	c.logger.Debugf("resuming host-visible actions (%d queued)", c.queue.Len())
	c.emit(types.NewDidResumeLoadingEvent())
	c.drain()
}

func (c *Coordinator) drain() {
	c.queue.DrainIfReady(c.IsLoadingDeferred, c.perform)
}

func (c *Coordinator) didTransition(_, to loadstate.State) {
	switch to {
	case loadstate.Provisional:
		c.zoomAfterFinish = false
	case loadstate.Committed:
		c.zoomAfterFinish = false
		c.previousContents = geom.Size{}
	case loadstate.Finished, loadstate.Failed:
		c.restoring = false
	}
}
