package pageview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/pageview/pkg/pageview/deferred"
	"github.com/entrhq/pageview/pkg/types"
)

// Errors returned by EnqueueDeferred and its helpers.
var (
	ErrPayloadMismatch = errors.New("pageview: payload does not match action kind")
	ErrNotScriptURL    = errors.New("pageview: not a javascript: URL")
)

const scriptScheme = "javascript:"

// EnqueueDeferred routes a host-visible action through the deferred queue.
// While loading is deferred the action replaces any queued action of its
// kind; otherwise a queued action of its kind is dropped and it runs now.
func (c *Coordinator) EnqueueDeferred(kind deferred.Kind, payload deferred.Payload) error {
	if payload == nil {
		return fmt.Errorf("%w: nil payload for %s", ErrPayloadMismatch, kind)
	}
	if k, ok := deferred.KindOf(payload); !ok || k != kind {
		return fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, payload, kind)
	}

	if c.deferring {
		c.queue.Enqueue(kind, payload)
		c.logger.Debugf("deferred %s (%d queued)", kind, c.queue.Len())
		return nil
	}
	c.queue.Cancel(kind)
	c.execute(deferred.Action{Kind: kind, Payload: payload})
	return nil
}

// LoadScriptURL runs a javascript: URL typed by the user.
func (c *Coordinator) LoadScriptURL(url string) error {
	if !strings.HasPrefix(strings.ToLower(url), scriptScheme) {
		return fmt.Errorf("%w: %q", ErrNotScriptURL, url)
	}
	return c.EnqueueDeferred(deferred.LoadManualScript, deferred.ScriptURL{URL: url})
}

// SetVisible shows or hides the page. Commits stop while hidden.
func (c *Coordinator) SetVisible(visible bool) {
	if visible == c.visible {
		return
	}
	c.visible = visible
	if visible {
		c.bridge.Resume()
	} else {
		c.bridge.Suspend()
	}
	c.SetPageVisible(visible)
}

// Visible reports whether the page is shown.
func (c *Coordinator) Visible() bool { return c.visible }

// SetPageVisible updates the page visibility state seen by scripts.
func (c *Coordinator) SetPageVisible(visible bool) {
	c.mustEnqueue(deferred.SetPageVisibility, deferred.Visibility{Visible: visible})
}

// SetFocused moves focus to or from the page.
func (c *Coordinator) SetFocused(focused bool) {
	c.mustEnqueue(deferred.SetFocused, deferred.Focus{Focused: focused})
}

// PopupListClosed commits a single-select popup. A pending multi-select
// result from the same popup is dropped.
func (c *Coordinator) PopupListClosed(index int) {
	c.queue.Cancel(deferred.PopupListSelectMultiple)
	c.mustEnqueue(deferred.PopupListSelectSingle, deferred.SingleSelection{Index: index})
}

// PopupListClosedMultiple commits a multi-select popup. A pending
// single-select result is dropped.
func (c *Coordinator) PopupListClosedMultiple(selected []bool) {
	c.queue.Cancel(deferred.PopupListSelectSingle)
	sel := append([]bool(nil), selected...)
	c.mustEnqueue(deferred.PopupListSelectMultiple, deferred.MultipleSelection{Selected: sel})
}

// SetDateTimeInput commits a date/time picker value.
func (c *Coordinator) SetDateTimeInput(value string) {
	c.mustEnqueue(deferred.SetDateTimeInput, deferred.DateTime{Value: value})
}

// SetColorInput commits a color picker value.
func (c *Coordinator) SetColorInput(value string) {
	c.mustEnqueue(deferred.SetColorInput, deferred.Color{Value: value})
}

// SelectionCancelled reports that a picker was dismissed.
func (c *Coordinator) SelectionCancelled() {
	c.mustEnqueue(deferred.SelectionCancelled, deferred.Cancelled{})
}

// mustEnqueue is EnqueueDeferred for payloads built here, whose kind is
// known to match.
func (c *Coordinator) mustEnqueue(kind deferred.Kind, payload deferred.Payload) {
	if err := c.EnqueueDeferred(kind, payload); err != nil {
		c.logger.Errorf("failed to route %s: %v", kind, err)
	}
}

// perform replays a queued action.
func (c *Coordinator) perform(action deferred.Action) {
	c.logger.Debugf("replaying deferred %s", action.Kind)
	c.execute(action)
	c.emit(types.NewDeferredActionPerformedEvent(action.Kind.String()))
}

func (c *Coordinator) execute(action deferred.Action) {
	switch p := action.Payload.(type) {
	case deferred.ScriptURL:
		c.handler.ExecuteScriptURL(p.URL)
	case deferred.Visibility:
		c.handler.SetPageVisibility(p.Visible)
	case deferred.MultipleSelection:
		c.handler.PopupListSelectMultiple(p.Selected)
	case deferred.SingleSelection:
		c.handler.PopupListSelectSingle(p.Index)
	case deferred.DateTime:
		c.handler.SetDateTimeInput(p.Value)
	case deferred.Color:
		c.handler.SetColorInput(p.Value)
	case deferred.Cancelled:
		c.handler.SelectionCancelled()
	case deferred.Focus:
		c.handler.SetFocused(p.Focused)
	default:
		c.logger.Warnf("dropping %s: unexpected payload %T", action.Kind, action.Payload)
	}
}
