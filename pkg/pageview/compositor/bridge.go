// Package compositor hands layer commits from the content loop to the
// compositing loop.
//
// Commits are requested with ScheduleCommit and coalesced into a single
// zero-delay task on the content loop. When that task runs, the bridge
// completes any pending layout, snapshots the layer tree into a
// CommitRequest and passes it to the Compositor with a blocking Send, so the
// request is fully written before the compositing loop reads it.
package compositor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/pageview/pkg/dispatch"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/logging"
	"github.com/entrhq/pageview/pkg/types"
)

// CommitRequest is the layer state handed to the compositing loop. It is
// built on the content loop and read exactly once by the compositor.
type CommitRequest struct {
	ID             string    `json:"id"`
	Scale          float64   `json:"scale"`
	LayoutRect     geom.Rect `json:"layout_rect"`
	DocumentRect   geom.Rect `json:"document_rect"`
	DrawsRootLayer bool      `json:"draws_root_layer"`
	Layers         []Layer   `json:"layers"`
}

// Compositor applies commits. Commit runs on the compositing loop and
// reports whether it started any animations.
type Compositor interface {
	Commit(req *CommitRequest, at time.Time) (startedAnimations bool)
}

// View is the content side the bridge reads geometry from.
type View interface {
	CompleteLayoutIfNeeded()
	NeedsLayout() bool
	CurrentScale() float64
	// LayoutRect is the visible rect in document coordinates.
	LayoutRect() geom.Rect
	// DocumentRect is the full content rect.
	DocumentRect() geom.Rect
	// RepaintAll repaints the whole surface immediately.
	RepaintAll()
}

// Stats counts bridge activity.
type Stats struct {
	Scheduled           int `json:"scheduled"`
	Coalesced           int `json:"coalesced"`
	Commits             int `json:"commits"`
	OneShotRepaints     int `json:"one_shot_repaints"`
	SkippedNoCompositor int `json:"skipped_no_compositor"`
	SkippedSuspended    int `json:"skipped_suspended"`
}

// Bridge coordinates commits between the content and compositing loops.
//
// All methods except SetCompositor, Compositor and Stats must be called on
// the content loop.
type Bridge struct {
	content     *dispatch.Loop
	compositing *dispatch.Loop
	view        View
	layers      LayerSource

	ctx    context.Context
	emit   types.EventEmitter
	logger *logging.Logger
	trace  *TraceWriter
	now    func() time.Time

	needsCommit    bool
	oneShot        bool
	armed          bool
	suspended      bool
	drawsRootLayer bool
	sequence       uint64

	mu         sync.Mutex
	compositor Compositor
	stats      Stats
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithCompositor attaches the compositing backend.
func WithCompositor(c Compositor) Option {
	return func(b *Bridge) { b.compositor = c }
}

// WithContext bounds the blocking handoff to the compositing loop.
func WithContext(ctx context.Context) Option {
	return func(b *Bridge) { b.ctx = ctx }
}

// WithEmitter sets the host event sink.
func WithEmitter(emit types.EventEmitter) Option {
	return func(b *Bridge) { b.emit = emit }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithTrace records every commit to w.
func WithTrace(w *TraceWriter) Option {
	return func(b *Bridge) { b.trace = w }
}

// WithClock replaces time.Now for animation start times.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// New creates a bridge posting its commit task to content and committing on
// compositing.
func New(content, compositing *dispatch.Loop, view View, layers LayerSource, opts ...Option) (*Bridge, error) {
	switch {
	case content == nil:
		return nil, errors.New("compositor: content loop is required")
	case compositing == nil:
		return nil, errors.New("compositor: compositing loop is required")
	case view == nil:
		return nil, errors.New("compositor: view is required")
	case layers == nil:
		return nil, errors.New("compositor: layer source is required")
	}

	b := &Bridge{
		content:     content,
		compositing: compositing,
		view:        view,
		layers:      layers,
		ctx:         context.Background(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.emit == nil {
		b.emit = func(*types.PageEvent) {}
	}
	if b.logger == nil {
		b.logger = logging.Discard("compositor")
	}
	return b, nil
}

// SetCompositor attaches or, with nil, detaches the compositing backend.
func (b *Bridge) SetCompositor(c Compositor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compositor = c
}

// Compositor returns the attached backend, nil when detached.
func (b *Bridge) Compositor() Compositor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compositor
}

// Stats returns a copy of the counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

func (b *Bridge) count(fn func(*Stats)) {
	b.mu.Lock()
	fn(&b.stats)
	b.mu.Unlock()
}

// NeedsCommit reports whether a commit is pending.
func (b *Bridge) NeedsCommit() bool { return b.needsCommit }

// NeedsOneShotDrawingSynchronization reports whether the next render and
// commit must be presented together.
func (b *Bridge) NeedsOneShotDrawingSynchronization() bool { return b.oneShot }

// DrawsRootLayer reports whether the compositor, rather than the tile
// surface, draws the root layer.
func (b *Bridge) DrawsRootLayer() bool { return b.drawsRootLayer }

// SetDrawsRootLayer hands root layer drawing to or from the compositor.
func (b *Bridge) SetDrawsRootLayer(draws bool) { b.drawsRootLayer = draws }

// Suspended reports whether commits are suspended.
func (b *Bridge) Suspended() bool { return b.suspended }

// ScheduleCommit requests a commit on the next turn of the content loop.
// Requests made before the commit task runs share it. With no layers and no
// pending one-shot synchronization there is nothing to commit and the call
// does nothing.
func (b *Bridge) ScheduleCommit() {
	if !b.layers.HasLayers() && !b.oneShot {
		return
	}
	b.needsCommit = true
	if b.armed {
		b.count(func(s *Stats) { s.Coalesced++ })
		return
	}
	if !b.content.Post(b.commitTimerFired) {
		b.logger.Warnf("commit not scheduled: %s loop stopped", b.content.Name())
		return
	}
	b.armed = true
	b.count(func(s *Stats) { s.Scheduled++ })
}

// SetNeedsOneShotDrawingSynchronization asks that the next render and the
// next commit be presented together, and arms the commit task that does
// both. When the compositor draws the root layer the tile surface draws
// nothing and a plain commit is enough.
func (b *Bridge) SetNeedsOneShotDrawingSynchronization() {
	if !b.drawsRootLayer {
		b.oneShot = true
	}
	b.ScheduleCommit()
}

// Suspend stops commits until Resume.
func (b *Bridge) Suspend() {
	if b.suspended {
		return
	}
	b.suspended = true
	b.logger.Debugf("root layer commits suspended")
}

// Resume re-enables commits and schedules one so the compositor catches up.
func (b *Bridge) Resume() {
	if !b.suspended {
		return
	}
	b.suspended = false
	b.logger.Debugf("root layer commits resumed")
	b.needsCommit = true
	b.ScheduleCommit()
}

func (b *Bridge) commitTimerFired() {
	b.armed = false
	if b.suspended {
		b.count(func(s *Stats) { s.SkippedSuspended++ })
		return
	}

	// Layout may schedule another commit or drop compositing entirely, so it
	// runs before deciding how to present.
	b.view.CompleteLayoutIfNeeded()

	if !b.drawsRootLayer && b.oneShot {
		b.logger.Debugf("one-shot drawing synchronization: repainting surface")
		b.count(func(s *Stats) { s.OneShotRepaints++ })
		b.view.RepaintAll()
		b.oneShot = false
		b.commitIfNeeded(true)
		return
	}
	b.CommitIfNeeded()
}

// CommitIfNeeded commits now if a commit is pending and layout is clean. It
// reports whether a commit reached the compositor.
func (b *Bridge) CommitIfNeeded() bool {
	return b.commitIfNeeded(b.oneShot)
}

func (b *Bridge) commitIfNeeded(oneShot bool) bool {
	if b.suspended || !b.needsCommit {
		return false
	}
	// A one-shot synchronization still commits after the last layer is gone.
	if !b.layers.HasLayers() && !oneShot {
		return false
	}
	if b.view.NeedsLayout() {
		return false
	}

	b.needsCommit = false
	b.oneShot = false

	req := &CommitRequest{
		ID:             uuid.NewString(),
		Scale:          b.view.CurrentScale(),
		LayoutRect:     b.view.LayoutRect(),
		DocumentRect:   b.view.DocumentRect(),
		DrawsRootLayer: b.drawsRootLayer,
		Layers:         b.layers.Layers(),
	}

	compositor := b.Compositor()
	if compositor == nil {
		b.count(func(s *Stats) { s.SkippedNoCompositor++ })
		return false
	}

	// The task claims the request before committing. A request still queued
	// when Send gives up is dropped and the commit stays pending; one that
	// already started is waited for.
	var (
		started bool
		startAt time.Time
		claim   atomic.Int32
		done    = make(chan struct{})
	)
	err := b.compositing.Send(b.ctx, func() {
		if !claim.CompareAndSwap(claimQueued, claimRunning) {
			return
		}
		defer close(done)
		startAt = b.now()
		started = compositor.Commit(req, startAt)
	})
	if err != nil {
		if claim.CompareAndSwap(claimQueued, claimDropped) {
			b.needsCommit = true
			b.logger.Warnf("commit %s not delivered: %v", req.ID, err)
			return false
		}
		<-done
	}

	if started {
		b.layers.NotifyAnimationsStarted(startAt)
	}
	b.count(func(s *Stats) { s.Commits++ })
	b.record(req, startAt, started)

	b.logger.Debugf("committed %s: %d layers, layout %s", req.ID, len(req.Layers), req.LayoutRect)
	b.emit(types.NewCommitCompletedEvent(types.CommitInfo{
		ID:                req.ID,
		LayerCount:        len(req.Layers),
		StartedAnimations: started,
	}))
	return true
}

const (
	claimQueued int32 = iota
	claimRunning
	claimDropped
)

func (b *Bridge) record(req *CommitRequest, at time.Time, started bool) {
	if b.trace == nil {
		return
	}
	b.sequence++
	rec := TraceRecord{
		Sequence:          b.sequence,
		ID:                req.ID,
		UnixNano:          at.UnixNano(),
		Scale:             req.Scale,
		LayoutRect:        req.LayoutRect,
		DocumentRect:      req.DocumentRect,
		DrawsRootLayer:    req.DrawsRootLayer,
		Layers:            req.Layers,
		StartedAnimations: started,
	}
	if err := b.trace.Write(rec); err != nil {
		b.logger.Errorf("failed to record commit %s: %v", req.ID, err)
	}
}
