package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/pageview/pkg/document"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/logging"
	"github.com/entrhq/pageview/pkg/pageview"
	"github.com/entrhq/pageview/pkg/pageview/compositor"
	"github.com/entrhq/pageview/pkg/pageview/deferred"
	"github.com/entrhq/pageview/pkg/pageview/loadstate"
	"github.com/entrhq/pageview/pkg/types"
)

// ErrExpectationsFailed is returned by Run when the scenario completed but
// at least one check failed.
var ErrExpectationsFailed = errors.New("scenario expectations failed")

// Runner executes a scenario against a real page view backed by an
// in-memory document and recording backends.
type Runner struct {
	config   *Config
	reporter *Reporter
	logger   *logging.Logger
	trace    *compositor.TraceWriter

	tree     *document.Tree
	layout   *document.Layout
	tiles    *tileRecorder
	handler  *actionRecorder
	backend  *commitRecorder
	coord    *pageview.Coordinator
	events   []*types.PageEvent
	records  []EventRecord
	stepNum  int
	eventsMu sync.Mutex
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithReporter sets the console reporter
func WithReporter(r *Reporter) RunnerOption {
	return func(rn *Runner) { rn.reporter = r }
}

// WithLogger sets the logger handed to the page view
func WithLogger(l *logging.Logger) RunnerOption {
	return func(rn *Runner) { rn.logger = l }
}

// WithTrace records layer commits to w. The runner closes it.
func WithTrace(w *compositor.TraceWriter) RunnerOption {
	return func(rn *Runner) { rn.trace = w }
}

// NewRunner validates cfg and creates a runner
func NewRunner(cfg *Config, opts ...RunnerOption) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	r := &Runner{config: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		level, _ := logging.ParseLevel(cfg.Logging.Verbosity)
		r.reporter = NewReporter(level)
	}
	if r.logger == nil {
		r.logger = logging.Discard("scenario")
	}
	return r, nil
}

// Run executes every step and checks the expectations. The summary is
// returned even when an error is.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Name:      r.config.Name,
		StartTime: time.Now(),
	}
	finish := func(status string, err error) (*Summary, error) {
		summary.Status = status
		if err != nil {
			summary.Error = err.Error()
		}
		summary.EndTime = time.Now()
		summary.Duration = summary.EndTime.Sub(summary.StartTime)
		summary.Steps = r.stepNum
		summary.Events = r.eventRecords()
		if r.coord != nil {
			summary.Final = r.coord.Status()
		}
		if r.handler != nil {
			summary.Handled = append([]string(nil), r.handler.calls...)
		}
		return summary, err
	}

	r.reporter.Header(fmt.Sprintf("Scenario: %s", r.config.Name))

	if err := r.setup(ctx); err != nil {
		return finish(StatusError, err)
	}
	defer func() {
		if err := r.coord.Close(); err != nil {
			r.logger.Warnf("failed to close page view: %v", err)
		}
	}()

	r.reporter.Section("Steps")
	for i := range r.config.Steps {
		if err := ctx.Err(); err != nil {
			return finish(StatusError, fmt.Errorf("interrupted before step %d: %w", i+1, err))
		}
		step := &r.config.Steps[i]
		r.stepNum = i + 1
		r.reporter.Step(describe(step))
		if err := r.apply(step); err != nil {
			return finish(StatusError, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err))
		}
		r.coord.ContentLoop().RunPending()
		r.reporter.Verbosef("scale %.4f scroll %s content %s",
			r.coord.Viewport().CurrentScale(), r.coord.Viewport().ScrollPosition(), r.layout.ContentSize())
	}

	r.reporter.Section("Expectations")
	events := r.snapshotEvents()
	for _, e := range r.config.Expectations {
		m, err := NewEventMatcher(e)
		if err != nil {
			return finish(StatusError, err)
		}
		summary.Checks = append(summary.Checks, m.Check(events))
	}
	summary.Checks = append(summary.Checks, checkFinal(r.config.Final, r.coord.Status())...)
	for _, c := range summary.Checks {
		r.reporter.Check(c)
	}

	if len(summary.Failures()) > 0 {
		return finish(StatusFailed, ErrExpectationsFailed)
	}
	return finish(StatusPassed, nil)
}

// setup builds the document and the page view
func (r *Runner) setup(ctx context.Context) error {
	cfg := r.config

	tree, _, err := document.Build(cfg.Document.Root)
	if err != nil {
		return fmt.Errorf("failed to build document: %w", err)
	}
	r.tree = tree
	r.layout = document.NewLayout(tree)
	r.layout.SetReflow(cfg.Document.Reflow)
	if cfg.Document.ImageWidth > 0 {
		r.layout.SetImageDocument(cfg.Document.ImageWidth)
	}

	mode, err := parseViewMode(cfg.ViewMode)
	if err != nil {
		return err
	}

	r.tiles = &tileRecorder{}
	r.handler = &actionRecorder{}
	opts := []pageview.Option{
		pageview.WithSettings(cfg.Viewport),
		pageview.WithViewMode(mode),
		pageview.WithNodeTree(tree),
		pageview.WithScreen(pageview.StaticScreen{Ratio: cfg.Screen.DevicePixelRatio, Size: cfg.Screen.Size}),
		pageview.WithEmitter(r.record),
		pageview.WithLogger(r.logger),
		pageview.WithContext(ctx),
	}
	if cfg.Compositing.Enabled {
		layers := compositor.NewLayerSet(cfg.Compositing.Layers...)
		var backend compositor.Compositor
		if !cfg.Compositing.Detached {
			r.backend = &commitRecorder{}
			backend = r.backend
		}
		opts = append(opts, pageview.WithCompositing(layers, backend))
	}
	if r.trace != nil {
		opts = append(opts, pageview.WithTrace(r.trace))
	}

	coord, err := pageview.New(r.layout, r.tiles, r.handler, opts...)
	if err != nil {
		return fmt.Errorf("failed to create page view: %w", err)
	}
	coord.Bridge().SetDrawsRootLayer(cfg.Compositing.DrawsRootLayer)
	if err := coord.Start(ctx); err != nil {
		return err
	}
	r.coord = coord
	return nil
}

// apply performs one step on the content loop
func (r *Runner) apply(step *Step) error {
	c := r.coord
	switch step.Action {
	case ActionResize:
		layout := step.Layout
		if layout.IsEmpty() {
			layout = step.Size
		}
		if !c.RequestResize(step.Size, layout) {
			r.reporter.Verbosef("visible size unchanged")
		}

	case ActionLoad:
		if step.Restore {
			c.SetRestoringFromCache(true)
		}
		c.NotifyLoadState(loadstate.Provisional)
		c.NotifyLoadState(loadstate.Committed)
		r.relayout(step.Size)
		c.NotifyLoadState(loadstate.Finished)

	case ActionState:
		state, err := loadstate.ParseState(step.State)
		if err != nil {
			return err
		}
		c.NotifyLoadState(state)

	case ActionLayout:
		r.relayout(step.Size)

	case ActionZoom:
		if !c.RequestZoom(step.Scale, step.Anchor) {
			r.reporter.Verbosef("zoom to %.3f ignored", step.Scale)
		}

	case ActionBlockZoom:
		target, ok := c.RequestBlockZoom(step.Point)
		if !ok {
			r.reporter.Verbosef("no block at %s", step.Point)
			break
		}
		r.reporter.Verbosef("block zoom to %.3f at %s", target.Scale, target.ScrollPosition)

	case ActionHints:
		c.ApplyViewportHints(step.Hints, step.Virtual, step.Force)

	case ActionScroll:
		c.RequestScroll(step.Point)

	case ActionDefer:
		c.SetLoadingDeferred(true)

	case ActionResume:
		c.SetLoadingDeferred(false)

	case ActionEnqueue:
		kind, err := deferred.ParseKind(step.Kind)
		if err != nil {
			return err
		}
		return c.EnqueueDeferred(kind, payloadFor(kind, step))

	case ActionVisible:
		c.SetVisible(step.Flag)

	case ActionCommit:
		c.Bridge().ScheduleCommit()

	default:
		return fmt.Errorf("unknown action: %q", step.Action)
	}
	return nil
}

// relayout resizes the document root when size is set and runs a layout pass
func (r *Runner) relayout(size geom.Size) {
	if !size.IsEmpty() {
		root := r.tree.Rect(r.tree.Root())
		r.tree.SetRect(r.tree.Root(), geom.R(root.X, root.Y, size.Width, size.Height))
		r.layout.SetNeedsLayout()
	}
	r.layout.CompleteLayoutIfNeeded()
}

func payloadFor(kind deferred.Kind, step *Step) deferred.Payload {
	switch kind {
	case deferred.LoadManualScript:
		return deferred.ScriptURL{URL: step.URL}
	case deferred.SetPageVisibility:
		return deferred.Visibility{Visible: step.Flag}
	case deferred.PopupListSelectMultiple:
		return deferred.MultipleSelection{Selected: append([]bool(nil), step.Selected...)}
	case deferred.PopupListSelectSingle:
		return deferred.SingleSelection{Index: step.Index}
	case deferred.SetDateTimeInput:
		return deferred.DateTime{Value: step.Value}
	case deferred.SetColorInput:
		return deferred.Color{Value: step.Value}
	case deferred.SelectionCancelled:
		return deferred.Cancelled{}
	case deferred.SetFocused:
		return deferred.Focus{Focused: step.Flag}
	}
	return nil
}

func describe(step *Step) string {
	switch step.Action {
	case ActionResize:
		return fmt.Sprintf("resize to %s", step.Size)
	case ActionLoad:
		if step.Restore {
			return "restore from cache"
		}
		return "load"
	case ActionState:
		return fmt.Sprintf("load state %s", step.State)
	case ActionZoom:
		return fmt.Sprintf("zoom to %.3f", step.Scale)
	case ActionBlockZoom:
		return fmt.Sprintf("block zoom at %s", step.Point)
	case ActionScroll:
		return fmt.Sprintf("scroll to %s", step.Point)
	case ActionEnqueue:
		return fmt.Sprintf("enqueue %s", step.Kind)
	case ActionVisible:
		return fmt.Sprintf("visible %v", step.Flag)
	}
	return string(step.Action)
}

// record is the page view's event emitter. Commit events arrive from the
// compositing loop.
func (r *Runner) record(e *types.PageEvent) {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	r.events = append(r.events, e)
	r.records = append(r.records, EventRecord{
		Step:  r.stepNum,
		Type:  string(e.Type),
		State: e.State,
		Scale: e.Scale,
		Kind:  e.ActionKind,
	})
}

func (r *Runner) snapshotEvents() []*types.PageEvent {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	return append([]*types.PageEvent(nil), r.events...)
}

func (r *Runner) eventRecords() []EventRecord {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	return append([]EventRecord(nil), r.records...)
}

// tileRecorder is a surface backend that counts tile work
type tileRecorder struct {
	mu          sync.Mutex
	backgrounds int
	renders     int
	updates     int
	resets      int
	repaints    int
}

func (t *tileRecorder) PaintBackground()       { t.count(&t.backgrounds) }
func (t *tileRecorder) Render(bool)            { t.count(&t.renders) }
func (t *tileRecorder) UpdateTiles(bool, bool) { t.count(&t.updates) }
func (t *tileRecorder) ResetTiles()            { t.count(&t.resets) }
func (t *tileRecorder) RepaintAll()            { t.count(&t.repaints) }
func (t *tileRecorder) DispatchRenderJob()     {}

func (t *tileRecorder) count(n *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	*n++
}

// actionRecorder is an action handler that records performed actions
type actionRecorder struct {
	calls []string
}

func (a *actionRecorder) add(format string, args ...interface{}) {
	a.calls = append(a.calls, fmt.Sprintf(format, args...))
}

func (a *actionRecorder) ExecuteScriptURL(url string)      { a.add("script:%s", url) }
func (a *actionRecorder) SetPageVisibility(visible bool)   { a.add("visible:%v", visible) }
func (a *actionRecorder) PopupListSelectMultiple(s []bool) { a.add("multiple:%v", s) }
func (a *actionRecorder) PopupListSelectSingle(index int)  { a.add("single:%d", index) }
func (a *actionRecorder) SetDateTimeInput(value string)    { a.add("datetime:%s", value) }
func (a *actionRecorder) SetColorInput(value string)       { a.add("color:%s", value) }
func (a *actionRecorder) SelectionCancelled()              { a.add("cancelled") }
func (a *actionRecorder) SetFocused(focused bool)          { a.add("focused:%v", focused) }

// commitRecorder is a compositor that accepts every commit. Layers with
// animations start them.
type commitRecorder struct {
	mu      sync.Mutex
	commits int
}

func (c *commitRecorder) Commit(req *compositor.CommitRequest, _ time.Time) bool {
	c.mu.Lock()
	c.commits++
	c.mu.Unlock()
	for _, l := range req.Layers {
		if l.Animations > 0 {
			return true
		}
	}
	return false
}
