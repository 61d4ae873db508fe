// Package pageview composes the load state machine, deferred action queue,
// viewport engine, surface gate and compositor bridge of one page view.
//
// A Coordinator runs on its content loop. Hosts either pump that loop
// themselves (ContentLoop().RunPending) or post work to it; all exported
// methods except Status must be called from it. Start launches the
// compositing loop that receives layer commits.
package pageview

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/pageview/pkg/config"
	"github.com/entrhq/pageview/pkg/dispatch"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/logging"
	"github.com/entrhq/pageview/pkg/pageview/compositor"
	"github.com/entrhq/pageview/pkg/pageview/deferred"
	"github.com/entrhq/pageview/pkg/pageview/loadstate"
	"github.com/entrhq/pageview/pkg/pageview/surface"
	"github.com/entrhq/pageview/pkg/pageview/viewport"
	"github.com/entrhq/pageview/pkg/types"
)

// LayoutEngine lays out the document of the page view.
type LayoutEngine interface {
	CompleteLayoutIfNeeded()
	NeedsLayout() bool
	SetNeedsLayout()
	ContentSize() geom.Size
	ImageDocumentWidth() (int, bool)
	FixedLayoutSize() geom.Size
	SetFixedLayoutSize(size geom.Size)
	// OnLayout registers the callback run after every layout pass.
	OnLayout(fn func(contentsSizeChanged bool))
}

// ActionHandler performs host-visible actions, possibly after a deferral.
type ActionHandler interface {
	ExecuteScriptURL(url string)
	SetPageVisibility(visible bool)
	PopupListSelectMultiple(selected []bool)
	PopupListSelectSingle(index int)
	SetDateTimeInput(value string)
	SetColorInput(value string)
	SelectionCancelled()
	SetFocused(focused bool)
}

// Screen describes the physical display.
type Screen interface {
	DevicePixelRatio() float64
	AvailableSize() geom.Size
}

// StaticScreen is a Screen with fixed values.
type StaticScreen struct {
	Ratio float64
	Size  geom.Size
}

// DevicePixelRatio returns the configured ratio.
func (s StaticScreen) DevicePixelRatio() float64 { return s.Ratio }

// AvailableSize returns the configured size.
func (s StaticScreen) AvailableSize() geom.Size { return s.Size }

// Coordinator is one page view.
type Coordinator struct {
	layout  LayoutEngine
	handler ActionHandler
	screen  Screen
	emit    types.EventEmitter
	logger  *logging.Logger

	settings    config.ViewportSettings
	viewMode    viewport.ViewMode
	tree        viewport.NodeTree
	accelerated bool

	content     *dispatch.Loop
	compositing *dispatch.Loop
	ctx         context.Context
	layers      compositor.LayerSource
	backend     compositor.Compositor
	trace       *compositor.TraceWriter

	gate     *surface.Sync
	viewport *viewport.Engine
	load     *loadstate.Machine
	queue    *deferred.Queue
	bridge   *compositor.Bridge

	deferring        bool
	visible          bool
	restoring        bool
	zoomAfterFinish  bool
	previousContents geom.Size
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSettings sets the viewport settings.
func WithSettings(s config.ViewportSettings) Option {
	return func(c *Coordinator) { c.settings = s }
}

// WithViewMode sets the layout view mode.
func WithViewMode(mode viewport.ViewMode) Option {
	return func(c *Coordinator) { c.viewMode = mode }
}

// WithNodeTree enables block zoom over tree.
func WithNodeTree(tree viewport.NodeTree) Option {
	return func(c *Coordinator) { c.tree = tree }
}

// WithScreen sets the display description.
func WithScreen(s Screen) Option {
	return func(c *Coordinator) { c.screen = s }
}

// WithEmitter sets the host event sink.
func WithEmitter(emit types.EventEmitter) Option {
	return func(c *Coordinator) { c.emit = emit }
}

// WithLogger sets the logger. Components log under derived names.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithContentLoop runs the coordinator on loop instead of a private one.
func WithContentLoop(loop *dispatch.Loop) Option {
	return func(c *Coordinator) { c.content = loop }
}

// WithCompositing enables accelerated compositing with the given layers and
// backend. backend may be nil and attached later with SetCompositor.
func WithCompositing(layers compositor.LayerSource, backend compositor.Compositor) Option {
	return func(c *Coordinator) {
		c.accelerated = true
		c.layers = layers
		c.backend = backend
	}
}

// WithTrace records layer commits to w.
func WithTrace(w *compositor.TraceWriter) Option {
	return func(c *Coordinator) { c.trace = w }
}

// WithContext bounds blocking commits.
func WithContext(ctx context.Context) Option {
	return func(c *Coordinator) { c.ctx = ctx }
}

// New builds a page view over layout, painting through backend and
// performing deferred actions on handler.
func New(layout LayoutEngine, backend surface.Backend, handler ActionHandler, opts ...Option) (*Coordinator, error) {
	switch {
	case layout == nil:
		return nil, errors.New("pageview: layout engine is required")
	case backend == nil:
		return nil, errors.New("pageview: surface backend is required")
	case handler == nil:
		return nil, errors.New("pageview: action handler is required")
	}

	c := &Coordinator{
		layout:   layout,
		handler:  handler,
		settings: config.DefaultViewportSettings(),
		ctx:      context.Background(),
		visible:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.emit == nil {
		c.emit = func(*types.PageEvent) {}
	}
	if c.logger == nil {
		c.logger = logging.Discard("pageview")
	}
	if c.screen == nil {
		c.screen = StaticScreen{Ratio: c.settings.DevicePixelRatio}
	}
	if c.content == nil {
		c.content = dispatch.NewLoop("content")
	}
	c.compositing = dispatch.NewLoop("compositing")
	if c.layers == nil {
		c.layers = compositor.NewLayerSet()
	}

	c.gate = surface.New(backend, c.logger.Named("surface"))
	c.queue = deferred.NewQueue()

	engineOpts := []viewport.Option{
		viewport.WithSettings(c.settings),
		viewport.WithViewMode(c.viewMode),
		viewport.WithEmitter(c.emit),
		viewport.WithLogger(c.logger.Named("viewport")),
		viewport.WithLoadState(c.isLoading, c.isEarly),
	}
	if c.tree != nil {
		engineOpts = append(engineOpts, viewport.WithNodeTree(c.tree))
	}
	engine, err := viewport.New(layout, c.gate, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("pageview: %w", err)
	}
	c.viewport = engine
	c.viewport.SetScreenSize(c.screen.AvailableSize())

	c.load = loadstate.New(c.gate, c.viewport, c.emit, c.logger.Named("loadstate"))
	c.load.OnTransition(c.didTransition)

	bridgeOpts := []compositor.Option{
		compositor.WithEmitter(c.emit),
		compositor.WithLogger(c.logger.Named("compositor")),
		compositor.WithContext(c.ctx),
	}
	if c.backend != nil {
		bridgeOpts = append(bridgeOpts, compositor.WithCompositor(c.backend))
	}
	if c.trace != nil {
		bridgeOpts = append(bridgeOpts, compositor.WithTrace(c.trace))
	}
	bridge, err := compositor.New(c.content, c.compositing, &bridgeView{c}, c.layers, bridgeOpts...)
	if err != nil {
		return nil, fmt.Errorf("pageview: %w", err)
	}
	c.bridge = bridge

	c.gate.OnScreenResumed(c.screenResumed)
	c.layout.OnLayout(c.LayoutFinished)
	return c, nil
}

// Start launches the compositing loop. Commits block until it runs.
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.compositing.Start(ctx); err != nil {
		return fmt.Errorf("pageview: %w", err)
	}
	c.logger.Infof("page view started (accelerated=%v)", c.accelerated)
	return nil
}

// Close stops the compositing loop and closes the commit trace.
func (c *Coordinator) Close() error {
	c.compositing.Stop()
	if c.trace != nil {
		return c.trace.Close()
	}
	return nil
}

// ContentLoop returns the loop the coordinator runs on.
func (c *Coordinator) ContentLoop() *dispatch.Loop { return c.content }

// Viewport returns the viewport engine.
func (c *Coordinator) Viewport() *viewport.Engine { return c.viewport }

// Surface returns the surface gate.
func (c *Coordinator) Surface() *surface.Sync { return c.gate }

// Bridge returns the compositor bridge.
func (c *Coordinator) Bridge() *compositor.Bridge { return c.bridge }

// Queue returns the deferred action queue.
func (c *Coordinator) Queue() *deferred.Queue { return c.queue }

// LoadState returns the current load state.
func (c *Coordinator) LoadState() loadstate.State { return c.load.State() }

// IsLoadingDeferred reports whether host-visible actions are being deferred.
func (c *Coordinator) IsLoadingDeferred() bool { return c.deferring }

// DevicePixelRatio returns the display pixel density.
func (c *Coordinator) DevicePixelRatio() float64 {
	if r := c.screen.DevicePixelRatio(); r > 0 {
		return r
	}
	return c.settings.DevicePixelRatio
}

// SetCompositor attaches or, with nil, detaches the compositing backend.
func (c *Coordinator) SetCompositor(backend compositor.Compositor) {
	c.bridge.SetCompositor(backend)
}

// Status is a snapshot of the page view for hosts and tooling.
type Status struct {
	LoadState        string           `json:"load_state"`
	Navigations      int              `json:"navigations"`
	Deferring        bool             `json:"deferring"`
	Pending          []string         `json:"pending"`
	Viewport         viewport.State   `json:"viewport"`
	ContentSize      geom.Size        `json:"content_size"`
	DevicePixelRatio float64          `json:"device_pixel_ratio"`
	Surface          surface.Stats    `json:"surface"`
	Compositor       compositor.Stats `json:"compositor"`
}

// Status returns a snapshot of the page view.
func (c *Coordinator) Status() Status {
	kinds := c.queue.Kinds()
	pending := make([]string, 0, len(kinds))
	for _, k := range kinds {
		pending = append(pending, k.String())
	}
	return Status{
		LoadState:        c.load.State().String(),
		Navigations:      c.load.Navigations(),
		Deferring:        c.deferring,
		Pending:          pending,
		Viewport:         c.viewport.Snapshot(),
		ContentSize:      c.layout.ContentSize(),
		DevicePixelRatio: c.DevicePixelRatio(),
		Surface:          c.gate.Stats(),
		Compositor:       c.bridge.Stats(),
	}
}

func (c *Coordinator) isLoading() bool {
	if c.load == nil {
		return false
	}
	return c.load.IsLoading()
}

func (c *Coordinator) isEarly() bool {
	if c.load == nil {
		return true
	}
	s := c.load.State()
	return s == loadstate.None || s == loadstate.Provisional
}

// compositingActive reports whether layers are composited rather than drawn
// only by the tile surface.
func (c *Coordinator) compositingActive() bool {
	return c.accelerated && c.layers.HasLayers()
}

// screenResumed pairs every presented frame with a layer commit while
// compositing, so tiles and layers reach the screen together. The commit
// runs from the bridge's commit task and shares it with any commit the
// gesture itself schedules.
func (c *Coordinator) screenResumed(mode surface.Mode) {
	if !c.compositingActive() {
		return
	}
	c.bridge.SetNeedsOneShotDrawingSynchronization()
	c.layoutIfNeeded()
}

// bridgeView exposes the coordinator's geometry to the compositor bridge.
type bridgeView struct{ c *Coordinator }

func (v *bridgeView) CompleteLayoutIfNeeded() { v.c.layoutIfNeeded() }
func (v *bridgeView) NeedsLayout() bool       { return v.c.layout.NeedsLayout() }
func (v *bridgeView) CurrentScale() float64   { return v.c.viewport.CurrentScale() }
func (v *bridgeView) RepaintAll()             { v.c.gate.RepaintAll() }

func (v *bridgeView) LayoutRect() geom.Rect {
	p := v.c.viewport.ScrollPosition()
	s := v.c.viewport.VisibleDocumentSize()
	return geom.R(p.X, p.Y, s.Width, s.Height)
}

func (v *bridgeView) DocumentRect() geom.Rect {
	s := v.c.layout.ContentSize()
	return geom.R(0, 0, s.Width, s.Height)
}
