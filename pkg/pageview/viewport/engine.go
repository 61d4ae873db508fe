// Package viewport computes the zoom scale, scroll position, and layout
// geometry of a page view.
//
// Scroll positions and node rects are in document coordinates. The visible
// size is in pixels; dividing it by the current scale gives the visible
// document area.
package viewport

import (
	"errors"
	"math"

	"github.com/entrhq/pageview/pkg/config"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/logging"
	"github.com/entrhq/pageview/pkg/pageview/surface"
	"github.com/entrhq/pageview/pkg/types"
)

const (
	// FallbackMaximumScale bounds zooming when the page sets no usable maximum.
	FallbackMaximumScale = 5.0
	// MinimumZoomToFitScale is the floor of ZoomToFitScale.
	MinimumZoomToFitScale = 0.25
	// MaximumImageDocumentZoomToFitScale caps ZoomToFitScale for image documents.
	MaximumImageDocumentZoomToFitScale = 2.0
	// MaximumLayoutIterations is the nesting depth past which fixed layout
	// widths are quantized.
	MaximumLayoutIterations = 10

	// viewportTolerance is the slack in RespectViewport. Its origin is
	// unknown; kept as is.
	viewportTolerance = 1
)

// MinimumLayoutSize is the smallest default layout size accepted.
var MinimumLayoutSize = geom.Sz(10, 10)

// ViewMode selects how FixedLayoutSize sizes pages without a virtual viewport.
type ViewMode int

const (
	// Desktop sizes the layout to the content, within the maximum layout size.
	Desktop ViewMode = iota
	// FixedDesktop always lays out at the maximum layout width.
	FixedDesktop
)

// ContentSource reports laid out content geometry.
type ContentSource interface {
	ContentSize() geom.Size
	// ImageDocumentWidth returns the natural image width when the document
	// is a single image.
	ImageDocumentWidth() (int, bool)
}

// Surface is the part of the render gate the engine drives.
type Surface interface {
	SuspendAll() *surface.Scope
	UpdateTiles(visibleOnly, immediate bool)
}

// ScaleHints are the scale constraints negotiated with the page. Values
// less than or equal to zero are unset.
type ScaleHints struct {
	Minimum float64 `yaml:"minimum" json:"minimum"`
	Maximum float64 `yaml:"maximum" json:"maximum"`
	Initial float64 `yaml:"initial" json:"initial"`
}

// State is a snapshot of the engine geometry.
type State struct {
	VisibleSize         geom.Size  `json:"visible_size"`
	DefaultLayoutSize   geom.Size  `json:"default_layout_size"`
	VirtualViewportSize geom.Size  `json:"virtual_viewport_size"`
	CurrentScale        float64    `json:"current_scale"`
	Hints               ScaleHints `json:"hints"`
	ScrollPosition      geom.Point `json:"scroll_position"`
}

// Engine owns the viewport state of one page view. It is not safe for
// concurrent use; it runs on the content loop.
type Engine struct {
	content   ContentSource
	tree      NodeTree
	gate      Surface
	emit      types.EventEmitter
	logger    *logging.Logger
	isLoading func() bool
	isEarly   func() bool

	settings config.ViewportSettings
	viewMode ViewMode

	visible       geom.Size
	screen        geom.Size
	defaultLayout geom.Size
	virtual       geom.Size
	scale         float64
	hints         ScaleHints
	forceRespect  bool
	scroll        geom.Point
	userZoomed    bool
	userScrolled  bool
	layoutDepth   int
	lastContents  geom.Size
	block         blockZoomState
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the viewport settings.
func WithSettings(s config.ViewportSettings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithViewMode sets the layout view mode.
func WithViewMode(mode ViewMode) Option {
	return func(e *Engine) { e.viewMode = mode }
}

// WithEmitter sets the host event sink.
func WithEmitter(emit types.EventEmitter) Option {
	return func(e *Engine) { e.emit = emit }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithLoadState supplies the load phase queries. isLoading reports a
// navigation in flight; isEarly reports that it has not committed yet.
func WithLoadState(isLoading, isEarly func() bool) Option {
	return func(e *Engine) {
		e.isLoading = isLoading
		e.isEarly = isEarly
	}
}

// WithNodeTree sets the node tree used for block zoom.
func WithNodeTree(tree NodeTree) Option {
	return func(e *Engine) { e.tree = tree }
}

// New creates an engine at scale 1 with an empty viewport.
func New(content ContentSource, gate Surface, opts ...Option) (*Engine, error) {
	if content == nil {
		return nil, errors.New("viewport: content source is required")
	}
	if gate == nil {
		return nil, errors.New("viewport: surface is required")
	}

	e := &Engine{
		content:       content,
		gate:          gate,
		settings:      config.DefaultViewportSettings(),
		scale:         1,
		hints:         ScaleHints{Minimum: -1, Maximum: -1, Initial: -1},
		defaultLayout: MinimumLayoutSize,
		isLoading:     func() bool { return false },
		isEarly:       func() bool { return false },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.emit == nil {
		e.emit = func(*types.PageEvent) {}
	}
	if e.logger == nil {
		e.logger = logging.Discard("viewport")
	}
	if e.settings.InitialScale > 0 {
		e.hints.Initial = e.settings.InitialScale
	}
	e.lastContents = content.ContentSize()
	return e, nil
}

// Snapshot returns the current geometry.
func (e *Engine) Snapshot() State {
	return State{
		VisibleSize:         e.visible,
		DefaultLayoutSize:   e.defaultLayout,
		VirtualViewportSize: e.virtual,
		CurrentScale:        e.scale,
		Hints:               e.hints,
		ScrollPosition:      e.scroll,
	}
}

// CurrentScale returns the applied scale.
func (e *Engine) CurrentScale() float64 { return e.scale }

// ScrollPosition returns the scroll position in document coordinates.
func (e *Engine) ScrollPosition() geom.Point { return e.scroll }

// VisibleSize returns the visible size in pixels.
func (e *Engine) VisibleSize() geom.Size { return e.visible }

// DefaultLayoutSize returns the default layout size.
func (e *Engine) DefaultLayoutSize() geom.Size { return e.defaultLayout }

// VirtualViewport returns the virtual viewport size, zero when absent.
func (e *Engine) VirtualViewport() geom.Size { return e.virtual }

// HasVirtualViewport reports whether a virtual viewport is active.
func (e *Engine) HasVirtualViewport() bool { return !e.virtual.IsEmpty() }

// UserZoomed reports whether the user zoomed during this navigation.
func (e *Engine) UserZoomed() bool { return e.userZoomed }

// SetUserZoomed records a manual zoom.
func (e *Engine) SetUserZoomed(zoomed bool) { e.userZoomed = zoomed }

// UserScrolled reports whether the user scrolled during this navigation.
func (e *Engine) UserScrolled() bool { return e.userScrolled }

// UserScalable reports whether gestures may change the scale.
func (e *Engine) UserScalable() bool { return e.settings.UserScalable }

// ZoomToFitOnLoad reports whether loads start zoomed to fit.
func (e *Engine) ZoomToFitOnLoad() bool { return e.settings.ZoomToFitOnLoad }

// VisibleDocumentSize returns the visible area in document coordinates.
func (e *Engine) VisibleDocumentSize() geom.Size {
	return geom.Sz(
		int(math.Round(float64(e.visible.Width)/e.scale)),
		int(math.Round(float64(e.visible.Height)/e.scale)),
	)
}

// TransformedContentsSize returns the content size in pixels at the current scale.
func (e *Engine) TransformedContentsSize() geom.Size {
	c := e.content.ContentSize()
	return geom.Sz(int(math.Round(float64(c.Width)*e.scale)), int(math.Round(float64(c.Height)*e.scale)))
}

// SetVisibleSize sets the visible size in pixels.
func (e *Engine) SetVisibleSize(size geom.Size) {
	e.visible = size
	if e.settings.ViewportWidth > 0 {
		e.recomputeVirtualViewport()
	}
}

// SetScreenSize sets the available screen size, the upper bound of the
// default layout size.
func (e *Engine) SetScreenSize(size geom.Size) {
	e.screen = size
	e.SetDefaultLayoutSize(e.defaultLayout)
}

// SetDefaultLayoutSize sets the layout size used before content is known,
// clamped to at least MinimumLayoutSize and at most the screen size.
func (e *Engine) SetDefaultLayoutSize(size geom.Size) {
	size = size.ExpandedTo(MinimumLayoutSize)
	if !e.screen.IsEmpty() {
		size = size.ShrunkTo(e.screen.ExpandedTo(MinimumLayoutSize))
	}
	e.defaultLayout = size
}

// SetVirtualViewport sets or clears (zero size) the virtual viewport.
func (e *Engine) SetVirtualViewport(size geom.Size) { e.virtual = size }

// SetScaleHints sets the scale constraints negotiated with the page.
// forceRespect makes them apply even when content overflows the viewport.
func (e *Engine) SetScaleHints(h ScaleHints, forceRespect bool) {
	e.hints = h
	e.forceRespect = forceRespect
}

// recomputeVirtualViewport derives the virtual viewport from the configured
// viewport width, keeping the visible aspect ratio.
func (e *Engine) recomputeVirtualViewport() {
	w := e.settings.ViewportWidth
	if w <= 0 || e.visible.IsEmpty() {
		e.virtual = geom.Size{}
		return
	}
	h := int(math.Ceil(float64(w) * float64(e.visible.Height) / float64(e.visible.Width)))
	e.virtual = geom.Sz(w, h)
}

// ResetScales forgets negotiated scale hints and returns to scale 1. The
// configured initial scale, if any, becomes the initial hint again.
func (e *Engine) ResetScales() {
	e.scale = 1
	e.hints = ScaleHints{Minimum: -1, Maximum: -1, Initial: -1}
	if e.settings.InitialScale > 0 {
		e.hints.Initial = e.settings.InitialScale
	}
}

// ResetForCommit prepares the viewport for a newly committed navigation.
// With keepNegotiated the scale state of a restored page is kept and only
// the virtual viewport is recomputed.
func (e *Engine) ResetForCommit(keepNegotiated bool) {
	e.userZoomed = false
	e.userScrolled = false
	e.layoutDepth = 0

	if keepNegotiated {
		e.recomputeVirtualViewport()
		return
	}
	e.forceRespect = false
	e.recomputeVirtualViewport()
	e.ResetScales()
}

// ResetScrollToOrigin scrolls to the top left and notifies the host.
func (e *Engine) ResetScrollToOrigin() {
	e.scroll = geom.Point{}
	e.emit(types.NewScrollChangedEvent(e.scroll))
}

// SetScrollPosition scrolls to p, clamped to the scrollable area. user marks
// the scroll as user-initiated.
func (e *Engine) SetScrollPosition(p geom.Point, user bool) {
	clamped := e.clampScroll(p)
	if user {
		e.userScrolled = true
	}
	if clamped == e.scroll {
		return
	}
	e.scroll = clamped
	e.emit(types.NewScrollChangedEvent(e.scroll))
}

// MaximumScrollPosition returns the largest scroll position at the current scale.
func (e *Engine) MaximumScrollPosition() geom.Point {
	c := e.content.ContentSize()
	v := e.VisibleDocumentSize()
	return geom.Pt(max(0, c.Width-v.Width), max(0, c.Height-v.Height))
}

func (e *Engine) clampScroll(p geom.Point) geom.Point {
	m := e.MaximumScrollPosition()
	return geom.Pt(min(max(0, p.X), m.X), min(max(0, p.Y), m.Y))
}

// RespectViewport reports whether the page's scale hints apply: either
// forced, or the content fits the virtual viewport.
func (e *Engine) RespectViewport() bool {
	return e.forceRespect || e.content.ContentSize().Width <= e.virtual.Width+viewportTolerance
}

// ZoomToFitScale returns the scale at which the content width fills the
// visible width, raised so the content is at least the default layout
// height, and bounded by MinimumZoomToFitScale.
func (e *Engine) ZoomToFitScale() float64 {
	contents := e.content.ContentSize()
	width := contents.Width
	imageWidth, isImage := e.content.ImageDocumentWidth()
	if isImage {
		width = imageWidth
	}

	scale := 1.0
	if width > 0 {
		scale = float64(e.visible.Width) / float64(width)
	}
	if float64(contents.Height)*scale < float64(e.defaultLayout.Height) {
		if contents.Height > 0 {
			scale = float64(e.defaultLayout.Height) / float64(contents.Height)
		} else {
			scale = 1.0
		}
	}
	scale = math.Max(scale, MinimumZoomToFitScale)

	if isImage {
		return math.Min(scale, MaximumImageDocumentZoomToFitScale)
	}
	return scale
}

// hasConfiguredMaximum reports whether the page set a usable maximum.
func (e *Engine) hasConfiguredMaximum() bool {
	return e.hints.Maximum > 0 && e.hints.Maximum >= e.hints.Minimum
}

// MaximumScale returns the largest allowed scale.
func (e *Engine) MaximumScale() float64 {
	fit := e.ZoomToFitScale()
	if e.hasConfiguredMaximum() && e.RespectViewport() {
		return math.Max(fit, e.hints.Maximum)
	}
	if e.HasVirtualViewport() {
		return math.Max(fit, FallbackMaximumScale)
	}
	return FallbackMaximumScale
}

// MinimumScale returns the smallest allowed scale. It never exceeds
// MaximumScale, even when zoom to fit does.
func (e *Engine) MinimumScale() float64 {
	fit := e.ZoomToFitScale()
	maximum := e.MaximumScale()
	minimum := fit
	if e.hints.Minimum > fit && e.hints.Minimum <= maximum && e.RespectViewport() {
		minimum = e.hints.Minimum
	}
	return math.Min(minimum, maximum)
}

// InitialScale returns the scale a load should settle at.
func (e *Engine) InitialScale() float64 {
	if e.hints.Initial > 0 && e.RespectViewport() {
		return e.hints.Initial
	}
	if e.settings.ZoomToFitOnLoad {
		return e.ZoomToFitScale()
	}
	return 1.0
}

// ClampedScale bounds scale by MinimumScale and MaximumScale.
func (e *Engine) ClampedScale(scale float64) float64 {
	return math.Max(e.MinimumScale(), math.Min(e.MaximumScale(), scale))
}

// ShouldZoomToFitOnResize reports whether a resize should re-fit the page:
// the user has not zoomed and the page is at its fit scale.
func (e *Engine) ShouldZoomToFitOnResize() bool {
	return !e.userZoomed && e.settings.ZoomToFitOnLoad
}

// ZoomAboutPoint applies scale keeping anchor, in document coordinates, at
// the same place on screen. It reports false and changes nothing when the
// resulting scale equals the current one. Without enforceClamping the
// scale is applied as given. forceRender presents the result even while
// loading.
func (e *Engine) ZoomAboutPoint(scale float64, anchor geom.FloatPoint, enforceClamping, forceRender bool) bool {
	if enforceClamping {
		scale = e.ClampedScale(scale)
	}
	if scale == e.scale || scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return false
	}
	e.ResetBlockZoom()

	oldScale := e.scale
	offset := geom.FloatPoint{X: anchor.X - float64(e.scroll.X), Y: anchor.Y - float64(e.scroll.Y)}
	inverse := scale / oldScale

	scope := e.gate.SuspendAll()
	defer scope.Release()

	e.scale = scale
	next := geom.FloatPoint{X: anchor.X - offset.X/inverse, Y: anchor.Y - offset.Y/inverse}.Round()
	e.scroll = e.clampScroll(next)

	loading := e.isLoading()
	e.gate.UpdateTiles(loading, false)

	e.logger.Debugf("zoom %.3f -> %.3f about (%.1f,%.1f), scroll %s", oldScale, scale, anchor.X, anchor.Y, e.scroll)
	e.notifyGeometry()

	if !loading || e.userZoomed || forceRender {
		scope.SetMode(surface.PaintAndBlit)
	} else {
		scope.SetMode(surface.None)
	}
	return true
}

// applyScaleAndScroll sets scale and scroll directly and presents the result.
func (e *Engine) applyScaleAndScroll(scale float64, scroll geom.Point) {
	scope := e.gate.SuspendAll()
	defer scope.Release()

	e.scale = scale
	e.scroll = e.clampScroll(scroll)
	e.gate.UpdateTiles(false, false)
	e.notifyGeometry()
	scope.SetMode(surface.PaintAndBlit)
}

func (e *Engine) notifyGeometry() {
	e.emit(types.NewScaleChangedEvent(e.scale))
	e.emit(types.NewScrollChangedEvent(e.scroll))
	e.emit(types.NewContentsSizeChangedEvent(e.TransformedContentsSize()))
}

// ContentsSizeChanged records a new content size and notifies the host. It
// reports whether the content shrank in either dimension.
func (e *Engine) ContentsSizeChanged() (shrank bool) {
	c := e.content.ContentSize()
	shrank = c.Width < e.lastContents.Width || c.Height < e.lastContents.Height
	e.lastContents = c
	e.emit(types.NewContentsSizeChangedEvent(e.TransformedContentsSize()))
	return shrank
}

// ClampScrollToContents pulls the scroll position back inside the content.
func (e *Engine) ClampScrollToContents() {
	e.SetScrollPosition(e.scroll, false)
}

// EnterLayoutPass records the start of a nested layout pass.
func (e *Engine) EnterLayoutPass() { e.layoutDepth++ }

// LeaveLayoutPass records the end of a nested layout pass.
func (e *Engine) LeaveLayoutPass() {
	if e.layoutDepth > 0 {
		e.layoutDepth--
	}
}

// LayoutDepth returns the current nesting depth.
func (e *Engine) LayoutDepth() int { return e.layoutDepth }

// DidLayoutExceedMaximumIterations reports whether nested layout passes
// went past MaximumLayoutIterations.
func (e *Engine) DidLayoutExceedMaximumIterations() bool {
	return e.layoutDepth > MaximumLayoutIterations
}

// FixedLayoutSize returns the size the page should be laid out at. With snap
// the width is rounded up to a multiple of half the default layout width so
// repeated passes converge.
func (e *Engine) FixedLayoutSize(snap bool) geom.Size {
	if e.HasVirtualViewport() {
		return e.virtual
	}
	if e.isEarly() {
		return e.defaultLayout
	}

	defW := e.defaultLayout.Width
	defH := e.defaultLayout.Height
	maxW := max(e.settings.MaxLayoutWidth, defW)
	maxH := max(e.settings.MaxLayoutHeight, MinimumLayoutSize.Height)

	heightFor := func(width int) int {
		return int(math.Ceil(float64(width) / float64(defW) * float64(defH)))
	}

	if e.viewMode == FixedDesktop {
		if defH <= MinimumLayoutSize.Height {
			return geom.Sz(maxW, maxH)
		}
		return geom.Sz(maxW, heightFor(maxW))
	}

	width := e.content.ContentSize().Width
	if snap {
		half := float64(defW) / 2
		width = int(half * math.Ceil(float64(width)/half))
	}
	width = min(max(width, defW), maxW)
	return geom.Sz(width, heightFor(width))
}
