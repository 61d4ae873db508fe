package pageview

import (
	"math"

	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/pageview/loadstate"
	"github.com/entrhq/pageview/pkg/pageview/surface"
	"github.com/entrhq/pageview/pkg/pageview/viewport"
)

// viewModeChangeThreshold is the relative layout size change ignored while
// nested inside a layout pass.
const viewModeChangeThreshold = 0.05

// RequestZoom zooms to scale about anchor, in document coordinates, on
// behalf of the user. It reports false when zooming is disabled or the
// clamped scale is already applied.
func (c *Coordinator) RequestZoom(scale float64, anchor geom.FloatPoint) bool {
	v := c.viewport
	if !v.UserScalable() {
		return false
	}
	if v.ClampedScale(scale) == v.CurrentScale() {
		return false
	}
	v.SetUserZoomed(true)
	if !v.ZoomAboutPoint(scale, anchor, true, false) {
		return false
	}
	c.bridge.ScheduleCommit()
	return true
}

// RequestBlockZoom zooms to or out of the block under p.
func (c *Coordinator) RequestBlockZoom(p geom.Point) (viewport.BlockZoomTarget, bool) {
	target, ok := c.viewport.BlockZoom(p)
	if !ok {
		return target, false
	}
	c.bridge.ScheduleCommit()
	return target, true
}

// RequestScroll scrolls to p, in document coordinates, on behalf of the
// user. It reports whether the clamped position changed.
func (c *Coordinator) RequestScroll(p geom.Point) bool {
	before := c.viewport.ScrollPosition()
	c.viewport.SetScrollPosition(p, true)
	if c.viewport.ScrollPosition() == before {
		return false
	}
	c.gate.UpdateTiles(true, false)
	c.bridge.ScheduleCommit()
	return true
}

// ApplyViewportHints applies the scale constraints and virtual viewport the
// page asked for. A zero virtual size keeps the current one. After a load
// has finished the page is zoomed to its new initial scale even if the user
// zoomed before.
func (c *Coordinator) ApplyViewportHints(hints viewport.ScaleHints, virtual geom.Size, force bool) {
	v := c.viewport
	v.SetScaleHints(hints, force)
	if !virtual.IsEmpty() {
		v.SetVirtualViewport(virtual)
	}

	state := c.load.State()
	if state == loadstate.Finished {
		v.SetUserZoomed(false)
		c.zoomAfterFinish = true
	}
	if state == loadstate.Committed || state == loadstate.Finished {
		c.zoomToInitialScaleOnLoad()
	}
}

// RequestResize changes the visible size in pixels and the default layout
// size. Scale and scroll follow the resize: a page at its initial scale
// stays at the initial scale of the new size, otherwise the visible center
// stays put, and pages scrolled to the top or left edge stay there. It
// reports false when the visible size did not change.
func (c *Coordinator) RequestResize(visible, defaultLayout geom.Size) bool {
	v := c.viewport
	if visible == v.VisibleSize() {
		v.SetDefaultLayoutSize(defaultLayout)
		return false
	}

	screen := c.gate.Hold(surface.Screen)
	defer screen.Release()
	tiles := c.gate.Hold(surface.Tiles)
	defer tiles.Release()

	center := c.centerOfVisibleContents()
	atInitial := v.CurrentScale() == v.InitialScale() || !v.UserScalable()
	scroll := v.ScrollPosition()
	atTop, atLeft := scroll.Y == 0, scroll.X == 0

	v.SetDefaultLayoutSize(defaultLayout)
	needsLayout := false
	v.SetVisibleSize(visible)
	if v.HasVirtualViewport() {
		c.layout.SetFixedLayoutSize(v.FixedLayoutSize(false))
		needsLayout = true
	}

	v.ClampScrollToContents()
	if c.setViewMode() {
		needsLayout = true
	}
	v.ContentsSizeChanged()

	if !v.ZoomToFitOnLoad() {
		atInitial = false
		// Without zoom to fit, narrow content would leave unrendered space
		// beside it.
		if !v.HasVirtualViewport() && c.layout.ContentSize().Width < v.DefaultLayoutSize().Width {
			c.layout.SetFixedLayoutSize(v.DefaultLayoutSize())
			needsLayout = true
		}
	}

	tiles.Release()

	if needsLayout {
		c.layout.SetNeedsLayout()
		c.layoutIfNeeded()
	}

	scale := v.CurrentScale()
	if atInitial {
		scale = v.InitialScale()
	}
	scale = v.ClampedScale(scale)

	anchor := center
	if atTop {
		anchor.Y = 0
	}
	if atLeft {
		anchor.X = 0
	}

	if !v.ZoomAboutPoint(scale, anchor, false, true) {
		retry := c.gate.Hold(surface.Tiles)
		p := v.ScrollPosition()
		if atTop {
			p.Y = 0
		}
		if atLeft {
			p.X = 0
		}
		v.SetScrollPosition(p, false)
		v.ContentsSizeChanged()

		if needsLayout {
			c.gate.ResetTiles()
			c.gate.UpdateTiles(false, false)
		} else {
			c.gate.UpdateTiles(true, false)
		}
		retry.Release()
	}

	c.logger.Debugf("resized to %s (layout %s) at %.3f", visible, v.DefaultLayoutSize(), v.CurrentScale())
	screen.SetMode(surface.PaintAndBlit)
	c.bridge.ScheduleCommit()
	return true
}

// LayoutFinished reacts to a completed layout pass. It runs as the layout
// engine's OnLayout callback and may itself trigger nested passes.
func (c *Coordinator) LayoutFinished(contentsSizeChanged bool) {
	if !contentsSizeChanged {
		return
	}
	contents := c.layout.ContentSize()
	if contents.IsEmpty() {
		return
	}

	v := c.viewport
	if v.DidLayoutExceedMaximumIterations() {
		v.ContentsSizeChanged()
		return
	}

	previous := c.previousContents
	state := c.load.State()

	v.EnterLayoutPass()
	if c.shouldZoomToInitialScale() {
		c.zoomToInitialScaleOnLoad()
		c.zoomAfterFinish = false
	} else if state != loadstate.None {
		v.ContentsSizeChanged()
	}
	v.LeaveLayoutPass()

	contents = c.layout.ContentSize()
	if v.LayoutDepth() == 0 && contents != previous {
		v.ClampScrollToContents()

		state = c.load.State()
		pixels := v.TransformedContentsSize()
		visible := v.VisibleSize()
		if (state == loadstate.Finished || state == loadstate.Committed) &&
			(pixels.Width < visible.Width || pixels.Height < visible.Height) {
			v.ZoomAboutPoint(v.InitialScale(), v.ScrollPosition().Float(), true, false)
		}
	}
	c.previousContents = contents
}

func (c *Coordinator) shouldZoomToInitialScale() bool {
	return c.load.State() == loadstate.Committed || c.zoomAfterFinish
}

// zoomToInitialScaleOnLoad fixes the layout size for the loaded content and
// zooms to the initial scale unless the user already zoomed.
func (c *Coordinator) zoomToInitialScaleOnLoad() {
	v := c.viewport
	if c.setViewMode() {
		c.layout.SetNeedsLayout()
	}

	if c.layout.ContentSize().IsEmpty() {
		c.layoutIfNeeded()
		v.ContentsSizeChanged()
		return
	}

	zoomed := false
	if !v.UserZoomed() && !c.restoring && c.shouldZoomToInitialScale() {
		anchor := c.centerOfVisibleContents()
		scroll := v.ScrollPosition()
		if scroll.X == 0 {
			anchor.X = 0
		}
		if scroll.Y == 0 {
			anchor.Y = 0
		}
		zoomed = v.ZoomAboutPoint(v.InitialScale(), anchor, true, false)
	}

	c.layoutIfNeeded()
	if !zoomed {
		v.ContentsSizeChanged()
	}
}

// setViewMode applies the fixed layout size the viewport wants. It reports
// whether the layout size changed and a layout pass is needed. Changes under
// five percent are ignored inside nested passes so they converge.
func (c *Coordinator) setViewMode() bool {
	v := c.viewport
	snap := v.DidLayoutExceedMaximumIterations()

	current := c.layout.FixedLayoutSize()
	next := v.FixedLayoutSize(snap)
	if current == next {
		return false
	}

	if v.LayoutDepth() > 0 && current.Width > 0 && current.Height > 0 {
		dw := math.Abs(float64(next.Width-current.Width) / float64(current.Width))
		dh := math.Abs(float64(next.Height-current.Height) / float64(current.Height))
		if dw < viewModeChangeThreshold && dh < viewModeChangeThreshold {
			return false
		}
	}

	c.logger.Debugf("fixed layout size %s -> %s (snap=%v)", current, next, snap)
	c.layout.SetFixedLayoutSize(next)
	return true
}

func (c *Coordinator) layoutIfNeeded() {
	c.layout.CompleteLayoutIfNeeded()
}

func (c *Coordinator) centerOfVisibleContents() geom.FloatPoint {
	v := c.viewport
	p := v.ScrollPosition()
	s := v.VisibleSize()
	scale := v.CurrentScale()
	return geom.FloatPoint{
		X: float64(p.X) + float64(s.Width)/scale/2,
		Y: float64(p.Y) + float64(s.Height)/scale/2,
	}
}
