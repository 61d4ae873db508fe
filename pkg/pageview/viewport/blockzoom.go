package viewport

import (
	"math"

	"github.com/entrhq/pageview/pkg/document"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/types"
)

const (
	// MinimumExpandingRatio is the smallest relative gain that makes a block
	// zoom, or an expansion to an ancestor, worth doing.
	MinimumExpandingRatio = 0.15
	// MaximumBlockZoomScale caps the scale a block zoom may reach.
	MaximumBlockZoomScale = 3.0
	// BlockZoomMargin is the margin in document pixels kept on each side of
	// a zoomed block.
	BlockZoomMargin = 3

	// expansionFactor scales the squared block-to-page ratio into the
	// largest ancestor/candidate area ratio accepted.
	expansionFactor = 5.0
	// minimumAncestorGrowth skips ancestors barely larger than the candidate.
	minimumAncestorGrowth = 1.1
	// maximumVerticalDisplacement is the fraction of the visible height a
	// marginal zoom may move before it counts as a real move.
	maximumVerticalDisplacement = 0.10
)

// NodeTree answers the node queries block zoom needs.
type NodeTree interface {
	NodeAt(p geom.Point) (document.NodeID, bool)
	Parent(id document.NodeID) (document.NodeID, bool)
	Children(id document.NodeID) []document.NodeID
	Rect(id document.NodeID) geom.Rect
	Kind(id document.NodeID) document.NodeKind
	IsDescendantOf(id, ancestor document.NodeID) bool
}

// BlockZoomTarget is the result of a block zoom gesture.
type BlockZoomTarget struct {
	Node           document.NodeID `json:"node"`
	Rect           geom.Rect       `json:"rect"`
	Scale          float64         `json:"scale"`
	ScrollPosition geom.Point      `json:"scroll_position"`
	ZoomOut        bool            `json:"zoom_out"`
}

type blockZoomState struct {
	active      bool
	node        document.NodeID
	adjusted    document.NodeID
	originScale float64
	origin      geom.Point
}

// ResetBlockZoom leaves block zoom mode without changing the scale.
func (e *Engine) ResetBlockZoom() {
	e.block = blockZoomState{}
}

// BlockZoomActive reports whether a block is currently zoomed.
func (e *Engine) BlockZoomActive() bool { return e.block.active }

func (e *Engine) maximumBlockZoomScale() float64 {
	return math.Min(MaximumBlockZoomScale, e.MaximumScale())
}

// newScaleForBlockZoomRect returns the scale at which rect plus margin fills
// the visible width. Empty rects yield math.MaxFloat64.
func (e *Engine) newScaleForBlockZoomRect(rect geom.Rect, oldScale, margin float64) float64 {
	if rect.IsEmpty() {
		return math.MaxFloat64
	}
	return oldScale * e.visibleDocWidth() / (float64(rect.Width) + margin)
}

func (e *Engine) visibleDocWidth() float64 {
	return float64(e.visible.Width) / e.scale
}

// nearlyVisibleWidth reports whether width is within MinimumExpandingRatio
// of the visible width, where zooming to it would change almost nothing.
func (e *Engine) nearlyVisibleWidth(width int) bool {
	vis := e.visibleDocWidth()
	if vis <= 0 {
		return true
	}
	return (vis-float64(width))/vis < MinimumExpandingRatio
}

// BestNodeForZoomUnderPoint picks the node a block zoom at p should target.
func (e *Engine) BestNodeForZoomUnderPoint(p geom.Point) (document.NodeID, bool) {
	if e.tree == nil {
		return 0, false
	}
	node, ok := e.tree.NodeAt(p)
	if !ok {
		return 0, false
	}
	if r := e.settings.BlockClickRadius; r > 0 {
		node = e.bestChildNodeForClickRect(node, geom.R(p.X-r, p.Y-r, 2*r, 2*r))
	}
	return e.adjustedBlockZoomNode(node), true
}

// bestChildNodeForClickRect returns the child of node overlapping click the
// most, or node itself.
func (e *Engine) bestChildNodeForClickRect(node document.NodeID, click geom.Rect) document.NodeID {
	best, bestArea := node, 0.0
	for _, child := range e.tree.Children(node) {
		if area := e.tree.Rect(child).Intersect(click).Area(); area > bestArea {
			best, bestArea = child, area
		}
	}
	return best
}

// adjustedBlockZoomNode climbs from node while its block zoom scale would
// exceed the block zoom ceiling. It gives up and returns node when the next
// ancestor is nearly as wide as the visible area.
func (e *Engine) adjustedBlockZoomNode(node document.NodeID) document.NodeID {
	initial := node
	limit := e.maximumBlockZoomScale()

	for e.newScaleForBlockZoomRect(e.tree.Rect(node), e.scale, 0) >= limit {
		parent, ok := e.tree.Parent(node)
		if !ok || e.nearlyVisibleWidth(e.tree.Rect(parent).Width) {
			return initial
		}
		node = parent
	}
	return node
}

// BlockZoomRectForNode returns the rect a block zoom on node should fit and
// the node that rect belongs to. Small nodes expand to ancestors whose area
// stays within 5·r² of the node's, where r is the share of the page the node
// does not cover.
func (e *Engine) BlockZoomRectForNode(node document.NodeID) (geom.Rect, document.NodeID) {
	contents := e.content.ContentSize()
	if e.tree == nil || contents.IsEmpty() {
		return geom.Rect{}, node
	}

	block := e.tree.Rect(node)
	adjusted := node
	originalArea := block.Area()
	pageArea := contents.Area()
	ratio := (pageArea - originalArea) / pageArea
	expansion := expansionFactor * ratio * ratio

	switch e.tree.Kind(node) {
	case document.KindImage, document.KindInput, document.KindTextArea:
		return block, adjusted
	}

	for t, ok := e.tree.Parent(node); ok; t, ok = e.tree.Parent(t) {
		rect := e.tree.Rect(t)
		area := rect.Area()
		if (pageArea-area)/pageArea < MinimumExpandingRatio {
			break
		}
		if rect.IsEmpty() {
			continue
		}
		if area < minimumAncestorGrowth*originalArea {
			continue
		}
		if e.nearlyVisibleWidth(rect.Width) {
			break
		}
		if area >= expansion*originalArea {
			break
		}
		block, adjusted = rect, t
	}
	return block, adjusted
}

// BlockZoom handles a block zoom gesture at p in document coordinates.
//
// The gesture toggles three ways. With no block zoomed it fits the picked
// block. With a block zoomed and p picking a different block it moves to
// that block. When p picks the zoomed block or one inside it, the view
// returns to the scale and scroll it had before the first block zoom.
//
// The result is applied immediately and reported to the host as a block
// zoom event. It reports false when nothing changed.
func (e *Engine) BlockZoom(p geom.Point) (BlockZoomTarget, bool) {
	if !e.settings.UserScalable || e.tree == nil || e.visible.IsEmpty() {
		return BlockZoomTarget{}, false
	}
	node, ok := e.BestNodeForZoomUnderPoint(p)
	if !ok {
		return BlockZoomTarget{}, false
	}

	if e.block.active && e.tree.IsDescendantOf(node, e.block.adjusted) {
		return e.blockZoomOut(node), true
	}

	contents := e.content.ContentSize()
	rect, adjusted := e.BlockZoomRectForNode(node)
	rect = rect.Intersect(geom.R(0, 0, contents.Width, contents.Height))
	if rect.IsEmpty() {
		return BlockZoomTarget{}, false
	}
	pageArea := contents.Area()
	if (pageArea-rect.Area())/pageArea < MinimumExpandingRatio {
		e.logger.Debugf("block zoom skipped: block covers most of the page")
		return BlockZoomTarget{}, false
	}

	oldScale := e.scale
	first := !e.block.active

	scale := e.newScaleForBlockZoomRect(rect, oldScale, 2*BlockZoomMargin)
	scale = math.Min(scale, e.maximumBlockZoomScale())
	scale = math.Max(scale, e.MinimumScale())
	scroll := e.blockZoomScroll(rect, p, scale)

	if math.Abs(scale-oldScale)/oldScale < MinimumExpandingRatio {
		vis := e.VisibleDocumentSize()
		dx := math.Abs(float64(scroll.X - e.scroll.X))
		dy := math.Abs(float64(scroll.Y - e.scroll.Y))
		if oldScale == e.MinimumScale() ||
			(dx < MinimumExpandingRatio*float64(vis.Width) && dy < maximumVerticalDisplacement*float64(vis.Height)) {
			if first {
				e.ResetBlockZoom()
				return BlockZoomTarget{}, false
			}
			e.block.adjusted = adjusted
			return e.blockZoomOut(node), true
		}
	}

	if first {
		e.block.originScale = oldScale
		e.block.origin = e.scroll
	}
	e.block.active = true
	e.block.node = node
	e.block.adjusted = adjusted
	e.userZoomed = true

	e.applyScaleAndScroll(scale, scroll)
	e.emit(types.NewBlockZoomEvent(e.scale, e.scroll))
	e.logger.Debugf("block zoom to node %d rect %s at %.3f", node, rect, e.scale)

	return BlockZoomTarget{Node: node, Rect: rect, Scale: e.scale, ScrollPosition: e.scroll}, true
}

// blockZoomOut restores the view saved by the first block zoom.
func (e *Engine) blockZoomOut(node document.NodeID) BlockZoomTarget {
	scale := e.ClampedScale(e.block.originScale)
	scroll := e.block.origin
	rect := e.tree.Rect(node)
	e.ResetBlockZoom()
	e.userZoomed = true

	e.applyScaleAndScroll(scale, scroll)
	e.emit(types.NewBlockZoomEvent(e.scale, e.scroll))
	e.logger.Debugf("block zoom out to %.3f", e.scale)

	return BlockZoomTarget{Node: node, Rect: rect, Scale: e.scale, ScrollPosition: e.scroll, ZoomOut: true}
}

// blockZoomScroll positions rect in the view at scale: centered when it is
// smaller than the view, top aligned when taller, always keeping p visible
// and staying inside the content.
func (e *Engine) blockZoomScroll(rect geom.Rect, p geom.Point, scale float64) geom.Point {
	viewW := float64(e.visible.Width) / scale
	viewH := float64(e.visible.Height) / scale
	contents := e.content.ContentSize()

	x := float64(rect.X) - BlockZoomMargin
	if dx := (viewW - float64(rect.Width)) / 2; dx > BlockZoomMargin {
		x = float64(rect.X) - dx
	}

	y := float64(rect.Y) - math.Max(0, (viewH-float64(rect.Height))/2)
	if float64(rect.Height) > viewH {
		y = float64(rect.Y) - BlockZoomMargin
	}
	if py := float64(p.Y); py < y || py >= y+viewH {
		y = py - viewH/2
	}

	x = math.Max(0, math.Min(x, float64(contents.Width)-viewW))
	y = math.Max(0, math.Min(y, float64(contents.Height)-viewH))
	return geom.FloatPoint{X: x, Y: y}.Round()
}
