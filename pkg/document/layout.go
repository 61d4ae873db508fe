package document

import "github.com/entrhq/pageview/pkg/geom"

// Layout is a trivial layout engine over a Tree. The content size is the
// root rect expanded to the fixed layout size; optionally the root width
// tracks the fixed layout width, which is how reflowing pages behave.
type Layout struct {
	tree         *Tree
	fixed        geom.Size
	needsLayout  bool
	reflow       bool
	imageWidth   int
	passes       int
	lastContents geom.Size
	onLayout     func(contentsSizeChanged bool)
}

// NewLayout creates a layout over tree. The first layout is pending.
func NewLayout(tree *Tree) *Layout {
	return &Layout{tree: tree, needsLayout: true}
}

// Tree returns the laid out tree.
func (l *Layout) Tree() *Tree { return l.tree }

// SetReflow makes the root width follow the fixed layout width.
func (l *Layout) SetReflow(reflow bool) { l.reflow = reflow }

// SetImageDocument marks the document as a single image of the given natural
// width. Zero clears it.
func (l *Layout) SetImageDocument(naturalWidth int) { l.imageWidth = naturalWidth }

// ImageDocumentWidth returns the natural image width for image documents.
func (l *Layout) ImageDocumentWidth() (int, bool) {
	return l.imageWidth, l.imageWidth > 0
}

// OnLayout registers fn to run after every completed layout pass.
func (l *Layout) OnLayout(fn func(contentsSizeChanged bool)) { l.onLayout = fn }

// SetFixedLayoutSize changes the layout width and height. A change marks
// layout as needed.
func (l *Layout) SetFixedLayoutSize(size geom.Size) {
	if size == l.fixed {
		return
	}
	l.fixed = size
	l.needsLayout = true
}

// FixedLayoutSize returns the current fixed layout size.
func (l *Layout) FixedLayoutSize() geom.Size { return l.fixed }

// NeedsLayout reports whether a layout pass is pending.
func (l *Layout) NeedsLayout() bool { return l.needsLayout }

// SetNeedsLayout marks layout as needed.
func (l *Layout) SetNeedsLayout() { l.needsLayout = true }

// Passes returns the number of completed layout passes.
func (l *Layout) Passes() int { return l.passes }

// ContentSize returns the size of the laid out content.
func (l *Layout) ContentSize() geom.Size {
	return l.lastContents
}

// CompleteLayoutIfNeeded runs a pending layout pass and reports it through
// the OnLayout callback, which may request further passes.
func (l *Layout) CompleteLayoutIfNeeded() {
	if !l.needsLayout {
		return
	}
	l.needsLayout = false
	l.passes++

	root := l.tree.Rect(l.tree.Root())
	if l.reflow && l.fixed.Width > 0 {
		root.Width = l.fixed.Width
		l.tree.SetRect(l.tree.Root(), root)
	}
	contents := root.Size().ExpandedTo(geom.Sz(l.fixed.Width, 0))
	changed := contents != l.lastContents
	l.lastContents = contents

	if l.onLayout != nil {
		l.onLayout(changed)
	}
}
