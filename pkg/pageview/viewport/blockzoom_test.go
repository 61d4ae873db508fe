package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pageview/pkg/config"
	"github.com/entrhq/pageview/pkg/document"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/types"
)

func articleSpec() document.NodeSpec {
	return document.NodeSpec{
		Name: "body",
		Rect: geom.R(0, 0, 1000, 2000),
		Children: []document.NodeSpec{
			{
				Name: "column",
				Rect: geom.R(100, 100, 400, 800),
				Children: []document.NodeSpec{
					{Name: "para", Rect: geom.R(110, 120, 380, 300)},
					{Name: "photo", Kind: "image", Rect: geom.R(110, 500, 200, 150)},
				},
			},
			{Name: "sidebar", Rect: geom.R(600, 100, 300, 600)},
		},
	}
}

func newBlockZoomHarness(t *testing.T, spec document.NodeSpec, visible geom.Size, opts ...Option) (*harness, map[string]document.NodeID) {
	t.Helper()
	tree, names, err := document.Build(spec)
	require.NoError(t, err)
	root := tree.Rect(tree.Root())
	h := newHarness(t, visible, root.Size(), append([]Option{WithNodeTree(tree)}, opts...)...)
	return h, names
}

func TestBestNodeForNearlyFullWidthBlock(t *testing.T) {
	spec := document.NodeSpec{
		Name:     "body",
		Rect:     geom.R(0, 0, 1000, 1000),
		Children: []document.NodeSpec{{Name: "main", Rect: geom.R(0, 0, 1000, 950)}},
	}
	h, names := newBlockZoomHarness(t, spec, geom.Sz(1000, 1000))

	node, ok := h.engine.BestNodeForZoomUnderPoint(geom.Pt(500, 500))
	require.True(t, ok)
	assert.Equal(t, names["main"], node)

	rect, adjusted := h.engine.BlockZoomRectForNode(node)
	assert.Equal(t, geom.R(0, 0, 1000, 950), rect)
	assert.Equal(t, names["main"], adjusted)

	_, zoomed := h.engine.BlockZoom(geom.Pt(500, 500))
	assert.False(t, zoomed)
	assert.Zero(t, h.events.len())
}

func TestBlockZoomRectExpandsToAncestor(t *testing.T) {
	h, names := newBlockZoomHarness(t, articleSpec(), geom.Sz(1000, 1000))

	rect, adjusted := h.engine.BlockZoomRectForNode(names["para"])
	assert.Equal(t, geom.R(100, 100, 400, 800), rect)
	assert.Equal(t, names["column"], adjusted)

	rect, adjusted = h.engine.BlockZoomRectForNode(names["photo"])
	assert.Equal(t, geom.R(110, 500, 200, 150), rect)
	assert.Equal(t, names["photo"], adjusted)

	rect, adjusted = h.engine.BlockZoomRectForNode(names["sidebar"])
	assert.Equal(t, geom.R(600, 100, 300, 600), rect)
	assert.Equal(t, names["sidebar"], adjusted)
}

func TestBestNodeUsesClickRadius(t *testing.T) {
	settings := config.DefaultViewportSettings()
	settings.BlockClickRadius = 20
	h, names := newBlockZoomHarness(t, articleSpec(), geom.Sz(1000, 1000), WithSettings(settings))

	node, ok := h.engine.BestNodeForZoomUnderPoint(geom.Pt(105, 105))
	require.True(t, ok)
	assert.Equal(t, names["para"], node)

	_, ok = h.engine.BestNodeForZoomUnderPoint(geom.Pt(5000, 5000))
	assert.False(t, ok)
}

func TestBlockZoomInAndOut(t *testing.T) {
	h, names := newBlockZoomHarness(t, articleSpec(), geom.Sz(1000, 1000))

	target, ok := h.engine.BlockZoom(geom.Pt(150, 150))
	require.True(t, ok)
	assert.False(t, target.ZoomOut)
	assert.Equal(t, names["para"], target.Node)
	assert.Equal(t, geom.R(100, 100, 400, 800), target.Rect)
	assert.InDelta(t, 1000.0/406.0, target.Scale, 1e-9)
	assert.Equal(t, geom.Pt(97, 97), target.ScrollPosition)
	assert.True(t, h.engine.BlockZoomActive())
	assert.True(t, h.engine.UserZoomed())
	assert.Equal(t, target.Scale, h.engine.CurrentScale())
	assert.Equal(t, 1, h.events.count(types.EventTypeBlockZoom))

	target, ok = h.engine.BlockZoom(geom.Pt(150, 150))
	require.True(t, ok)
	assert.True(t, target.ZoomOut)
	assert.Equal(t, 1.0, h.engine.CurrentScale())
	assert.Equal(t, geom.Point{}, h.engine.ScrollPosition())
	assert.False(t, h.engine.BlockZoomActive())
	assert.Equal(t, 2, h.events.count(types.EventTypeBlockZoom))
}

func TestBlockZoomMovesBetweenBlocks(t *testing.T) {
	h, names := newBlockZoomHarness(t, articleSpec(), geom.Sz(1000, 1000))

	_, ok := h.engine.BlockZoom(geom.Pt(150, 150))
	require.True(t, ok)

	target, ok := h.engine.BlockZoom(geom.Pt(700, 200))
	require.True(t, ok)
	assert.False(t, target.ZoomOut)
	assert.Equal(t, names["sidebar"], target.Node)
	assert.Equal(t, MaximumBlockZoomScale, target.Scale)
	assert.Equal(t, geom.Pt(583, 97), target.ScrollPosition)

	target, ok = h.engine.BlockZoom(geom.Pt(700, 200))
	require.True(t, ok)
	assert.True(t, target.ZoomOut)
	assert.Equal(t, 1.0, h.engine.CurrentScale())
	assert.Equal(t, geom.Point{}, h.engine.ScrollPosition())
}

func TestMarginalFirstBlockZoomIsDropped(t *testing.T) {
	spec := document.NodeSpec{
		Name:     "body",
		Rect:     geom.R(0, 0, 1000, 2000),
		Children: []document.NodeSpec{{Name: "wide", Rect: geom.R(50, 0, 900, 300)}},
	}
	h, _ := newBlockZoomHarness(t, spec, geom.Sz(1000, 1000))

	_, ok := h.engine.BlockZoom(geom.Pt(100, 100))
	assert.False(t, ok)
	assert.False(t, h.engine.BlockZoomActive())
	assert.Equal(t, 1.0, h.engine.CurrentScale())
	assert.Zero(t, h.events.len())
}

func TestBlockZoomRequiresScalableTree(t *testing.T) {
	settings := config.DefaultViewportSettings()
	settings.UserScalable = false
	h, _ := newBlockZoomHarness(t, articleSpec(), geom.Sz(1000, 1000), WithSettings(settings))
	_, ok := h.engine.BlockZoom(geom.Pt(150, 150))
	assert.False(t, ok)

	bare := newHarness(t, geom.Sz(1000, 1000), geom.Sz(1000, 2000))
	_, ok = bare.engine.BlockZoom(geom.Pt(150, 150))
	assert.False(t, ok)
}

func TestZoomAboutPointLeavesBlockZoom(t *testing.T) {
	h, _ := newBlockZoomHarness(t, articleSpec(), geom.Sz(1000, 1000))
	_, ok := h.engine.BlockZoom(geom.Pt(150, 150))
	require.True(t, ok)

	require.True(t, h.engine.ZoomAboutPoint(1.5, geom.FloatPoint{}, true, false))
	assert.False(t, h.engine.BlockZoomActive())
}
