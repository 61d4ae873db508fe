package surface

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pageview/pkg/logging"
)

// recordingBackend records backend calls in order.
type recordingBackend struct {
	mu    sync.Mutex
	calls []string
}

func (b *recordingBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *recordingBackend) PaintBackground() { b.record("background") }
func (b *recordingBackend) Render(blit bool) {
	if blit {
		b.record("render+blit")
		return
	}
	b.record("render")
}
func (b *recordingBackend) UpdateTiles(visibleOnly, immediate bool) {
	switch {
	case visibleOnly && immediate:
		b.record("update:visible:now")
	case visibleOnly:
		b.record("update:visible")
	case immediate:
		b.record("update:all:now")
	default:
		b.record("update:all")
	}
}
func (b *recordingBackend) ResetTiles()        { b.record("reset") }
func (b *recordingBackend) RepaintAll()        { b.record("repaint") }
func (b *recordingBackend) DispatchRenderJob() { b.record("job") }

func (b *recordingBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func TestNestedSuspendResumeActsOnce(t *testing.T) {
	tests := []struct {
		name  string
		depth int
	}{
		{"single", 1},
		{"double", 2},
		{"deep", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &recordingBackend{}
			gate := New(backend, nil)

			for i := 0; i < tt.depth; i++ {
				gate.Suspend(Screen)
			}
			for i := 0; i < tt.depth; i++ {
				assert.Empty(t, backend.Calls(), "nothing may paint before unwinding")
				gate.Resume(Screen, PaintAndBlit)
			}

			assert.Equal(t, []string{"render+blit"}, backend.Calls())
			stats := gate.Stats()
			assert.Equal(t, 1, stats.ScreenFreezes)
			assert.Equal(t, 1, stats.ScreenRefreshes)
			assert.Zero(t, gate.Count(Screen))
		})
	}
}

func TestNestedScreenResumeKeepsStrongestMode(t *testing.T) {
	backend := &recordingBackend{}
	gate := New(backend, nil)

	gate.Suspend(Screen)
	gate.Suspend(Screen)
	gate.Resume(Screen, PaintAndBlit)
	gate.Resume(Screen, None)

	assert.Equal(t, []string{"render+blit"}, backend.Calls())

	// The accumulated mode does not leak into the next cycle.
	gate.Suspend(Screen)
	gate.Resume(Screen, None)
	assert.Equal(t, []string{"render+blit"}, backend.Calls())
}

func TestTilesResumeDispatchesRenderJob(t *testing.T) {
	backend := &recordingBackend{}
	gate := New(backend, nil)

	gate.Suspend(Tiles)
	gate.UpdateTiles(true, false)
	gate.UpdateTiles(false, false)
	assert.Empty(t, backend.Calls())

	gate.Resume(Tiles, PaintOnly)
	assert.Equal(t, []string{"update:all", "job"}, backend.Calls())
}

func TestUnsuspendedWorkPassesThrough(t *testing.T) {
	backend := &recordingBackend{}
	gate := New(backend, nil)

	gate.PaintBackground()
	gate.UpdateTiles(true, true)
	gate.ResetTiles()
	gate.RepaintAll()

	assert.Equal(t, []string{"background", "update:visible:now", "reset", "repaint"}, backend.Calls())
}

func TestRepaintWhileSuspendedFoldsIntoResume(t *testing.T) {
	backend := &recordingBackend{}
	gate := New(backend, nil)

	gate.Suspend(Screen)
	gate.RepaintAll()
	gate.Resume(Screen, None)

	assert.Equal(t, []string{"render+blit"}, backend.Calls())
}

func TestScopeReleasesInSuspendOrder(t *testing.T) {
	backend := &recordingBackend{}
	gate := New(backend, nil)

	var resumed []Mode
	gate.OnScreenResumed(func(m Mode) { resumed = append(resumed, m) })

	func() {
		scope := gate.SuspendAll()
		defer scope.Release()

		inner := gate.SuspendAll()
		inner.SetMode(PaintAndBlit)
		inner.Release()
		inner.Release()

		assert.True(t, gate.Suspended(Tiles))
		assert.True(t, gate.Suspended(Screen))
		assert.Empty(t, backend.Calls())
	}()

	assert.Equal(t, []string{"job", "render+blit"}, backend.Calls())
	assert.Equal(t, []Mode{PaintAndBlit}, resumed)
	assert.Zero(t, gate.Count(Tiles))
	assert.Zero(t, gate.Count(Screen))
}

func TestScreenHookSkippedForNone(t *testing.T) {
	gate := New(&recordingBackend{}, nil)
	called := false
	gate.OnScreenResumed(func(Mode) { called = true })

	scope := gate.Hold(Screen)
	scope.SetMode(None)
	scope.Release()

	assert.False(t, called)
}

func TestResumeWithoutSuspendIsClamped(t *testing.T) {
	if debugBuild {
		t.Skip("resume mismatch panics in debug builds")
	}

	var buf bytes.Buffer
	backend := &recordingBackend{}
	gate := New(backend, logging.NewWriterLogger("surface", &buf, logging.LevelNormal))

	gate.Resume(Tiles, PaintAndBlit)

	assert.Zero(t, gate.Count(Tiles))
	assert.Empty(t, backend.Calls())
	assert.Equal(t, 1, gate.Stats().Violations)
	assert.Contains(t, buf.String(), "Call mismatch")

	// The gate keeps working after a violation.
	gate.Suspend(Tiles)
	gate.Resume(Tiles, PaintOnly)
	require.Equal(t, []string{"job"}, backend.Calls())
}

func TestModeAndClassStrings(t *testing.T) {
	assert.Equal(t, "tiles", Tiles.String())
	assert.Equal(t, "screen", Screen.String())
	assert.Equal(t, "paint_and_blit", PaintAndBlit.String())
	assert.True(t, None < PaintOnly && PaintOnly < PaintAndBlit)
}
