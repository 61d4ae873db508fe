// Package surface gates tile rendering and screen presentation behind
// reference-counted suspend/resume pairs.
//
// Each Class has its own counter. Work requested while a class is suspended
// is folded into the resume that brings the counter back to zero, so nested
// geometry operations freeze the surface once and refresh it once.
package surface

import (
	"fmt"
	"sync"

	"github.com/entrhq/pageview/pkg/logging"
)

// Class identifies a gated resource.
type Class int

const (
	// Tiles gates backing-store tile updates.
	Tiles Class = iota
	// Screen gates presentation of rendered content.
	Screen
)

func (c Class) String() string {
	switch c {
	case Tiles:
		return "tiles"
	case Screen:
		return "screen"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Mode is the work performed when a class resumes. Modes are ordered by
// impact so nested resumes can keep the strongest one.
type Mode int

const (
	// None resumes without painting.
	None Mode = iota
	// PaintOnly renders visible content without presenting it.
	PaintOnly
	// PaintAndBlit renders and presents visible content.
	PaintAndBlit
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case PaintOnly:
		return "paint"
	case PaintAndBlit:
		return "paint_and_blit"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Backend is the tile renderer behind the gate.
type Backend interface {
	// PaintBackground renders and presents the background immediately.
	PaintBackground()
	// Render renders visible content and presents it when blit is set.
	Render(blit bool)
	// UpdateTiles invalidates tiles; visibleOnly limits it to the visible area.
	UpdateTiles(visibleOnly, immediate bool)
	// ResetTiles drops all tile contents.
	ResetTiles()
	// RepaintAll renders and presents the full surface immediately.
	RepaintAll()
	// DispatchRenderJob schedules background rendering of dirty tiles.
	DispatchRenderJob()
}

// Stats counts gate transitions.
type Stats struct {
	TileFreezes     int `json:"tile_freezes"`
	TileRefreshes   int `json:"tile_refreshes"`
	ScreenFreezes   int `json:"screen_freezes"`
	ScreenRefreshes int `json:"screen_refreshes"`
	Violations      int `json:"violations"`
}

// Sync is the suspend/resume gate for one page view.
type Sync struct {
	backend Backend
	logger  *logging.Logger

	mu          sync.Mutex
	counts      [2]int
	screenMode  Mode // strongest mode requested by nested screen resumes
	tileUpdate  *tileRequest
	stats       Stats
	onScreenRes func(Mode)
}

type tileRequest struct {
	visibleOnly bool
	immediate   bool
}

// New creates a gate in front of backend.
func New(backend Backend, logger *logging.Logger) *Sync {
	if logger == nil {
		logger = logging.Discard("surface")
	}
	return &Sync{backend: backend, logger: logger}
}

// OnScreenResumed registers fn to run after the screen counter reaches zero
// with a mode other than None.
func (s *Sync) OnScreenResumed(fn func(Mode)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onScreenRes = fn
}

// Suspend increments the counter for class.
func (s *Sync) Suspend(class Class) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts[class] == 0 {
		if class == Tiles {
			s.stats.TileFreezes++
		} else {
			s.stats.ScreenFreezes++
		}
	}
	s.counts[class]++
}

// Resume decrements the counter for class. When it reaches zero the work
// implied by mode, and by any folded requests, is performed.
func (s *Sync) Resume(class Class, mode Mode) {
	s.mu.Lock()
	if s.counts[class] == 0 {
		s.stats.Violations++
		s.mu.Unlock()
		violation("resume %s without matching suspend", class)
		s.logger.Errorf("Call mismatch: resume %s without matching suspend", class)
		return
	}

	s.counts[class]--
	if class == Screen && mode > s.screenMode {
		s.screenMode = mode
	}
	if s.counts[class] > 0 {
		s.mu.Unlock()
		return
	}

	var (
		work   func()
		notify func(Mode)
		final  Mode
	)
	switch class {
	case Tiles:
		s.stats.TileRefreshes++
		pending := s.tileUpdate
		s.tileUpdate = nil
		work = func() {
			if pending != nil {
				s.backend.UpdateTiles(pending.visibleOnly, pending.immediate)
			}
			s.backend.DispatchRenderJob()
		}
	case Screen:
		s.stats.ScreenRefreshes++
		final = s.screenMode
		s.screenMode = None
		notify = s.onScreenRes
		work = func() {
			switch final {
			case PaintOnly:
				s.backend.Render(false)
			case PaintAndBlit:
				s.backend.Render(true)
			}
		}
	}
	s.mu.Unlock()

	s.logger.Debugf("resumed %s (%s)", class, final)
	work()
	if notify != nil && final != None {
		notify(final)
	}
}

// Count returns the current counter for class.
func (s *Sync) Count(class Class) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[class]
}

// Suspended reports whether class is currently suspended.
func (s *Sync) Suspended(class Class) bool {
	return s.Count(class) > 0
}

// Stats returns a copy of the transition counters.
func (s *Sync) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// PaintBackground paints immediately. It is not gated: it is used before any
// content exists to avoid a blank frame.
func (s *Sync) PaintBackground() {
	s.backend.PaintBackground()
}

// UpdateTiles invalidates tiles now, or on the tile resume when suspended.
// Folded requests widen to all tiles if any request asked for that.
func (s *Sync) UpdateTiles(visibleOnly, immediate bool) {
	s.mu.Lock()
	if s.counts[Tiles] > 0 {
		if s.tileUpdate == nil {
			s.tileUpdate = &tileRequest{visibleOnly: visibleOnly, immediate: immediate}
		} else {
			s.tileUpdate.visibleOnly = s.tileUpdate.visibleOnly && visibleOnly
			s.tileUpdate.immediate = s.tileUpdate.immediate || immediate
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.backend.UpdateTiles(visibleOnly, immediate)
}

// ResetTiles drops tile contents and any folded tile update.
func (s *Sync) ResetTiles() {
	s.mu.Lock()
	s.tileUpdate = nil
	s.mu.Unlock()
	s.backend.ResetTiles()
}

// RepaintAll repaints the full surface now, or folds a PaintAndBlit into the
// pending screen resume.
func (s *Sync) RepaintAll() {
	s.mu.Lock()
	if s.counts[Screen] > 0 {
		s.screenMode = PaintAndBlit
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.backend.RepaintAll()
}
