// Package loadstate tracks the navigation lifecycle of a page view and runs
// the surface and viewport side effects tied to each transition.
package loadstate

import (
	"fmt"
	"strings"

	"github.com/entrhq/pageview/pkg/logging"
	"github.com/entrhq/pageview/pkg/pageview/surface"
	"github.com/entrhq/pageview/pkg/types"
)

// State is a navigation lifecycle state.
type State int

const (
	None State = iota
	Provisional
	Committed
	Finished
	Failed
)

var stateNames = [...]string{"none", "provisional", "committed", "finished", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState returns the State with the given name, ignoring case.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return None, fmt.Errorf("unknown load state: %q", name)
}

// Terminal reports whether s ends a navigation.
func (s State) Terminal() bool { return s == Finished || s == Failed }

// Surface is the part of the render gate the machine drives.
type Surface interface {
	PaintBackground()
	SuspendAll() *surface.Scope
	ResetTiles()
	UpdateTiles(visibleOnly, immediate bool)
}

// Viewport is the part of the transform engine the machine resets on commit.
type Viewport interface {
	// ResetForCommit clears scale bounds and the virtual viewport, or only
	// recomputes the virtual viewport when keepNegotiated is set.
	ResetForCommit(keepNegotiated bool)
	ResetBlockZoom()
	ResetScrollToOrigin()
	CurrentScale() float64
}

// Machine is the load state machine of one page view. It is not safe for
// concurrent use; it runs on the content loop.
type Machine struct {
	state        State
	navigations  int
	restoring    bool
	surface      Surface
	viewport     Viewport
	emit         types.EventEmitter
	logger       *logging.Logger
	onTransition []func(from, to State)
}

// New creates a machine in the None state.
func New(s Surface, v Viewport, emit types.EventEmitter, logger *logging.Logger) *Machine {
	if emit == nil {
		emit = func(*types.PageEvent) {}
	}
	if logger == nil {
		logger = logging.Discard("loadstate")
	}
	return &Machine{surface: s, viewport: v, emit: emit, logger: logger}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Navigations returns how many times Provisional has been entered.
func (m *Machine) Navigations() int { return m.navigations }

// IsLoading reports whether a navigation is in flight.
func (m *Machine) IsLoading() bool {
	return m.state == Provisional || m.state == Committed
}

// SetRestoringFromCache marks the next commit as a back/forward restore whose
// viewport was already negotiated. The flag is consumed by that commit.
func (m *Machine) SetRestoringFromCache(restoring bool) {
	m.restoring = restoring
}

// OnTransition registers fn to run after every state change.
func (m *Machine) OnTransition(fn func(from, to State)) {
	m.onTransition = append(m.onTransition, fn)
}

// TransitionTo moves to state. Equal states are ignored; every other
// transition is accepted.
func (m *Machine) TransitionTo(state State) {
	if state == m.state {
		return
	}
	from := m.state
	m.state = state
	m.logger.Debugf("load state %s -> %s", from, state)

	switch state {
	case Provisional:
		m.navigations++
		if m.navigations == 1 {
			m.surface.PaintBackground()
		}
	case Committed:
		m.commit()
	case Finished, Failed:
		m.emit(types.NewGeometryFinalEvent(m.viewport.CurrentScale()))
		m.surface.UpdateTiles(true, false)
	}

	m.emit(types.NewLoadStateChangedEvent(state.String()))
	for _, fn := range m.onTransition {
		fn(from, state)
	}
}

func (m *Machine) commit() {
	scope := m.surface.SuspendAll()
	defer scope.Release()

	m.surface.ResetTiles()

	keep := m.restoring
	m.restoring = false
	m.viewport.ResetForCommit(keep)
	m.viewport.ResetBlockZoom()
	m.viewport.ResetScrollToOrigin()

	// Stale content must not reach the screen.
	scope.SetMode(surface.PaintOnly)
}
