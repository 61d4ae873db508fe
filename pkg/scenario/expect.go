package scenario

import (
	"fmt"
	"math"

	"github.com/gobwas/glob"

	"github.com/entrhq/pageview/pkg/pageview"
	"github.com/entrhq/pageview/pkg/types"
)

// defaultTolerance bounds scale comparisons when a final state names none.
const defaultTolerance = 0.001

// EventMatcher counts emitted events whose type matches a glob
type EventMatcher struct {
	expectation Expectation
	pattern     glob.Glob
}

// NewEventMatcher compiles an expectation
func NewEventMatcher(e Expectation) (*EventMatcher, error) {
	g, err := glob.Compile(e.Event)
	if err != nil {
		return nil, fmt.Errorf("invalid event pattern '%s': %w", e.Event, err)
	}
	return &EventMatcher{expectation: e, pattern: g}, nil
}

// Count returns how many events match
func (m *EventMatcher) Count(events []*types.PageEvent) int {
	n := 0
	for _, e := range events {
		if m.pattern.Match(string(e.Type)) {
			n++
		}
	}
	return n
}

// Check evaluates the expectation against events
func (m *EventMatcher) Check(events []*types.PageEvent) CheckResult {
	n := m.Count(events)
	e := m.expectation
	result := CheckResult{Name: "events " + e.Event, Passed: true}

	switch {
	case n < e.Min:
		result.Passed = false
		result.Error = fmt.Sprintf("matched %d events, want at least %d", n, e.Min)
	case e.Max != nil && n > *e.Max:
		result.Passed = false
		result.Error = fmt.Sprintf("matched %d events, want at most %d", n, *e.Max)
	default:
		result.Detail = fmt.Sprintf("matched %d events", n)
	}
	return result
}

// CheckResult is the outcome of one expectation
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// checkFinal compares the final page view state with want
func checkFinal(want *FinalState, status pageview.Status) []CheckResult {
	if want == nil {
		return nil
	}
	var results []CheckResult

	if want.LoadState != "" {
		r := CheckResult{Name: "final load_state", Passed: status.LoadState == want.LoadState}
		if !r.Passed {
			r.Error = fmt.Sprintf("got %s, want %s", status.LoadState, want.LoadState)
		}
		results = append(results, r)
	}

	if want.Scale > 0 {
		tolerance := want.Tolerance
		if tolerance <= 0 {
			tolerance = defaultTolerance
		}
		got := status.Viewport.CurrentScale
		r := CheckResult{Name: "final scale", Passed: math.Abs(got-want.Scale) <= tolerance}
		if !r.Passed {
			r.Error = fmt.Sprintf("got %.4f, want %.4f (±%g)", got, want.Scale, tolerance)
		}
		results = append(results, r)
	}

	if want.Scroll != nil {
		got := status.Viewport.ScrollPosition
		r := CheckResult{Name: "final scroll", Passed: got == *want.Scroll}
		if !r.Passed {
			r.Error = fmt.Sprintf("got %s, want %s", got, *want.Scroll)
		}
		results = append(results, r)
	}

	if want.Commits != nil {
		got := status.Compositor.Commits
		r := CheckResult{Name: "final commits", Passed: got == *want.Commits}
		if !r.Passed {
			r.Error = fmt.Sprintf("got %d, want %d", got, *want.Commits)
		}
		results = append(results, r)
	}

	return results
}
