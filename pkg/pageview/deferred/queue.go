// Package deferred holds host-visible actions postponed while a page view is
// load-deferred.
//
// The queue keeps at most one action per Kind. Enqueuing a kind that is
// already pending replaces the older payload and moves the action to the
// tail, so replay order is the order of the surviving enqueues.
package deferred

import (
	"fmt"
	"sync"
)

// Kind identifies a deferrable action.
type Kind int

const (
	// LoadManualScript runs a javascript: URL.
	LoadManualScript Kind = iota + 1
	// SetPageVisibility changes the page visibility state.
	SetPageVisibility
	// PopupListSelectMultiple commits a multi-select popup.
	PopupListSelectMultiple
	// PopupListSelectSingle commits a single-select popup.
	PopupListSelectSingle
	// SetDateTimeInput commits a date/time picker value.
	SetDateTimeInput
	// SetColorInput commits a color picker value.
	SetColorInput
	// SelectionCancelled reports a dismissed selection.
	SelectionCancelled
	// SetFocused changes page focus.
	SetFocused
)

var kindNames = map[Kind]string{
	LoadManualScript:        "load_manual_script",
	SetPageVisibility:       "set_page_visibility",
	PopupListSelectMultiple: "popup_list_select_multiple",
	PopupListSelectSingle:   "popup_list_select_single",
	SetDateTimeInput:        "set_date_time_input",
	SetColorInput:           "set_color_input",
	SelectionCancelled:      "selection_cancelled",
	SetFocused:              "set_focused",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the Kind with the given name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown deferred action kind: %q", name)
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		LoadManualScript, SetPageVisibility, PopupListSelectMultiple, PopupListSelectSingle,
		SetDateTimeInput, SetColorInput, SelectionCancelled, SetFocused,
	}
}

// Action is a pending action and its most recent payload.
type Action struct {
	Kind    Kind
	Payload Payload
}

// Queue is the kind-deduplicated FIFO of pending actions. It is safe for
// concurrent use, but DrainIfReady runs perform without holding the lock so
// performed actions may enqueue more work.
type Queue struct {
	mu      sync.Mutex
	order   []Kind
	pending map[Kind]Payload
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[Kind]Payload)}
}

// Enqueue adds an action, discarding any unreplayed action of the same kind.
func (q *Queue) Enqueue(kind Kind, payload Payload) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[kind]; ok {
		q.removeLocked(kind)
	}
	q.order = append(q.order, kind)
	q.pending[kind] = payload
}

// Cancel discards the pending action of kind. It reports whether one existed.
func (q *Queue) Cancel(kind Kind) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[kind]; !ok {
		return false
	}
	q.removeLocked(kind)
	return true
}

// CancelAll discards every pending action without performing it.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.order)
	q.order = nil
	q.pending = make(map[Kind]Payload)
	return n
}

// DrainIfReady performs pending actions in order while deferred reports
// false. Both the predicate and the queue are re-checked before every action,
// so actions enqueued by perform are seen and a perform that re-enables
// deferral stops the drain. It returns the number performed.
func (q *Queue) DrainIfReady(deferred func() bool, perform func(Action)) int {
	n := 0
	for !deferred() {
		action, ok := q.pop()
		if !ok {
			break
		}
		perform(action)
		n++
	}
	return n
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Pending returns the payload pending for kind.
func (q *Queue) Pending(kind Kind) (Payload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.pending[kind]
	return p, ok
}

// Kinds returns the pending kinds in replay order.
func (q *Queue) Kinds() []Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Kind(nil), q.order...)
}

func (q *Queue) pop() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return Action{}, false
	}
	kind := q.order[0]
	q.order = q.order[1:]
	payload := q.pending[kind]
	delete(q.pending, kind)
	return Action{Kind: kind, Payload: payload}, true
}

func (q *Queue) removeLocked(kind Kind) {
	delete(q.pending, kind)
	for i, k := range q.order {
		if k == kind {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}
