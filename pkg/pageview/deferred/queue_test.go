package deferred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func never() bool { return false }

func collect(q *Queue) []Action {
	var out []Action
	q.DrainIfReady(never, func(a Action) { out = append(out, a) })
	return out
}

func TestEnqueueSameKindKeepsLatestPayload(t *testing.T) {
	q := NewQueue()
	q.Enqueue(SetPageVisibility, Visibility{Visible: false})
	q.Enqueue(SetPageVisibility, Visibility{Visible: true})

	actions := collect(q)
	require.Len(t, actions, 1)
	assert.Equal(t, SetPageVisibility, actions[0].Kind)
	assert.Equal(t, Visibility{Visible: true}, actions[0].Payload)
}

func TestFIFOAcrossKinds(t *testing.T) {
	q := NewQueue()
	q.Enqueue(SetFocused, Focus{Focused: true})
	q.Enqueue(SetColorInput, Color{Value: "#fff"})
	q.Enqueue(LoadManualScript, ScriptURL{URL: "javascript:a()"})
	q.Enqueue(SetColorInput, Color{Value: "#000"})

	assert.Equal(t, []Kind{SetFocused, LoadManualScript, SetColorInput}, q.Kinds())

	actions := collect(q)
	require.Len(t, actions, 3)
	assert.Equal(t, Color{Value: "#000"}, actions[2].Payload)
	assert.Zero(t, q.Len())
}

func TestDrainStopsWhileDeferred(t *testing.T) {
	q := NewQueue()
	q.Enqueue(SetFocused, Focus{})

	n := q.DrainIfReady(func() bool { return true }, func(Action) { t.Fatal("must not run") })
	assert.Zero(t, n)
	assert.Equal(t, 1, q.Len())
}

func TestDrainSeesEnqueueDuringDrain(t *testing.T) {
	q := NewQueue()
	q.Enqueue(SetFocused, Focus{Focused: true})

	var seen []Kind
	q.DrainIfReady(never, func(a Action) {
		seen = append(seen, a.Kind)
		if a.Kind == SetFocused {
			q.Enqueue(SelectionCancelled, Cancelled{})
		}
	})

	assert.Equal(t, []Kind{SetFocused, SelectionCancelled}, seen)
}

func TestDrainStopsWhenPerformDefers(t *testing.T) {
	q := NewQueue()
	q.Enqueue(LoadManualScript, ScriptURL{URL: "javascript:alert(1)"})
	q.Enqueue(SetFocused, Focus{Focused: true})

	deferredNow := false
	n := q.DrainIfReady(func() bool { return deferredNow }, func(Action) { deferredNow = true })

	assert.Equal(t, 1, n)
	assert.Equal(t, []Kind{SetFocused}, q.Kinds())
}

func TestCancel(t *testing.T) {
	q := NewQueue()
	q.Enqueue(PopupListSelectSingle, SingleSelection{Index: 2})
	q.Enqueue(SetFocused, Focus{})

	assert.True(t, q.Cancel(PopupListSelectSingle))
	assert.False(t, q.Cancel(PopupListSelectSingle))

	_, ok := q.Pending(PopupListSelectSingle)
	assert.False(t, ok)
	p, ok := q.Pending(SetFocused)
	assert.True(t, ok)
	assert.Equal(t, Focus{}, p)

	assert.Equal(t, 1, q.CancelAll())
	assert.Zero(t, q.Len())
	assert.Empty(t, collect(q))
}

func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		payload Payload
		want    Kind
	}{
		{ScriptURL{}, LoadManualScript},
		{Visibility{}, SetPageVisibility},
		{MultipleSelection{}, PopupListSelectMultiple},
		{SingleSelection{}, PopupListSelectSingle},
		{DateTime{}, SetDateTimeInput},
		{Color{}, SetColorInput},
		{Cancelled{}, SelectionCancelled},
		{Focus{}, SetFocused},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got, ok := KindOf(tt.payload)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
