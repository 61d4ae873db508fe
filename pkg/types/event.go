package types

import (
	"github.com/entrhq/pageview/pkg/geom"
)

// PageEventType defines the type of event emitted by a page view to its host.
type PageEventType string

const (
	EventTypeLoadStateChanged        PageEventType = "load_state_changed"        // EventTypeLoadStateChanged indicates the navigation lifecycle moved to a new state.
	EventTypeScaleChanged            PageEventType = "scale_changed"             // EventTypeScaleChanged indicates the current zoom scale changed.
	EventTypeScrollChanged           PageEventType = "scroll_changed"            // EventTypeScrollChanged indicates the scroll position changed.
	EventTypeContentsSizeChanged     PageEventType = "contents_size_changed"     // EventTypeContentsSizeChanged indicates the transformed contents size changed.
	EventTypeGeometryFinal           PageEventType = "geometry_final"            // EventTypeGeometryFinal indicates scale and geometry are final for this load.
	EventTypeWillDeferLoading        PageEventType = "will_defer_loading"        // EventTypeWillDeferLoading indicates host-visible actions are about to be deferred.
	EventTypeDidResumeLoading        PageEventType = "did_resume_loading"        // EventTypeDidResumeLoading indicates deferral ended and queued actions replay.
	EventTypeBlockZoom               PageEventType = "block_zoom"                // EventTypeBlockZoom indicates the host should animate to a block zoom target.
	EventTypeDeferredActionPerformed PageEventType = "deferred_action_performed" // EventTypeDeferredActionPerformed indicates a queued action was replayed.
	EventTypeCommitCompleted         PageEventType = "commit_completed"          // EventTypeCommitCompleted indicates a layer commit reached the compositing thread.
)

// PageEvent represents a notification delivered to the host shell.
type PageEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Type indicates the kind of event.
	Type PageEventType

	// State is the load state name (for load state events).
	State string

	// Scale is the zoom scale (for scale and block zoom events).
	Scale float64

	// ScrollPosition is the document scroll position (for scroll and block zoom events).
	ScrollPosition geom.Point

	// ContentsSize is the contents size in pixels (for contents size events).
	ContentsSize geom.Size

	// ActionKind names the replayed deferred action.
	ActionKind string

	// Commit carries commit details (for commit events).
	Commit *CommitInfo
}

// CommitInfo describes a layer commit that reached the compositing thread.
type CommitInfo struct {
	// ID is the unique identifier of the commit request.
	ID string

	// LayerCount is the number of layers in the snapshot.
	LayerCount int

	// StartedAnimations reports whether the commit started layer animations.
	StartedAnimations bool
}

// EventEmitter is a function type for emitting events to the host.
type EventEmitter func(event *PageEvent)

// NewLoadStateChangedEvent creates a load state event.
func NewLoadStateChangedEvent(state string) *PageEvent {
	return &PageEvent{
		Type:     EventTypeLoadStateChanged,
		State:    state,
		Metadata: make(map[string]interface{}),
	}
}

// NewScaleChangedEvent creates a scale changed event.
func NewScaleChangedEvent(scale float64) *PageEvent {
	return &PageEvent{
		Type:     EventTypeScaleChanged,
		Scale:    scale,
		Metadata: make(map[string]interface{}),
	}
}

// NewScrollChangedEvent creates a scroll changed event.
func NewScrollChangedEvent(position geom.Point) *PageEvent {
	return &PageEvent{
		Type:           EventTypeScrollChanged,
		ScrollPosition: position,
		Metadata:       make(map[string]interface{}),
	}
}

// NewContentsSizeChangedEvent creates a contents size changed event.
func NewContentsSizeChangedEvent(size geom.Size) *PageEvent {
	return &PageEvent{
		Type:         EventTypeContentsSizeChanged,
		ContentsSize: size,
		Metadata:     make(map[string]interface{}),
	}
}

// NewGeometryFinalEvent creates a geometry final event.
func NewGeometryFinalEvent(scale float64) *PageEvent {
	return &PageEvent{
		Type:     EventTypeGeometryFinal,
		Scale:    scale,
		Metadata: make(map[string]interface{}),
	}
}

// NewWillDeferLoadingEvent creates a will defer loading event.
func NewWillDeferLoadingEvent() *PageEvent {
	return &PageEvent{
		Type:     EventTypeWillDeferLoading,
		Metadata: make(map[string]interface{}),
	}
}

// NewDidResumeLoadingEvent creates a did resume loading event.
func NewDidResumeLoadingEvent() *PageEvent {
	return &PageEvent{
		Type:     EventTypeDidResumeLoading,
		Metadata: make(map[string]interface{}),
	}
}

// NewBlockZoomEvent creates a block zoom event carrying the animation target.
func NewBlockZoomEvent(scale float64, scrollPosition geom.Point) *PageEvent {
	return &PageEvent{
		Type:           EventTypeBlockZoom,
		Scale:          scale,
		ScrollPosition: scrollPosition,
		Metadata:       make(map[string]interface{}),
	}
}

// NewDeferredActionPerformedEvent creates a deferred action event.
func NewDeferredActionPerformedEvent(kind string) *PageEvent {
	return &PageEvent{
		Type:       EventTypeDeferredActionPerformed,
		ActionKind: kind,
		Metadata:   make(map[string]interface{}),
	}
}

// NewCommitCompletedEvent creates a commit completed event.
func NewCommitCompletedEvent(info CommitInfo) *PageEvent {
	return &PageEvent{
		Type:     EventTypeCommitCompleted,
		Commit:   &info,
		Metadata: make(map[string]interface{}),
	}
}
