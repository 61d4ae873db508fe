package types

import (
	"testing"

	"github.com/entrhq/pageview/pkg/geom"
)

func TestPageEventType(t *testing.T) {
	tests := []struct {
		eventType PageEventType
		expected  string
	}{
		{EventTypeLoadStateChanged, "load_state_changed"},
		{EventTypeScaleChanged, "scale_changed"},
		{EventTypeScrollChanged, "scroll_changed"},
		{EventTypeContentsSizeChanged, "contents_size_changed"},
		{EventTypeGeometryFinal, "geometry_final"},
		{EventTypeWillDeferLoading, "will_defer_loading"},
		{EventTypeDidResumeLoading, "did_resume_loading"},
		{EventTypeBlockZoom, "block_zoom"},
		{EventTypeDeferredActionPerformed, "deferred_action_performed"},
		{EventTypeCommitCompleted, "commit_completed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.eventType) != tt.expected {
				t.Errorf("event type = %q, want %q", tt.eventType, tt.expected)
			}
		})
	}
}

func TestNewScaleChangedEvent(t *testing.T) {
	event := NewScaleChangedEvent(1.5)

	if event.Type != EventTypeScaleChanged {
		t.Errorf("Type = %v, want %v", event.Type, EventTypeScaleChanged)
	}
	if event.Scale != 1.5 {
		t.Errorf("Scale = %v, want 1.5", event.Scale)
	}
	if event.Metadata == nil {
		t.Error("expected Metadata to be initialized")
	}
}

func TestNewBlockZoomEvent(t *testing.T) {
	event := NewBlockZoomEvent(2, geom.Pt(10, 20))

	if event.Type != EventTypeBlockZoom {
		t.Errorf("Type = %v, want %v", event.Type, EventTypeBlockZoom)
	}
	if event.ScrollPosition != geom.Pt(10, 20) {
		t.Errorf("ScrollPosition = %v, want (10,20)", event.ScrollPosition)
	}
}

func TestNewCommitCompletedEvent(t *testing.T) {
	event := NewCommitCompletedEvent(CommitInfo{ID: "c1", LayerCount: 3, StartedAnimations: true})

	if event.Commit == nil {
		t.Fatal("expected Commit to be set")
	}
	if event.Commit.ID != "c1" || event.Commit.LayerCount != 3 || !event.Commit.StartedAnimations {
		t.Errorf("unexpected commit info: %+v", event.Commit)
	}
}

func TestNewLoadStateChangedEvent(t *testing.T) {
	event := NewLoadStateChangedEvent("committed")
	if event.State != "committed" {
		t.Errorf("State = %q, want committed", event.State)
	}
}
