package compositor

import (
	"sync"
	"time"

	"github.com/entrhq/pageview/pkg/geom"
)

// Layer is one composited layer as seen at commit time.
type Layer struct {
	ID         string    `yaml:"id" json:"id"`
	Bounds     geom.Rect `yaml:"bounds" json:"bounds"`
	Animations int       `yaml:"animations" json:"animations"`
}

// LayerSource owns the layer tree on the content loop.
type LayerSource interface {
	HasLayers() bool
	// Layers returns a snapshot safe to hand to another loop.
	Layers() []Layer
	NotifyAnimationsStarted(at time.Time)
}

// LayerSet is an in-memory LayerSource. It is safe for concurrent use.
type LayerSet struct {
	mu        sync.Mutex
	layers    []Layer
	startedAt []time.Time
}

// NewLayerSet creates a set holding layers.
func NewLayerSet(layers ...Layer) *LayerSet {
	return &LayerSet{layers: append([]Layer(nil), layers...)}
}

// Add adds a layer, replacing one with the same ID.
func (s *LayerSet) Add(l Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.layers {
		if s.layers[i].ID == l.ID {
			s.layers[i] = l
			return
		}
	}
	s.layers = append(s.layers, l)
}

// Remove drops the layer with id and reports whether it existed.
func (s *LayerSet) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.layers {
		if s.layers[i].ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

// HasLayers reports whether any layer exists.
func (s *LayerSet) HasLayers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layers) > 0
}

// Layers returns a copy of the layers.
func (s *LayerSet) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Layer(nil), s.layers...)
}

// NotifyAnimationsStarted records an animation start time.
func (s *LayerSet) NotifyAnimationsStarted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = append(s.startedAt, at)
}

// AnimationStarts returns the recorded animation start times.
func (s *LayerSet) AnimationStarts() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.startedAt...)
}
