package config

import (
	"fmt"
	"path/filepath"
	"sync"
)

const (
	// SectionIDCompositing is the identifier for the compositing settings section
	SectionIDCompositing = "compositing"
)

// CompositingSection controls accelerated compositing and commit tracing.
type CompositingSection struct {
	Accelerated bool   `json:"accelerated"`
	TracePath   string `json:"trace_path"`
	mu          sync.RWMutex
}

// NewCompositingSection creates a compositing section with default settings.
func NewCompositingSection() *CompositingSection {
	return &CompositingSection{Accelerated: true}
}

// ID returns the section identifier.
func (s *CompositingSection) ID() string {
	return SectionIDCompositing
}

// Title returns the section title.
func (s *CompositingSection) Title() string {
	return "Compositing"
}

// Description returns the section description.
func (s *CompositingSection) Description() string {
	return "Enable compositor-driven drawing and optionally record layer commits to a trace file."
}

// Data returns the current configuration data.
func (s *CompositingSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"accelerated": s.Accelerated,
		"trace_path":  s.TracePath,
	}
}

// SetData updates the configuration from the provided data.
func (s *CompositingSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "accelerated":
			if err := setBool(key, value, &s.Accelerated); err != nil {
				return err
			}
		case "trace_path":
			path, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for trace_path: expected string, got %T", value)
			}
			s.TracePath = path
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *CompositingSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.TracePath != "" && !filepath.IsAbs(s.TracePath) {
		return fmt.Errorf("trace_path must be absolute, got %q", s.TracePath)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *CompositingSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Accelerated = true
	s.TracePath = ""
}

// Settings returns the current accelerated flag and trace path.
func (s *CompositingSection) Settings() (accelerated bool, tracePath string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Accelerated, s.TracePath
}
