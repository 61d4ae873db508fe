package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDViewport is the identifier for the viewport settings section
	SectionIDViewport = "viewport"

	defaultZoomToFitOnLoad  = true
	defaultUserScalable     = true
	defaultInitialScale     = -1.0
	defaultViewportWidth    = 0
	defaultMaxLayoutWidth   = 1024
	defaultMaxLayoutHeight  = 768
	defaultBlockClickRadius = 0
	defaultDevicePixelRatio = 1.0
)

// ViewportSection holds the zoom and layout settings applied to new page views.
type ViewportSection struct {
	ZoomToFitOnLoad  bool    `json:"zoom_to_fit_on_load"`
	UserScalable     bool    `json:"user_scalable"`
	InitialScale     float64 `json:"initial_scale"`
	ViewportWidth    int     `json:"viewport_width"`
	MaxLayoutWidth   int     `json:"max_layout_width"`
	MaxLayoutHeight  int     `json:"max_layout_height"`
	BlockClickRadius int     `json:"block_click_radius"`
	DevicePixelRatio float64 `json:"device_pixel_ratio"`
	mu               sync.RWMutex
}

// NewViewportSection creates a viewport section with default settings.
func NewViewportSection() *ViewportSection {
	s := &ViewportSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *ViewportSection) ID() string {
	return SectionIDViewport
}

// Title returns the section title.
func (s *ViewportSection) Title() string {
	return "Viewport Settings"
}

// Description returns the section description.
func (s *ViewportSection) Description() string {
	return "Configure zoom-to-fit, scale hints, and the desktop layout size used when pages have no viewport."
}

// Data returns the current configuration data.
func (s *ViewportSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"zoom_to_fit_on_load": s.ZoomToFitOnLoad,
		"user_scalable":       s.UserScalable,
		"initial_scale":       s.InitialScale,
		"viewport_width":      s.ViewportWidth,
		"max_layout_width":    s.MaxLayoutWidth,
		"max_layout_height":   s.MaxLayoutHeight,
		"block_click_radius":  s.BlockClickRadius,
		"device_pixel_ratio":  s.DevicePixelRatio,
	}
}

// SetData updates the configuration from the provided data. Unknown keys are ignored.
func (s *ViewportSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "zoom_to_fit_on_load":
			err = setBool(key, value, &s.ZoomToFitOnLoad)
		case "user_scalable":
			err = setBool(key, value, &s.UserScalable)
		case "initial_scale":
			err = setFloat(key, value, &s.InitialScale)
		case "device_pixel_ratio":
			err = setFloat(key, value, &s.DevicePixelRatio)
		case "viewport_width":
			err = setInt(key, value, &s.ViewportWidth)
		case "max_layout_width":
			err = setInt(key, value, &s.MaxLayoutWidth)
		case "max_layout_height":
			err = setInt(key, value, &s.MaxLayoutHeight)
		case "block_click_radius":
			err = setInt(key, value, &s.BlockClickRadius)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *ViewportSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ViewportWidth < 0 {
		return fmt.Errorf("viewport_width must not be negative, got %d", s.ViewportWidth)
	}
	if s.MaxLayoutWidth < 10 || s.MaxLayoutHeight < 10 {
		return fmt.Errorf("max layout size must be at least 10x10, got %dx%d", s.MaxLayoutWidth, s.MaxLayoutHeight)
	}
	if s.BlockClickRadius < 0 {
		return fmt.Errorf("block_click_radius must not be negative, got %d", s.BlockClickRadius)
	}
	if s.DevicePixelRatio <= 0 {
		return fmt.Errorf("device_pixel_ratio must be positive, got %v", s.DevicePixelRatio)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ViewportSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ZoomToFitOnLoad = defaultZoomToFitOnLoad
	s.UserScalable = defaultUserScalable
	s.InitialScale = defaultInitialScale
	s.ViewportWidth = defaultViewportWidth
	s.MaxLayoutWidth = defaultMaxLayoutWidth
	s.MaxLayoutHeight = defaultMaxLayoutHeight
	s.BlockClickRadius = defaultBlockClickRadius
	s.DevicePixelRatio = defaultDevicePixelRatio
}

// Snapshot returns a copy of the settings safe to hand to a page view.
func (s *ViewportSection) Snapshot() ViewportSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ViewportSettings{
		ZoomToFitOnLoad:  s.ZoomToFitOnLoad,
		UserScalable:     s.UserScalable,
		InitialScale:     s.InitialScale,
		ViewportWidth:    s.ViewportWidth,
		MaxLayoutWidth:   s.MaxLayoutWidth,
		MaxLayoutHeight:  s.MaxLayoutHeight,
		BlockClickRadius: s.BlockClickRadius,
		DevicePixelRatio: s.DevicePixelRatio,
	}
}

// ViewportSettings is an unlocked copy of ViewportSection values.
type ViewportSettings struct {
	ZoomToFitOnLoad  bool    `yaml:"zoom_to_fit_on_load" json:"zoom_to_fit_on_load"`
	UserScalable     bool    `yaml:"user_scalable" json:"user_scalable"`
	InitialScale     float64 `yaml:"initial_scale" json:"initial_scale"`
	ViewportWidth    int     `yaml:"viewport_width" json:"viewport_width"`
	MaxLayoutWidth   int     `yaml:"max_layout_width" json:"max_layout_width"`
	MaxLayoutHeight  int     `yaml:"max_layout_height" json:"max_layout_height"`
	BlockClickRadius int     `yaml:"block_click_radius" json:"block_click_radius"`
	DevicePixelRatio float64 `yaml:"device_pixel_ratio" json:"device_pixel_ratio"`
}

// DefaultViewportSettings returns the defaults used by NewViewportSection.
func DefaultViewportSettings() ViewportSettings {
	return NewViewportSection().Snapshot()
}

func setBool(key string, value interface{}, dst *bool) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
	}
	*dst = v
	return nil
}

// JSON numbers come as float64; direct callers may pass ints.
func setFloat(key string, value interface{}, dst *float64) error {
	switch v := value.(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	case int64:
		*dst = float64(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
	return nil
}

func setInt(key string, value interface{}, dst *int) error {
	switch v := value.(type) {
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("invalid value for %s: expected integer, got %v", key, v)
		}
		*dst = int(v)
	case int:
		*dst = v
	case int64:
		*dst = int(v)
	default:
		return fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
	return nil
}
