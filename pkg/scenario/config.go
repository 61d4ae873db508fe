package scenario

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/pageview/pkg/config"
	"github.com/entrhq/pageview/pkg/document"
	"github.com/entrhq/pageview/pkg/geom"
	"github.com/entrhq/pageview/pkg/pageview/compositor"
	"github.com/entrhq/pageview/pkg/pageview/deferred"
	"github.com/entrhq/pageview/pkg/pageview/loadstate"
	"github.com/entrhq/pageview/pkg/pageview/viewport"
)

// Config is a scenario file
type Config struct {
	// Name identifies the scenario in the summary
	Name string `yaml:"name" json:"name"`

	// Viewport settings of the page view
	Viewport config.ViewportSettings `yaml:"viewport" json:"viewport"`

	// ViewMode is "desktop" or "fixed_desktop"
	ViewMode string `yaml:"view_mode" json:"view_mode"`

	// Screen describes the display
	Screen ScreenConfig `yaml:"screen" json:"screen"`

	// Document is the page content
	Document DocumentConfig `yaml:"document" json:"document"`

	// Compositing enables accelerated compositing
	Compositing CompositingConfig `yaml:"compositing" json:"compositing"`

	// Steps run in order
	Steps []Step `yaml:"steps" json:"steps"`

	// Expectations are checked after the last step
	Expectations []Expectation `yaml:"expectations" json:"expectations"`

	// Final is the state expected after the last step
	Final *FinalState `yaml:"final" json:"final,omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScreenConfig describes the display
type ScreenConfig struct {
	Size             geom.Size `yaml:"size" json:"size"`
	DevicePixelRatio float64   `yaml:"device_pixel_ratio" json:"device_pixel_ratio"`
}

// DocumentConfig describes the page content
type DocumentConfig struct {
	Root   document.NodeSpec `yaml:"root" json:"root"`
	Reflow bool              `yaml:"reflow" json:"reflow"`
	// ImageWidth marks the document as a single image of this natural width
	ImageWidth int `yaml:"image_width" json:"image_width"`
}

// CompositingConfig describes the layer tree
type CompositingConfig struct {
	Enabled        bool               `yaml:"enabled" json:"enabled"`
	DrawsRootLayer bool               `yaml:"draws_root_layer" json:"draws_root_layer"`
	Layers         []compositor.Layer `yaml:"layers" json:"layers"`
	// Detached runs without a compositing backend
	Detached bool `yaml:"detached" json:"detached"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// Action names a step
type Action string

const (
	ActionResize    Action = "resize"
	ActionLoad      Action = "load"
	ActionState     Action = "state"
	ActionZoom      Action = "zoom"
	ActionBlockZoom Action = "block_zoom"
	ActionHints     Action = "hints"
	ActionDefer     Action = "defer"
	ActionResume    Action = "resume"
	ActionEnqueue   Action = "enqueue"
	ActionLayout    Action = "layout"
	ActionScroll    Action = "scroll"
	ActionVisible   Action = "visible"
	ActionCommit    Action = "commit"
)

// Step is one host interaction
type Step struct {
	Action Action `yaml:"action" json:"action"`

	// Size is the visible size for resize and the new content size for load
	// and layout
	Size geom.Size `yaml:"size" json:"size"`

	// Layout is the default layout size for resize; zero uses Size
	Layout geom.Size `yaml:"layout" json:"layout"`

	// State is the load state for state steps
	State string `yaml:"state" json:"state"`

	// Restore marks a load as a back/forward restore
	Restore bool `yaml:"restore" json:"restore"`

	// Scale and Anchor drive zoom steps
	Scale  float64         `yaml:"scale" json:"scale"`
	Anchor geom.FloatPoint `yaml:"anchor" json:"anchor"`

	// Point drives block_zoom and scroll steps
	Point geom.Point `yaml:"point" json:"point"`

	// Hints and Virtual drive hints steps
	Hints   viewport.ScaleHints `yaml:"hints" json:"hints"`
	Virtual geom.Size           `yaml:"virtual" json:"virtual"`
	Force   bool                `yaml:"force" json:"force"`

	// Kind and the payload fields drive enqueue steps
	Kind     string `yaml:"kind" json:"kind"`
	URL      string `yaml:"url" json:"url"`
	Value    string `yaml:"value" json:"value"`
	Index    int    `yaml:"index" json:"index"`
	Selected []bool `yaml:"selected" json:"selected"`
	Flag     bool   `yaml:"flag" json:"flag"`
}

// Expectation bounds how many emitted events match a glob over event types
type Expectation struct {
	Event string `yaml:"event" json:"event"`
	Min   int    `yaml:"min" json:"min"`
	Max   *int   `yaml:"max" json:"max,omitempty"`
}

// FinalState is the page view state expected after the last step
type FinalState struct {
	LoadState string      `yaml:"load_state" json:"load_state,omitempty"`
	Scale     float64     `yaml:"scale" json:"scale,omitempty"`
	Tolerance float64     `yaml:"tolerance" json:"tolerance,omitempty"`
	Scroll    *geom.Point `yaml:"scroll" json:"scroll,omitempty"`
	Commits   *int        `yaml:"commits" json:"commits,omitempty"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	if c.Document.Root.Rect.Width < 0 || c.Document.Root.Rect.Height < 0 {
		return fmt.Errorf("document root size cannot be negative")
	}
	if _, _, err := document.Build(c.Document.Root); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}
	if _, err := parseViewMode(c.ViewMode); err != nil {
		return err
	}
	if c.Screen.DevicePixelRatio < 0 {
		return fmt.Errorf("device_pixel_ratio cannot be negative")
	}

	for i := range c.Steps {
		if err := c.Steps[i].validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for i, e := range c.Expectations {
		if e.Event == "" {
			return fmt.Errorf("expectation %d: event pattern is required", i+1)
		}
		if _, err := glob.Compile(e.Event); err != nil {
			return fmt.Errorf("expectation %d: invalid event pattern '%s': %w", i+1, e.Event, err)
		}
		if e.Min < 0 || (e.Max != nil && *e.Max < e.Min) {
			return fmt.Errorf("expectation %d: invalid bounds", i+1)
		}
	}

	if c.Final != nil && c.Final.LoadState != "" {
		if _, err := loadstate.ParseState(c.Final.LoadState); err != nil {
			return fmt.Errorf("final: %w", err)
		}
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

func (s *Step) validate() error {
	switch s.Action {
	case ActionResize:
		if s.Size.IsEmpty() {
			return fmt.Errorf("resize requires a non-empty size")
		}
	case ActionState:
		if _, err := loadstate.ParseState(s.State); err != nil {
			return err
		}
	case ActionZoom:
		if s.Scale <= 0 {
			return fmt.Errorf("zoom requires a positive scale")
		}
	case ActionEnqueue:
		if _, err := deferred.ParseKind(s.Kind); err != nil {
			return err
		}
	case ActionLoad, ActionLayout, ActionBlockZoom, ActionHints, ActionDefer,
		ActionResume, ActionScroll, ActionVisible, ActionCommit:
	default:
		return fmt.Errorf("unknown action: %q", s.Action)
	}
	return nil
}

func parseViewMode(name string) (viewport.ViewMode, error) {
	switch name {
	case "", "desktop":
		return viewport.Desktop, nil
	case "fixed_desktop":
		return viewport.FixedDesktop, nil
	}
	return viewport.Desktop, fmt.Errorf("invalid view mode: %s (must be 'desktop' or 'fixed_desktop')", name)
}

// DefaultConfig returns a configuration with default settings and no steps
func DefaultConfig() *Config {
	return &Config{
		Name:     "scenario",
		Viewport: config.DefaultViewportSettings(),
		Screen: ScreenConfig{
			Size:             geom.Sz(1024, 1024),
			DevicePixelRatio: 1,
		},
		Document: DocumentConfig{
			Root: document.NodeSpec{Name: "body", Rect: geom.R(0, 0, 980, 2000)},
		},
		Logging: LoggingConfig{Verbosity: "normal"},
	}
}

// LoadFile reads a scenario file over DefaultConfig
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario over DefaultConfig
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return cfg, nil
}
