package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/pageview/pkg/pageview"
)

// Scenario outcomes
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error"
)

// Summary is the outcome of one scenario run
type Summary struct {
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Steps     int             `json:"steps"`
	Events    []EventRecord   `json:"events"`
	Checks    []CheckResult   `json:"checks"`
	Final     pageview.Status `json:"final"`
	Handled   []string        `json:"handled"`
}

// EventRecord is the serialized form of an emitted event
type EventRecord struct {
	Step  int     `json:"step"`
	Type  string  `json:"type"`
	State string  `json:"state,omitempty"`
	Scale float64 `json:"scale,omitempty"`
	Kind  string  `json:"kind,omitempty"`
}

// Passed reports whether every check passed and the run completed
func (s *Summary) Passed() bool {
	return s.Status == StatusPassed
}

// Failures returns the failed checks
func (s *Summary) Failures() []CheckResult {
	var failed []CheckResult
	for _, c := range s.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// SummaryWriter writes scenario summaries to disk
type SummaryWriter struct {
	path string
}

// NewSummaryWriter creates a writer for path. A ".md" path gets a markdown
// report, anything else JSON.
func NewSummaryWriter(path string) *SummaryWriter {
	return &SummaryWriter{path: path}
}

// Write writes summary
func (w *SummaryWriter) Write(summary *Summary) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(w.path), ".md") {
		data = []byte(markdown(summary))
	} else {
		var err error
		data, err = json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal scenario summary: %w", err)
		}
	}

	if writeErr := os.WriteFile(w.path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write scenario summary: %w", writeErr)
	}
	return nil
}

func markdown(summary *Summary) string {
	var md strings.Builder

	md.WriteString("# Page View Scenario Summary\n\n")
	md.WriteString(fmt.Sprintf("**Scenario:** %s\n\n", summary.Name))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	}

	if len(summary.Checks) > 0 {
		md.WriteString("## Checks\n\n")
		for _, c := range summary.Checks {
			status := "✅"
			if !c.Passed {
				status = "❌"
			}
			md.WriteString(fmt.Sprintf("%s **%s**", status, c.Name))
			if c.Error != "" {
				md.WriteString(fmt.Sprintf(": %s", c.Error))
			}
			md.WriteString("\n")
		}
		md.WriteString("\n")
	}

	st := summary.Final
	md.WriteString("## Final State\n\n")
	md.WriteString(fmt.Sprintf("- **Load State:** %s\n", st.LoadState))
	md.WriteString(fmt.Sprintf("- **Scale:** %.4f\n", st.Viewport.CurrentScale))
	md.WriteString(fmt.Sprintf("- **Scroll:** %s\n", st.Viewport.ScrollPosition))
	md.WriteString(fmt.Sprintf("- **Content Size:** %s\n", st.ContentSize))
	md.WriteString(fmt.Sprintf("- **Commits:** %d\n", st.Compositor.Commits))
	md.WriteString(fmt.Sprintf("- **Events:** %d\n", len(summary.Events)))
	return md.String()
}
