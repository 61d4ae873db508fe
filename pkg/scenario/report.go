package scenario

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/entrhq/pageview/pkg/logging"
)

// Reporter prints scenario progress to the console
type Reporter struct {
	level  logging.Level
	writer io.Writer

	// ANSI color codes
	colorReset     string
	colorCyan      string
	colorYellow    string
	colorRed       string
	colorGray      string
	colorBoldGreen string
	colorBoldRed   string
	colorBoldWhite string

	stepCount int
}

// NewReporter creates a reporter writing to stdout
func NewReporter(level logging.Level) *Reporter {
	return NewWriterReporter(level, os.Stdout)
}

// NewWriterReporter creates a reporter writing to w
func NewWriterReporter(level logging.Level, w io.Writer) *Reporter {
	return &Reporter{
		level:          level,
		writer:         w,
		colorReset:     "\033[0m",
		colorCyan:      "\033[36m",
		colorYellow:    "\033[33m",
		colorRed:       "\033[31m",
		colorGray:      "\033[90m",
		colorBoldGreen: "\033[1;32m",
		colorBoldRed:   "\033[1;31m",
		colorBoldWhite: "\033[1;37m",
	}
}

// Header prints a prominent header message
func (r *Reporter) Header(message string) {
	if r.level >= logging.LevelNormal {
		fmt.Fprintf(r.writer, "\n%s%s%s\n", r.colorBoldWhite, strings.Repeat("=", 70), r.colorReset)
		fmt.Fprintf(r.writer, "%s  %s%s\n", r.colorBoldWhite, message, r.colorReset)
		fmt.Fprintf(r.writer, "%s%s%s\n", r.colorBoldWhite, strings.Repeat("=", 70), r.colorReset)
	}
}

// Section prints a section divider
func (r *Reporter) Section(title string) {
	if r.level >= logging.LevelNormal {
		fmt.Fprintln(r.writer)
		fmt.Fprintf(r.writer, "%s▶ %s%s\n", r.colorCyan, title, r.colorReset)
		fmt.Fprintf(r.writer, "%s%s%s\n", r.colorGray, strings.Repeat("─", 50), r.colorReset)
	}
}

// Step prints a numbered step
func (r *Reporter) Step(message string) {
	r.stepCount++
	if r.level >= logging.LevelNormal {
		fmt.Fprintf(r.writer, "%s[%d] %s%s\n", r.colorCyan, r.stepCount, message, r.colorReset)
	}
}

// Verbosef prints detailed information (only in verbose mode)
func (r *Reporter) Verbosef(format string, args ...interface{}) {
	if r.level >= logging.LevelVerbose {
		fmt.Fprintf(r.writer, "%s  → %s%s\n", r.colorGray, fmt.Sprintf(format, args...), r.colorReset)
	}
}

// Warningf prints a warning message
func (r *Reporter) Warningf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, "%s⚠ Warning: %s%s\n", r.colorYellow, fmt.Sprintf(format, args...), r.colorReset)
}

// Errorf prints an error message
func (r *Reporter) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, "%s✗ Error: %s%s\n", r.colorBoldRed, fmt.Sprintf(format, args...), r.colorReset)
}

// Check prints one expectation result
func (r *Reporter) Check(result CheckResult) {
	if result.Passed {
		if r.level >= logging.LevelNormal {
			fmt.Fprintf(r.writer, "%s  ✓ %s%s\n", r.colorBoldGreen, result.Name, r.colorReset)
		}
		return
	}
	fmt.Fprintf(r.writer, "%s  ✗ %s: %s%s\n", r.colorBoldRed, result.Name, result.Error, r.colorReset)
}

// Summary prints the final summary. It prints even in quiet mode.
func (r *Reporter) Summary(summary *Summary) {
	fmt.Fprintln(r.writer)
	fmt.Fprintf(r.writer, "%s%s%s\n", r.colorBoldWhite, strings.Repeat("=", 70), r.colorReset)
	fmt.Fprintf(r.writer, "%s  SCENARIO SUMMARY%s\n", r.colorBoldWhite, r.colorReset)
	fmt.Fprintf(r.writer, "%s%s%s\n", r.colorBoldWhite, strings.Repeat("=", 70), r.colorReset)

	fmt.Fprint(r.writer, "  Status: ")
	switch summary.Status {
	case StatusPassed:
		fmt.Fprintf(r.writer, "%s✓ PASSED%s\n", r.colorBoldGreen, r.colorReset)
	case StatusFailed:
		fmt.Fprintf(r.writer, "%s✗ FAILED%s\n", r.colorBoldRed, r.colorReset)
	default:
		fmt.Fprintf(r.writer, "%s✗ ERROR%s\n", r.colorBoldRed, r.colorReset)
	}

	fmt.Fprintf(r.writer, "  Scenario: %s\n", summary.Name)
	fmt.Fprintf(r.writer, "  Duration: %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.writer, "  Steps: %d\n", summary.Steps)
	fmt.Fprintf(r.writer, "  Events: %d\n", len(summary.Events))

	st := summary.Final
	fmt.Fprintf(r.writer, "\n  Page view:\n")
	fmt.Fprintf(r.writer, "    Load state: %s (%d navigations)\n", st.LoadState, st.Navigations)
	fmt.Fprintf(r.writer, "    Scale: %.4f at %s\n", st.Viewport.CurrentScale, st.Viewport.ScrollPosition)
	fmt.Fprintf(r.writer, "    Content: %s in %s\n", st.ContentSize, st.Viewport.VisibleSize)
	fmt.Fprintf(r.writer, "    Commits: %d\n", st.Compositor.Commits)

	if summary.Error != "" {
		fmt.Fprintln(r.writer)
		fmt.Fprintf(r.writer, "%s  Error Details:%s\n", r.colorBoldRed, r.colorReset)
		fmt.Fprintf(r.writer, "%s    %s%s\n", r.colorRed, summary.Error, r.colorReset)
	}

	fmt.Fprintf(r.writer, "%s%s%s\n", r.colorBoldWhite, strings.Repeat("=", 70), r.colorReset)
	fmt.Fprintln(r.writer)
}
