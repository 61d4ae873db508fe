// Package main provides the headless page view runner. It replays scripted
// scenarios against a page view with an in-memory document and reports
// whether the emitted events and final geometry match expectations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	appconfig "github.com/entrhq/pageview/pkg/config"
	"github.com/entrhq/pageview/pkg/logging"
	"github.com/entrhq/pageview/pkg/pageview/compositor"
	"github.com/entrhq/pageview/pkg/scenario"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ScenarioFile string
	ConfigFile   string
	TraceFile    string
	OutputFile   string
	Verbosity    string
	Timeout      time.Duration
	ShowVersion  bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("Page View Headless v%s\n", version)
		return
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel() // Cancel context before exiting
		log.Printf("Scenario failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	config := &CLIConfig{}

	flag.StringVar(&config.ScenarioFile, "scenario", "", "Path to scenario file (YAML, required)")
	flag.StringVar(&config.ConfigFile, "config", "", "Path to page view configuration file (YAML or JSON)")
	flag.StringVar(&config.TraceFile, "trace", "", "Record layer commits to this CBOR file")
	flag.StringVar(&config.OutputFile, "output", "", "Write the scenario summary to this file (.json or .md)")
	flag.StringVar(&config.Verbosity, "verbosity", "", "Override scenario verbosity: quiet, normal, verbose, debug")
	flag.DurationVar(&config.Timeout, "timeout", time.Minute, "Scenario timeout")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Page View Headless - scripted page view scenarios\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pageview-headless -scenario file.yaml [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run a scenario\n")
		fmt.Fprintf(os.Stderr, "  pageview-headless -scenario rotate.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Record commits and keep a summary\n")
		fmt.Fprintf(os.Stderr, "  pageview-headless -scenario zoom.yaml -trace commits.cbor -output summary.json\n\n")
	}

	flag.Parse()
	return config
}

// run executes one scenario
func run(ctx context.Context, cliConfig *CLIConfig) error {
	if cliConfig.ScenarioFile == "" {
		flag.Usage()
		return fmt.Errorf("-scenario is required")
	}

	// Initialize global configuration
	if initErr := appconfig.Initialize(cliConfig.ConfigFile); initErr != nil {
		return fmt.Errorf("failed to initialize configuration: %w", initErr)
	}

	cfg, err := loadScenarioFromFile(cliConfig.ScenarioFile)
	if err != nil {
		return err
	}
	if cliConfig.Verbosity != "" {
		cfg.Logging.Verbosity = cliConfig.Verbosity
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return fmt.Errorf("invalid scenario: %w", validationErr)
	}

	level, err := logging.ParseLevel(cfg.Logging.Verbosity)
	if err != nil {
		return err
	}
	logger, logErr := logging.NewLogger("pageview")
	if logErr != nil {
		log.Printf("Warning: %v", logErr)
	}
	defer logger.Close()
	logger.SetLevel(level)

	reporter := scenario.NewReporter(level)
	opts := []scenario.RunnerOption{
		scenario.WithReporter(reporter),
		scenario.WithLogger(logger),
	}

	tracePath := cliConfig.TraceFile
	if tracePath == "" {
		if section := appconfig.GetCompositing(); section != nil {
			_, tracePath = section.Settings()
		}
	}
	if tracePath != "" {
		trace, traceErr := compositor.CreateTraceFile(tracePath)
		if traceErr != nil {
			return traceErr
		}
		opts = append(opts, scenario.WithTrace(trace))
		reporter.Verbosef("recording commits to %s", tracePath)
	}

	runner, err := scenario.NewRunner(cfg, opts...)
	if err != nil {
		return err
	}

	// Apply timeout if specified
	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	summary, runErr := runner.Run(ctx)
	reporter.Summary(summary)

	if cliConfig.OutputFile != "" {
		if writeErr := scenario.NewSummaryWriter(cliConfig.OutputFile).Write(summary); writeErr != nil {
			reporter.Warningf("%v", writeErr)
		}
	}
	if logger.LogPath() != "" {
		reporter.Verbosef("log written to %s", logger.LogPath())
	}

	if errors.Is(runErr, scenario.ErrExpectationsFailed) {
		return fmt.Errorf("%d of %d checks failed", len(summary.Failures()), len(summary.Checks))
	}
	return runErr
}

// loadScenarioFromFile loads a scenario over the configured viewport settings
func loadScenarioFromFile(path string) (*scenario.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	config := scenario.DefaultConfig()
	config.Viewport = appconfig.ViewportSettingsOrDefault()
	if section := appconfig.GetCompositing(); section != nil {
		config.Compositing.Enabled, _ = section.Settings()
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return config, nil
}
