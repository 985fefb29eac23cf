package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
)

// CheckStep represents a single startup check with its outcome.
type CheckStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a startup check step.
type StepStatus int

const (
	StepPassed StepStatus = iota
	StepFailed
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// CheckResult represents the complete result of the startup check suite.
type CheckResult struct {
	Steps       []CheckStep
	PassedSteps int
	FailedSteps int
	Duration    time.Duration
	Success     bool
}

// StartupCheck validates the configuration before any heavy initialization:
// generation backend availability, model file readability, history database
// directory, and presets file. Progress is printed with colored status
// markers unless disabled.
type StartupCheck struct {
	config       *Config
	output       io.Writer
	showProgress bool
}

// NewStartupCheck creates a StartupCheck for the given configuration.
func NewStartupCheck(cfg *Config) *StartupCheck {
	return &StartupCheck{
		config:       cfg,
		output:       os.Stdout,
		showProgress: true,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *StartupCheck) WithOutput(w io.Writer) *StartupCheck {
	s.output = w
	return s
}

// WithShowProgress enables or disables progress output.
func (s *StartupCheck) WithShowProgress(show bool) *StartupCheck {
	s.showProgress = show
	return s
}

// Run executes all startup checks in sequence and returns the result.
func (s *StartupCheck) Run() CheckResult {
	startTime := time.Now()

	if s.showProgress {
		s.printHeader("sdgateway Startup Validation")
	}

	steps := []CheckStep{
		s.runStep("Generation Backend", s.checkBackend),
		s.runStep("Model File", s.checkModelFile),
		s.runStep("History Database", s.checkHistoryPath),
		s.runStep("Parameter Presets", s.checkPresets),
	}

	result := s.buildResult(steps, startTime)

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

// checkBackend verifies that at least one generation backend is configured.
func (s *StartupCheck) checkBackend() (bool, string, error) {
	switch {
	case s.config.HasLocalModel():
		return true, fmt.Sprintf("local model: %s", s.config.SDModelPath), nil
	case s.config.HasCloudFallback():
		return true, fmt.Sprintf("cloud fallback: %s", s.config.OpenAIImageModel), nil
	default:
		return false, "set SD_MODEL_PATH or OPENAI_API_KEY", ErrNoBackend
	}
}

// checkModelFile verifies the local model file exists and is a regular file.
// Skips (passes) when only a cloud backend is configured.
func (s *StartupCheck) checkModelFile() (bool, string, error) {
	if !s.config.HasLocalModel() {
		return true, "no local model configured", nil
	}

	info, err := os.Stat(s.config.SDModelPath)
	if err != nil {
		return false, "model file not accessible", err
	}
	if info.IsDir() {
		return false, "", fmt.Errorf("%w: SD_MODEL_PATH %s is a directory", ErrInvalidConfig, s.config.SDModelPath)
	}

	return true, fmt.Sprintf("%.1f GB", float64(info.Size())/(1<<30)), nil
}

// checkHistoryPath verifies the history database directory exists or can be
// created. History is optional, so an empty path passes.
func (s *StartupCheck) checkHistoryPath() (bool, string, error) {
	if s.config.HistoryDBPath == "" {
		return true, "history disabled", nil
	}

	dir := filepath.Dir(s.config.HistoryDBPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, "cannot create database directory", err
	}

	return true, s.config.HistoryDBPath, nil
}

// checkPresets verifies the presets file parses (or that built-ins are used).
func (s *StartupCheck) checkPresets() (bool, string, error) {
	presets, err := LoadPresets(s.config.PresetsPath)
	if err != nil {
		return false, "presets file invalid", err
	}
	if s.config.PresetsPath == "" {
		return true, fmt.Sprintf("%d built-in presets", len(presets)), nil
	}
	return true, fmt.Sprintf("%d presets from %s", len(presets), s.config.PresetsPath), nil
}

// runStep executes a check step with timing and progress output.
func (s *StartupCheck) runStep(name string, fn func() (bool, string, error)) CheckStep {
	step := CheckStep{Name: name}

	startTime := time.Now()
	passed, message, err := fn()
	step.Latency = time.Since(startTime)
	step.Message = message
	step.Error = err

	if passed {
		step.Status = StepPassed
	} else {
		step.Status = StepFailed
	}

	if s.showProgress {
		s.printStep(step)
	}

	return step
}

// buildResult creates a CheckResult from completed steps.
func (s *StartupCheck) buildResult(steps []CheckStep, startTime time.Time) CheckResult {
	result := CheckResult{
		Steps:    steps,
		Duration: time.Since(startTime),
		Success:  true,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		}
	}

	return result
}

func (s *StartupCheck) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

func (s *StartupCheck) printStep(step CheckStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *StartupCheck) printSummary(result CheckResult) {
	fmt.Fprintln(s.output)
	if result.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(s.output, "  %d/%d checks passed (%v)\n",
			result.PassedSteps, len(result.Steps), result.Duration.Round(time.Millisecond))
	} else {
		color.New(color.FgRed, color.Bold).Fprintf(s.output, "  %d check(s) failed\n", result.FailedSteps)
	}
	fmt.Fprintln(s.output)
}
