package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type progressSpinnerFactory func(out io.Writer, text string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(out io.Writer, text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithWriter(out).
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// StepStatus represents the state of a progress step.
type StepStatus int

const (
	// StepPending indicates a step has not yet started.
	StepPending StepStatus = iota
	// StepRunning indicates a step is currently in progress.
	StepRunning
	// StepCompleted indicates a step finished successfully.
	StepCompleted
	// StepFailed indicates a step encountered an error, or a run exceeded a threshold.
	StepFailed
)

// Step represents a single progress step.
type Step struct {
	ID          string
	Message     string
	Status      StepStatus
	IndentLevel int // 0 = root, 1 = child (→)
	startTime   time.Time
}

// ProgressManager prints the steps of a command, one spinner at a time.
type ProgressManager struct {
	out            io.Writer
	steps          []*Step
	stepMap        map[string]*Step
	currentSpinner progressSpinner
	spinnerFactory progressSpinnerFactory
	mu             sync.Mutex
	disabled       bool
}

// ProgressManagerOption allows customizing ProgressManager behavior at creation time.
type ProgressManagerOption func(*ProgressManager)

// WithProgressOutput enables or disables terminal output for a ProgressManager.
func WithProgressOutput(enabled bool) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.disabled = !enabled
	}
}

func withProgressSpinnerFactory(factory progressSpinnerFactory) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.spinnerFactory = factory
	}
}

// NewProgressManager creates a new ProgressManager writing to out with all steps registered upfront.
func NewProgressManager(out io.Writer, steps []*Step, opts ...ProgressManagerOption) *ProgressManager {
	pterm.Success.Prefix = pterm.Prefix{
		Text:  "✓",
		Style: pterm.NewStyle(pterm.FgGreen),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "✗",
		Style: pterm.NewStyle(pterm.FgRed),
	}
	pterm.DefaultSpinner.Style = pterm.NewStyle(pterm.FgCyan)

	pm := &ProgressManager{
		out:            out,
		steps:          steps,
		stepMap:        make(map[string]*Step, len(steps)),
		spinnerFactory: defaultSpinnerFactory,
	}
	for _, step := range steps {
		pm.stepMap[step.ID] = step
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

func getPrefix(step *Step) string {
	prefix := ""
	for i := 0; i < step.IndentLevel; i++ {
		prefix += "  "
	}
	if step.IndentLevel > 0 {
		prefix += "→ "
	}
	return prefix
}

// Start begins the given step. Root steps print a single line, child steps animate a spinner.
func (pm *ProgressManager) Start(stepID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stepID]
	if !exists {
		return errors.Errorf("step %q not found", stepID)
	}
	step.Status = StepRunning
	step.startTime = time.Now()

	if pm.disabled {
		return nil
	}
	if step.IndentLevel == 0 {
		printf(pm.out, " …  %s", step.Message)
		return nil
	}
	if pm.currentSpinner != nil {
		//nolint:errcheck
		_ = pm.currentSpinner.Stop()
	}
	spinner, err := pm.spinnerFactory(pm.out, " "+getPrefix(step)+step.Message)
	if err != nil {
		return errors.Wrap(err, "failed to start spinner")
	}
	pm.currentSpinner = spinner
	return nil
}

// Complete marks a step as completed, printing its message.
func (pm *ProgressManager) Complete(stepID string) error {
	return pm.finish(stepID, StepCompleted, "")
}

// CompleteWithMessage marks a step as completed with a custom message.
func (pm *ProgressManager) CompleteWithMessage(stepID, message string) error {
	return pm.finish(stepID, StepCompleted, message)
}

// Fail marks a step as failed with an error.
func (pm *ProgressManager) Fail(stepID string, err error) error {
	pm.mu.Lock()
	step, exists := pm.stepMap[stepID]
	pm.mu.Unlock()
	if !exists {
		return errors.Errorf("step %q not found", stepID)
	}
	return pm.finish(stepID, StepFailed, fmt.Sprintf("%s: %v", step.Message, err))
}

// FailWithMessage marks a step as failed with a custom message.
func (pm *ProgressManager) FailWithMessage(stepID, message string) error {
	return pm.finish(stepID, StepFailed, message)
}

func (pm *ProgressManager) finish(stepID string, status StepStatus, message string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stepID]
	if !exists {
		return errors.Errorf("step %q not found", stepID)
	}
	step.Status = status

	if pm.disabled {
		return nil
	}
	if message == "" {
		message = step.Message
	}
	if status == StepCompleted && !step.startTime.IsZero() {
		message += fmt.Sprintf(" (%s)", time.Since(step.startTime).Round(time.Millisecond))
	}
	if step.IndentLevel > 0 {
		message = " " + getPrefix(step) + message
	}

	if pm.currentSpinner != nil && step.IndentLevel > 0 {
		if status == StepCompleted {
			pm.currentSpinner.Success(message)
		} else {
			pm.currentSpinner.Fail(message)
		}
		pm.currentSpinner = nil
		return nil
	}
	if status == StepCompleted {
		pterm.Success.WithWriter(pm.out).Println(message)
	} else {
		pterm.Error.WithWriter(pm.out).Println(message)
	}
	return nil
}

// Stop stops any active spinner.
func (pm *ProgressManager) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.disabled {
		return
	}
	if pm.currentSpinner != nil {
		//nolint:errcheck
		_ = pm.currentSpinner.Stop()
		pm.currentSpinner = nil
	}
}

// Steps returns the registered steps in order.
func (pm *ProgressManager) Steps() []*Step {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return append([]*Step(nil), pm.steps...)
}
