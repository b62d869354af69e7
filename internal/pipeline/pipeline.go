package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Step is one stage of a scan.
type Step interface {
	// Do executes the step. Failures that should stop the remaining
	// regular steps are returned; anything else is recorded on the scan.
	Do(ctx context.Context, scan *Scan) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps      []Step
	finalSteps []Step

	logger *slog.Logger

	// continueOnError keeps running regular steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep executing regular
// steps after one fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a regular step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple regular steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalSteps appends steps that run after the regular steps no matter
// how those ended.
func (p *Pipeline) AddFinalSteps(steps ...Step) {
	p.finalSteps = append(p.finalSteps, steps...)
}

// Execute runs the regular steps in order, then the final steps.
//
// The returned error is the first regular step failure, or ctx.Err() when
// the pipeline was cancelled between steps. Final step failures are logged
// and recorded on the scan only if no earlier error exists.
func (p *Pipeline) Execute(ctx context.Context, scan *Scan) error {
	var firstErr error

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "target", scan.Target, "reason", err)
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		if err := p.run(ctx, step, scan); err != nil {
			if firstErr == nil {
				firstErr = err
				scan.Err = err
			}
			if !p.continueOnError {
				break
			}
		}
	}

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finalSteps {
		if err := p.run(finalCtx, step, scan); err != nil && scan.Err == nil {
			scan.Err = err
		}
	}

	return firstErr
}

// run executes one step, converting a panic into an error.
func (p *Pipeline) run(ctx context.Context, step Step, scan *Scan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("step panicked",
				"step", step.Name(),
				"target", scan.Target,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %s: %v", ErrStepPanic, step.Name(), r)
		}
	}()

	p.logger.Debug("executing step", "step", step.Name(), "target", scan.Target)
	scan.Steps = append(scan.Steps, step.Name())

	if err := step.Do(ctx, scan); err != nil {
		p.logger.Error("step failed", "step", step.Name(), "target", scan.Target, "error", err)
		return err
	}
	return nil
}

// StepCount returns the number of regular and final steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps) + len(p.finalSteps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, p.StepCount())
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finalSteps {
		names = append(names, step.Name())
	}
	return names
}
