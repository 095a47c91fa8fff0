package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/docrepo/internal/model"
)

// ErrNoPagesCaptured is returned when the crawl finished without a single
// page. Later steps are not run.
var ErrNoPagesCaptured = errors.New("no pages captured")

// Step is one stage of a run.
type Step interface {
	// Do executes the step. Recoverable problems are recorded on run and
	// nil is returned; an error stops the pipeline.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// onStep is called with the step name before each step starts.
	onStep func(name string)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline and the steps built by
// DefaultPipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStepHook registers fn to be called before each step starts.
// The CLI uses it to print progress.
func WithStepHook(fn func(name string)) Option {
	return func(p *Pipeline) {
		p.onStep = fn
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and returns the first error.
// The error is also stored in run.Error, and run.FinishedAt is set on
// return whatever the outcome.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	defer func() { run.FinishedAt = time.Now() }()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			run.Error = err
			return err
		}

		if p.onStep != nil {
			p.onStep(step.Name())
		}
		p.logger.Info("executing step", "step", step.Name(), "seed", run.SeedURL)

		if err := step.Do(ctx, run); err != nil {
			if !errors.Is(err, ErrNoPagesCaptured) && ctx.Err() == nil {
				p.logger.Error("step failed", "step", step.Name(), "error", err)
			}
			run.Error = err
			return err
		}

		p.logger.Debug("step completed", "step", step.Name())
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Status maps the error returned by Execute to the status recorded for
// the run.
func Status(err error) model.RunStatus {
	switch {
	case err == nil:
		return model.RunStatusComplete
	case errors.Is(err, ErrNoPagesCaptured):
		return model.RunStatusEmpty
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.RunStatusCancelled
	default:
		return model.RunStatusFailed
	}
}
