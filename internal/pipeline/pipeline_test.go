package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nao1215/docrepo/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *model.Run) error
	callCount int
}

func (m *mockStep) Do(ctx context.Context, run *model.Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	if p.StepCount() != 0 {
		t.Fatalf("expected 0 steps, got %d", p.StepCount())
	}

	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	expected := []string{"first", "second", "third"}
	names := p.StepNames()
	if len(names) != len(expected) {
		t.Fatalf("expected %d names, got %v", len(expected), names)
	}
	for i, name := range names {
		if name != expected[i] {
			t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
		}
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		order := make([]string, 0)
		p := New()
		for _, name := range []string{"crawl", "allocate", "convert"} {
			p.AddStep(&mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *model.Run) error {
					order = append(order, name)
					return nil
				},
			})
		}

		run := model.NewRun("https://example.com/", "out")
		if err := p.Execute(t.Context(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if fmt.Sprint(order) != "[crawl allocate convert]" {
			t.Errorf("unexpected order %v", order)
		}
		if fmt.Sprint(run.PerformedSteps) != "[crawl allocate convert]" {
			t.Errorf("unexpected performed steps %v", run.PerformedSteps)
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("stops at the first error", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		first := &mockStep{name: "first", doFunc: func(context.Context, *model.Run) error { return errBoom }}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)

		run := model.NewRun("https://example.com/", "out")
		err := p.Execute(t.Context(), run)
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("second step should not run")
		}
		if !errors.Is(run.Error, errBoom) {
			t.Errorf("expected run.Error to be set, got %v", run.Error)
		}
		if len(run.PerformedSteps) != 0 {
			t.Errorf("failed step should not be recorded: %v", run.PerformedSteps)
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set on failure")
		}
	})

	t.Run("checks cancellation between steps", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		first := &mockStep{name: "first", doFunc: func(context.Context, *model.Run) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)

		run := model.NewRun("https://example.com/", "out")
		err := p.Execute(ctx, run)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("second step should not run after cancellation")
		}
		if fmt.Sprint(run.PerformedSteps) != "[first]" {
			t.Errorf("unexpected performed steps %v", run.PerformedSteps)
		}
	})

	t.Run("calls the step hook", func(t *testing.T) {
		t.Parallel()

		var seen []string
		p := New(WithStepHook(func(name string) { seen = append(seen, name) }))
		p.AddSteps(&mockStep{name: "a"}, &mockStep{name: "b"})

		if err := p.Execute(t.Context(), model.NewRun("https://example.com/", "out")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fmt.Sprint(seen) != "[a b]" {
			t.Errorf("unexpected hook calls %v", seen)
		}
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want model.RunStatus
	}{
		{name: "nil", err: nil, want: model.RunStatusComplete},
		{name: "no pages", err: ErrNoPagesCaptured, want: model.RunStatusEmpty},
		{name: "cancelled", err: context.Canceled, want: model.RunStatusCancelled},
		{name: "wrapped cancel", err: fmt.Errorf("crawl: %w", context.Canceled), want: model.RunStatusCancelled},
		{name: "deadline", err: context.DeadlineExceeded, want: model.RunStatusCancelled},
		{name: "other", err: errors.New("disk full"), want: model.RunStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
