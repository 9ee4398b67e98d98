package common

import (
	"context"
	"log"
)

// SagaStep pairs a forward action with its compensation. Compensate may be
// nil for steps that commit nothing (pure reads, derivations).
type SagaStep struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context)
}

// RunSaga executes the steps in order. When step N fails, the compensations
// of steps N-1..0 run in reverse order and the step error is returned with
// the failing step's name. Compensations are best-effort: they cannot fail
// the saga, they only log.
//
// This is how the reconciliation engine keeps the local store and the IdP
// consistent across partial failure: every committed side effect has a
// registered compensation, so an aborted run leaves either nothing or a
// fully linked record, never a half-linked one.
func RunSaga(ctx context.Context, steps []SagaStep) (failedStep string, err error) {
	completed := make([]SagaStep, 0, len(steps))

	for _, step := range steps {
		if err := step.Action(ctx); err != nil {
			for i := len(completed) - 1; i >= 0; i-- {
				comp := completed[i]
				if comp.Compensate == nil {
					continue
				}
				log.Printf("[Saga] step %q failed, compensating %q", step.Name, comp.Name)
				comp.Compensate(ctx)
			}
			return step.Name, err
		}
		completed = append(completed, step)
	}

	return "", nil
}
