package grading

import (
	"context"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// Host is the coordinator's view of one execution realm. The coordinator
// never reaches into a host; everything comes back through the outbox.
type Host interface {
	Load(spec sandbox.Spec, outbox chan<- sandbox.Event) error
	Trigger(runID int64) error
	Discard()
}

// HostFactory hands out fresh, never-used hosts
type HostFactory interface {
	Acquire(ctx context.Context) (Host, error)
}

// Exercises resolves immutable exercise content
type Exercises interface {
	Get(framework types.FrameworkID, pattern string) (*types.Exercise, error)
}

// History persists finished runs
type History interface {
	RecordRun(ctx context.Context, run *types.GradingRun) error
}

type poolFactory struct {
	pool *sandbox.Pool
}

// PoolFactory adapts a sandbox pool to HostFactory
func PoolFactory(pool *sandbox.Pool) HostFactory {
	return poolFactory{pool: pool}
}

func (f poolFactory) Acquire(ctx context.Context) (Host, error) {
	h, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return h, nil
}
