package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Acquire fetches the raw inputs for one location.
type Acquire func(ctx context.Context, loc Location) (Inputs, error)

// Handle consumes one completed analysis (persist, render, print).
type Handle func(ctx context.Context, a *Analysis) error

// RunBatch processes locations with bounded parallelism. A failing location
// is logged and skipped; the remaining locations still run. The returned
// error reports how many locations failed, nil when all succeeded.
func (p *Pipeline) RunBatch(ctx context.Context, locs []Location, concurrency int, acquire Acquire, handle Handle) error {
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var failed atomic.Int64
	for _, loc := range locs {
		loc := loc
		g.Go(func() error {
			if err := p.runOne(ctx, loc, acquire, handle); err != nil {
				failed.Add(1)
				zap.L().Error("batch: location failed",
					zap.String("location", loc.Slug()),
					zap.Error(err))
			}
			// Isolation: never propagate so the group keeps running.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "pipeline: batch wait")
	}
	if n := failed.Load(); n > 0 {
		return eris.Errorf("pipeline: %d of %d locations failed", n, len(locs))
	}
	return nil
}

func (p *Pipeline) runOne(ctx context.Context, loc Location, acquire Acquire, handle Handle) error {
	in, err := acquire(ctx, loc)
	if err != nil {
		return eris.Wrapf(err, "acquire %s", loc.Slug())
	}
	a, err := p.Run(ctx, loc, in)
	if err != nil {
		return err
	}
	if handle == nil {
		return nil
	}
	return handle(ctx, a)
}
