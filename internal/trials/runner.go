// Package trials runs many independent ABCD trials and gathers their results.
//
// Each trial owns its point source and accumulator; nothing mutable is shared
// between trials, so the fan-out needs no locking. Results are written into a
// slice indexed by trial number, which keeps the output order independent of
// scheduling.
package trials

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/monitoring"
	"github.com/banshee-data/abcd.report/internal/source"
	"github.com/banshee-data/abcd.report/internal/timeutil"
)

// interruptMask sets how often a running trial polls its context: every
// interruptMask+1 accumulated points.
const interruptMask = 1<<16 - 1

// Plan describes a batch of trials.
type Plan struct {
	Trials int
	Cuts   abcd.Cuts
	Policy abcd.StopPolicy

	// BaseSeed seeds the whole batch; trial i uses source.SeedFor(BaseSeed, i).
	BaseSeed uint64

	// NewSource builds the point source of one trial.
	NewSource func(seed uint64) (abcd.PointSource, error)
}

// Validate checks that the plan can be run.
func (p Plan) Validate() error {
	if p.Trials <= 0 {
		return fmt.Errorf("trial count must be positive, got %d", p.Trials)
	}
	if p.Policy == nil {
		return errors.New("stop policy is required")
	}
	if p.NewSource == nil {
		return errors.New("source factory is required")
	}
	return nil
}

// Runner executes plans.
type Runner struct {
	// Workers bounds the number of trials running at once. Values below 1
	// run trials one at a time.
	Workers int

	// ProgressEvery logs progress after this many completed trials (0 disables).
	ProgressEvery int

	Clock timeutil.Clock
}

// NewRunner returns a Runner with the given concurrency and a real clock.
func NewRunner(workers int) *Runner {
	return &Runner{Workers: workers, Clock: timeutil.RealClock{}}
}

// Run executes every trial of plan and returns the results in trial order.
// A degenerate trial (non-finite estimate) is a normal result. Run only
// fails when the plan is invalid, a source cannot be built, or ctx is
// cancelled; in those cases no partial results are returned.
func (r *Runner) Run(ctx context.Context, plan Plan) ([]abcd.Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	start := clock.Now()
	results := make([]abcd.Result, plan.Trials)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < plan.Trials; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := runOne(gctx, plan, i)
			if err != nil {
				return err
			}
			results[i] = res

			n := done.Add(1)
			if r.ProgressEvery > 0 && n%int64(r.ProgressEvery) == 0 {
				monitoring.Logf("trials: %d/%d complete (%v elapsed)", n, plan.Trials, clock.Since(start).Round(time.Millisecond))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func runOne(ctx context.Context, plan Plan, trial int) (abcd.Result, error) {
	seed := source.SeedFor(plan.BaseSeed, trial)
	src, err := plan.NewSource(seed)
	if err != nil {
		return abcd.Result{}, fmt.Errorf("trial %d: build source: %w", trial, err)
	}

	interrupted := false
	res := abcd.RunTrial(plan.Cuts, src, plan.Policy, func(a *abcd.Accumulator) bool {
		if a.Total()&interruptMask != 0 {
			return false
		}
		interrupted = ctx.Err() != nil
		return interrupted
	})
	if interrupted {
		return abcd.Result{}, ctx.Err()
	}

	res.Trial = trial
	res.Seed = seed
	return res, nil
}
