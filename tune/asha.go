package tune

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/real-lhj/DeepOD/errors"
	"github.com/real-lhj/DeepOD/workerpool"
)

// ASHA is an in-process asynchronous successive-halving executor. Trials
// run concurrently on a worker pool; whenever a trial reaches a rung
// milestone (GracePeriod * ReductionFactor^k epochs) it is compared with
// every value recorded at that rung so far and pruned unless it sits in
// the top 1/ReductionFactor. The production search engine is external;
// this executor makes the contract executable and testable.
type ASHA struct {
	Metric string
	Mode   Mode

	// MaxT caps the epochs any trial may run; trials finish there anyway,
	// so the last rung below MaxT is the final pruning point.
	MaxT int
	// GracePeriod is the minimum epochs before a trial can be killed.
	GracePeriod int
	// ReductionFactor controls how aggressively each rung prunes.
	ReductionFactor int

	// Parallelism bounds concurrently running trials.
	Parallelism int
	// TimeBudget, when set, cancels the whole search after the given
	// wall-clock duration.
	TimeBudget time.Duration
}

// NewASHA returns an executor with the historical defaults: grace period
// of one epoch and halving at every rung.
func NewASHA(metric string, mode Mode, maxT int) *ASHA {
	return &ASHA{
		Metric:          metric,
		Mode:            mode,
		MaxT:            maxT,
		GracePeriod:     1,
		ReductionFactor: 2,
		Parallelism:     runtime.NumCPU(),
	}
}

// rungState accumulates metric values reported at each rung across all
// concurrent trials. It is the only state trials share.
type rungState struct {
	mu     sync.Mutex
	values map[int][]float64
}

// record adds v at the given rung and reports whether the trial survives:
// it must sit among the best ceil(n/reduction) of the n values recorded at
// the rung so far. With fewer than ReductionFactor values the rung cannot
// prune yet.
func (r *rungState) record(rung int, v float64, mode Mode, reduction int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[rung] = append(r.values[rung], v)
	vals := r.values[rung]
	if len(vals) < reduction {
		return true
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	keep := (len(sorted) + reduction - 1) / reduction
	if mode == ModeMax {
		return v >= sorted[len(sorted)-keep]
	}
	return v <= sorted[keep-1]
}

// milestone reports whether epoch is a rung boundary.
func (a *ASHA) milestone(epoch int) bool {
	for rung := a.GracePeriod; rung < a.MaxT; rung *= a.ReductionFactor {
		if epoch == rung {
			return true
		}
		if rung*a.ReductionFactor <= rung {
			break
		}
	}
	return false
}

// Run implements Executor. A pruned or budget-cancelled trial is not a
// failure: its record keeps the last reported metrics and a nil Err, so
// it still participates in best-trial selection.
func (a *ASHA) Run(ctx context.Context, fn Trainable, configs []Config) ([]Trial, error) {
	if a.GracePeriod < 1 || a.ReductionFactor < 2 {
		return nil, errors.Errorf("asha: grace period must be >= 1 and reduction factor >= 2")
	}

	cancel := func() {}
	if a.TimeBudget > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.TimeBudget)
	}
	defer cancel()

	state := &rungState{values: make(map[int][]float64)}
	trials := make([]Trial, len(configs))

	var jobs []workerpool.Job
	for i, cfg := range configs {
		i, cfg := i, cfg
		trials[i].Config = cfg
		jobs = append(jobs, func() error {
			report := func(metrics map[string]float64, ckpt Checkpoint) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				last := make(map[string]float64, len(metrics))
				for k, v := range metrics {
					last[k] = v
				}
				trials[i].Last = last
				trials[i].Checkpoint = ckpt

				if !a.milestone(ckpt.Epoch) {
					return nil
				}
				if !state.record(ckpt.Epoch, metrics[a.Metric], a.Mode, a.ReductionFactor) {
					return ErrTrialPruned
				}
				return nil
			}

			err := fn(ctx, cfg, report)
			if stopped(err) {
				err = nil
			}
			trials[i].Err = err
			return nil
		})
	}

	pool := workerpool.New(a.Parallelism)
	defer pool.Stop()
	pool.Add(jobs)
	if err := pool.Wait(); err != nil {
		return trials, err
	}
	return trials, nil
}

// stopped reports whether a trial ended by scheduler decision rather than
// by failure.
func stopped(err error) bool {
	switch errors.Cause(err) {
	case nil, ErrTrialPruned, context.Canceled, context.DeadlineExceeded:
		return true
	}
	return false
}
