package tune

import (
	"context"
	"math"

	"github.com/real-lhj/DeepOD/core"
	"github.com/real-lhj/DeepOD/errors"
)

// Metric names reported by the driver. Loss is minimized when no held-out
// data is given; Score (a custom evaluation metric) is maximized when it
// is.
const (
	MetricLoss  = "loss"
	MetricScore = "metric"
)

// Mode says whether a metric is minimized or maximized.
type Mode string

// Modes.
const (
	ModeMin Mode = "min"
	ModeMax Mode = "max"
)

// ErrTrialPruned is returned by Report when the scheduler terminates the
// trial at a rung; the trainable must stop and return promptly.
var ErrTrialPruned = errors.New("trial pruned by scheduler")

// Checkpoint is a serializable snapshot of model state at a reported
// epoch.
type Checkpoint struct {
	Params [][]float64 `json:"params"`
	Epoch  int         `json:"epoch"`
}

// Report delivers one rung's metrics and checkpoint to the executor. It
// returns ErrTrialPruned when the trial must stop, or a context error when
// the whole search was cancelled.
type Report func(metrics map[string]float64, ckpt Checkpoint) error

// Trainable is one full capped-epoch training cycle, callable many times
// with different configs. Each invocation must own isolated model and
// optimizer state; the training payload it closes over is read-only.
type Trainable func(ctx context.Context, cfg Config, report Report) error

// Trial is the record of one executed configuration. A trial that failed
// carries Err and is excluded from best-trial selection; there is no
// retry.
type Trial struct {
	Config     Config
	Checkpoint Checkpoint
	Last       map[string]float64
	Err        error
}

// Executor schedules trial runs of a Trainable. Implementations may run
// trials in parallel and may stop a trial early through its Report or its
// context.
type Executor interface {
	Run(ctx context.Context, fn Trainable, configs []Config) ([]Trial, error)
}

// Tunable is implemented by models that support hyperparameter search.
type Tunable interface {
	// TunedParams declares the searchable config space.
	TunedParams() Space

	// TrialOps returns a model contract configured with cfg for one
	// isolated trial, so concurrent trials never share mutable state.
	TrialOps(cfg Config) (core.ModelOps, error)
}

// CheckpointLoader is an optional model hook invoked when the winning
// trial's checkpoint is restored, for model-internal state beyond the
// network parameters. The default is a no-op.
type CheckpointLoader interface {
	LoadCheckpoint(cfg Config, ckpt Checkpoint) error
}

// Best selects the trial with the best final value of the active metric.
// Failed trials and trials that never reported the metric, or reported it
// as NaN (e.g. AUC over single-class labels), are skipped.
func Best(trials []Trial, metric string, mode Mode) (Trial, error) {
	bestIdx := -1
	var bestVal float64
	for i, t := range trials {
		if t.Err != nil {
			continue
		}
		v, ok := t.Last[metric]
		if !ok || math.IsNaN(v) {
			continue
		}
		better := bestIdx == -1 ||
			(mode == ModeMin && v < bestVal) ||
			(mode == ModeMax && v > bestVal)
		if better {
			bestIdx, bestVal = i, v
		}
	}
	if bestIdx == -1 {
		return Trial{}, errors.Errorf("no successful trial reported metric %q", metric)
	}
	return trials[bestIdx], nil
}
