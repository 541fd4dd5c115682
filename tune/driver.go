package tune

import (
	"context"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/real-lhj/DeepOD/core"
	"github.com/real-lhj/DeepOD/dataset"
	"github.com/real-lhj/DeepOD/errors"
)

// payloadBudgetBytes is the transport limit of the external scheduler: a
// training payload above it is truncated by row-subsampling before
// dispatch.
const payloadBudgetBytes = 30 << 20

// Resources is the fixed per-trial resource request. It is a static
// property of the driver, not tunable per trial.
type Resources struct {
	CPU int
	GPU int
}

// Options configures one search run.
type Options struct {
	// NumSamples is how many configs to draw from the space (default 5).
	NumSamples int
	// TimeBudget, when set, bounds the whole search.
	TimeBudget time.Duration
}

// Driver wraps a detector's fit pipeline as the trainable unit of a trial
// executor, enforces the payload budget, selects the best trial and
// restores its checkpoint into the live model.
type Driver struct {
	Detector *core.Detector
	// Executor may be nil, in which case a local ASHA executor with the
	// historical defaults (grace period 1, reduction factor 2) is used.
	Executor Executor

	truncated bool
}

// Resources returns the fixed per-trial request: four CPUs plus one
// accelerator when the detector is not pinned to the CPU.
func (dr *Driver) Resources() Resources {
	r := Resources{CPU: 4}
	if dr.Detector.Options().Device != "cpu" {
		r.GPU = 1
	}
	return r
}

// Truncated reports whether the last search subsampled the training
// payload to fit the transport budget. Tuning results are not exactly
// reproducible once truncation occurs.
func (dr *Driver) Truncated() bool {
	return dr.truncated
}

// Search runs the hyperparameter search over x (and optional labels y),
// optionally evaluating trials on held-out data. Without held-out data
// trials report per-epoch training loss and the scheduler minimizes; with
// it they report AUC and the scheduler maximizes. The winning config is
// returned with its "epochs" set to the checkpoint's early-stopped depth,
// and the live detector is left fitted on x with the winning
// hyperparameters and parameters.
func (dr *Driver) Search(ctx context.Context, x [][]float64, y []float64, xTest [][]float64, yTest []float64, opts Options) (Config, error) {
	d := dr.Detector
	o := d.Options()
	dr.truncated = false

	tunable, ok := d.Ops().(Tunable)
	if !ok {
		return nil, errors.Errorf("model %T does not implement tune.Tunable", d.Ops())
	}
	space := tunable.TunedParams()
	if len(space) == 0 {
		return nil, errors.Errorf("model declares an empty config space")
	}

	// frame exactly as Fit does
	var train *dataset.Dataset
	var err error
	if o.DataType == core.DataTypeTS {
		train, err = dataset.FromSeries(x, y, o.SeqLen, o.Stride)
		if err != nil {
			return nil, err
		}
	} else {
		train = dataset.FromTabular(x, y)
	}

	// the scheduler transport cannot carry arbitrarily large payloads;
	// recover by subsampling rather than failing
	if size := train.SizeBytes(); size > payloadBudgetBytes {
		rows := int(int64(train.Len()) * payloadBudgetBytes / size)
		train = train.Truncate(rows)
		dr.truncated = true
		log.Printf("warning: training payload %s exceeds the %s trial transport budget, subsampled to %d rows; tuning results may not be exactly reproducible",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(payloadBudgetBytes)), rows)
	}

	numSamples := opts.NumSamples
	if numSamples <= 0 {
		numSamples = 5
	}
	rng := rand.New(rand.NewSource(o.RandomState))
	configs := make([]Config, numSamples)
	for i := range configs {
		configs[i] = space.Sample(rng)
	}

	metric, mode := MetricLoss, ModeMin
	if xTest != nil {
		metric, mode = MetricScore, ModeMax
	}

	executor := dr.Executor
	if executor == nil {
		asha := NewASHA(metric, mode, o.Epochs)
		asha.TimeBudget = opts.TimeBudget
		executor = asha
	}

	var seq int64
	fn := func(ctx context.Context, cfg Config, report Report) error {
		// each trial owns an isolated model, rng and optimizer; only the
		// framed training payload is shared, read-only
		topts := o
		topts.Verbose = 0
		topts.RandomState = o.RandomState + atomic.AddInt64(&seq, 1)
		topts.LR = cfg.Float("lr", topts.LR)
		topts.Epochs = cfg.Int("epochs", topts.Epochs)
		topts.BatchSize = cfg.Int("batch_size", topts.BatchSize)

		ops, err := tunable.TrialOps(cfg)
		if err != nil {
			return errors.Wrapf(err, "building trial model")
		}
		trial, err := core.New(ops, topts)
		if err != nil {
			return err
		}
		return trial.FitTrial(train, func(epoch int, meanLoss float64) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			metrics := map[string]float64{MetricLoss: meanLoss}
			if xTest != nil {
				scores, err := trial.DecisionFunction(xTest)
				if err != nil {
					return errors.Wrapf(err, "scoring held-out data")
				}
				metrics[MetricScore] = AUC(yTest, scores)
			}
			ckpt := Checkpoint{Params: cloneParams(trial.Network().Parameters()), Epoch: epoch}
			return report(metrics, ckpt)
		})
	}

	trials, err := executor.Run(ctx, fn, configs)
	if err != nil {
		return nil, errors.Wrapf(err, "running trials")
	}

	best, err := Best(trials, metric, mode)
	if err != nil {
		var trialErrs errors.Errors
		for _, t := range trials {
			trialErrs = errors.Append(trialErrs, t.Err)
		}
		if trialErrs != nil {
			return nil, errors.Wrapf(trialErrs, "no usable trial")
		}
		return nil, err
	}
	if o.Verbose >= 1 {
		log.Printf("best trial config: %v", best.Config)
		log.Printf("best trial final %s: %f at epoch %d", metric, best.Last[metric], best.Checkpoint.Epoch)
	}

	// restore the winner into the live detector: its architecture, its
	// hyperparameters, its parameters, and its early-stopped depth
	bestOps, err := tunable.TrialOps(best.Config)
	if err != nil {
		return nil, errors.Wrapf(err, "rebuilding best model")
	}
	if err := d.AdoptOps(bestOps); err != nil {
		return nil, err
	}
	if loader, ok := bestOps.(CheckpointLoader); ok {
		if err := loader.LoadCheckpoint(best.Config, best.Checkpoint); err != nil {
			return nil, errors.Wrapf(err, "loading best checkpoint")
		}
	}
	err = d.Reconfigure(func(opt *core.Options) {
		opt.LR = best.Config.Float("lr", opt.LR)
		opt.BatchSize = best.Config.Int("batch_size", opt.BatchSize)
		opt.Epochs = best.Checkpoint.Epoch
	})
	if err != nil {
		return nil, err
	}
	if err := d.RestoreMember(train, best.Checkpoint.Params); err != nil {
		return nil, err
	}
	if err := d.RefitThreshold(x); err != nil {
		return nil, err
	}

	out := best.Config.Clone()
	out["epochs"] = best.Checkpoint.Epoch
	return out, nil
}

func cloneParams(params [][]float64) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = append([]float64(nil), p...)
	}
	return out
}
