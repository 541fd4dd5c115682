// Package core orchestrates unsupervised and semi-supervised anomaly
// detection with gradient-trained models: ensemble training, inference
// aggregation, thresholding and prediction confidence. Concrete networks
// and losses plug in through the ModelOps contract.
package core

import (
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/real-lhj/DeepOD/dataset"
	"github.com/real-lhj/DeepOD/errors"
)

// Recognized data types.
const (
	DataTypeTabular = "tabular"
	DataTypeTS      = "ts"
)

// Options is the full configuration surface of a Detector.
type Options struct {
	// DataType selects windowing: "tabular" or "ts".
	DataType string
	// Network names the architecture family; it is opaque to the
	// orchestrator and passed through for the model's own use.
	Network string

	Epochs    int
	BatchSize int
	LR        float64

	// NEnsemble is the ensemble size; 0 requests the automatic size
	// floor(100/(ln(n_samples)+n_features))+1.
	NEnsemble int

	// SeqLen and Stride control windowing in ts mode. At inference time
	// the stride is always forced to 1 so every position is scored.
	SeqLen int
	Stride int

	// EpochSteps caps the batches per epoch; -1 means unbounded.
	EpochSteps int
	// PrtSteps is the epoch-log cadence.
	PrtSteps int

	// Device is opaque to the orchestrator and passed through.
	Device string

	// Contamination is the assumed anomaly fraction in (0, 0.5), used to
	// derive the decision threshold.
	Contamination float64

	// Verbose: 0 silent, 1 training/ensemble progress, 2 adds per-batch
	// inference progress.
	Verbose int

	RandomState int64
}

// DefaultOptions mirrors the historical defaults of the system.
func DefaultOptions() Options {
	return Options{
		DataType:      DataTypeTabular,
		Network:       "MLP",
		Epochs:        100,
		BatchSize:     64,
		LR:            1e-3,
		NEnsemble:     1,
		SeqLen:        100,
		Stride:        1,
		EpochSteps:    -1,
		PrtSteps:      10,
		Device:        "cpu",
		Contamination: 0.1,
		Verbose:       1,
		RandomState:   42,
	}
}

func (o Options) validate() error {
	switch o.DataType {
	case DataTypeTabular, DataTypeTS:
	default:
		return InvalidConfigError{Field: "DataType", Reason: "must be tabular or ts"}
	}
	if o.Epochs < 1 {
		return InvalidConfigError{Field: "Epochs", Reason: "must be at least 1"}
	}
	if o.BatchSize < 1 {
		return InvalidConfigError{Field: "BatchSize", Reason: "must be at least 1"}
	}
	if o.LR <= 0 {
		return InvalidConfigError{Field: "LR", Reason: "must be positive"}
	}
	if o.NEnsemble < 0 {
		return InvalidConfigError{Field: "NEnsemble", Reason: "must be 0 (auto) or positive"}
	}
	if o.DataType == DataTypeTS && (o.SeqLen < 1 || o.Stride < 1) {
		return InvalidConfigError{Field: "SeqLen", Reason: "seq_len and stride must be at least 1"}
	}
	if o.EpochSteps != -1 && o.EpochSteps < 1 {
		return InvalidConfigError{Field: "EpochSteps", Reason: "must be -1 (unbounded) or positive"}
	}
	if o.PrtSteps < 1 {
		return InvalidConfigError{Field: "PrtSteps", Reason: "must be at least 1"}
	}
	if o.Contamination <= 0 || o.Contamination >= 0.5 {
		return InvalidConfigError{Field: "Contamination", Reason: "must be in (0, 0.5)"}
	}
	if o.Verbose < 0 || o.Verbose > 2 {
		return InvalidConfigError{Field: "Verbose", Reason: "must be 0, 1 or 2"}
	}
	return nil
}

// Detector runs the full detection lifecycle over a concrete model. Only
// the most recently trained ensemble member is retained as live state.
type Detector struct {
	opts Options
	ops  ModelOps
	rng  *rand.Rand

	nSamples  int
	nFeatures int
	nEnsemble int

	net       Network
	criterion Criterion
	epochTime time.Duration

	state decisionState
}

// New validates the configuration eagerly and builds a detector around the
// given model contract.
func New(ops ModelOps, opts Options) (*Detector, error) {
	if ops == nil {
		return nil, errors.Errorf("a ModelOps implementation is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Detector{
		opts: opts,
		ops:  ops,
		rng:  rand.New(rand.NewSource(opts.RandomState)),
	}, nil
}

// Options returns a copy of the detector configuration.
func (d *Detector) Options() Options {
	return d.opts
}

// Reconfigure applies a mutation to the detector options and re-validates
// them. The search driver uses it to adopt a winning trial's config.
func (d *Detector) Reconfigure(mutate func(*Options)) error {
	opts := d.opts
	mutate(&opts)
	if err := opts.validate(); err != nil {
		return err
	}
	d.opts = opts
	return nil
}

// Ops returns the model contract the detector was built around.
func (d *Detector) Ops() ModelOps {
	return d.ops
}

// AdoptOps swaps in a different model contract, e.g. one rebuilt for a
// tuned architecture.
func (d *Detector) AdoptOps(ops ModelOps) error {
	if ops == nil {
		return errors.Errorf("a ModelOps implementation is required")
	}
	d.ops = ops
	return nil
}

// Network returns the live ensemble member's network, or nil before
// training.
func (d *Detector) Network() Network {
	return d.net
}

// RNG returns the detector's random source. All stochastic calls made on
// behalf of this detector must draw from it.
func (d *Detector) RNG() *rand.Rand {
	return d.rng
}

// EpochTime returns the wall-clock duration of the first training epoch,
// retained for reporting and runtime estimation.
func (d *Detector) EpochTime() time.Duration {
	return d.epochTime
}

// frame converts raw input into the dataset form the configured data type
// requires. stride is forced to 1 by callers scoring densely.
func (d *Detector) frame(x [][]float64, y []float64, stride int) (*dataset.Dataset, error) {
	if d.opts.DataType == DataTypeTS {
		return dataset.FromSeries(x, y, d.opts.SeqLen, stride)
	}
	return dataset.FromTabular(x, y), nil
}

func autoEnsembleSize(nSamples, nFeatures int) int {
	return int(math.Floor(100/(math.Log(float64(nSamples))+float64(nFeatures)))) + 1
}

// Fit trains the ensemble on X and derives the decision state from the
// resulting raw scores. y is optional and unused in pure unsupervised
// mode; semi-supervised models read it from the prepared dataset.
func (d *Detector) Fit(x [][]float64, y []float64) error {
	train, err := d.frame(x, y, d.opts.Stride)
	if err != nil {
		return err
	}
	d.nSamples = train.Len()
	d.nFeatures = train.Features()

	d.nEnsemble = d.opts.NEnsemble
	if d.nEnsemble == 0 {
		d.nEnsemble = autoEnsembleSize(d.nSamples, d.nFeatures)
	}
	if d.opts.Verbose >= 1 {
		log.Printf("start training, ensemble size: %d", d.nEnsemble)
	}

	// members are trained strictly sequentially; each discards its
	// predecessor, only the last one stays live
	for i := 0; i < d.nEnsemble; i++ {
		loader, net, criterion, err := d.ops.TrainingPrepare(train, d.rng)
		if err != nil {
			return errors.Wrapf(err, "preparing ensemble member %d", i+1)
		}
		d.net, d.criterion = net, criterion
		if err := d.trainModel(loader, net, criterion, nil); err != nil {
			return errors.Wrapf(err, "training ensemble member %d", i+1)
		}
	}

	if d.opts.Verbose >= 1 {
		log.Printf("start inference on the training data")
	}
	return d.RefitThreshold(x)
}

// RefitThreshold scores x with the live model and replaces the decision
// state (threshold, labels, mean, std) in one step.
func (d *Detector) RefitThreshold(x [][]float64) error {
	scores, _, err := d.score(x)
	if err != nil {
		return err
	}
	state, err := fitThreshold(scores, d.opts.Contamination)
	if err != nil {
		return err
	}
	d.state = state
	return nil
}

// DecisionFunction computes raw anomaly scores for x with the fitted
// model. Windowing and score re-expansion match fit-time exactly.
func (d *Detector) DecisionFunction(x [][]float64) ([]float64, error) {
	scores, _, err := d.score(x)
	return scores, err
}

// DecisionFunctionRep additionally returns the pooled representations of
// all ensemble passes.
func (d *Detector) DecisionFunctionRep(x [][]float64) ([]float64, [][]float64, error) {
	return d.score(x)
}

// score runs the ensemble inference aggregation: per member, rebuild an
// inference loader and sum (never average) the member's raw scores. The
// total score magnitude therefore scales with ensemble size; that is a
// compatibility invariant of the historical threshold semantics.
func (d *Detector) score(x [][]float64) ([]float64, [][]float64, error) {
	if d.net == nil {
		return nil, nil, NotFittedError{Op: "DecisionFunction"}
	}

	// dense scoring: stride forced to 1 regardless of the training stride
	test, err := d.frame(x, nil, 1)
	if err != nil {
		return nil, nil, err
	}

	final := make([]float64, len(x))
	var pooled [][]float64
	for i := 0; i < d.nEnsemble; i++ {
		loader, err := d.ops.InferencePrepare(test)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "preparing inference pass %d", i+1)
		}
		reps, scores, err := d.runInference(loader)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "inference pass %d", i+1)
		}
		if d.opts.DataType == DataTypeTS {
			// the first seq_len-1 timestamps have no window ending on
			// them; left-pad zeros to restore per-timestamp granularity
			scores = append(make([]float64, d.opts.SeqLen-1), scores...)
		}
		if len(scores) != len(final) {
			return nil, nil, errors.Errorf("model scored %d samples, expected %d", len(scores), len(final))
		}
		for j, s := range scores {
			final[j] += s
		}
		pooled = append(pooled, reps...)
	}
	return final, pooled, nil
}

// Predict labels x as anomalous (1) or not (0) against the fitted
// threshold.
func (d *Detector) Predict(x [][]float64) ([]int, error) {
	if !d.state.fitted {
		return nil, NotFittedError{Op: "Predict"}
	}
	scores, _, err := d.score(x)
	if err != nil {
		return nil, err
	}
	return applyThreshold(scores, d.state.threshold), nil
}

// PredictConfidence labels x and, per sample, estimates how stable the
// assigned label would be under resampling of the training scores.
func (d *Detector) PredictConfidence(x [][]float64) ([]int, []float64, error) {
	if !d.state.fitted {
		return nil, nil, NotFittedError{Op: "PredictConfidence"}
	}
	scores, _, err := d.score(x)
	if err != nil {
		return nil, nil, err
	}
	labels := applyThreshold(scores, d.state.threshold)
	conf := d.state.confidence(scores, d.opts.Contamination)
	return labels, conf, nil
}

// Fitted reports whether a decision state has been derived.
func (d *Detector) Fitted() bool {
	return d.state.fitted
}

// Scores returns the raw anomaly scores of the fitted data.
func (d *Detector) Scores() []float64 {
	return d.state.scores
}

// Labels returns the binary labels of the fitted data.
func (d *Detector) Labels() []int {
	return d.state.labels
}

// Threshold returns the fitted decision threshold.
func (d *Detector) Threshold() float64 {
	return d.state.threshold
}

// EnsembleSize returns the resolved ensemble size after Fit.
func (d *Detector) EnsembleSize() int {
	return d.nEnsemble
}
