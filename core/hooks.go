package core

import (
	"math/rand"

	"github.com/real-lhj/DeepOD/dataset"
)

// Loader iterates mini-batches in a fixed order. dataset.Loader satisfies
// it; models may supply their own.
type Loader interface {
	Reset()
	Next() (dataset.Batch, bool)
	Batches() int
}

// Network exposes the trainable parameters of a concrete model as groups
// of float64 slices. The optimizer updates the slices in place, so they
// must alias the model's live parameters.
type Network interface {
	Parameters() [][]float64
}

// Criterion is the loss owned by a concrete model. The orchestrator never
// inspects it; it only hands it back to the forward hooks.
type Criterion interface{}

// Gradients mirrors Network.Parameters group for group.
type Gradients [][]float64

// ModelOps is the contract a concrete detection model must satisfy. The
// detector owns the training/inference lifecycle; the model owns the
// network architecture and the loss.
type ModelOps interface {
	// TrainingPrepare builds a fresh loader, network and criterion for one
	// ensemble member. Any stochastic choice (shuffling, parameter init)
	// must draw from rng.
	TrainingPrepare(train *dataset.Dataset, rng *rand.Rand) (Loader, Network, Criterion, error)

	// InferencePrepare builds a loader over evaluation data. The loader
	// must preserve sample order.
	InferencePrepare(test *dataset.Dataset) (Loader, error)

	// TrainingForward computes the loss for one batch and its gradients
	// with respect to net.Parameters().
	TrainingForward(batch dataset.Batch, net Network, criterion Criterion) (float64, Gradients, error)

	// InferenceForward computes a representation vector and a raw anomaly
	// score per sample in the batch.
	InferenceForward(batch dataset.Batch, net Network, criterion Criterion) ([][]float64, []float64, error)
}

// EpochUpdater is an optional hook invoked after every training epoch, for
// learning-rate schedules, early stopping counters and similar per-epoch
// bookkeeping.
type EpochUpdater interface {
	EpochUpdate()
}

// ScoreUpdater is an optional hook that transforms the pooled
// representations and raw scores of one inference pass before they are
// returned, e.g. for score normalization.
type ScoreUpdater interface {
	DecisionFunctionUpdate(reps [][]float64, scores []float64) ([][]float64, []float64)
}
