package tune

import (
	"math/rand"
	"sync"

	"github.com/real-lhj/DeepOD/core"
	"github.com/real-lhj/DeepOD/dataset"
)

type tuneNet struct {
	params [][]float64
}

func (n *tuneNet) Parameters() [][]float64 { return n.params }

// recorder collects hook invocations across the per-trial model instances
// spawned by TrialOps.
type recorder struct {
	mu       sync.Mutex
	trialOps []Config
	loaded   []Checkpoint
}

// tunedModel is a minimal tunable ModelOps whose training loss is the
// constant "scale" hyperparameter, so trial quality is fully determined by
// the sampled config. Scores are scale * sum(features).
type tunedModel struct {
	scale float64
	rec   *recorder
}

func (m *tunedModel) TrainingPrepare(train *dataset.Dataset, rng *rand.Rand) (core.Loader, core.Network, core.Criterion, error) {
	net := &tuneNet{params: [][]float64{{m.scale}}}
	return dataset.NewLoader(train, 16, rng), net, nil, nil
}

func (m *tunedModel) InferencePrepare(test *dataset.Dataset) (core.Loader, error) {
	return dataset.NewLoader(test, 16, nil), nil
}

func (m *tunedModel) TrainingForward(batch dataset.Batch, net core.Network, criterion core.Criterion) (float64, core.Gradients, error) {
	return m.scale, nil, nil
}

func (m *tunedModel) InferenceForward(batch dataset.Batch, net core.Network, criterion core.Criterion) ([][]float64, []float64, error) {
	scores := make([]float64, batch.Size())
	reps := make([][]float64, batch.Size())
	for i := range scores {
		var sum float64
		for _, v := range batch.Rows[i] {
			sum += v
		}
		scores[i] = m.scale * sum
		reps[i] = []float64{sum}
	}
	return reps, scores, nil
}

func (m *tunedModel) TunedParams() Space {
	return Space{"scale": Choice{2.0, 5.0}}
}

func (m *tunedModel) TrialOps(cfg Config) (core.ModelOps, error) {
	m.rec.mu.Lock()
	m.rec.trialOps = append(m.rec.trialOps, cfg)
	m.rec.mu.Unlock()
	return &tunedModel{scale: cfg.Float("scale", 1), rec: m.rec}, nil
}

func (m *tunedModel) LoadCheckpoint(cfg Config, ckpt Checkpoint) error {
	m.rec.mu.Lock()
	m.rec.loaded = append(m.rec.loaded, ckpt)
	m.rec.mu.Unlock()
	return nil
}

// plainModel implements ModelOps but not Tunable.
type plainModel struct{}

func (plainModel) TrainingPrepare(train *dataset.Dataset, rng *rand.Rand) (core.Loader, core.Network, core.Criterion, error) {
	return dataset.NewLoader(train, 16, rng), &tuneNet{params: [][]float64{{0}}}, nil, nil
}

func (plainModel) InferencePrepare(test *dataset.Dataset) (core.Loader, error) {
	return dataset.NewLoader(test, 16, nil), nil
}

func (plainModel) TrainingForward(batch dataset.Batch, net core.Network, criterion core.Criterion) (float64, core.Gradients, error) {
	return 0, nil, nil
}

func (plainModel) InferenceForward(batch dataset.Batch, net core.Network, criterion core.Criterion) ([][]float64, []float64, error) {
	return make([][]float64, batch.Size()), make([]float64, batch.Size()), nil
}
