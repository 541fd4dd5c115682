package core

import (
	"math/rand"

	"github.com/real-lhj/DeepOD/dataset"
)

type fakeNet struct {
	params [][]float64
}

func (n *fakeNet) Parameters() [][]float64 { return n.params }

// fakeModel is a minimal ModelOps: it scores every sample by
// scale * (1 + w) * sum(features), where w is its single trainable
// parameter. Training pulls w toward the mean feature sum of each batch,
// so the fitted parameter depends deterministically on data order.
type fakeModel struct {
	scale     float64
	batchSize int

	trainingPrepares  int
	inferencePrepares int
	forwardCalls      int
	epochUpdates      int
}

func newFakeModel(scale float64) *fakeModel {
	return &fakeModel{scale: scale, batchSize: 4}
}

func (m *fakeModel) TrainingPrepare(train *dataset.Dataset, rng *rand.Rand) (Loader, Network, Criterion, error) {
	m.trainingPrepares++
	net := &fakeNet{params: [][]float64{{0}}}
	return dataset.NewLoader(train, m.batchSize, rng), net, "fake-criterion", nil
}

func (m *fakeModel) InferencePrepare(test *dataset.Dataset) (Loader, error) {
	m.inferencePrepares++
	return dataset.NewLoader(test, m.batchSize, nil), nil
}

func (m *fakeModel) TrainingForward(batch dataset.Batch, net Network, criterion Criterion) (float64, Gradients, error) {
	m.forwardCalls++
	w := net.Parameters()[0][0]
	var mean float64
	for i := 0; i < batch.Size(); i++ {
		mean += featureSum(batch, i)
	}
	mean /= float64(batch.Size())
	diff := w - mean/100
	return diff * diff, Gradients{{2 * diff}}, nil
}

func (m *fakeModel) InferenceForward(batch dataset.Batch, net Network, criterion Criterion) ([][]float64, []float64, error) {
	w := net.Parameters()[0][0]
	reps := make([][]float64, batch.Size())
	scores := make([]float64, batch.Size())
	for i := range scores {
		s := featureSum(batch, i)
		reps[i] = []float64{s}
		scores[i] = m.scale * (1 + w) * s
	}
	return reps, scores, nil
}

func (m *fakeModel) EpochUpdate() { m.epochUpdates++ }

func featureSum(batch dataset.Batch, i int) float64 {
	var s float64
	if batch.Windows != nil {
		for _, row := range batch.Windows[i] {
			for _, v := range row {
				s += v
			}
		}
		return s
	}
	for _, v := range batch.Rows[i] {
		s += v
	}
	return s
}

// constModel scores every sample with a fixed value regardless of data or
// training, for aggregation-semantics tests.
type constModel struct {
	score float64
}

func (m constModel) TrainingPrepare(train *dataset.Dataset, rng *rand.Rand) (Loader, Network, Criterion, error) {
	return dataset.NewLoader(train, 8, rng), &fakeNet{params: [][]float64{{0}}}, nil, nil
}

func (m constModel) InferencePrepare(test *dataset.Dataset) (Loader, error) {
	return dataset.NewLoader(test, 8, nil), nil
}

func (m constModel) TrainingForward(batch dataset.Batch, net Network, criterion Criterion) (float64, Gradients, error) {
	return 0, nil, nil
}

func (m constModel) InferenceForward(batch dataset.Batch, net Network, criterion Criterion) ([][]float64, []float64, error) {
	scores := make([]float64, batch.Size())
	for i := range scores {
		scores[i] = m.score
	}
	return make([][]float64, batch.Size()), scores, nil
}
