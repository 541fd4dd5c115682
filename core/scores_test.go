package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitThresholdContaminationFraction(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	scores := make([]float64, 200)
	for i := range scores {
		scores[i] = float64(i) + rng.Float64()*0.5
	}
	rng.Shuffle(len(scores), func(i, j int) {
		scores[i], scores[j] = scores[j], scores[i]
	})

	for _, contamination := range []float64{0.05, 0.1, 0.25, 0.4} {
		state, err := fitThreshold(scores, contamination)
		require.NoError(t, err)

		var anomalies int
		for _, l := range state.labels {
			anomalies += l
		}
		frac := float64(anomalies) / float64(len(scores))
		assert.InDelta(t, contamination, frac, 1.0/float64(len(scores))+1e-9,
			"contamination %v", contamination)
	}
}

func TestFitThresholdRecordsMoments(t *testing.T) {
	scores := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	state, err := fitThreshold(scores, 0.1)
	require.NoError(t, err)
	assert.True(t, state.fitted)
	assert.InDelta(t, 5.5, state.mean, 1e-12)
	assert.InDelta(t, 2.8722813232690143, state.std, 1e-12)
	// labels strictly above the threshold
	for i, s := range scores {
		if s > state.threshold {
			assert.Equal(t, 1, state.labels[i])
		} else {
			assert.Equal(t, 0, state.labels[i])
		}
	}
}

func TestFitThresholdEmptyScores(t *testing.T) {
	_, err := fitThreshold(nil, 0.1)
	assert.Error(t, err)
}

func TestConfidenceExtremes(t *testing.T) {
	scores := make([]float64, 100)
	for i := range scores {
		scores[i] = float64(i)
	}
	state, err := fitThreshold(scores, 0.1)
	require.NoError(t, err)

	conf := state.confidence([]float64{1000, -5}, 0.1)
	require.Len(t, conf, 2)
	// a huge score is confidently anomalous, a tiny one confidently not
	assert.Greater(t, conf[0], 0.9)
	assert.Greater(t, conf[1], 0.9)
}

func TestConfidenceInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	scores := make([]float64, 150)
	for i := range scores {
		scores[i] = rng.NormFloat64()
	}
	state, err := fitThreshold(scores, 0.2)
	require.NoError(t, err)

	test := make([]float64, 80)
	for i := range test {
		test[i] = rng.NormFloat64() * 2
	}
	for _, c := range state.confidence(test, 0.2) {
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}

func TestApplyThresholdStrict(t *testing.T) {
	labels := applyThreshold([]float64{1, 2, 2, 3}, 2)
	assert.Equal(t, []int{0, 0, 0, 1}, labels)
}
