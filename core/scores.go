package core

import (
	"github.com/montanaflynn/stats"
	"github.com/real-lhj/DeepOD/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// decisionState is derived once from the finalized raw scores of a fit
// cycle and replaced wholesale on re-fit, never partially updated.
type decisionState struct {
	scores    []float64
	threshold float64
	labels    []int
	mean      float64
	std       float64
	fitted    bool
}

// fitThreshold converts finalized raw scores into a threshold and binary
// labels: threshold = percentile(scores, 100*(1-contamination)), a sample
// is anomalous iff its score exceeds the threshold. Degenerate score
// arrays (empty, single-class) propagate as errors from the statistics
// step; no recovery is defined for them.
func fitThreshold(scores []float64, contamination float64) (decisionState, error) {
	data := stats.Float64Data(scores)

	threshold, err := stats.Percentile(data, 100*(1-contamination))
	if err != nil {
		return decisionState{}, errors.Wrapf(err, "deriving threshold")
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return decisionState{}, errors.Wrapf(err, "score mean")
	}
	std, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return decisionState{}, errors.Wrapf(err, "score std")
	}

	return decisionState{
		scores:    scores,
		threshold: threshold,
		labels:    applyThreshold(scores, threshold),
		mean:      mean,
		std:       std,
		fitted:    true,
	}, nil
}

func applyThreshold(scores []float64, threshold float64) []int {
	labels := make([]int, len(scores))
	for i, s := range scores {
		if s > threshold {
			labels[i] = 1
		}
	}
	return labels
}

// confidence is a closed-form Bayesian estimate of how stable each
// prediction would be under resampling of the training score distribution
// (Perini et al., 2020). For a test score x with k fitted scores at or
// below it, the posterior anomaly probability is p = (1+k)/(2+n) and the
// anomaly confidence is 1 - BinomialCDF(n - floor(n*contamination); n, p).
// Inlier predictions report the complement, so the value always expresses
// confidence in the assigned label.
func (s decisionState) confidence(testScores []float64, contamination float64) []float64 {
	n := len(s.scores)
	cutoff := float64(n - int(float64(n)*contamination))

	conf := make([]float64, len(testScores))
	for i, x := range testScores {
		var k int
		for _, fitted := range s.scores {
			if fitted <= x {
				k++
			}
		}
		p := float64(1+k) / float64(2+n)
		b := distuv.Binomial{N: float64(n), P: p}
		c := 1 - b.CDF(cutoff)
		if x <= s.threshold {
			c = 1 - c
		}
		conf[i] = c
	}
	return conf
}
