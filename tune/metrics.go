package tune

import (
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// AUC computes the area under the ROC curve of anomaly scores against
// binary ground-truth labels (nonzero = anomalous). It is the evaluation
// metric reported for trials when held-out data is given. With
// single-class labels the curve is undefined and the result is NaN; Best
// skips such trials.
func AUC(labels []float64, scores []float64) float64 {
	n := len(scores)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	y := make([]float64, n)
	classes := make([]bool, n)
	for i, j := range idx {
		y[i] = scores[j]
		classes[i] = labels[j] != 0
	}

	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}
