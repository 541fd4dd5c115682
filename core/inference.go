package core

import (
	"log"

	"github.com/real-lhj/DeepOD/errors"
)

// runInference evaluates the live model over a loader in no-gradient mode,
// concatenating per-batch representations and raw scores in loader order.
// That order corresponds to sample order and must be preserved.
func (d *Detector) runInference(loader Loader) ([][]float64, []float64, error) {
	var reps [][]float64
	var scores []float64

	total := loader.Batches()
	loader.Reset()
	for i := 0; ; i++ {
		batch, ok := loader.Next()
		if !ok {
			break
		}
		r, s, err := d.ops.InferenceForward(batch, d.net, d.criterion)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "inference forward, batch %d", i+1)
		}
		if len(s) != batch.Size() {
			return nil, nil, errors.Errorf("model returned %d scores for a batch of %d", len(s), batch.Size())
		}
		reps = append(reps, r...)
		scores = append(scores, s...)

		if d.opts.Verbose >= 2 {
			log.Printf("testing: batch %d/%d", i+1, total)
		}
	}

	if u, ok := d.ops.(ScoreUpdater); ok {
		reps, scores = u.DecisionFunctionUpdate(reps, scores)
	}
	return reps, scores, nil
}
