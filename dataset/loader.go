package dataset

import "math/rand"

// Loader yields mini-batches of a Dataset. Iteration order is the sample
// order contract relied on by inference: without shuffling, batch b starts
// at sample b*batchSize. Shuffling is driven by an explicit rng so that
// loaders owned by concurrent trials stay independent and reproducible.
type Loader struct {
	d     *Dataset
	batch int
	order []int
	rng   *rand.Rand
	pos   int
}

// NewLoader builds a loader over d. rng may be nil to preserve sample
// order; otherwise the order is reshuffled on every Reset.
func NewLoader(d *Dataset, batchSize int, rng *rand.Rand) *Loader {
	if batchSize < 1 {
		batchSize = 1
	}
	order := make([]int, d.Len())
	for i := range order {
		order[i] = i
	}
	l := &Loader{d: d, batch: batchSize, order: order, rng: rng}
	l.Reset()
	return l
}

// Reset rewinds the loader, reshuffling if it owns an rng.
func (l *Loader) Reset() {
	l.pos = 0
	if l.rng != nil {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// Next returns the next batch, or ok=false at the end of the pass.
func (l *Loader) Next() (Batch, bool) {
	if l.pos >= len(l.order) {
		return Batch{}, false
	}
	end := l.pos + l.batch
	if end > len(l.order) {
		end = len(l.order)
	}
	idx := l.order[l.pos:end]
	l.pos = end

	var b Batch
	if l.d.Windowed() {
		b.Windows = make([][][]float64, 0, len(idx))
		for _, i := range idx {
			b.Windows = append(b.Windows, l.d.Windows[i])
		}
	} else {
		b.Rows = make([][]float64, 0, len(idx))
		for _, i := range idx {
			b.Rows = append(b.Rows, l.d.Tabular[i])
		}
	}
	if l.d.Labels != nil {
		b.Y = make([]float64, 0, len(idx))
		for _, i := range idx {
			b.Y = append(b.Y, l.d.Labels[i])
		}
	}
	return b, true
}

// Len returns the number of samples in one pass.
func (l *Loader) Len() int {
	return len(l.order)
}

// Batches returns the number of batches in one pass.
func (l *Loader) Batches() int {
	return (len(l.order) + l.batch - 1) / l.batch
}
