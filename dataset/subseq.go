package dataset

import "fmt"

// WindowError reports window parameters that cannot frame the given series.
type WindowError struct {
	SeqLen  int
	Stride  int
	Samples int
}

func (e WindowError) Error() string {
	return fmt.Sprintf("invalid windowing: seq_len=%d stride=%d over %d samples", e.SeqLen, e.Stride, e.Samples)
}

// SubSequences slices a series (timestamps x features) into overlapping
// windows of length seqLen whose start offsets advance by stride. Window
// count is floor((n-seqLen)/stride)+1. A series shorter than seqLen is an
// explicit error, never a silent empty result.
func SubSequences(x [][]float64, seqLen, stride int) ([][][]float64, error) {
	if seqLen < 1 || stride < 1 || len(x) < seqLen {
		return nil, WindowError{SeqLen: seqLen, Stride: stride, Samples: len(x)}
	}
	n := (len(x)-seqLen)/stride + 1
	windows := make([][][]float64, 0, n)
	for start := 0; start+seqLen <= len(x); start += stride {
		windows = append(windows, x[start:start+seqLen])
	}
	return windows, nil
}

// SubSequenceLabels aligns per-timestamp labels with the windows produced
// by SubSequences: each window is labeled by its last timestamp.
func SubSequenceLabels(y []float64, seqLen, stride int) ([]float64, error) {
	if seqLen < 1 || stride < 1 || len(y) < seqLen {
		return nil, WindowError{SeqLen: seqLen, Stride: stride, Samples: len(y)}
	}
	n := (len(y)-seqLen)/stride + 1
	labels := make([]float64, 0, n)
	for start := 0; start+seqLen <= len(y); start += stride {
		labels = append(labels, y[start+seqLen-1])
	}
	return labels, nil
}
