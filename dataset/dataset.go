// Package dataset holds the in-memory sample containers shared by the
// detector and by concrete model implementations: a tabular or windowed
// Dataset, sliding-window framing for time series, and a batching Loader.
package dataset

// Dataset is either a tabular matrix (samples x features) or a windowed
// tensor (windows x window length x features) framed from a time series.
// Labels, when present, are aligned 1:1 with samples or windows.
type Dataset struct {
	Tabular [][]float64
	Windows [][][]float64
	Labels  []float64
}

// FromTabular wraps a tabular matrix. y may be nil.
func FromTabular(x [][]float64, y []float64) *Dataset {
	return &Dataset{Tabular: x, Labels: y}
}

// FromSeries frames a time series into overlapping windows. y may be nil;
// when given, each window takes the label of its last timestamp.
func FromSeries(x [][]float64, y []float64, seqLen, stride int) (*Dataset, error) {
	windows, err := SubSequences(x, seqLen, stride)
	if err != nil {
		return nil, err
	}
	d := &Dataset{Windows: windows}
	if y != nil {
		labels, err := SubSequenceLabels(y, seqLen, stride)
		if err != nil {
			return nil, err
		}
		d.Labels = labels
	}
	return d, nil
}

// Windowed reports whether the dataset holds windowed series data.
func (d *Dataset) Windowed() bool {
	return d.Windows != nil
}

// Len returns the number of samples or windows.
func (d *Dataset) Len() int {
	if d.Windowed() {
		return len(d.Windows)
	}
	return len(d.Tabular)
}

// Features returns the feature dimensionality of a sample.
func (d *Dataset) Features() int {
	if d.Windowed() {
		if len(d.Windows) == 0 || len(d.Windows[0]) == 0 {
			return 0
		}
		return len(d.Windows[0][0])
	}
	if len(d.Tabular) == 0 {
		return 0
	}
	return len(d.Tabular[0])
}

// SeqLen returns the window length, or 1 for tabular data.
func (d *Dataset) SeqLen() int {
	if d.Windowed() {
		if len(d.Windows) == 0 {
			return 0
		}
		return len(d.Windows[0])
	}
	return 1
}

// SizeBytes estimates the in-memory size of the sample values.
func (d *Dataset) SizeBytes() int64 {
	return int64(d.Len()) * int64(d.SeqLen()) * int64(d.Features()) * 8
}

// Truncate returns a dataset holding only the first n samples. The backing
// arrays are shared, not copied.
func (d *Dataset) Truncate(n int) *Dataset {
	if n >= d.Len() {
		return d
	}
	out := &Dataset{}
	if d.Windowed() {
		out.Windows = d.Windows[:n]
	} else {
		out.Tabular = d.Tabular[:n]
	}
	if d.Labels != nil {
		out.Labels = d.Labels[:n]
	}
	return out
}

// Batch is one mini-batch drawn from a Dataset. Rows is set for tabular
// data, Windows for windowed data; Y is aligned when labels exist.
type Batch struct {
	Rows    [][]float64
	Windows [][][]float64
	Y       []float64
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int {
	if b.Windows != nil {
		return len(b.Windows)
	}
	return len(b.Rows)
}
