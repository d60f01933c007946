// Package stats implements a streaming, weighted moment accumulator.
package stats

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
)

// Measure names in presentation order.
var measureNames = []string{"Count", "Minimum", "Maximum", "Mean", "Variance", "StdDev", "Skewness", "Kurtosis"}

// NumericStatistics accumulates Σw·x, Σw·x², Σw·x³, Σw·x⁴ and Σw together
// with the count and range of ingested values. The zero value is ready to use.
type NumericStatistics struct {
	Count        int     `json:"count" yaml:"count"`
	SumOfValues  float64 `json:"sum_of_values" yaml:"sum_of_values"`
	SumOfValues2 float64 `json:"sum_of_values2" yaml:"sum_of_values2"`
	SumOfValues3 float64 `json:"sum_of_values3" yaml:"sum_of_values3"`
	SumOfValues4 float64 `json:"sum_of_values4" yaml:"sum_of_values4"`
	SumOfWeights float64 `json:"sum_of_weights" yaml:"sum_of_weights"`
	Min          float64 `json:"minimum" yaml:"minimum"`
	Max          float64 `json:"maximum" yaml:"maximum"`
}

// MeasureNames lists the derived measures reported by MeasureValues.
func MeasureNames() []string {
	return append([]string(nil), measureNames...)
}

func (s *NumericStatistics) addOne(x, w float64) {
	wx := w * x
	wx2 := wx * x
	wx3 := wx2 * x
	wx4 := wx3 * x
	if s.Count == 0 {
		s.Min, s.Max = x, x
	} else {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	s.Count++
	s.SumOfValues += wx
	s.SumOfValues2 += wx2
	s.SumOfValues3 += wx3
	s.SumOfValues4 += wx4
	s.SumOfWeights += w
}

// Add ingests x with unit weights.
func (s *NumericStatistics) Add(x []float64) {
	for _, xi := range x {
		s.addOne(xi, 1)
	}
}

// AddWeighted ingests x against weight pairwise; extra elements of the longer
// slice are ignored.
func (s *NumericStatistics) AddWeighted(x, weight []float64) {
	n := min(len(x), len(weight))
	for i := 0; i < n; i++ {
		s.addOne(x[i], weight[i])
	}
}

// AddWeightedSelection ingests only the rows in selection. Row indices past
// the end of x or weight are skipped.
func (s *NumericStatistics) AddWeightedSelection(x, weight []float64, selection *roaring.Bitmap) {
	if selection == nil {
		return
	}
	it := selection.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i >= len(x) || i >= len(weight) {
			continue
		}
		s.addOne(x[i], weight[i])
	}
}

// Merge folds other into s. Merging is associative and commutative.
func (s *NumericStatistics) Merge(other NumericStatistics) {
	if other.Count > 0 {
		if s.Count == 0 {
			s.Min, s.Max = other.Min, other.Max
		} else {
			s.Min = math.Min(s.Min, other.Min)
			s.Max = math.Max(s.Max, other.Max)
		}
	}
	s.Count += other.Count
	s.SumOfValues += other.SumOfValues
	s.SumOfValues2 += other.SumOfValues2
	s.SumOfValues3 += other.SumOfValues3
	s.SumOfValues4 += other.SumOfValues4
	s.SumOfWeights += other.SumOfWeights
}

// Minimum reports the smallest ingested value.
func (s NumericStatistics) Minimum() (float64, bool) { return s.Min, s.Count > 0 }

// Maximum reports the largest ingested value.
func (s NumericStatistics) Maximum() (float64, bool) { return s.Max, s.Count > 0 }

// Mean is ΣwX/Σw.
func (s NumericStatistics) Mean() (float64, bool) {
	if s.SumOfWeights == 0 {
		return 0, false
	}
	return s.SumOfValues / s.SumOfWeights, true
}

// Variance is the weighted population variance ΣwX²/Σw − mean².
func (s NumericStatistics) Variance() (float64, bool) {
	mean, ok := s.Mean()
	if !ok {
		return 0, false
	}
	v := s.SumOfValues2/s.SumOfWeights - mean*mean
	if v < 0 {
		// cancellation on near-constant data
		v = 0
	}
	return v, true
}

// StdDev is the square root of Variance.
func (s NumericStatistics) StdDev() (float64, bool) {
	v, ok := s.Variance()
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

// Skewness is the third standardized moment. Undefined for zero spread.
func (s NumericStatistics) Skewness() (float64, bool) {
	sd, ok := s.StdDev()
	if !ok || sd == 0 {
		return 0, false
	}
	mean := s.SumOfValues / s.SumOfWeights
	meanCube := s.SumOfValues3 / s.SumOfWeights
	return (meanCube - 3*mean*sd*sd - mean*mean*mean) / (sd * sd * sd), true
}

// Kurtosis is Fisher's (excess) kurtosis. Undefined for zero spread.
func (s NumericStatistics) Kurtosis() (float64, bool) {
	variance, ok := s.Variance()
	if !ok || variance == 0 {
		return 0, false
	}
	mean := s.SumOfValues / s.SumOfWeights
	mean2 := mean * mean
	x2 := s.SumOfValues2 / s.SumOfWeights
	x3 := s.SumOfValues3 / s.SumOfWeights
	x4 := s.SumOfValues4 / s.SumOfWeights
	return (x4-3*mean2*mean2-4*mean*x3+6*mean2*x2)/(variance*variance) - 3, true
}

// Values returns the derived measures in MeasureNames order; ok is false for
// measures that are undefined. Count is always defined.
func (s NumericStatistics) Values() ([]float64, []bool) {
	vals := make([]float64, 0, len(measureNames))
	oks := make([]bool, 0, len(measureNames))
	push := func(v float64, ok bool) {
		vals = append(vals, v)
		oks = append(oks, ok)
	}
	push(float64(s.Count), true)
	push(s.Minimum())
	push(s.Maximum())
	push(s.Mean())
	push(s.Variance())
	push(s.StdDev())
	push(s.Skewness())
	push(s.Kurtosis())
	return vals, oks
}

// MeasureValues formats Values for display: counts as integers, the rest
// with three decimals, undefined measures as empty strings.
func (s NumericStatistics) MeasureValues() []string {
	vals, oks := s.Values()
	out := make([]string, len(vals))
	out[0] = fmt.Sprintf("%d", s.Count)
	for i := 1; i < len(vals); i++ {
		if oks[i] {
			out[i] = fmt.Sprintf("%.3f", vals[i])
		}
	}
	return out
}
