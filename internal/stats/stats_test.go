package stats

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b)) }

func TestMomentsOfSmallSample(t *testing.T) {
	var s NumericStatistics
	s.Add([]float64{1, 2, 3, 4})

	if s.Count != 4 {
		t.Fatalf("count = %d, want 4", s.Count)
	}
	if v, _ := s.Minimum(); v != 1 {
		t.Fatalf("min = %v, want 1", v)
	}
	if v, _ := s.Maximum(); v != 4 {
		t.Fatalf("max = %v, want 4", v)
	}
	if v, _ := s.Mean(); !near(v, 2.5) {
		t.Fatalf("mean = %v, want 2.5", v)
	}
	if v, _ := s.Variance(); !near(v, 1.25) {
		t.Fatalf("variance = %v, want 1.25", v)
	}
	if v, _ := s.Skewness(); !near(v, 0) {
		t.Fatalf("skewness = %v, want 0", v)
	}
	if v, _ := s.Kurtosis(); !near(v, -1.36) {
		t.Fatalf("kurtosis = %v, want -1.36", v)
	}
}

func TestWeightedMomentsMatchGonum(t *testing.T) {
	x := []float64{0.3, 1.7, -2.2, 4.1, 4.1, 0, 9.5, -0.4}
	w := []float64{1, 2, 0.5, 3, 1, 1, 0.25, 2}

	var s NumericStatistics
	s.AddWeighted(x, w)

	wantMean, wantVar := stat.PopMeanVariance(x, w)
	if got, _ := s.Mean(); !near(got, wantMean) {
		t.Fatalf("mean = %v, want %v", got, wantMean)
	}
	if got, _ := s.Variance(); !near(got, wantVar) {
		t.Fatalf("variance = %v, want %v", got, wantVar)
	}
	if got, _ := s.StdDev(); !near(got, math.Sqrt(wantVar)) {
		t.Fatalf("stddev = %v, want %v", got, math.Sqrt(wantVar))
	}
	if s.SumOfWeights != floats.Sum(w) {
		t.Fatalf("sum of weights = %v, want %v", s.SumOfWeights, floats.Sum(w))
	}

	// third and fourth central moments computed directly
	var m3, m4 float64
	for i := range x {
		d := x[i] - wantMean
		m3 += w[i] * d * d * d
		m4 += w[i] * d * d * d * d
	}
	m3 /= floats.Sum(w)
	m4 /= floats.Sum(w)
	if got, _ := s.Skewness(); math.Abs(got-m3/math.Pow(wantVar, 1.5)) > 1e-9 {
		t.Fatalf("skewness = %v, want %v", got, m3/math.Pow(wantVar, 1.5))
	}
	if got, _ := s.Kurtosis(); math.Abs(got-(m4/(wantVar*wantVar)-3)) > 1e-9 {
		t.Fatalf("kurtosis = %v, want %v", got, m4/(wantVar*wantVar)-3)
	}
}

func TestEmptyAccumulatorIsUndefined(t *testing.T) {
	var s NumericStatistics
	vals, oks := s.Values()
	if vals[0] != 0 || !oks[0] {
		t.Fatalf("count should be defined and zero")
	}
	for i := 1; i < len(oks); i++ {
		if oks[i] {
			t.Fatalf("measure %s should be undefined", MeasureNames()[i])
		}
	}
	got := s.MeasureValues()
	want := []string{"0", "", "", "", "", "", "", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MeasureValues = %#v, want %#v", got, want)
		}
	}
}

func TestZeroWeightsAreUndefined(t *testing.T) {
	var s NumericStatistics
	s.AddWeighted([]float64{3, 4}, []float64{0, 0})
	if _, ok := s.Mean(); ok {
		t.Fatalf("mean should be undefined for zero total weight")
	}
	if v, ok := s.Minimum(); !ok || v != 3 {
		t.Fatalf("min = %v, %v; want 3, true", v, ok)
	}
}

func TestConstantDataHasNoShape(t *testing.T) {
	var s NumericStatistics
	s.Add([]float64{7, 7, 7})
	if v, ok := s.Variance(); !ok || v != 0 {
		t.Fatalf("variance = %v, %v", v, ok)
	}
	if _, ok := s.Skewness(); ok {
		t.Fatalf("skewness should be undefined for zero spread")
	}
	if _, ok := s.Kurtosis(); ok {
		t.Fatalf("kurtosis should be undefined for zero spread")
	}
}

func TestSelectionSkipsOutOfRange(t *testing.T) {
	x := []float64{10, 20, 30, 40}
	w := []float64{1, 1, 1}
	sel := roaring.BitmapOf(1, 3, 9)

	var s NumericStatistics
	s.AddWeightedSelection(x, w, sel)
	if s.Count != 1 {
		t.Fatalf("count = %d, want 1", s.Count)
	}
	if v, _ := s.Mean(); v != 20 {
		t.Fatalf("mean = %v, want 20", v)
	}

	var none NumericStatistics
	none.AddWeightedSelection(x, w, nil)
	if none.Count != 0 {
		t.Fatalf("nil selection should ingest nothing")
	}
}

func TestMergeIsAssociative(t *testing.T) {
	x := []float64{5, -1, 2.5, 8, 3, 3, 0.125, 11, -7, 4}
	w := []float64{1, 2, 1, 0.5, 1, 3, 1, 1, 2, 1}

	var whole NumericStatistics
	whole.AddWeighted(x, w)

	chunk := func(lo, hi int) NumericStatistics {
		var s NumericStatistics
		s.AddWeighted(x[lo:hi], w[lo:hi])
		return s
	}
	a, b, c := chunk(0, 3), chunk(3, 7), chunk(7, 10)

	left := a
	left.Merge(b)
	left.Merge(c)

	bc := b
	bc.Merge(c)
	right := a
	right.Merge(bc)

	reversed := c
	reversed.Merge(a)
	reversed.Merge(b)

	for _, got := range []NumericStatistics{left, right, reversed} {
		if got.Count != whole.Count || got.Min != whole.Min || got.Max != whole.Max {
			t.Fatalf("merged count/range = %d %v %v, want %d %v %v", got.Count, got.Min, got.Max, whole.Count, whole.Min, whole.Max)
		}
		gv, _ := got.Values()
		wv, _ := whole.Values()
		for i := range wv {
			if math.Abs(gv[i]-wv[i]) > 1e-9 {
				t.Fatalf("%s = %v, want %v", MeasureNames()[i], gv[i], wv[i])
			}
		}
	}

	var empty NumericStatistics
	empty.Merge(NumericStatistics{})
	if empty.Count != 0 {
		t.Fatalf("merging empties should stay empty")
	}
}
