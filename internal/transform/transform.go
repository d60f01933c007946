// Package transform maps raw column values into canonical, roughly [0,1]
// coordinates used for mesh placement.
//
// A Transform is a closed set of variants (identity, normalize, logarithmic,
// quantile, probit, composed) dispatched by a single switch. Each variant is
// calibrated once against a column and is immutable afterwards.
package transform

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultQuantileBuckets is the default maximum number of quantile control points.
const DefaultQuantileBuckets = 100

// probitEpsilon keeps probit away from the infinite tails at 0 and 1.
const probitEpsilon = 1e-6

type kind int

const (
	kindIdentity kind = iota
	kindNormalize
	kindLogarithmic
	kindQuantile
	kindProbit
	kindComposed
)

// Transform is a calibratable, invertible numeric remapping.
type Transform struct {
	kind kind

	// normalize
	minimum float64
	delta   float64

	// quantile
	buckets   int
	values    []float64
	quantiles []float64

	// composed
	first  *Transform
	second *Transform
}

// Identity returns a transform that maps every finite value to itself.
func Identity() *Transform { return &Transform{kind: kindIdentity} }

// Normalize returns an affine transform mapping [min,max] of the calibration
// set onto [0,1].
func Normalize() *Transform { return &Transform{kind: kindNormalize, delta: 1} }

// Logarithmic returns the natural logarithm, undefined for values <= 0.
func Logarithmic() *Transform { return &Transform{kind: kindLogarithmic} }

// Quantile returns an empirical CDF transform using at most buckets control
// points. A non-positive bucket count selects DefaultQuantileBuckets.
func Quantile(buckets int) *Transform {
	if buckets <= 0 {
		buckets = DefaultQuantileBuckets
	}
	return &Transform{kind: kindQuantile, buckets: buckets}
}

// Probit maps a probability in [0,1] to the standard normal quantile.
func Probit() *Transform { return &Transform{kind: kindProbit} }

// Compose applies first, then second. Calibration of second runs on the
// values produced by first.
func Compose(first, second *Transform) *Transform {
	return &Transform{kind: kindComposed, first: first, second: second}
}

// Calibrate fixes the transform parameters from values. Non-finite values
// are ignored.
func (t *Transform) Calibrate(values []float64) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	t.calibrate(finite)
}

func (t *Transform) calibrate(values []float64) {
	switch t.kind {
	case kindNormalize:
		t.minimum, t.delta = 0, 1
		if len(values) == 0 {
			return
		}
		lo, hi := values[0], values[0]
		for _, v := range values[1:] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		t.minimum = lo
		t.delta = hi - lo
		if t.delta == 0 {
			t.delta = 1
		}
	case kindQuantile:
		t.calibrateQuantile(values)
	case kindComposed:
		t.first.calibrate(values)
		intermediate := make([]float64, 0, len(values))
		for _, v := range values {
			if x, ok := t.first.Apply(v); ok {
				intermediate = append(intermediate, x)
			}
		}
		t.second.calibrate(intermediate)
	}
}

func (t *Transform) calibrateQuantile(values []float64) {
	t.values = t.values[:0]
	t.quantiles = t.quantiles[:0]
	n := len(values)
	if n == 0 {
		return
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	// the exact maximum is always appended, so the loop keeps at most
	// buckets-1 points; the minimum and maximum survive any budget
	span := max(t.buckets-1, 1)
	step := max(1, (n-1+span-1)/span)
	for i := 0; i < n-1; i += step {
		t.values = append(t.values, sorted[i])
		t.quantiles = append(t.quantiles, float64(i)/float64(n-1))
	}
	t.values = append(t.values, sorted[n-1])
	t.quantiles = append(t.quantiles, 1)
}

// Apply maps a raw value to its canonical coordinate. It reports false when
// the mapping is undefined, including for non-finite input.
func (t *Transform) Apply(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	var out float64
	switch t.kind {
	case kindIdentity:
		out = v
	case kindNormalize:
		out = (v - t.minimum) / t.delta
	case kindLogarithmic:
		if v <= 0 {
			return 0, false
		}
		out = math.Log(v)
	case kindQuantile:
		if len(t.values) == 0 {
			return 0, false
		}
		out = interpolate(v, t.values, t.quantiles)
	case kindProbit:
		p := math.Min(math.Max(v, probitEpsilon), 1-probitEpsilon)
		out = distuv.UnitNormal.Quantile(p)
	case kindComposed:
		x, ok := t.first.Apply(v)
		if !ok {
			return 0, false
		}
		return t.second.Apply(x)
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

// Inverse is the best-effort right inverse of Apply.
func (t *Transform) Inverse(c float64) (float64, bool) {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, false
	}
	var out float64
	switch t.kind {
	case kindIdentity:
		out = c
	case kindNormalize:
		out = c*t.delta + t.minimum
	case kindLogarithmic:
		out = math.Exp(c)
	case kindQuantile:
		if len(t.values) == 0 {
			return 0, false
		}
		out = interpolate(c, t.quantiles, t.values)
	case kindProbit:
		out = distuv.UnitNormal.CDF(c)
	case kindComposed:
		x, ok := t.second.Inverse(c)
		if !ok {
			return 0, false
		}
		return t.first.Inverse(x)
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

// ControlPoints returns copies of the quantile control points. It is empty
// for every other variant.
func (t *Transform) ControlPoints() (values, quantiles []float64) {
	if t.kind != kindQuantile {
		return nil, nil
	}
	return append([]float64(nil), t.values...), append([]float64(nil), t.quantiles...)
}

// interpolate is a monotone piecewise-linear lookup of value in v, returning
// the matching position in w. Values outside v clamp to the nearest endpoint.
func interpolate(value float64, v, w []float64) float64 {
	low, high := 0, len(v)-1
	for {
		if value <= v[low] {
			return w[low]
		}
		if value >= v[high] {
			return w[high]
		}
		if low == high {
			return w[low]
		}
		if low+1 == high {
			delta := v[high] - v[low]
			if delta == 0 {
				return w[low]
			}
			factor := (value - v[low]) / delta
			return w[low] + factor*(w[high]-w[low])
		}
		next := (low + high) / 2
		if v[next] >= value {
			high = next
		} else {
			low = next
		}
	}
}
