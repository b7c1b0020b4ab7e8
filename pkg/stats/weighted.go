// Package stats provides streaming statistics used by the meta and adaptive
// layers: weighted mean/variance accumulators and per-run evolution tracking.
package stats

import (
	"math"
	"math/rand"
)

const (
	defaultMinSamples            = 3
	defaultMaxSamplesForConfScan = 100

	// minWeight avoids division issues from zero or negative weights.
	minWeight = 0.0001
)

// Weighted is a streaming weighted mean/variance accumulator using West's
// online algorithm for numerical stability.
type Weighted struct {
	mean       float64
	variance   float64
	sumWeights float64
	m2         float64
	count      int
	minValue   float64
	maxValue   float64
}

// NewWeighted returns an empty accumulator.
func NewWeighted() *Weighted {
	return &Weighted{
		minValue: math.Inf(1),
		maxValue: math.Inf(-1),
	}
}

// Update folds one observation into the accumulator. Weights below minWeight
// are clamped up.
func (w *Weighted) Update(value, weight float64) {
	if weight < minWeight {
		weight = minWeight
	}

	if value < w.minValue {
		w.minValue = value
	}
	if value > w.maxValue {
		w.maxValue = value
	}

	if w.count == 0 {
		w.mean = value
		w.sumWeights = weight
		w.m2 = 0
	} else {
		prevSum := w.sumWeights
		newSum := prevSum + weight
		delta := value - w.mean

		w.mean += (weight / newSum) * delta
		w.m2 += prevSum * weight * delta * delta / newSum
		w.sumWeights = newSum
	}

	w.count++
	w.variance = w.m2 / w.sumWeights
}

// Mean returns the weighted mean, 0 when empty.
func (w *Weighted) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.mean
}

// Std returns the weighted standard deviation, 0 with fewer than 2 samples.
func (w *Weighted) Std() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.variance)
}

// Variance returns the weighted variance, 0 with fewer than 2 samples.
func (w *Weighted) Variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.variance
}

// Count returns the number of observations folded in.
func (w *Weighted) Count() int { return w.count }

// Min returns the smallest observed value.
func (w *Weighted) Min() float64 { return w.minValue }

// Max returns the largest observed value.
func (w *Weighted) Max() float64 { return w.maxValue }

// Sample draws a Gaussian sample around the accumulated mean/std using the
// Box-Muller transform. With near-zero variance the mean is returned.
func (w *Weighted) Sample(rng *rand.Rand) float64 {
	if w.count == 0 {
		return 0
	}

	std := w.Std()
	if std < 0.0001 {
		return w.Mean()
	}

	u1 := rng.Float64()
	u2 := rng.Float64()
	if u1 < 0.0001 {
		u1 = 0.0001
	}

	z0 := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return w.Mean() + std*z0
}

// Reset clears the accumulator.
func (w *Weighted) Reset() {
	*w = *NewWeighted()
}

// HasData reports whether at least minSamples observations were recorded.
// A minSamples of 0 uses the default of 3.
func (w *Weighted) HasData(minSamples int) bool {
	if minSamples == 0 {
		minSamples = defaultMinSamples
	}
	return w.count >= minSamples
}

// Confidence maps sample count to [0,1] with sqrt scaling:
// min(1, sqrt(n/maxSamples)). A maxSamples of 0 uses the default of 100.
func (w *Weighted) Confidence(maxSamples int) float64 {
	if w.count == 0 {
		return 0
	}
	if maxSamples == 0 {
		maxSamples = defaultMaxSamplesForConfScan
	}
	ratio := float64(w.count) / float64(maxSamples)
	return math.Min(1, math.Sqrt(ratio))
}

// WeightedArray tracks one Weighted accumulator per parameter.
type WeightedArray struct {
	stats []*Weighted
}

// NewWeightedArray creates count independent accumulators.
func NewWeightedArray(count int) *WeightedArray {
	arr := &WeightedArray{stats: make([]*Weighted, count)}
	for i := range arr.stats {
		arr.stats[i] = NewWeighted()
	}
	return arr
}

// Len returns the number of tracked parameters.
func (a *WeightedArray) Len() int { return len(a.stats) }

// At returns the accumulator for parameter i, nil when out of range.
func (a *WeightedArray) At(i int) *Weighted {
	if i < 0 || i >= len(a.stats) {
		return nil
	}
	return a.stats[i]
}

// Update folds one observation per parameter. When weights is nil,
// globalWeight applies to every parameter. Returns false on length mismatch.
func (a *WeightedArray) Update(values, weights []float64, globalWeight float64) bool {
	if len(values) != len(a.stats) {
		return false
	}
	if weights != nil && len(weights) != len(a.stats) {
		return false
	}

	for i, v := range values {
		w := globalWeight
		if weights != nil {
			w = weights[i]
		}
		a.stats[i].Update(v, w)
	}
	return true
}

// Means returns the current weighted mean of every parameter.
func (a *WeightedArray) Means() []float64 {
	out := make([]float64, len(a.stats))
	for i, s := range a.stats {
		out[i] = s.Mean()
	}
	return out
}
