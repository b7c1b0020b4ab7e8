package meta

import "math"

// HistoryCapacity bounds the per-individual fitness history ring.
const HistoryCapacity = 50

// Individual pairs a parameter set with its meta-fitness and a bounded
// history of past scores used for trend analysis.
type Individual struct {
	Params      Params
	MetaFitness float64
	Generation  int

	history []float64
}

// NewIndividual creates an individual around the given parameter set.
func NewIndividual(params Params) *Individual {
	return &Individual{
		Params:  params,
		history: make([]float64, 0, HistoryCapacity),
	}
}

// RecordFitness stores the latest meta-fitness, evicting the oldest history
// entry once the ring is full.
func (ind *Individual) RecordFitness(fitness float64) {
	ind.MetaFitness = fitness

	if len(ind.history) >= HistoryCapacity {
		copy(ind.history, ind.history[1:])
		ind.history = ind.history[:HistoryCapacity-1]
	}
	ind.history = append(ind.history, fitness)
}

// History returns a copy of the recorded fitness values, oldest first.
func (ind *Individual) History() []float64 {
	out := make([]float64, len(ind.history))
	copy(out, ind.history)
	return out
}

// AverageFitness returns the mean of the recorded history, 0 when empty.
func (ind *Individual) AverageFitness() float64 {
	if len(ind.history) == 0 {
		return 0
	}

	sum := 0.0
	for _, f := range ind.history {
		sum += f
	}
	return sum / float64(len(ind.history))
}

// ImprovementTrend fits a least-squares line through the history and returns
// its slope. Positive means the parameter set is still improving. Returns 0
// with fewer than two samples or a degenerate fit.
func (ind *Individual) ImprovementTrend() float64 {
	n := len(ind.history)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range ind.history {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := float64(n)*sumX2 - sumX*sumX
	if math.Abs(denominator) < 0.0001 {
		return 0
	}
	return (float64(n)*sumXY - sumX*sumY) / denominator
}
