package meta

// EvaluateWeights controls how the four meta-fitness factors combine. The
// defaults match long-standing tuning; expose them rather than bake them in
// so callers can rebalance for their domain.
type EvaluateWeights struct {
	BestFitness float64
	AvgFitness  float64
	Diversity   float64
	Efficiency  float64
}

// DefaultEvaluateWeights returns the standard 50/20/20/10 split.
func DefaultEvaluateWeights() EvaluateWeights {
	return EvaluateWeights{
		BestFitness: 0.5,
		AvgFitness:  0.2,
		Diversity:   0.2,
		Efficiency:  0.1,
	}
}

// Evaluate scores a parameter set from the outcome of a trial run it drove.
// Diversity is rewarded on a 0-100 scale with a bonus for landing in the
// healthy 0.3-0.5 band, and efficiency rewards reaching the result in fewer
// generations.
func Evaluate(bestFitness, avgFitness, diversity float64, generations int, w EvaluateWeights) float64 {
	score := bestFitness * w.BestFitness
	score += avgFitness * w.AvgFitness

	diversityBonus := diversity
	if diversity > 0.3 && diversity < 0.5 {
		diversityBonus *= 1.2
	}
	score += diversityBonus * 100.0 * w.Diversity

	if generations > 0 {
		score += (1000.0 / float64(generations)) * w.Efficiency
	}

	return score
}
