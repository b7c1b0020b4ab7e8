package stats

import (
	"math"
	"math/rand"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/population"
)

const (
	// convergedVarianceCeiling and convergedStreak together define
	// convergence: flat fitness landscape plus a long dry spell.
	convergedVarianceCeiling = 0.01
	convergedStreak          = 50

	// stagnantStreak marks a run as stagnant well before convergence.
	stagnantStreak = 20

	// diversitySamplePairs bounds the pairwise distance sampling.
	diversitySamplePairs = 100
)

// RunStats tracks a single evolution run across generations: current and
// all-time fitness extremes, variance, improvement streaks and operation
// counts.
type RunStats struct {
	CurrentGeneration int

	BestFitnessCurrent  float64
	AvgFitnessCurrent   float64
	WorstFitnessCurrent float64

	BestFitnessEver  float64
	WorstFitnessEver float64

	FitnessVariance        float64
	FitnessImprovementRate float64
	ConvergenceStreak      int
	Diverse                bool

	TotalEvaluations    int64
	MutationsPerformed  int64
	CrossoversPerformed int64
}

// NewRunStats returns a tracker with all-time extremes primed so the first
// Update always registers as an improvement.
func NewRunStats() *RunStats {
	return &RunStats{
		BestFitnessEver:  math.Inf(-1),
		WorstFitnessEver: math.Inf(1),
	}
}

// Update folds one generation's population snapshot into the tracker. The
// population's cached stats must be fresh (UpdateStats or Sort already run).
func (s *RunStats) Update(pop *population.Population) error {
	if pop == nil {
		return errors.New(errors.InvalidArgument, "nil population")
	}

	s.CurrentGeneration = pop.Generation()
	s.BestFitnessCurrent = pop.BestFitness()
	s.AvgFitnessCurrent = pop.AvgFitness()
	s.WorstFitnessCurrent = pop.WorstFitness()

	if pop.BestFitness() > s.BestFitnessEver {
		improvement := pop.BestFitness() - s.BestFitnessEver
		s.BestFitnessEver = pop.BestFitness()
		s.ConvergenceStreak = 0

		if s.CurrentGeneration > 0 && !math.IsInf(improvement, 1) {
			s.FitnessImprovementRate = improvement / float64(s.CurrentGeneration)
		}
	} else {
		s.ConvergenceStreak++
	}

	if pop.WorstFitness() < s.WorstFitnessEver {
		s.WorstFitnessEver = pop.WorstFitness()
	}

	s.FitnessVariance = fitnessVariance(pop, pop.AvgFitness())
	s.Diverse = s.FitnessVariance > 1.0

	return nil
}

// RecordOperations accumulates operation counters for the run.
func (s *RunStats) RecordOperations(evaluations, mutations, crossovers int64) {
	s.TotalEvaluations += evaluations
	s.MutationsPerformed += mutations
	s.CrossoversPerformed += crossovers
}

// IsConverged reports whether the run has both a flat fitness landscape and a
// long streak without improvement.
func (s *RunStats) IsConverged() bool {
	return s.FitnessVariance < convergedVarianceCeiling &&
		s.ConvergenceStreak > convergedStreak
}

// IsStagnant reports whether the run has gone too long without improvement.
func (s *RunStats) IsStagnant() bool {
	return s.ConvergenceStreak > stagnantStreak
}

func fitnessVariance(pop *population.Population, mean float64) float64 {
	if pop.Size() == 0 || math.IsNaN(mean) {
		return 0
	}

	sumSqDiff := 0.0
	count := 0
	for i := 0; i < pop.Size(); i++ {
		f := pop.Get(i).Fitness
		if math.IsNaN(f) {
			continue
		}
		diff := f - mean
		sumSqDiff += diff * diff
		count++
	}

	if count == 0 {
		return 0
	}
	return sumSqDiff / float64(count)
}

// Diversity estimates the population's genetic diversity in [0,1] from the
// average normalized Hamming distance over sampled pairs. Sampling keeps the
// cost linear in population size rather than quadratic.
func Diversity(pop *population.Population, rng *rand.Rand) float64 {
	if pop == nil || rng == nil || pop.Size() == 0 {
		return 0
	}

	totalDistance := 0.0
	samples := 0

	for i := 0; i < diversitySamplePairs && i < pop.Size(); i++ {
		j := (i + rng.Intn(pop.Size())) % pop.Size()
		if i == j {
			continue
		}

		g1 := pop.Get(i).Genome
		g2 := pop.Get(j).Genome
		if g1 == nil || g2 == nil || g1.Capacity() == 0 {
			continue
		}

		minSize := g1.Size()
		if g2.Size() < minSize {
			minSize = g2.Size()
		}

		b1 := g1.Bytes()
		b2 := g2.Bytes()
		distance := 0
		for k := 0; k < minSize; k++ {
			if b1[k] != b2[k] {
				distance++
			}
		}

		totalDistance += float64(distance) / float64(g1.Capacity())
		samples++
	}

	if samples == 0 {
		return 0
	}
	return totalDistance / float64(samples)
}

// Distribution returns min/max/mean/stddev over the population's valid
// fitness values. Returns PopulationEmpty when no individual has a valid
// score.
func Distribution(pop *population.Population) (min, max, mean, stddev float64, err error) {
	if pop == nil || pop.Size() == 0 {
		return 0, 0, 0, 0, errors.New(errors.PopulationEmpty, "no individuals to summarize")
	}

	min = math.Inf(1)
	max = math.Inf(-1)
	sum := 0.0
	validCount := 0

	for i := 0; i < pop.Size(); i++ {
		f := pop.Get(i).Fitness
		if math.IsNaN(f) {
			continue
		}
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		sum += f
		validCount++
	}

	if validCount == 0 {
		return 0, 0, 0, 0, errors.New(errors.PopulationEmpty, "no valid fitness values")
	}

	mean = sum / float64(validCount)

	sumSqDiff := 0.0
	for i := 0; i < pop.Size(); i++ {
		f := pop.Get(i).Fitness
		if math.IsNaN(f) {
			continue
		}
		diff := f - mean
		sumSqDiff += diff * diff
	}
	stddev = math.Sqrt(sumSqDiff / float64(validCount))

	return min, max, mean, stddev, nil
}
