// Package scheduler adapts evolution parameters over the life of a run:
// mutation decays with progress, selection pressure follows fitness variance,
// and the population contracts from exploration to exploitation, with
// stagnation and diversity interventions layered on top.
package scheduler

import (
	"context"
	"fmt"
	"math"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/logging"
	"github.com/XiaoConstantine/evogo/pkg/meta"
)

// Phase partitions a run by progress: exploration, transition, exploitation.
type Phase int

const (
	PhaseEarly Phase = iota
	PhaseMid
	PhaseLate
)

func (p Phase) String() string {
	switch p {
	case PhaseEarly:
		return "EARLY"
	case PhaseMid:
		return "MID"
	case PhaseLate:
		return "LATE"
	default:
		return "UNKNOWN"
	}
}

// Intervention names the action the engine should take to restore diversity.
type Intervention int

const (
	InterventionNone Intervention = iota
	// InterventionIncreaseMutation bumps the mutation rate in place.
	InterventionIncreaseMutation
	// InterventionAddRandom10 asks the engine to inject 10% random
	// individuals.
	InterventionAddRandom10
	// InterventionAddRandom20 is the aggressive variant for critical
	// diversity collapse.
	InterventionAddRandom20
)

func (iv Intervention) String() string {
	switch iv {
	case InterventionIncreaseMutation:
		return "INCREASE_MUTATION"
	case InterventionAddRandom10:
		return "ADD_RANDOM_10PCT"
	case InterventionAddRandom20:
		return "ADD_RANDOM_20PCT"
	default:
		return "NONE"
	}
}

const (
	defaultHistoryWindow       = 50
	defaultStagnationThreshold = 20
	defaultMinDiversity        = 0.1
	defaultMinMutationRate     = 0.001
	defaultDecayAlpha          = 0.01
	defaultStagnationBoost     = 3.0
	defaultDiversityBoost      = 1.5

	defaultHighVarKill   = 0.15
	defaultMediumVarKill = 0.25
	defaultLowVarKill    = 0.40

	defaultHighVarThreshold = 0.15
	defaultLowVarThreshold  = 0.05

	// diversityEMASmoothing weights new diversity observations in the
	// rolling average.
	diversityEMASmoothing = 0.1

	stagnationExpansionFactor = 1.5

	phaseEarlyEnd = 0.30
	phaseMidEnd   = 0.70
)

// AdaptiveScheduler tracks run progress and convergence, and derives per
// generation parameter values from them.
type AdaptiveScheduler struct {
	currentGeneration int
	maxGenerations    int
	currentPhase      Phase

	fitnessHistory  []float64
	historyPosition int

	bestFitnessEver             float64
	generationsSinceImprovement int
	stagnationThreshold         int

	currentDiversity      float64
	avgDiversity          float64
	minDiversityThreshold float64

	initialMutationRate float64
	currentMutationRate float64
	minMutationRate     float64

	currentKillPercentage  float64
	currentBreedPercentage float64

	initialPopulationSize int
	currentPopulationSize int
	finalPopulationSize   int

	decayAlpha            float64
	stagnationBoostFactor float64
	diversityBoostFactor  float64

	highVarianceKillPct   float64
	mediumVarianceKillPct float64
	lowVarianceKillPct    float64
	highVarianceThreshold float64
	lowVarianceThreshold  float64
}

// New creates a scheduler for a run capped at maxGenerations. When params is
// nil, standalone defaults apply; otherwise the scheduler seeds its mutation,
// culling and sizing state from the parameter set.
func New(maxGenerations int, params *meta.Params) (*AdaptiveScheduler, error) {
	if maxGenerations <= 0 {
		return nil, errors.New(errors.InvalidArgument, "max generations must be positive")
	}

	s := &AdaptiveScheduler{
		maxGenerations:      maxGenerations,
		currentPhase:        PhaseEarly,
		fitnessHistory:      make([]float64, defaultHistoryWindow),
		bestFitnessEver:     math.Inf(-1),
		stagnationThreshold: defaultStagnationThreshold,

		currentDiversity:      0.5,
		avgDiversity:          0.5,
		minDiversityThreshold: defaultMinDiversity,

		minMutationRate:       defaultMinMutationRate,
		decayAlpha:            defaultDecayAlpha,
		stagnationBoostFactor: defaultStagnationBoost,
		diversityBoostFactor:  defaultDiversityBoost,

		highVarianceKillPct:   defaultHighVarKill,
		mediumVarianceKillPct: defaultMediumVarKill,
		lowVarianceKillPct:    defaultLowVarKill,
		highVarianceThreshold: defaultHighVarThreshold,
		lowVarianceThreshold:  defaultLowVarThreshold,
	}

	for i := range s.fitnessHistory {
		s.fitnessHistory[i] = math.NaN()
	}

	if params != nil {
		s.initialMutationRate = params.OptimizationMutationRate
		s.currentMutationRate = params.OptimizationMutationRate
		s.currentKillPercentage = params.CullingRatio
		s.currentBreedPercentage = params.ProfitableOptimizationRatio
		s.initialPopulationSize = params.TargetPopulationSize
		s.currentPopulationSize = params.TargetPopulationSize
		s.finalPopulationSize = params.MinPopulationSize
	} else {
		s.initialMutationRate = 0.20
		s.currentMutationRate = 0.20
		s.currentKillPercentage = 0.25
		s.currentBreedPercentage = 0.70
		s.initialPopulationSize = 1000
		s.currentPopulationSize = 1000
		s.finalPopulationSize = 200
	}

	logging.GetLogger().Info(context.Background(),
		"adaptive scheduler created: max_gen=%d, init_mut=%.3f",
		maxGenerations, s.initialMutationRate)

	return s, nil
}

// Progress returns run completion in [0,1].
func (s *AdaptiveScheduler) Progress() float64 {
	return float64(s.currentGeneration) / float64(s.maxGenerations)
}

// CurrentPhase maps progress to a phase: below 0.30 is early, below 0.70 is
// mid, the rest is late.
func (s *AdaptiveScheduler) CurrentPhase() Phase {
	progress := s.Progress()
	switch {
	case progress < phaseEarlyEnd:
		return PhaseEarly
	case progress < phaseMidEnd:
		return PhaseMid
	default:
		return PhaseLate
	}
}

// Generation returns the number of generations recorded so far.
func (s *AdaptiveScheduler) Generation() int { return s.currentGeneration }

// BestFitnessEver returns the best fitness observed across all updates.
func (s *AdaptiveScheduler) BestFitnessEver() float64 { return s.bestFitnessEver }

// Update folds one generation's outcome into the tracking state: advances
// the generation counter, records best fitness into the sliding window,
// updates the stagnation counter and smooths diversity.
func (s *AdaptiveScheduler) Update(bestFitness, avgFitness, diversity float64) {
	_ = avgFitness // tracked upstream; the window holds best fitness only

	s.currentGeneration++
	s.currentPhase = s.CurrentPhase()

	s.fitnessHistory[s.historyPosition] = bestFitness
	s.historyPosition = (s.historyPosition + 1) % len(s.fitnessHistory)

	if bestFitness > s.bestFitnessEver {
		s.bestFitnessEver = bestFitness
		s.generationsSinceImprovement = 0
	} else {
		s.generationsSinceImprovement++
	}

	s.currentDiversity = diversity
	s.avgDiversity = diversityEMASmoothing*diversity +
		(1.0-diversityEMASmoothing)*s.avgDiversity
}

// IsStagnant reports whether the run has gone at least the stagnation
// threshold without a new best fitness.
func (s *AdaptiveScheduler) IsStagnant() bool {
	return s.generationsSinceImprovement >= s.stagnationThreshold
}

// ImprovementRate returns the linear trend (slope) of the best-fitness
// window. Unfilled history slots are ignored.
func (s *AdaptiveScheduler) ImprovementRate() float64 {
	var sumX, sumY, sumXY, sumXX float64
	validCount := 0

	for i, y := range s.fitnessHistory {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		validCount++
	}

	if validCount < 2 {
		return 0
	}

	n := float64(validCount)
	denom := n*sumXX - sumX*sumX
	if math.Abs(denom) < 1e-12 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// FitnessVariance returns the coefficient of variation (stddev over absolute
// mean) of the best-fitness window, 0 when the mean is near zero.
func (s *AdaptiveScheduler) FitnessVariance() float64 {
	sum := 0.0
	validCount := 0
	for _, v := range s.fitnessHistory {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		validCount++
	}
	if validCount <= 1 {
		return 0
	}

	mean := sum / float64(validCount)

	sumSq := 0.0
	for _, v := range s.fitnessHistory {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		diff := v - mean
		sumSq += diff * diff
	}
	stddev := math.Sqrt(sumSq / float64(validCount))

	if math.Abs(mean) < 1e-9 {
		return 0
	}
	return stddev / math.Abs(mean)
}

// MutationRate derives the current mutation rate: exponential decay from the
// initial rate by progress, boosted 3x under stagnation and 1.5x under low
// diversity, floored at the minimum rate.
func (s *AdaptiveScheduler) MutationRate() float64 {
	rate := s.initialMutationRate * math.Exp(-s.decayAlpha*s.Progress())

	if s.IsStagnant() {
		rate *= s.stagnationBoostFactor
	}
	if s.currentDiversity < s.minDiversityThreshold {
		rate *= s.diversityBoostFactor
	}
	if rate < s.minMutationRate {
		rate = s.minMutationRate
	}

	s.currentMutationRate = rate
	return rate
}

// SelectionPressure maps fitness variance to a kill percentage: spread-out
// fitness gets gentle selection, a flat landscape gets aggressive culling.
func (s *AdaptiveScheduler) SelectionPressure(fitnessVariance float64) float64 {
	var killPct float64
	switch {
	case fitnessVariance > s.highVarianceThreshold:
		killPct = s.highVarianceKillPct
	case fitnessVariance < s.lowVarianceThreshold:
		killPct = s.lowVarianceKillPct
	default:
		killPct = s.mediumVarianceKillPct
	}

	s.currentKillPercentage = killPct
	return killPct
}

// PopulationSize derives the target population size for the current phase:
// full size early, linear contraction through the mid phase, final size
// late, expanded 1.5x under stagnation.
func (s *AdaptiveScheduler) PopulationSize() int {
	var target int
	switch s.currentPhase {
	case PhaseEarly:
		target = s.initialPopulationSize
	case PhaseMid:
		midProgress := (s.Progress() - phaseEarlyEnd) / (phaseMidEnd - phaseEarlyEnd)
		target = s.initialPopulationSize -
			int(float64(s.initialPopulationSize-s.finalPopulationSize)*midProgress)
	case PhaseLate:
		target = s.finalPopulationSize
	default:
		target = s.initialPopulationSize
	}

	if s.IsStagnant() {
		target = int(float64(target) * stagnationExpansionFactor)
	}

	s.currentPopulationSize = target
	return target
}

// ApplyToMeta writes the scheduler's derived values into a parameter set:
// mutation rates, culling ratio, target size and a phase-based exploration
// factor.
func (s *AdaptiveScheduler) ApplyToMeta(params *meta.Params) error {
	if params == nil {
		return errors.New(errors.InvalidArgument, "nil params")
	}

	mutationRate := s.MutationRate()
	pressure := s.SelectionPressure(s.FitnessVariance())
	size := s.PopulationSize()

	params.OptimizationMutationRate = mutationRate
	params.VarianceMutationRate = mutationRate * 1.2
	params.CullingRatio = pressure
	params.TargetPopulationSize = size

	switch s.currentPhase {
	case PhaseEarly:
		params.ExplorationFactor = 0.7
	case PhaseMid:
		params.ExplorationFactor = 0.5
	case PhaseLate:
		params.ExplorationFactor = 0.2
	}

	return nil
}

// TriggerRecovery forces a stagnation escape: boosts the current mutation
// rate, expands the population and resets the stagnation counter.
func (s *AdaptiveScheduler) TriggerRecovery() {
	logging.GetLogger().Info(context.Background(),
		"stagnation recovery triggered at generation %d", s.currentGeneration)

	s.currentMutationRate *= s.stagnationBoostFactor
	s.currentPopulationSize = int(float64(s.currentPopulationSize) * stagnationExpansionFactor)
	s.generationsSinceImprovement = 0
}

// DiversityIntervention picks an action for the given diversity level. The
// mild tier boosts the current mutation rate as a side effect; the random
// injection tiers are carried out by the engine.
func (s *AdaptiveScheduler) DiversityIntervention(diversity float64) Intervention {
	logger := logging.GetLogger()
	ctx := context.Background()

	switch {
	case diversity < 0.1:
		logger.Warn(ctx, "diversity critical (%.3f): adding 20%% random individuals", diversity)
		return InterventionAddRandom20
	case diversity < 0.2:
		logger.Warn(ctx, "diversity low (%.3f): adding 10%% random individuals", diversity)
		return InterventionAddRandom10
	case diversity < 0.3:
		logger.Info(ctx, "diversity below target (%.3f): increasing mutation rate", diversity)
		s.currentMutationRate *= s.diversityBoostFactor
		return InterventionIncreaseMutation
	default:
		return InterventionNone
	}
}

// StateString summarizes the scheduler for logs and diagnostics.
func (s *AdaptiveScheduler) StateString() string {
	return fmt.Sprintf("Gen=%d/%d Phase=%s Mut=%.4f Kill=%.2f Pop=%d Div=%.3f Stag=%d",
		s.currentGeneration,
		s.maxGenerations,
		s.currentPhase,
		s.currentMutationRate,
		s.currentKillPercentage,
		s.currentPopulationSize,
		s.currentDiversity,
		s.generationsSinceImprovement)
}

// CurrentMutationRate returns the last derived mutation rate without
// recomputing it.
func (s *AdaptiveScheduler) CurrentMutationRate() float64 { return s.currentMutationRate }

// CurrentPopulationSize returns the last derived population size without
// recomputing it.
func (s *AdaptiveScheduler) CurrentPopulationSize() int { return s.currentPopulationSize }

// AvgDiversity returns the smoothed diversity average.
func (s *AdaptiveScheduler) AvgDiversity() float64 { return s.avgDiversity }
