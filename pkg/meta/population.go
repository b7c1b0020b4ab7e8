package meta

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/logging"
)

// MaxIndividuals caps the meta-population size. Each meta-individual costs a
// full trial run to score, so the layer stays small.
const MaxIndividuals = 20

// MetaPopulation evolves parameter sets. It keeps a snapshot of the best
// parameters ever seen so a later regression cannot lose them.
type MetaPopulation struct {
	individuals []*Individual
	generation  int

	bestMetaFitness float64
	bestParams      Params
}

// Init creates a meta-population of the given size. The first individual
// carries the defaults untouched; the rest are mutated variants for initial
// diversity.
func Init(size int, rng *rand.Rand) (*MetaPopulation, error) {
	if size < 1 || size > MaxIndividuals {
		return nil, errors.WithFields(
			errors.New(errors.InvalidArgument, "meta-population size out of range"),
			errors.Fields{"size": size, "max": MaxIndividuals},
		)
	}
	if rng == nil {
		return nil, errors.New(errors.InvalidArgument, "nil rng")
	}

	mp := &MetaPopulation{
		individuals:     make([]*Individual, size),
		bestMetaFitness: math.Inf(-1),
		bestParams:      DefaultParams(),
	}

	for i := 0; i < size; i++ {
		params := DefaultParams()
		if i > 0 {
			params.Mutate(rng)
		}
		mp.individuals[i] = NewIndividual(params)
	}

	logging.GetLogger().Debug(context.Background(),
		"meta-population initialized with %d individuals", size)
	return mp, nil
}

// Count returns the number of meta-individuals.
func (mp *MetaPopulation) Count() int { return len(mp.individuals) }

// Generation returns how many times Evolve has run.
func (mp *MetaPopulation) Generation() int { return mp.generation }

// Get returns the individual at index, nil when out of range.
func (mp *MetaPopulation) Get(index int) *Individual {
	if index < 0 || index >= len(mp.individuals) {
		return nil
	}
	return mp.individuals[index]
}

// Best returns the individual with the highest current meta-fitness.
func (mp *MetaPopulation) Best() *Individual {
	if len(mp.individuals) == 0 {
		return nil
	}

	best := mp.individuals[0]
	for _, ind := range mp.individuals[1:] {
		if ind.MetaFitness > best.MetaFitness {
			best = ind
		}
	}
	return best
}

// BestParams returns the best parameter set ever observed across all
// generations, independent of the current population's state.
func (mp *MetaPopulation) BestParams() Params {
	return mp.bestParams.Clone()
}

// BestMetaFitness returns the all-time best meta-fitness.
func (mp *MetaPopulation) BestMetaFitness() float64 { return mp.bestMetaFitness }

// Sort orders individuals by meta-fitness, best first.
func (mp *MetaPopulation) Sort() {
	sort.SliceStable(mp.individuals, func(i, j int) bool {
		return mp.individuals[i].MetaFitness > mp.individuals[j].MetaFitness
	})
}

// Evolve runs one meta-generation: sort by fitness, snapshot the best-ever
// parameters, keep the top 30% as elite and replace the bottom half with
// mutated clones of the better of two randomly drawn elites.
func (mp *MetaPopulation) Evolve(rng *rand.Rand) error {
	if rng == nil {
		return errors.New(errors.InvalidArgument, "nil rng")
	}

	mp.Sort()

	best := mp.individuals[0]
	if best.MetaFitness > mp.bestMetaFitness {
		mp.bestMetaFitness = best.MetaFitness
		mp.bestParams = best.Params.Clone()
	}

	count := len(mp.individuals)
	eliteCount := int(float64(count) * 0.3)
	if eliteCount < 1 {
		eliteCount = 1
	}

	replaceStart := count - int(float64(count)*0.5)
	for i := replaceStart; i < count; i++ {
		p1 := rng.Intn(eliteCount)
		p2 := rng.Intn(eliteCount)

		better := p1
		if mp.individuals[p2].MetaFitness > mp.individuals[p1].MetaFitness {
			better = p2
		}

		child := NewIndividual(mp.individuals[better].Params.Clone())
		child.Params.Mutate(rng)
		mp.individuals[i] = child
	}

	mp.generation++

	logging.GetLogger().Debug(context.Background(),
		"meta-population evolved to generation %d", mp.generation)
	return nil
}

// Converged reports whether the best individual's improvement trend has
// flattened below threshold after at least the given number of generations.
func (mp *MetaPopulation) Converged(threshold float64, generations int) bool {
	if mp.generation < generations {
		return false
	}

	best := mp.Best()
	if best == nil {
		return false
	}
	return math.Abs(best.ImprovementTrend()) < threshold
}
