// Package population manages the set of individuals evolved together in one
// generation: lifecycle, cached aggregate statistics, selection and batch
// evaluation bookkeeping.
package population

import (
	"math"
	"math/rand"
	"sort"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/genome"
)

// FitnessFunc scores a genome. Returning NaN marks the genome invalid.
type FitnessFunc func(g *genome.Genome, ctx interface{}) float64

// Individual pairs a genome with its fitness. A NaN fitness means
// "not yet evaluated" and is the sentinel the evaluator scans for.
type Individual struct {
	Genome  *genome.Genome
	Fitness float64
}

// Evaluated reports whether the individual has a valid fitness score.
func (ind *Individual) Evaluated() bool {
	return !math.IsNaN(ind.Fitness)
}

// Population holds individuals plus cached aggregate statistics. The cached
// fields are only valid immediately after UpdateStats.
type Population struct {
	individuals []*Individual
	capacity    int
	generation  int

	bestFitness  float64
	avgFitness   float64
	worstFitness float64
	bestIndex    int
}

// New creates an empty population with the given capacity.
func New(capacity int) (*Population, error) {
	if capacity <= 0 {
		return nil, errors.New(errors.InvalidArgument, "population capacity must be positive")
	}
	return &Population{
		individuals:  make([]*Individual, 0, capacity),
		capacity:     capacity,
		bestFitness:  math.Inf(-1),
		worstFitness: math.Inf(1),
		avgFitness:   math.NaN(),
	}, nil
}

// Add clones the caller's genome and appends a new individual. The population
// never aliases caller-owned memory. Returns PopulationFull at capacity; the
// caller is expected to prune or resize and retry.
func (p *Population) Add(g *genome.Genome, fitness float64) error {
	if g == nil {
		return errors.New(errors.InvalidArgument, "nil genome")
	}
	if len(p.individuals) >= p.capacity {
		return errors.WithFields(
			errors.New(errors.PopulationFull, "population at capacity"),
			errors.Fields{"capacity": p.capacity},
		)
	}

	p.individuals = append(p.individuals, &Individual{
		Genome:  g.Clone(),
		Fitness: fitness,
	})
	return nil
}

// Remove releases the individual at index and shifts the rest down.
func (p *Population) Remove(index int) error {
	if index < 0 || index >= len(p.individuals) {
		return errors.WithFields(
			errors.New(errors.InvalidArgument, "index out of range"),
			errors.Fields{"index": index, "size": len(p.individuals)},
		)
	}
	p.individuals = append(p.individuals[:index], p.individuals[index+1:]...)
	return nil
}

// ResizeCapacity changes the capacity, truncating individuals if shrinking.
func (p *Population) ResizeCapacity(newCapacity int) error {
	if newCapacity <= 0 {
		return errors.New(errors.InvalidArgument, "population capacity must be positive")
	}
	if len(p.individuals) > newCapacity {
		p.individuals = p.individuals[:newCapacity]
	}
	p.capacity = newCapacity
	return nil
}

// Truncate drops individuals beyond n, keeping the first n.
func (p *Population) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(p.individuals) {
		p.individuals = p.individuals[:n]
	}
}

// Clear removes all individuals and resets counters.
func (p *Population) Clear() {
	p.individuals = p.individuals[:0]
	p.generation = 0
	p.bestFitness = math.Inf(-1)
	p.worstFitness = math.Inf(1)
	p.avgFitness = math.NaN()
	p.bestIndex = 0
}

// Get returns the individual at index, or nil when out of range.
func (p *Population) Get(index int) *Individual {
	if index < 0 || index >= len(p.individuals) {
		return nil
	}
	return p.individuals[index]
}

// Best returns the cached best individual. Callers must have run UpdateStats
// since the last mutation for the result to be meaningful.
func (p *Population) Best() *Individual {
	if len(p.individuals) == 0 || p.bestIndex >= len(p.individuals) {
		return nil
	}
	return p.individuals[p.bestIndex]
}

func (p *Population) Size() int       { return len(p.individuals) }
func (p *Population) Capacity() int   { return p.capacity }
func (p *Population) Generation() int { return p.generation }

// IncrementGeneration advances the generation counter.
func (p *Population) IncrementGeneration() { p.generation++ }

// BestFitness returns the cached best fitness.
func (p *Population) BestFitness() float64 { return p.bestFitness }

// AvgFitness returns the cached average fitness, NaN when no individual has a
// valid score.
func (p *Population) AvgFitness() float64 { return p.avgFitness }

// WorstFitness returns the cached worst fitness.
func (p *Population) WorstFitness() float64 { return p.worstFitness }

// BestIndex returns the cached index of the best individual.
func (p *Population) BestIndex() int { return p.bestIndex }

// UpdateStats recomputes best/avg/worst over non-NaN fitness in one pass.
func (p *Population) UpdateStats() {
	if len(p.individuals) == 0 {
		p.bestFitness = math.Inf(-1)
		p.worstFitness = math.Inf(1)
		p.avgFitness = math.NaN()
		p.bestIndex = 0
		return
	}

	sum := 0.0
	best := math.Inf(-1)
	worst := math.Inf(1)
	bestIdx := 0
	validCount := 0

	for i, ind := range p.individuals {
		f := ind.Fitness
		if math.IsNaN(f) {
			continue
		}

		sum += f
		validCount++

		if f > best {
			best = f
			bestIdx = i
		}
		if f < worst {
			worst = f
		}
	}

	p.bestFitness = best
	if math.IsInf(worst, 1) {
		p.worstFitness = math.Inf(-1)
	} else {
		p.worstFitness = worst
	}
	p.bestIndex = bestIdx

	if validCount > 0 {
		p.avgFitness = sum / float64(validCount)
	} else {
		p.avgFitness = math.NaN()
	}
}

// Sort orders individuals descending by fitness with NaN values last, then
// refreshes the cached stats so the best index points at position 0.
func (p *Population) Sort() {
	if len(p.individuals) >= 2 {
		sort.Slice(p.individuals, func(i, j int) bool {
			fi, fj := p.individuals[i].Fitness, p.individuals[j].Fitness
			if math.IsNaN(fi) {
				return false
			}
			if math.IsNaN(fj) {
				return true
			}
			return fi > fj
		})
	}
	p.UpdateStats()
}

// TournamentSelect draws k uniform indices with replacement and returns the
// index with the highest non-NaN fitness seen. When every sampled fitness is
// NaN the first index drawn wins, so selection never fails on a fully
// unevaluated population.
func (p *Population) TournamentSelect(k int, rng *rand.Rand) (int, error) {
	if rng == nil {
		return 0, errors.New(errors.InvalidArgument, "nil rng")
	}
	if len(p.individuals) == 0 {
		return 0, errors.New(errors.PopulationEmpty, "cannot select from empty population")
	}

	if k > len(p.individuals) {
		k = len(p.individuals)
	}

	bestIdx := rng.Intn(len(p.individuals))
	bestFitness := p.individuals[bestIdx].Fitness

	for i := 1; i < k; i++ {
		idx := rng.Intn(len(p.individuals))
		f := p.individuals[idx].Fitness

		if !math.IsNaN(f) && (math.IsNaN(bestFitness) || f > bestFitness) {
			bestFitness = f
			bestIdx = idx
		}
	}

	return bestIdx, nil
}

// Evaluate scores every individual whose fitness is NaN, leaving
// already-scored individuals untouched, and refreshes stats when anything
// was evaluated. Returns the number of evaluations performed.
func (p *Population) Evaluate(fn FitnessFunc, ctx interface{}) int {
	if fn == nil {
		return 0
	}

	evaluated := 0
	for _, ind := range p.individuals {
		if math.IsNaN(ind.Fitness) {
			ind.Fitness = fn(ind.Genome, ctx)
			evaluated++
		}
	}

	if evaluated > 0 {
		p.UpdateStats()
	}
	return evaluated
}

// Genomes returns the genome of every individual in order. Used to assemble
// evaluation batches.
func (p *Population) Genomes() []*genome.Genome {
	out := make([]*genome.Genome, len(p.individuals))
	for i, ind := range p.individuals {
		out[i] = ind.Genome
	}
	return out
}

// SetFitness assigns a fitness to the individual at index.
func (p *Population) SetFitness(index int, fitness float64) error {
	if index < 0 || index >= len(p.individuals) {
		return errors.New(errors.InvalidArgument, "index out of range")
	}
	p.individuals[index].Fitness = fitness
	return nil
}

// Unevaluated returns the indices of individuals whose fitness is still NaN.
func (p *Population) Unevaluated() []int {
	var out []int
	for i, ind := range p.individuals {
		if math.IsNaN(ind.Fitness) {
			out = append(out, i)
		}
	}
	return out
}
