package genome

import (
	"math/rand"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

// Crossover performs uniform crossover over the common prefix of the two
// parents. Each byte is drawn 50/50 from either parent, with the draw swapped
// between the two children so they are complementary. Both parents are
// validated before any child is allocated.
func Crossover(parent1, parent2 *Genome, rng *rand.Rand) (*Genome, *Genome, error) {
	if parent1 == nil || parent2 == nil || rng == nil {
		return nil, nil, errors.New(errors.InvalidArgument, "nil crossover argument")
	}

	size := parent1.size
	if parent2.size < size {
		size = parent2.size
	}

	child1 := New(size)
	child2 := New(size)
	child1.size = size
	child2.size = size

	for i := 0; i < size; i++ {
		if rng.Intn(2) == 1 {
			child1.data[i] = parent1.data[i]
			child2.data[i] = parent2.data[i]
		} else {
			child1.data[i] = parent2.data[i]
			child2.data[i] = parent1.data[i]
		}
	}

	return child1, child2, nil
}

// Mutate replaces each byte independently with a fresh random byte with
// probability rate. A rate of 0 leaves the genome untouched; a rate of 1
// replaces every byte.
func Mutate(g *Genome, rate float64, rng *rand.Rand) error {
	if g == nil || rng == nil {
		return errors.New(errors.InvalidArgument, "nil mutate argument")
	}
	if rate < 0 || rate > 1 {
		return errors.WithFields(
			errors.New(errors.InvalidArgument, "mutation rate outside [0,1]"),
			errors.Fields{"rate": rate},
		)
	}
	if g.size == 0 {
		return errors.New(errors.GenomeEmpty, "genome has no data")
	}

	for i := 0; i < g.size; i++ {
		if rng.Float64() < rate {
			g.data[i] = byte(rng.Intn(256))
		}
	}
	return nil
}
