package domain

import (
	"math/rand"

	"github.com/XiaoConstantine/evogo/pkg/genome"
)

// Sphere is the classic continuous benchmark adapted to byte genomes: each
// byte maps to a coordinate in [-1,1] and fitness is the negated sum of
// squares, so the optimum sits at the center of the search space. Useful for
// smoke-testing engines and accelerator backends.
type Sphere struct {
	Dimensions int
}

// NewSphere creates a sphere domain over the given number of byte
// dimensions.
func NewSphere(dimensions int) *Sphere {
	if dimensions <= 0 {
		dimensions = 16
	}
	return &Sphere{Dimensions: dimensions}
}

func (s *Sphere) Name() string    { return "sphere" }
func (s *Sphere) Version() string { return "1.0.0" }

func (s *Sphere) GenomeSize() int { return s.Dimensions }

// RandomInit sizes the genome to the domain's dimensions and randomizes it.
func (s *Sphere) RandomInit(g *genome.Genome, rng *rand.Rand) error {
	if g.Capacity() < s.Dimensions {
		if err := g.Resize(s.Dimensions); err != nil {
			return err
		}
	}
	if err := g.SetSize(s.Dimensions); err != nil {
		return err
	}
	return g.Randomize(rng)
}

func (s *Sphere) Mutate(g *genome.Genome, rate float64, rng *rand.Rand) error {
	return genome.Mutate(g, rate, rng)
}

func (s *Sphere) Crossover(p1, p2 *genome.Genome, rng *rand.Rand) (*genome.Genome, *genome.Genome, error) {
	return genome.Crossover(p1, p2, rng)
}

// Fitness maps each byte to [-1,1] and returns the negated sum of squares.
// The all-128 genome scores near the maximum of 0.
func (s *Sphere) Fitness(g *genome.Genome, _ interface{}) float64 {
	sum := 0.0
	for _, b := range g.Bytes() {
		x := float64(b)/127.5 - 1.0
		sum += x * x
	}
	return -sum
}
