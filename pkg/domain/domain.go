// Package domain defines the pluggable problem-domain contract: how genomes
// are initialized, varied and scored for one problem, plus a registry for
// looking domains up by name.
package domain

import (
	"math/rand"

	"github.com/XiaoConstantine/evogo/pkg/genome"
	"github.com/XiaoConstantine/evogo/pkg/population"
	"github.com/XiaoConstantine/evogo/pkg/stats"
)

// Domain describes one optimization problem. The engine is domain-agnostic;
// everything problem-specific flows through this interface.
type Domain interface {
	// Name uniquely identifies the domain within a registry.
	Name() string

	// Version is informational, surfaced in logs and telemetry.
	Version() string

	// GenomeSize returns the nominal genome size in bytes for this
	// problem, used for batch memory budgeting.
	GenomeSize() int

	// RandomInit fills a genome with a random valid starting point.
	RandomInit(g *genome.Genome, rng *rand.Rand) error

	// Mutate perturbs a genome in place with the given per-element rate.
	Mutate(g *genome.Genome, rate float64, rng *rand.Rand) error

	// Crossover recombines two parents into two children.
	Crossover(p1, p2 *genome.Genome, rng *rand.Rand) (*genome.Genome, *genome.Genome, error)

	// Fitness scores a genome; higher is better, NaN marks it invalid.
	Fitness(g *genome.Genome, userCtx interface{}) float64
}

// DiversityScorer is an optional extension for domains with a better notion
// of distance than raw bytes.
type DiversityScorer interface {
	Diversity(pop *population.Population, rng *rand.Rand) float64
}

// Diversity measures population diversity for a domain, using the domain's
// own scorer when it has one and the sampled Hamming estimate otherwise.
func Diversity(d Domain, pop *population.Population, rng *rand.Rand) float64 {
	if ds, ok := d.(DiversityScorer); ok {
		return ds.Diversity(pop, rng)
	}
	return stats.Diversity(pop, rng)
}
