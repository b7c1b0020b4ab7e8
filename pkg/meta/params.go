// Package meta implements the self-tuning layer: evolution parameters are
// themselves evolved by a small meta-population whose individuals are scored
// on how well their parameter sets drive the base run.
package meta

import (
	"math/rand"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

// Params is the full set of tunable evolution parameters. Every field carries
// its legal range as a validation tag; Mutate perturbs fields within the same
// ranges.
type Params struct {
	// Mutation rates.
	OptimizationMutationRate float64 `yaml:"optimization_mutation_rate" validate:"gte=0.01,lte=0.50"`
	VarianceMutationRate     float64 `yaml:"variance_mutation_rate" validate:"gte=0.05,lte=0.50"`
	ExperimentationRate      float64 `yaml:"experimentation_rate" validate:"gte=0.01,lte=0.30"`

	// Selection pressure.
	EliteProtectionRatio        float64 `yaml:"elite_protection_ratio" validate:"gte=0.05,lte=0.30"`
	CullingRatio                float64 `yaml:"culling_ratio" validate:"gte=0.10,lte=0.50"`
	FitnessThresholdForBreeding float64 `yaml:"fitness_threshold_for_breeding"`

	// Population dynamics.
	TargetPopulationSize int `yaml:"target_population_size" validate:"gte=50,lte=10000"`
	MinPopulationSize    int `yaml:"min_population_size" validate:"gte=10,ltefield=TargetPopulationSize"`
	MaxPopulationSize    int `yaml:"max_population_size" validate:"gtefield=TargetPopulationSize,lte=20000"`

	// Learning parameters.
	LearningRate        float64 `yaml:"learning_rate" validate:"gte=0.01,lte=1.0"`
	ExplorationFactor   float64 `yaml:"exploration_factor" validate:"gte=0.0,lte=1.0"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gte=0.0,lte=1.0"`

	// Breeding ratios.
	ProfitableOptimizationRatio float64 `yaml:"profitable_optimization_ratio" validate:"gte=0.5,lte=1.0"`
	ProfitableRandomRatio       float64 `yaml:"profitable_random_ratio" validate:"gte=0.0,lte=0.2"`
	LosingOptimizationRatio     float64 `yaml:"losing_optimization_ratio" validate:"gte=0.2,lte=0.8"`
	LosingRandomRatio           float64 `yaml:"losing_random_ratio" validate:"gte=0.1,lte=0.5"`

	// Meta-meta parameters governing the meta-layer itself.
	MetaMutationRate         float64 `yaml:"meta_mutation_rate" validate:"gte=0.01,lte=0.20"`
	MetaLearningRate         float64 `yaml:"meta_learning_rate" validate:"gte=0.01,lte=0.50"`
	MetaConvergenceThreshold float64 `yaml:"meta_convergence_threshold" validate:"gte=0.001,lte=0.1"`
}

// DefaultParams returns the baseline parameter set every run starts from.
func DefaultParams() Params {
	return Params{
		OptimizationMutationRate: 0.05,
		VarianceMutationRate:     0.15,
		ExperimentationRate:      0.05,

		EliteProtectionRatio:        0.10,
		CullingRatio:                0.25,
		FitnessThresholdForBreeding: 0.0,

		TargetPopulationSize: 500,
		MinPopulationSize:    50,
		MaxPopulationSize:    2000,

		LearningRate:        0.1,
		ExplorationFactor:   0.3,
		ConfidenceThreshold: 0.7,

		ProfitableOptimizationRatio: 0.80,
		ProfitableRandomRatio:       0.05,
		LosingOptimizationRatio:     0.50,
		LosingRandomRatio:           0.25,

		MetaMutationRate:         0.05,
		MetaLearningRate:         0.1,
		MetaConvergenceThreshold: 0.01,
	}
}

var validate = validator.New()

// Validate checks every field against its legal range, including the
// min <= target <= max population ordering.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.ValidationFailed, "meta parameters out of range"),
			errors.Fields{"params": p},
		)
	}
	return nil
}

// Clone returns an independent copy.
func (p *Params) Clone() Params {
	return *p
}

// FieldSpec describes one named parameter: accessors plus the legal range.
// Specs replace per-field boilerplate for lookup, mutation and reporting.
type FieldSpec struct {
	Name string
	Min  float64
	Max  float64
	// Integer fields are mutated with additive steps instead of relative
	// perturbation.
	Integer bool
	// Mutable marks fields perturbed by Mutate. Structural fields such as
	// population bounds stay fixed within one run.
	Mutable bool
	Get     func(*Params) float64
	Set     func(*Params, float64)
}

// Fields lists every parameter in declaration order.
var Fields = []FieldSpec{
	{Name: "optimization_mutation_rate", Min: 0.01, Max: 0.50, Mutable: true,
		Get: func(p *Params) float64 { return p.OptimizationMutationRate },
		Set: func(p *Params, v float64) { p.OptimizationMutationRate = v }},
	{Name: "variance_mutation_rate", Min: 0.05, Max: 0.50, Mutable: true,
		Get: func(p *Params) float64 { return p.VarianceMutationRate },
		Set: func(p *Params, v float64) { p.VarianceMutationRate = v }},
	{Name: "experimentation_rate", Min: 0.01, Max: 0.30, Mutable: true,
		Get: func(p *Params) float64 { return p.ExperimentationRate },
		Set: func(p *Params, v float64) { p.ExperimentationRate = v }},
	{Name: "elite_protection_ratio", Min: 0.05, Max: 0.30, Mutable: true,
		Get: func(p *Params) float64 { return p.EliteProtectionRatio },
		Set: func(p *Params, v float64) { p.EliteProtectionRatio = v }},
	{Name: "culling_ratio", Min: 0.10, Max: 0.50, Mutable: true,
		Get: func(p *Params) float64 { return p.CullingRatio },
		Set: func(p *Params, v float64) { p.CullingRatio = v }},
	{Name: "fitness_threshold_for_breeding",
		Get: func(p *Params) float64 { return p.FitnessThresholdForBreeding },
		Set: func(p *Params, v float64) { p.FitnessThresholdForBreeding = v }},
	{Name: "target_population_size", Min: 50, Max: 10000, Integer: true, Mutable: true,
		Get: func(p *Params) float64 { return float64(p.TargetPopulationSize) },
		Set: func(p *Params, v float64) { p.TargetPopulationSize = int(v) }},
	{Name: "min_population_size", Min: 10, Max: 10000, Integer: true,
		Get: func(p *Params) float64 { return float64(p.MinPopulationSize) },
		Set: func(p *Params, v float64) { p.MinPopulationSize = int(v) }},
	{Name: "max_population_size", Min: 50, Max: 20000, Integer: true,
		Get: func(p *Params) float64 { return float64(p.MaxPopulationSize) },
		Set: func(p *Params, v float64) { p.MaxPopulationSize = int(v) }},
	{Name: "learning_rate", Min: 0.01, Max: 1.0, Mutable: true,
		Get: func(p *Params) float64 { return p.LearningRate },
		Set: func(p *Params, v float64) { p.LearningRate = v }},
	{Name: "exploration_factor", Min: 0.0, Max: 1.0, Mutable: true,
		Get: func(p *Params) float64 { return p.ExplorationFactor },
		Set: func(p *Params, v float64) { p.ExplorationFactor = v }},
	{Name: "confidence_threshold", Min: 0.0, Max: 1.0, Mutable: true,
		Get: func(p *Params) float64 { return p.ConfidenceThreshold },
		Set: func(p *Params, v float64) { p.ConfidenceThreshold = v }},
	{Name: "profitable_optimization_ratio", Min: 0.5, Max: 1.0, Mutable: true,
		Get: func(p *Params) float64 { return p.ProfitableOptimizationRatio },
		Set: func(p *Params, v float64) { p.ProfitableOptimizationRatio = v }},
	{Name: "profitable_random_ratio", Min: 0.0, Max: 0.2, Mutable: true,
		Get: func(p *Params) float64 { return p.ProfitableRandomRatio },
		Set: func(p *Params, v float64) { p.ProfitableRandomRatio = v }},
	{Name: "losing_optimization_ratio", Min: 0.2, Max: 0.8, Mutable: true,
		Get: func(p *Params) float64 { return p.LosingOptimizationRatio },
		Set: func(p *Params, v float64) { p.LosingOptimizationRatio = v }},
	{Name: "losing_random_ratio", Min: 0.1, Max: 0.5, Mutable: true,
		Get: func(p *Params) float64 { return p.LosingRandomRatio },
		Set: func(p *Params, v float64) { p.LosingRandomRatio = v }},
	{Name: "meta_mutation_rate", Min: 0.01, Max: 0.20, Mutable: true,
		Get: func(p *Params) float64 { return p.MetaMutationRate },
		Set: func(p *Params, v float64) { p.MetaMutationRate = v }},
	{Name: "meta_learning_rate", Min: 0.01, Max: 0.50, Mutable: true,
		Get: func(p *Params) float64 { return p.MetaLearningRate },
		Set: func(p *Params, v float64) { p.MetaLearningRate = v }},
	{Name: "meta_convergence_threshold", Min: 0.001, Max: 0.1, Mutable: true,
		Get: func(p *Params) float64 { return p.MetaConvergenceThreshold },
		Set: func(p *Params, v float64) { p.MetaConvergenceThreshold = v }},
}

// Get returns the named parameter's value, or 0 and an error for an unknown
// name.
func (p *Params) Get(name string) (float64, error) {
	for i := range Fields {
		if Fields[i].Name == name {
			return Fields[i].Get(p), nil
		}
	}
	return 0, errors.WithFields(
		errors.New(errors.InvalidArgument, "unknown meta parameter"),
		errors.Fields{"name": name},
	)
}

// Set assigns the named parameter. The value is not range-checked here;
// callers validate the whole struct afterwards.
func (p *Params) Set(name string, value float64) error {
	for i := range Fields {
		if Fields[i].Name == name {
			Fields[i].Set(p, value)
			return nil
		}
	}
	return errors.WithFields(
		errors.New(errors.InvalidArgument, "unknown meta parameter"),
		errors.Fields{"name": name},
	)
}

// Mutate perturbs each mutable field independently with probability
// MetaMutationRate. Continuous fields get a relative nudge of up to ±10%,
// clamped to the legal range; the integer target size moves by an additive
// step of up to ±50.
func (p *Params) Mutate(rng *rand.Rand) {
	rate := p.MetaMutationRate

	for i := range Fields {
		spec := &Fields[i]
		if !spec.Mutable {
			continue
		}
		if rng.Float64() >= rate {
			continue
		}

		if spec.Integer {
			v := spec.Get(p) + float64(rng.Intn(100)-50)
			if v < spec.Min {
				v = spec.Min
			}
			if v > spec.Max {
				v = spec.Max
			}
			spec.Set(p, v)
			continue
		}

		delta := (rng.Float64() - 0.5) * 0.2
		v := spec.Get(p) * (1.0 + delta)
		if v < spec.Min {
			v = spec.Min
		}
		if v > spec.Max {
			v = spec.Max
		}
		spec.Set(p, v)
	}
}
