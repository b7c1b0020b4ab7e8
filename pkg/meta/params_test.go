package meta

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

func TestDefaultParamsValid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())

	assert.Equal(t, 0.05, p.OptimizationMutationRate)
	assert.Equal(t, 500, p.TargetPopulationSize)
	assert.Equal(t, 0.25, p.CullingRatio)
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"Mutation rate too low", func(p *Params) { p.OptimizationMutationRate = 0.001 }},
		{"Mutation rate too high", func(p *Params) { p.OptimizationMutationRate = 0.9 }},
		{"Culling ratio too high", func(p *Params) { p.CullingRatio = 0.75 }},
		{"Target below floor", func(p *Params) { p.TargetPopulationSize = 10 }},
		{"Min above target", func(p *Params) { p.MinPopulationSize = 600 }},
		{"Max below target", func(p *Params) { p.MaxPopulationSize = 100 }},
		{"Meta mutation rate too high", func(p *Params) { p.MetaMutationRate = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)

			err := p.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ValidationFailed, errors.CodeOf(err))
		})
	}
}

func TestParamsGetSet(t *testing.T) {
	p := DefaultParams()

	v, err := p.Get("culling_ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	require.NoError(t, p.Set("culling_ratio", 0.4))
	v, err = p.Get("culling_ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.4, v)

	// Integer fields round-trip through the same accessors.
	require.NoError(t, p.Set("target_population_size", 750))
	assert.Equal(t, 750, p.TargetPopulationSize)

	_, err = p.Get("no_such_parameter")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
	assert.Error(t, p.Set("no_such_parameter", 1))
}

func TestFieldSpecsCoverEveryParameter(t *testing.T) {
	// One spec per struct field, no duplicates.
	seen := map[string]bool{}
	for _, spec := range Fields {
		assert.False(t, seen[spec.Name], "duplicate spec %q", spec.Name)
		seen[spec.Name] = true
	}
	assert.Len(t, Fields, 19)
}

func TestMutateStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	// Force frequent mutation and hammer it; every field must stay inside
	// its own legal range throughout.
	p := DefaultParams()
	p.MetaMutationRate = 0.20

	for i := 0; i < 500; i++ {
		p.Mutate(rng)
		for _, spec := range Fields {
			if !spec.Mutable {
				continue
			}
			v := spec.Get(&p)
			require.GreaterOrEqual(t, v, spec.Min, "%s at iteration %d", spec.Name, i)
			require.LessOrEqual(t, v, spec.Max, "%s at iteration %d", spec.Name, i)
		}
	}
}

func TestMutateChangesSomething(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	p := DefaultParams()
	p.MetaMutationRate = 0.20
	original := p.Clone()

	changed := false
	for i := 0; i < 50 && !changed; i++ {
		p.Mutate(rng)
		changed = p != original
	}
	assert.True(t, changed)
}

func TestMutateLeavesStructuralFields(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	p := DefaultParams()
	p.MetaMutationRate = 0.20
	for i := 0; i < 200; i++ {
		p.Mutate(rng)
	}

	assert.Equal(t, 50, p.MinPopulationSize)
	assert.Equal(t, 2000, p.MaxPopulationSize)
	assert.Equal(t, 0.0, p.FitnessThresholdForBreeding)
}

func TestCloneIndependence(t *testing.T) {
	p := DefaultParams()
	c := p.Clone()
	c.CullingRatio = 0.5

	assert.Equal(t, 0.25, p.CullingRatio)
	assert.Equal(t, 0.5, c.CullingRatio)
}
