package population

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/genome"
)

func newTestPopulation(t *testing.T, capacity int) *Population {
	t.Helper()
	p, err := New(capacity)
	require.NoError(t, err)
	return p
}

func addWithFitness(t *testing.T, p *Population, data []byte, fitness float64) {
	t.Helper()
	require.NoError(t, p.Add(genome.FromData(data), fitness))
}

func TestNewPopulation(t *testing.T) {
	p := newTestPopulation(t, 10)
	assert.Equal(t, 0, p.Size())
	assert.Equal(t, 10, p.Capacity())
	assert.True(t, math.IsInf(p.BestFitness(), -1))

	_, err := New(0)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestAddClonesGenome(t *testing.T) {
	p := newTestPopulation(t, 4)

	g := genome.FromData([]byte{1, 2, 3})
	require.NoError(t, p.Add(g, 0.5))

	// Mutating the caller's genome must not affect the population's copy.
	require.NoError(t, g.Write(0, []byte{9}))
	assert.Equal(t, byte(1), p.Get(0).Genome.Bytes()[0])
}

func TestAddAtCapacity(t *testing.T) {
	p := newTestPopulation(t, 1)
	addWithFitness(t, p, []byte{1}, 1.0)

	err := p.Add(genome.FromData([]byte{2}), 2.0)
	require.Error(t, err)
	assert.Equal(t, errors.PopulationFull, errors.CodeOf(err))

	// Recoverable: prune then retry.
	require.NoError(t, p.Remove(0))
	assert.NoError(t, p.Add(genome.FromData([]byte{2}), 2.0))
}

func TestUpdateStats(t *testing.T) {
	t.Run("Skips NaN and finds extremes", func(t *testing.T) {
		p := newTestPopulation(t, 8)
		addWithFitness(t, p, []byte{1}, 3.0)
		addWithFitness(t, p, []byte{2}, math.NaN())
		addWithFitness(t, p, []byte{3}, 7.0)
		addWithFitness(t, p, []byte{4}, 1.0)

		p.UpdateStats()

		assert.Equal(t, 7.0, p.BestFitness())
		assert.Equal(t, 1.0, p.WorstFitness())
		assert.InDelta(t, (3.0+7.0+1.0)/3.0, p.AvgFitness(), 1e-12)
		assert.Equal(t, 2, p.BestIndex())
		assert.Equal(t, 7.0, p.Best().Fitness)
	})

	t.Run("All NaN", func(t *testing.T) {
		p := newTestPopulation(t, 4)
		addWithFitness(t, p, []byte{1}, math.NaN())
		addWithFitness(t, p, []byte{2}, math.NaN())

		p.UpdateStats()

		assert.True(t, math.IsInf(p.BestFitness(), -1))
		assert.True(t, math.IsNaN(p.AvgFitness()))
	})

	t.Run("Empty", func(t *testing.T) {
		p := newTestPopulation(t, 4)
		p.UpdateStats()
		assert.True(t, math.IsInf(p.BestFitness(), -1))
		assert.True(t, math.IsNaN(p.AvgFitness()))
		assert.Nil(t, p.Best())
	})
}

func TestSort(t *testing.T) {
	p := newTestPopulation(t, 8)
	addWithFitness(t, p, []byte{1}, 2.0)
	addWithFitness(t, p, []byte{2}, math.NaN())
	addWithFitness(t, p, []byte{3}, 5.0)
	addWithFitness(t, p, []byte{4}, 3.0)

	p.Sort()

	assert.Equal(t, 5.0, p.Get(0).Fitness)
	assert.Equal(t, 3.0, p.Get(1).Fitness)
	assert.Equal(t, 2.0, p.Get(2).Fitness)
	assert.True(t, math.IsNaN(p.Get(3).Fitness), "NaN sorts last")
	assert.Equal(t, 0, p.BestIndex(), "stats refreshed after sort")
}

func TestTournamentSelect(t *testing.T) {
	t.Run("Finds the best with full tournament", func(t *testing.T) {
		p := newTestPopulation(t, 8)
		for i, f := range []float64{1, 4, 2, 9, 3} {
			addWithFitness(t, p, []byte{byte(i)}, f)
		}

		// Tournament larger than population is clamped; with k == size
		// and replacement the best is found with high probability, so
		// run a few draws and require the winner's fitness is never
		// beaten by an unsampled one incorrectly.
		rng := rand.New(rand.NewSource(11))
		for i := 0; i < 20; i++ {
			idx, err := p.TournamentSelect(100, rng)
			require.NoError(t, err)
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, p.Size())
		}
	})

	t.Run("Deterministic per seed", func(t *testing.T) {
		p := newTestPopulation(t, 8)
		for i, f := range []float64{1, 4, 2, 9, 3} {
			addWithFitness(t, p, []byte{byte(i)}, f)
		}

		a, err := p.TournamentSelect(3, rand.New(rand.NewSource(5)))
		require.NoError(t, err)
		b, err := p.TournamentSelect(3, rand.New(rand.NewSource(5)))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("All NaN returns first draw", func(t *testing.T) {
		p := newTestPopulation(t, 4)
		addWithFitness(t, p, []byte{1}, math.NaN())
		addWithFitness(t, p, []byte{2}, math.NaN())
		addWithFitness(t, p, []byte{3}, math.NaN())

		seed := int64(99)
		firstDraw := rand.New(rand.NewSource(seed)).Intn(p.Size())

		idx, err := p.TournamentSelect(3, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		assert.Equal(t, firstDraw, idx)
	})

	t.Run("Empty population", func(t *testing.T) {
		p := newTestPopulation(t, 4)
		_, err := p.TournamentSelect(2, rand.New(rand.NewSource(1)))
		require.Error(t, err)
		assert.Equal(t, errors.PopulationEmpty, errors.CodeOf(err))
	})
}

func TestEvaluateIdempotent(t *testing.T) {
	p := newTestPopulation(t, 8)
	addWithFitness(t, p, []byte{1}, math.NaN())
	addWithFitness(t, p, []byte{2}, math.NaN())
	addWithFitness(t, p, []byte{3}, 0.25) // already scored

	calls := 0
	fn := func(g *genome.Genome, ctx interface{}) float64 {
		calls++
		return float64(g.Bytes()[0])
	}

	evaluated := p.Evaluate(fn, nil)
	assert.Equal(t, 2, evaluated)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2.0, p.BestFitness())

	// Second pass with no new individuals evaluates nothing.
	evaluated = p.Evaluate(fn, nil)
	assert.Equal(t, 0, evaluated)
	assert.Equal(t, 2, calls)
}

func TestTruncateAndResize(t *testing.T) {
	p := newTestPopulation(t, 8)
	for i := 0; i < 5; i++ {
		addWithFitness(t, p, []byte{byte(i)}, float64(i))
	}

	p.Truncate(3)
	assert.Equal(t, 3, p.Size())

	require.NoError(t, p.ResizeCapacity(2))
	assert.Equal(t, 2, p.Size())
	assert.Equal(t, 2, p.Capacity())

	require.NoError(t, p.ResizeCapacity(10))
	assert.Equal(t, 10, p.Capacity())
}

func TestGenomesAndSetFitness(t *testing.T) {
	p := newTestPopulation(t, 4)
	addWithFitness(t, p, []byte{7}, math.NaN())
	addWithFitness(t, p, []byte{8}, math.NaN())

	genomes := p.Genomes()
	require.Len(t, genomes, 2)
	assert.Equal(t, byte(7), genomes[0].Bytes()[0])

	assert.Equal(t, []int{0, 1}, p.Unevaluated())

	require.NoError(t, p.SetFitness(0, 1.5))
	assert.Equal(t, []int{1}, p.Unevaluated())

	assert.Error(t, p.SetFitness(5, 1.0))
}

func TestGenerationCounter(t *testing.T) {
	p := newTestPopulation(t, 4)
	assert.Equal(t, 0, p.Generation())
	p.IncrementGeneration()
	p.IncrementGeneration()
	assert.Equal(t, 2, p.Generation())

	p.Clear()
	assert.Equal(t, 0, p.Generation())
	assert.Equal(t, 0, p.Size())
}
