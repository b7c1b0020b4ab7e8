package genome

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

func TestNewGenome(t *testing.T) {
	t.Run("Explicit capacity", func(t *testing.T) {
		g := New(64)
		assert.Equal(t, 64, g.Capacity())
		assert.Equal(t, 0, g.Size())
		assert.False(t, g.IsValid())
	})

	t.Run("Zero capacity uses minimum", func(t *testing.T) {
		g := New(0)
		assert.Equal(t, MinCapacity, g.Capacity())
	})
}

func TestFromDataRoundTrip(t *testing.T) {
	original := []byte{0x01, 0x02, 0xFF, 0x00, 0x7A}
	g := FromData(original)

	require.Equal(t, len(original), g.Size())

	got, err := g.Read(0, len(original))
	require.NoError(t, err)
	assert.Equal(t, original, got)

	// The genome owns a copy, not the caller's slice.
	original[0] = 0xEE
	got, err = g.Read(0, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), got[0])
}

func TestClone(t *testing.T) {
	g := FromData([]byte{1, 2, 3})
	c := g.Clone()

	require.Equal(t, g.Bytes(), c.Bytes())

	// Mutating the clone leaves the source untouched.
	require.NoError(t, c.Write(0, []byte{9}))
	assert.Equal(t, byte(1), g.Bytes()[0])
	assert.Equal(t, byte(9), c.Bytes()[0])
}

func TestSetSize(t *testing.T) {
	g := New(8)

	require.NoError(t, g.SetSize(5))
	assert.Equal(t, 5, g.Size())

	err := g.SetSize(9)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestResize(t *testing.T) {
	t.Run("Grow zero-fills", func(t *testing.T) {
		g := FromData([]byte{1, 2, 3})
		require.NoError(t, g.Resize(6))

		assert.Equal(t, 6, g.Capacity())
		assert.Equal(t, 3, g.Size())

		require.NoError(t, g.SetSize(6))
		assert.Equal(t, []byte{1, 2, 3, 0, 0, 0}, g.Bytes())
	})

	t.Run("Shrink truncates size", func(t *testing.T) {
		g := FromData([]byte{1, 2, 3, 4})
		require.NoError(t, g.Resize(2))

		assert.Equal(t, 2, g.Capacity())
		assert.Equal(t, 2, g.Size())
	})
}

func TestWriteAutoGrow(t *testing.T) {
	g := New(4)
	require.NoError(t, g.Write(0, []byte{1, 2}))
	assert.Equal(t, 2, g.Size())

	// Write past capacity triggers growth.
	require.NoError(t, g.Write(3, []byte{7, 8, 9}))
	assert.Equal(t, 6, g.Size())
	assert.GreaterOrEqual(t, g.Capacity(), 6)
	assert.Equal(t, []byte{1, 2, 0, 7, 8, 9}, g.Bytes())
}

func TestReadErrors(t *testing.T) {
	t.Run("Empty genome", func(t *testing.T) {
		g := New(8)
		_, err := g.Read(0, 1)
		require.Error(t, err)
		assert.Equal(t, errors.GenomeEmpty, errors.CodeOf(err))
	})

	t.Run("Out of bounds", func(t *testing.T) {
		g := FromData([]byte{1, 2})
		_, err := g.Read(1, 5)
		require.Error(t, err)
		assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
	})
}

func TestZeroAndRandomize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	g := New(32)
	require.NoError(t, g.Randomize(rng))
	assert.Equal(t, 32, g.Size(), "randomize expands empty genome to capacity")

	require.NoError(t, g.Zero())
	for _, b := range g.Bytes() {
		assert.Equal(t, byte(0), b)
	}
}

func TestView(t *testing.T) {
	g := FromData([]byte{5, 6, 7})
	v := g.AsView()

	assert.Equal(t, 3, v.Size())
	assert.Equal(t, []byte{5, 6, 7}, v.Bytes())

	m := v.Materialize()
	require.NoError(t, m.Write(0, []byte{0}))
	assert.Equal(t, byte(5), g.Bytes()[0], "materialized copy does not alias")
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want int
	}{
		{"Identical", []byte{1, 2, 3}, []byte{1, 2, 3}, 0},
		{"One byte differs", []byte{1, 2, 3}, []byte{1, 9, 3}, 1},
		{"Size difference counts", []byte{1, 2}, []byte{1, 2, 3, 4}, 2},
		{"Both effects", []byte{0, 0}, []byte{1, 0, 5}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Distance(FromData(tt.a), FromData(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	t.Run("Nil genome", func(t *testing.T) {
		_, err := Distance(nil, FromData([]byte{1}))
		require.Error(t, err)
		assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
	})
}

func TestCrossover(t *testing.T) {
	t.Run("Complementary children", func(t *testing.T) {
		p1 := FromData([]byte{0xAA, 0xAA, 0xAA, 0xAA})
		p2 := FromData([]byte{0x55, 0x55, 0x55, 0x55})

		c1, c2, err := Crossover(p1, p2, rand.New(rand.NewSource(7)))
		require.NoError(t, err)

		require.Equal(t, 4, c1.Size())
		require.Equal(t, 4, c2.Size())

		for i := 0; i < 4; i++ {
			b1, b2 := c1.Bytes()[i], c2.Bytes()[i]
			assert.NotEqual(t, b1, b2)
			assert.Contains(t, []byte{0xAA, 0x55}, b1)
		}
	})

	t.Run("Deterministic per seed", func(t *testing.T) {
		p1 := FromData([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		p2 := FromData([]byte{9, 10, 11, 12, 13, 14, 15, 16})

		a1, a2, err := Crossover(p1, p2, rand.New(rand.NewSource(42)))
		require.NoError(t, err)
		b1, b2, err := Crossover(p1, p2, rand.New(rand.NewSource(42)))
		require.NoError(t, err)

		assert.Equal(t, a1.Bytes(), b1.Bytes())
		assert.Equal(t, a2.Bytes(), b2.Bytes())
	})

	t.Run("Uses shorter parent length", func(t *testing.T) {
		p1 := FromData([]byte{1, 2, 3, 4, 5})
		p2 := FromData([]byte{6, 7})

		c1, c2, err := Crossover(p1, p2, rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		assert.Equal(t, 2, c1.Size())
		assert.Equal(t, 2, c2.Size())
	})

	t.Run("Nil parent rejected", func(t *testing.T) {
		_, _, err := Crossover(nil, FromData([]byte{1}), rand.New(rand.NewSource(1)))
		require.Error(t, err)
		assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
	})
}

func TestMutate(t *testing.T) {
	t.Run("Rate zero is a no-op", func(t *testing.T) {
		original := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		g := FromData(original)

		require.NoError(t, Mutate(g, 0, rand.New(rand.NewSource(1))))
		assert.Equal(t, original, g.Bytes())
	})

	t.Run("Rate one replaces every byte", func(t *testing.T) {
		original := make([]byte, 256)
		g := FromData(original)

		require.NoError(t, Mutate(g, 1, rand.New(rand.NewSource(1))))

		// With 256 zero bytes, all-zeros after full replacement is
		// astronomically unlikely.
		changed := 0
		for _, b := range g.Bytes() {
			if b != 0 {
				changed++
			}
		}
		assert.Greater(t, changed, 200)
	})

	t.Run("Empty genome rejected", func(t *testing.T) {
		err := Mutate(New(8), 0.5, rand.New(rand.NewSource(1)))
		require.Error(t, err)
		assert.Equal(t, errors.GenomeEmpty, errors.CodeOf(err))
	})

	t.Run("Rate outside range rejected", func(t *testing.T) {
		err := Mutate(FromData([]byte{1}), 1.5, rand.New(rand.NewSource(1)))
		require.Error(t, err)
		assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
	})
}
