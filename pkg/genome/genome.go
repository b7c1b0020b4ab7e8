// Package genome provides the opaque byte-buffer representation of a candidate
// solution and the byte-level genetic operators that act on it. The engine
// never interprets genome contents; domains own the semantic layout.
package genome

import (
	"math/rand"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

const (
	// MinCapacity is the smallest buffer allocated for an owned genome.
	MinCapacity = 16

	// GrowthFactor controls capacity doubling on auto-resize.
	GrowthFactor = 2
)

// Genome is an owned byte buffer with a logical size no larger than its
// capacity. All mutating operations are only available on owned genomes;
// borrowed data is represented by View instead.
type Genome struct {
	data []byte // len(data) is the capacity
	size int    // logical size, size <= len(data)
}

// New allocates an owned genome with the given capacity and zero logical size.
// A capacity of zero is bumped to MinCapacity.
func New(capacity int) *Genome {
	if capacity <= 0 {
		capacity = MinCapacity
	}
	return &Genome{data: make([]byte, capacity)}
}

// FromData allocates an owned genome holding a copy of data. The logical size
// and capacity both equal len(data).
func FromData(data []byte) *Genome {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Genome{data: buf, size: len(data)}
}

// Clone returns an independent copy of g with capacity equal to g's size.
func (g *Genome) Clone() *Genome {
	return FromData(g.data[:g.size])
}

// Size returns the logical size in bytes.
func (g *Genome) Size() int { return g.size }

// Capacity returns the allocated buffer size in bytes.
func (g *Genome) Capacity() int { return len(g.data) }

// Bytes returns the logical contents. The slice aliases the genome's buffer;
// callers must not retain it across mutations.
func (g *Genome) Bytes() []byte { return g.data[:g.size] }

// IsValid reports whether the genome holds any data.
func (g *Genome) IsValid() bool { return g != nil && g.size > 0 }

// SetSize adjusts the logical size without touching the buffer.
func (g *Genome) SetSize(size int) error {
	if size < 0 || size > len(g.data) {
		return errors.WithFields(
			errors.New(errors.InvalidArgument, "size exceeds capacity"),
			errors.Fields{"size": size, "capacity": len(g.data)},
		)
	}
	g.size = size
	return nil
}

// Resize changes the capacity. Growing reallocates and zero-fills the new
// bytes; shrinking truncates the logical size if needed.
func (g *Genome) Resize(newCapacity int) error {
	if newCapacity < 0 {
		return errors.New(errors.InvalidArgument, "negative capacity")
	}

	if newCapacity <= len(g.data) {
		g.data = g.data[:newCapacity]
		if g.size > newCapacity {
			g.size = newCapacity
		}
		return nil
	}

	buf := make([]byte, newCapacity)
	copy(buf, g.data)
	g.data = buf
	return nil
}

// Write copies data into the buffer at offset, growing the capacity as needed
// and extending the logical size to cover the written range.
func (g *Genome) Write(offset int, data []byte) error {
	if offset < 0 {
		return errors.New(errors.InvalidArgument, "negative offset")
	}

	end := offset + len(data)
	if end > len(g.data) {
		newCap := len(g.data)
		for newCap < end {
			if newCap == 0 {
				newCap = MinCapacity
			} else {
				newCap *= GrowthFactor
			}
		}
		if err := g.Resize(newCap); err != nil {
			return err
		}
	}

	copy(g.data[offset:], data)

	if end > g.size {
		g.size = end
	}
	return nil
}

// Read returns a copy of n bytes starting at offset.
func (g *Genome) Read(offset, n int) ([]byte, error) {
	if g.size == 0 {
		return nil, errors.New(errors.GenomeEmpty, "genome has no data")
	}
	if offset < 0 || n < 0 || offset+n > g.size {
		return nil, errors.WithFields(
			errors.New(errors.InvalidArgument, "read range out of bounds"),
			errors.Fields{"offset": offset, "n": n, "size": g.size},
		)
	}

	out := make([]byte, n)
	copy(out, g.data[offset:offset+n])
	return out, nil
}

// Zero clears the logical contents.
func (g *Genome) Zero() error {
	if g.size == 0 && len(g.data) == 0 {
		return errors.New(errors.GenomeEmpty, "genome has no data")
	}
	for i := 0; i < g.size; i++ {
		g.data[i] = 0
	}
	return nil
}

// Randomize fills the genome with random bytes. An empty logical size is
// expanded to the full capacity, matching the behavior expected by domains
// that initialize fresh individuals.
func (g *Genome) Randomize(rng *rand.Rand) error {
	if len(g.data) == 0 {
		return errors.New(errors.GenomeEmpty, "genome has no data")
	}

	n := g.size
	if n == 0 {
		n = len(g.data)
	}
	for i := 0; i < n; i++ {
		g.data[i] = byte(rng.Intn(256))
	}
	if g.size == 0 {
		g.size = n
	}
	return nil
}

// AsView returns a borrowed, read-only window over the genome's contents.
func (g *Genome) AsView() View {
	return View{data: g.data[:g.size]}
}

// View is a non-owning, read-only window over genome bytes. Views must never
// outlive the buffer they borrow from.
type View struct {
	data []byte
}

// NewView borrows data without copying.
func NewView(data []byte) View {
	return View{data: data}
}

// Size returns the number of borrowed bytes.
func (v View) Size() int { return len(v.data) }

// Bytes exposes the borrowed bytes. Callers must treat the slice as read-only.
func (v View) Bytes() []byte { return v.data }

// Materialize copies the view into a fresh owned genome.
func (v View) Materialize() *Genome {
	return FromData(v.data)
}

// Distance computes the byte-level distance between two genomes: Hamming
// distance over the common prefix plus the size difference.
func Distance(a, b *Genome) (int, error) {
	if a == nil || b == nil {
		return 0, errors.New(errors.InvalidArgument, "nil genome")
	}
	if a.size == 0 || b.size == 0 {
		return 0, errors.New(errors.GenomeEmpty, "genome has no data")
	}

	minSize, maxSize := a.size, b.size
	if minSize > maxSize {
		minSize, maxSize = maxSize, minSize
	}

	diff := 0
	for i := 0; i < minSize; i++ {
		if a.data[i] != b.data[i] {
			diff++
		}
	}
	return diff + (maxSize - minSize), nil
}
