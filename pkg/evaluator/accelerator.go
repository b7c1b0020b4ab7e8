package evaluator

import (
	"context"

	"github.com/XiaoConstantine/evogo/pkg/population"
)

// Device describes one accelerator device.
type Device struct {
	ID          int
	Name        string
	TotalMemory uint64
	FreeMemory  uint64
}

// Accelerator abstracts an offload backend for batch fitness evaluation.
// Implementations probe their hardware at construction; an unavailable
// accelerator is valid and simply never gets batches. Evaluation errors make
// the evaluator fall back to the CPU path for that batch.
type Accelerator interface {
	// Name identifies the backend in logs and stats.
	Name() string

	// Available reports whether the backend can take batches right now.
	Available() bool

	// Devices lists the backend's devices, empty when unavailable.
	Devices() []Device

	// EvaluateBatch scores every genome in the batch, writing into
	// batch.Fitnesses, and returns the number evaluated.
	EvaluateBatch(ctx context.Context, batch *Batch, fn population.FitnessFunc, userCtx interface{}) (int, error)

	// RecommendBatchSize suggests a batch size for the given genome size
	// based on the backend's memory budget.
	RecommendBatchSize(genomeSize int) int

	// BatchFits reports whether a batch of count genomes of the given
	// size fits in backend memory.
	BatchFits(count, genomeSize int) bool
}
