// Package evaluator runs batch fitness evaluation: an optional accelerator
// backend takes whole batches, with a silent fallback to a worker-pool CPU
// path whenever the accelerator is missing, full, or errors out.
package evaluator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/genome"
	"github.com/XiaoConstantine/evogo/pkg/logging"
	"github.com/XiaoConstantine/evogo/pkg/population"
)

const (
	// serialBatchThreshold: batches at or below this size are evaluated
	// serially; goroutine fan-out costs more than it saves.
	serialBatchThreshold = 10

	// maxWorkers caps the CPU worker pool regardless of core count.
	maxWorkers = 16

	// cpuDefaultBatchSize is the recommendation when no accelerator is
	// attached.
	cpuDefaultBatchSize = 100
)

// Batch bundles genomes with their output fitness slots. GenomeSize is the
// nominal per-genome byte size accelerators use for memory budgeting.
type Batch struct {
	Genomes    []*genome.Genome
	Fitnesses  []float64
	GenomeSize int
}

// NewBatch builds a batch over the given genomes with zeroed fitness slots.
func NewBatch(genomes []*genome.Genome, genomeSize int) *Batch {
	return &Batch{
		Genomes:    genomes,
		Fitnesses:  make([]float64, len(genomes)),
		GenomeSize: genomeSize,
	}
}

// Count returns the number of genomes in the batch.
func (b *Batch) Count() int { return len(b.Genomes) }

// Result reports how one batch was evaluated.
type Result struct {
	Evaluated       int
	UsedAccelerator bool
	AcceleratorTime time.Duration
	CPUTime         time.Duration
}

// Stats accumulates evaluation counts and timing across batches.
type Stats struct {
	TotalEvaluations       int64
	AcceleratorEvaluations int64
	CPUEvaluations         int64
	TotalAcceleratorTime   time.Duration
	TotalCPUTime           time.Duration
}

// Evaluator dispatches batches to an accelerator when possible and to the
// CPU worker pool otherwise. Safe for concurrent use.
type Evaluator struct {
	mu        sync.Mutex
	accel     Accelerator
	enabled   bool
	stats     Stats
	lastError error
}

// New creates an evaluator. The accelerator may be nil for a CPU-only setup.
func New(accel Accelerator) *Evaluator {
	e := &Evaluator{accel: accel, enabled: true}

	if accel != nil && accel.Available() {
		logging.GetLogger().Info(context.Background(),
			"accelerator %q detected with %d device(s)", accel.Name(), len(accel.Devices()))
	} else {
		logging.GetLogger().Info(context.Background(),
			"no accelerator available, evaluating on CPU")
	}
	return e
}

// SetAcceleratorEnabled toggles accelerator use without detaching it.
func (e *Evaluator) SetAcceleratorEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
}

// AcceleratorEnabled reports whether the accelerator path is allowed.
func (e *Evaluator) AcceleratorEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// LastError returns the most recent accelerator failure that caused a CPU
// fallback, nil if none.
func (e *Evaluator) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// Stats returns a snapshot of the accumulated counters.
func (e *Evaluator) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ResetStats zeroes the accumulated counters.
func (e *Evaluator) ResetStats() {
	e.mu.Lock()
	e.stats = Stats{}
	e.mu.Unlock()
}

func (e *Evaluator) acceleratorUsable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accel != nil && e.enabled && e.accel.Available()
}

// EvaluateBatch scores every genome in the batch. The accelerator is tried
// first when attached, enabled and the batch fits its memory; any failure
// there is recorded and the batch is silently re-run on the CPU path so a
// flaky backend never fails a generation.
func (e *Evaluator) EvaluateBatch(ctx context.Context, batch *Batch, fn population.FitnessFunc, userCtx interface{}) (*Result, error) {
	if batch == nil || batch.Genomes == nil || batch.Fitnesses == nil {
		return nil, errors.New(errors.InvalidArgument, "nil batch")
	}
	if fn == nil {
		return nil, errors.New(errors.InvalidArgument, "nil fitness function")
	}
	if len(batch.Fitnesses) != len(batch.Genomes) {
		return nil, errors.WithFields(
			errors.New(errors.SizeMismatch, "fitness slots do not match genome count"),
			errors.Fields{"genomes": len(batch.Genomes), "slots": len(batch.Fitnesses)},
		)
	}
	if err := errors.CheckContext(ctx, "evaluate batch"); err != nil {
		return nil, err
	}

	if e.acceleratorUsable() && e.accel.BatchFits(batch.Count(), batch.GenomeSize) {
		start := time.Now()
		evaluated, err := e.accel.EvaluateBatch(ctx, batch, fn, userCtx)
		elapsed := time.Since(start)

		if err == nil && evaluated == batch.Count() {
			e.mu.Lock()
			e.stats.TotalEvaluations += int64(evaluated)
			e.stats.AcceleratorEvaluations += int64(evaluated)
			e.stats.TotalAcceleratorTime += elapsed
			e.mu.Unlock()

			return &Result{
				Evaluated:       evaluated,
				UsedAccelerator: true,
				AcceleratorTime: elapsed,
			}, nil
		}

		e.mu.Lock()
		e.lastError = err
		e.mu.Unlock()
		logging.GetLogger().Warn(ctx,
			"accelerator batch failed (%v), falling back to CPU", err)
	}

	return e.EvaluateBatchCPU(ctx, batch, fn, userCtx, 0)
}

// EvaluateBatchCPU scores the batch on the CPU. Small batches run serially;
// larger ones are split into contiguous chunks across up to numWorkers
// goroutines (0 means one per core, capped at 16).
func (e *Evaluator) EvaluateBatchCPU(ctx context.Context, batch *Batch, fn population.FitnessFunc, userCtx interface{}, numWorkers int) (*Result, error) {
	if batch == nil || batch.Genomes == nil || batch.Fitnesses == nil {
		return nil, errors.New(errors.InvalidArgument, "nil batch")
	}
	if fn == nil {
		return nil, errors.New(errors.InvalidArgument, "nil fitness function")
	}
	if err := errors.CheckContext(ctx, "evaluate batch on cpu"); err != nil {
		return nil, err
	}

	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > maxWorkers {
		numWorkers = maxWorkers
	}

	count := batch.Count()
	start := time.Now()
	evaluated := 0

	if count > serialBatchThreshold && numWorkers > 1 {
		chunkSize := (count + numWorkers - 1) / numWorkers

		p := pool.New().WithMaxGoroutines(numWorkers)
		for chunkStart := 0; chunkStart < count; chunkStart += chunkSize {
			chunkEnd := chunkStart + chunkSize
			if chunkEnd > count {
				chunkEnd = count
			}
			lo, hi := chunkStart, chunkEnd
			p.Go(func() {
				for i := lo; i < hi; i++ {
					if batch.Genomes[i] != nil {
						batch.Fitnesses[i] = fn(batch.Genomes[i], userCtx)
					}
				}
			})
		}
		p.Wait()
		evaluated = count
	} else {
		for i := 0; i < count; i++ {
			if batch.Genomes[i] != nil {
				batch.Fitnesses[i] = fn(batch.Genomes[i], userCtx)
				evaluated++
			}
		}
	}

	elapsed := time.Since(start)

	e.mu.Lock()
	e.stats.TotalEvaluations += int64(evaluated)
	e.stats.CPUEvaluations += int64(evaluated)
	e.stats.TotalCPUTime += elapsed
	e.mu.Unlock()

	return &Result{
		Evaluated: evaluated,
		CPUTime:   elapsed,
	}, nil
}

// RecommendBatchSize delegates to the accelerator when usable and falls back
// to a CPU default otherwise.
func (e *Evaluator) RecommendBatchSize(genomeSize int) int {
	if e.acceleratorUsable() {
		return e.accel.RecommendBatchSize(genomeSize)
	}
	return cpuDefaultBatchSize
}

// BatchFits reports whether the batch fits the active backend. The CPU path
// always fits.
func (e *Evaluator) BatchFits(count, genomeSize int) bool {
	if e.acceleratorUsable() {
		return e.accel.BatchFits(count, genomeSize)
	}
	return true
}
