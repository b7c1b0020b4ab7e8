package evaluator

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/genome"
	"github.com/XiaoConstantine/evogo/pkg/population"
)

// fakeAccelerator is a controllable backend for exercising dispatch and
// fallback paths.
type fakeAccelerator struct {
	available bool
	failWith  error
	maxCount  int
	calls     atomic.Int64
}

func (f *fakeAccelerator) Name() string      { return "fake" }
func (f *fakeAccelerator) Available() bool   { return f.available }
func (f *fakeAccelerator) Devices() []Device { return []Device{{ID: 0, Name: "fake-0"}} }

func (f *fakeAccelerator) EvaluateBatch(ctx context.Context, batch *Batch, fn population.FitnessFunc, userCtx interface{}) (int, error) {
	f.calls.Add(1)
	if f.failWith != nil {
		return 0, f.failWith
	}
	for i, g := range batch.Genomes {
		batch.Fitnesses[i] = fn(g, userCtx)
	}
	return batch.Count(), nil
}

func (f *fakeAccelerator) RecommendBatchSize(genomeSize int) int { return 512 }

func (f *fakeAccelerator) BatchFits(count, genomeSize int) bool {
	return f.maxCount == 0 || count <= f.maxCount
}

func byteSumFitness(g *genome.Genome, _ interface{}) float64 {
	sum := 0.0
	for _, b := range g.Bytes() {
		sum += float64(b)
	}
	return sum
}

func makeBatch(t *testing.T, count, size int) *Batch {
	t.Helper()
	genomes := make([]*genome.Genome, count)
	for i := range genomes {
		data := make([]byte, size)
		for j := range data {
			data[j] = byte((i + j) % 251)
		}
		genomes[i] = genome.FromData(data)
	}
	return NewBatch(genomes, size)
}

func TestEvaluateBatchUsesAccelerator(t *testing.T) {
	accel := &fakeAccelerator{available: true}
	e := New(accel)

	batch := makeBatch(t, 20, 8)
	result, err := e.EvaluateBatch(context.Background(), batch, byteSumFitness, nil)
	require.NoError(t, err)

	assert.True(t, result.UsedAccelerator)
	assert.Equal(t, 20, result.Evaluated)
	assert.Equal(t, int64(1), accel.calls.Load())

	stats := e.Stats()
	assert.Equal(t, int64(20), stats.TotalEvaluations)
	assert.Equal(t, int64(20), stats.AcceleratorEvaluations)
	assert.Equal(t, int64(0), stats.CPUEvaluations)
}

func TestEvaluateBatchFallsBackOnFailure(t *testing.T) {
	accel := &fakeAccelerator{
		available: true,
		failWith:  errors.New(errors.ResourceExhausted, "device out of memory"),
	}
	e := New(accel)

	batch := makeBatch(t, 20, 8)
	result, err := e.EvaluateBatch(context.Background(), batch, byteSumFitness, nil)
	require.NoError(t, err, "fallback hides the accelerator failure")

	assert.False(t, result.UsedAccelerator)
	assert.Equal(t, 20, result.Evaluated)
	require.Error(t, e.LastError())
	assert.Equal(t, errors.ResourceExhausted, errors.CodeOf(e.LastError()))

	// Fitness values came from the CPU path.
	for i, g := range batch.Genomes {
		assert.Equal(t, byteSumFitness(g, nil), batch.Fitnesses[i], "index %d", i)
	}
}

func TestEvaluateBatchSkipsAcceleratorWhenBatchTooBig(t *testing.T) {
	accel := &fakeAccelerator{available: true, maxCount: 5}
	e := New(accel)

	batch := makeBatch(t, 20, 8)
	result, err := e.EvaluateBatch(context.Background(), batch, byteSumFitness, nil)
	require.NoError(t, err)

	assert.False(t, result.UsedAccelerator)
	assert.Equal(t, int64(0), accel.calls.Load(), "oversized batch never reaches the backend")
}

func TestEvaluateBatchDisabledAccelerator(t *testing.T) {
	accel := &fakeAccelerator{available: true}
	e := New(accel)
	e.SetAcceleratorEnabled(false)

	batch := makeBatch(t, 20, 8)
	result, err := e.EvaluateBatch(context.Background(), batch, byteSumFitness, nil)
	require.NoError(t, err)

	assert.False(t, result.UsedAccelerator)
	assert.Equal(t, int64(0), accel.calls.Load())

	e.SetAcceleratorEnabled(true)
	assert.True(t, e.AcceleratorEnabled())
}

func TestEvaluateBatchCPUSerialVsParallel(t *testing.T) {
	// A large batch must produce identical results whether evaluated with
	// one worker or many.
	e := New(nil)
	const count = 5000

	serial := makeBatch(t, count, 16)
	parallel := makeBatch(t, count, 16)

	_, err := e.EvaluateBatchCPU(context.Background(), serial, byteSumFitness, nil, 1)
	require.NoError(t, err)
	result, err := e.EvaluateBatchCPU(context.Background(), parallel, byteSumFitness, nil, 8)
	require.NoError(t, err)

	assert.Equal(t, count, result.Evaluated)
	assert.Equal(t, serial.Fitnesses, parallel.Fitnesses)
}

func TestEvaluateBatchCPUSmallBatchStaysSerial(t *testing.T) {
	e := New(nil)

	batch := makeBatch(t, 5, 4)
	result, err := e.EvaluateBatchCPU(context.Background(), batch, byteSumFitness, nil, 8)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Evaluated)
}

func TestEvaluateBatchCPUSkipsNilGenomes(t *testing.T) {
	e := New(nil)

	batch := makeBatch(t, 4, 4)
	batch.Genomes[2] = nil
	batch.Fitnesses[2] = math.NaN()

	result, err := e.EvaluateBatchCPU(context.Background(), batch, byteSumFitness, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Evaluated)
	assert.True(t, math.IsNaN(batch.Fitnesses[2]), "nil slot left untouched")
}

func TestEvaluateBatchValidation(t *testing.T) {
	e := New(nil)

	_, err := e.EvaluateBatch(context.Background(), nil, byteSumFitness, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))

	bad := makeBatch(t, 4, 4)
	bad.Fitnesses = bad.Fitnesses[:2]
	_, err = e.EvaluateBatch(context.Background(), bad, byteSumFitness, nil)
	require.Error(t, err)
	assert.Equal(t, errors.SizeMismatch, errors.CodeOf(err))

	_, err = e.EvaluateBatchCPU(context.Background(), makeBatch(t, 4, 4), nil, nil, 1)
	require.Error(t, err)

	// A nil fitness function is rejected before any backend dispatch.
	accel := &fakeAccelerator{available: true}
	withAccel := New(accel)
	_, err = withAccel.EvaluateBatch(context.Background(), makeBatch(t, 4, 4), nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
	assert.Equal(t, int64(0), accel.calls.Load(), "accelerator never sees an invalid batch")
}

func TestEvaluateBatchCanceledContext(t *testing.T) {
	e := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EvaluateBatch(ctx, makeBatch(t, 4, 4), byteSumFitness, nil)
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestStatsAccumulateAndReset(t *testing.T) {
	e := New(nil)

	for i := 0; i < 3; i++ {
		_, err := e.EvaluateBatchCPU(context.Background(), makeBatch(t, 10, 4), byteSumFitness, nil, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(30), e.Stats().TotalEvaluations)
	assert.Equal(t, int64(30), e.Stats().CPUEvaluations)

	e.ResetStats()
	assert.Equal(t, int64(0), e.Stats().TotalEvaluations)
}

func TestRecommendBatchSizeAndFits(t *testing.T) {
	t.Run("CPU defaults", func(t *testing.T) {
		e := New(nil)
		assert.Equal(t, 100, e.RecommendBatchSize(64))
		assert.True(t, e.BatchFits(1_000_000, 64))
	})

	t.Run("Accelerator delegation", func(t *testing.T) {
		e := New(&fakeAccelerator{available: true, maxCount: 50})
		assert.Equal(t, 512, e.RecommendBatchSize(64))
		assert.True(t, e.BatchFits(50, 64))
		assert.False(t, e.BatchFits(51, 64))
	})
}
