// Package engine drives complete evolution runs: batch evaluation, scheduled
// culling and breeding, diversity interventions, and periodic meta-evolution
// of the run's own parameters.
package engine

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/evogo/pkg/checkpoint"
	"github.com/XiaoConstantine/evogo/pkg/domain"
	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/evaluator"
	"github.com/XiaoConstantine/evogo/pkg/genome"
	"github.com/XiaoConstantine/evogo/pkg/logging"
	"github.com/XiaoConstantine/evogo/pkg/meta"
	"github.com/XiaoConstantine/evogo/pkg/population"
	"github.com/XiaoConstantine/evogo/pkg/scheduler"
	"github.com/XiaoConstantine/evogo/pkg/stats"
	"github.com/XiaoConstantine/evogo/pkg/telemetry"
)

// Status reports why a run ended.
type Status int

const (
	// StatusMaxGenerations: the run used its full generation budget.
	StatusMaxGenerations Status = iota
	// StatusConverged: fitness variance collapsed with a long dry spell.
	StatusConverged
	// StatusCanceled: the context was canceled between generations.
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusMaxGenerations:
		return "max_generations"
	case StatusConverged:
		return "converged"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// MetaConfig controls the optional meta-evolution layer.
type MetaConfig struct {
	Enabled bool
	// PopulationSize is the number of parameter sets evolved, capped at
	// meta.MaxIndividuals.
	PopulationSize int
	// Interval runs one meta-generation every N base generations.
	Interval int
	// TrialGenerations and TrialPopulationSize bound the short trial run
	// used to score each parameter set.
	TrialGenerations    int
	TrialPopulationSize int
	// Weights rebalance the meta-fitness factors; zero value uses the
	// defaults.
	Weights meta.EvaluateWeights
}

// Config assembles one run.
type Config struct {
	Domain         domain.Domain
	Params         meta.Params
	MaxGenerations int
	// Seed makes the run deterministic; 0 seeds from the clock.
	Seed    int64
	UserCtx interface{}

	Evaluator *evaluator.Evaluator
	Collector *telemetry.Collector

	CheckpointStore *checkpoint.SQLiteStore
	// CheckpointInterval saves a snapshot every N generations when a
	// store is attached.
	CheckpointInterval int

	Meta MetaConfig
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	Status      Status
	Generations int
	BestFitness float64
	BestGenome  *genome.Genome
	Params      meta.Params
	Run         *stats.RunStats
	Evaluation  evaluator.Stats
}

// Engine holds the state of one run.
type Engine struct {
	cfg    Config
	params meta.Params
	runID  string
	rng    *rand.Rand

	pop     *population.Population
	sched   *scheduler.AdaptiveScheduler
	eval    *evaluator.Evaluator
	metaPop *meta.MetaPopulation
	run     *stats.RunStats
}

// New validates the configuration and seeds the initial population.
func New(cfg Config) (*Engine, error) {
	if cfg.Domain == nil {
		return nil, errors.New(errors.InvalidArgument, "no domain configured")
	}
	if cfg.MaxGenerations <= 0 {
		return nil, errors.New(errors.InvalidArgument, "max generations must be positive")
	}

	params := cfg.Params
	if params == (meta.Params{}) {
		params = meta.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	pop, err := population.New(params.MaxPopulationSize)
	if err != nil {
		return nil, err
	}

	initial := params.TargetPopulationSize
	for i := 0; i < initial; i++ {
		g := genome.New(cfg.Domain.GenomeSize())
		if err := cfg.Domain.RandomInit(g, rng); err != nil {
			return nil, errors.Wrap(err, errors.GenomeInvalid, "domain failed to initialize genome")
		}
		if err := pop.Add(g, math.NaN()); err != nil {
			return nil, err
		}
	}

	sched, err := scheduler.New(cfg.MaxGenerations, &params)
	if err != nil {
		return nil, err
	}

	eval := cfg.Evaluator
	if eval == nil {
		eval = evaluator.New(nil)
	}

	e := &Engine{
		cfg:    cfg,
		params: params,
		runID:  uuid.NewString(),
		rng:    rng,
		pop:    pop,
		sched:  sched,
		eval:   eval,
		run:    stats.NewRunStats(),
	}

	if cfg.Meta.Enabled {
		size := cfg.Meta.PopulationSize
		if size <= 0 {
			size = 10
		}
		e.metaPop, err = meta.Init(size, rng)
		if err != nil {
			return nil, err
		}
	}

	return e, nil
}

// RunID returns the run's unique identifier.
func (e *Engine) RunID() string { return e.runID }

// Population exposes the current population, mainly for inspection in tests
// and tools.
func (e *Engine) Population() *population.Population { return e.pop }

// MetaPopulation returns the meta layer, nil when disabled.
func (e *Engine) MetaPopulation() *meta.MetaPopulation { return e.metaPop }

// Run executes the generation loop until the budget is exhausted, the run
// converges, or the context is canceled.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	logger := logging.GetLogger()
	ctx = logging.WithFields(ctx, map[string]interface{}{"run_id": e.runID})

	logger.Info(ctx, "run started: domain=%s max_gen=%d pop=%d",
		e.cfg.Domain.Name(), e.cfg.MaxGenerations, e.pop.Size())

	status := StatusMaxGenerations

	for gen := 0; gen < e.cfg.MaxGenerations; gen++ {
		if err := errors.CheckContext(ctx, "evolution run"); err != nil {
			status = StatusCanceled
			break
		}

		evaluated, err := e.evaluatePopulation(ctx)
		if err != nil {
			return nil, err
		}
		e.pop.Sort()

		diversity := domain.Diversity(e.cfg.Domain, e.pop, e.rng)
		e.sched.Update(e.pop.BestFitness(), e.pop.AvgFitness(), diversity)
		if err := e.run.Update(e.pop); err != nil {
			return nil, err
		}
		e.run.RecordOperations(int64(evaluated), 0, 0)

		e.record(diversity, evaluated)

		if e.cfg.CheckpointStore != nil && e.cfg.CheckpointInterval > 0 &&
			(gen+1)%e.cfg.CheckpointInterval == 0 {
			if err := e.saveCheckpoint(ctx); err != nil {
				logger.Warn(ctx, "checkpoint save failed: %v", err)
			}
		}

		if e.run.IsConverged() {
			status = StatusConverged
			logger.Info(ctx, "run converged at generation %d", e.pop.Generation())
			break
		}

		if err := e.sched.ApplyToMeta(&e.params); err != nil {
			return nil, err
		}
		e.cullAndBreed(diversity)
		e.pop.IncrementGeneration()

		if e.metaPop != nil && e.cfg.Meta.Interval > 0 &&
			(gen+1)%e.cfg.Meta.Interval == 0 {
			e.metaStep(ctx)
		}
	}

	e.pop.Sort()

	result := &Result{
		RunID:       e.runID,
		Status:      status,
		Generations: e.pop.Generation(),
		BestFitness: e.pop.BestFitness(),
		Params:      e.params,
		Run:         e.run,
		Evaluation:  e.eval.Stats(),
	}
	if best := e.pop.Best(); best != nil {
		result.BestGenome = best.Genome.Clone()
	}

	logger.Info(ctx, "run finished: status=%s generations=%d best=%.6f",
		status, result.Generations, result.BestFitness)
	return result, nil
}

// evaluatePopulation scores every unevaluated individual through the batch
// evaluator and refreshes the cached stats.
func (e *Engine) evaluatePopulation(ctx context.Context) (int, error) {
	indices := e.pop.Unevaluated()
	if len(indices) == 0 {
		return 0, nil
	}

	genomes := make([]*genome.Genome, len(indices))
	for i, idx := range indices {
		genomes[i] = e.pop.Get(idx).Genome
	}

	batch := evaluator.NewBatch(genomes, e.cfg.Domain.GenomeSize())
	result, err := e.eval.EvaluateBatch(ctx, batch, e.cfg.Domain.Fitness, e.cfg.UserCtx)
	if err != nil {
		return 0, err
	}

	for i, idx := range indices {
		if err := e.pop.SetFitness(idx, batch.Fitnesses[i]); err != nil {
			return 0, err
		}
	}
	e.pop.UpdateStats()

	return result.Evaluated, nil
}

// cullAndBreed applies the scheduled kill percentage to the sorted
// population, executes any diversity intervention, and breeds back toward
// the scheduled target size.
func (e *Engine) cullAndBreed(diversity float64) {
	killPct := e.sched.SelectionPressure(e.sched.FitnessVariance())
	mutationRate := e.sched.MutationRate()

	// Cull from the bottom of the sorted population, never below the
	// configured floor.
	size := e.pop.Size()
	killCount := int(float64(size) * killPct)
	if size-killCount < e.params.MinPopulationSize {
		killCount = size - e.params.MinPopulationSize
	}
	if killCount > 0 {
		e.pop.Truncate(size - killCount)
	}

	switch e.sched.DiversityIntervention(diversity) {
	case scheduler.InterventionAddRandom20:
		e.injectRandom(e.pop.Size() / 5)
	case scheduler.InterventionAddRandom10:
		e.injectRandom(e.pop.Size() / 10)
	case scheduler.InterventionIncreaseMutation:
		mutationRate = e.sched.CurrentMutationRate()
	}

	target := e.sched.PopulationSize()
	if target > e.pop.Capacity() {
		target = e.pop.Capacity()
	}
	if target < e.params.MinPopulationSize {
		target = e.params.MinPopulationSize
	}

	var crossovers, mutations int64
	for e.pop.Size() < target {
		i1, err1 := e.pop.TournamentSelect(3, e.rng)
		i2, err2 := e.pop.TournamentSelect(3, e.rng)
		if err1 != nil || err2 != nil {
			break
		}

		c1, c2, err := e.cfg.Domain.Crossover(
			e.pop.Get(i1).Genome, e.pop.Get(i2).Genome, e.rng)
		if err != nil {
			break
		}
		crossovers++

		for _, child := range []*genome.Genome{c1, c2} {
			if err := e.cfg.Domain.Mutate(child, mutationRate, e.rng); err == nil {
				mutations++
			}
			if e.pop.Size() >= target {
				break
			}
			if err := e.pop.Add(child, math.NaN()); err != nil {
				return
			}
		}
	}

	e.run.RecordOperations(0, mutations, crossovers)
}

// injectRandom adds count fresh random individuals, capacity permitting.
func (e *Engine) injectRandom(count int) {
	for i := 0; i < count; i++ {
		g := genome.New(e.cfg.Domain.GenomeSize())
		if err := e.cfg.Domain.RandomInit(g, e.rng); err != nil {
			return
		}
		if err := e.pop.Add(g, math.NaN()); err != nil {
			return
		}
	}
}

func (e *Engine) record(diversity float64, evaluated int) {
	if e.cfg.Collector == nil {
		return
	}
	e.cfg.Collector.Append(telemetry.Record{
		RunID:          e.runID,
		Generation:     int64(e.pop.Generation()),
		BestFitness:    sanitizeFloat(e.pop.BestFitness()),
		AvgFitness:     sanitizeFloat(e.pop.AvgFitness()),
		WorstFitness:   sanitizeFloat(e.pop.WorstFitness()),
		Diversity:      diversity,
		MutationRate:   e.sched.CurrentMutationRate(),
		PopulationSize: int64(e.pop.Size()),
		Phase:          e.sched.CurrentPhase().String(),
		Stagnant:       e.sched.IsStagnant(),
		Evaluations:    int64(evaluated),
	})
}

func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (e *Engine) saveCheckpoint(ctx context.Context) error {
	snap, err := checkpoint.Capture(e.runID, e.pop, e.params, e.metaPop)
	if err != nil {
		return err
	}
	return e.cfg.CheckpointStore.Save(ctx, snap)
}

// metaStep scores every meta-individual with an independent short trial run,
// fanned out across a worker pool, then evolves the meta-population and
// adopts the best parameter set seen so far.
func (e *Engine) metaStep(ctx context.Context) {
	logger := logging.GetLogger()

	weights := e.cfg.Meta.Weights
	if weights == (meta.EvaluateWeights{}) {
		weights = meta.DefaultEvaluateWeights()
	}

	trialGens := e.cfg.Meta.TrialGenerations
	if trialGens <= 0 {
		trialGens = 5
	}
	trialPop := e.cfg.Meta.TrialPopulationSize
	if trialPop <= 0 {
		trialPop = 30
	}

	// Seeds are drawn serially so the fan-out stays deterministic per run
	// seed regardless of scheduling order.
	count := e.metaPop.Count()
	seeds := make([]int64, count)
	for i := range seeds {
		seeds[i] = e.rng.Int63()
	}

	scores := make([]float64, count)
	p := pool.New().WithMaxGoroutines(4)
	for i := 0; i < count; i++ {
		i := i
		p.Go(func() {
			ind := e.metaPop.Get(i)
			best, avg, diversity, err := e.runTrial(ind.Params, trialGens, trialPop, seeds[i])
			if err != nil {
				scores[i] = math.Inf(-1)
				return
			}
			scores[i] = meta.Evaluate(best, avg, diversity, trialGens, weights)
		})
	}
	p.Wait()

	for i := 0; i < count; i++ {
		e.metaPop.Get(i).RecordFitness(scores[i])
	}

	if err := e.metaPop.Evolve(e.rng); err != nil {
		logger.Warn(ctx, "meta evolution failed: %v", err)
		return
	}

	// Adopt the best-ever parameters; structural bounds carry over to the
	// running population on the next breed cycle.
	adopted := e.metaPop.BestParams()
	adopted.MinPopulationSize = e.params.MinPopulationSize
	adopted.MaxPopulationSize = e.params.MaxPopulationSize
	e.params = adopted

	logger.Debug(ctx, "meta generation %d: best meta-fitness %.4f",
		e.metaPop.Generation(), e.metaPop.BestMetaFitness())
}

// runTrial executes a short, self-contained evolution run under the given
// parameters and reports its outcome for meta-scoring.
func (e *Engine) runTrial(params meta.Params, generations, popSize int, seed int64) (best, avg, diversity float64, err error) {
	rng := rand.New(rand.NewSource(seed))

	pop, err := population.New(popSize)
	if err != nil {
		return 0, 0, 0, err
	}

	for i := 0; i < popSize; i++ {
		g := genome.New(e.cfg.Domain.GenomeSize())
		if err := e.cfg.Domain.RandomInit(g, rng); err != nil {
			return 0, 0, 0, err
		}
		if err := pop.Add(g, math.NaN()); err != nil {
			return 0, 0, 0, err
		}
	}

	for gen := 0; gen < generations; gen++ {
		pop.Evaluate(e.cfg.Domain.Fitness, e.cfg.UserCtx)
		pop.Sort()

		// Cull by the trial's own culling ratio, then breed back up.
		size := pop.Size()
		kill := int(float64(size) * params.CullingRatio)
		if size-kill < 2 {
			kill = size - 2
		}
		if kill > 0 {
			pop.Truncate(size - kill)
		}

		for pop.Size() < popSize {
			i1, err1 := pop.TournamentSelect(3, rng)
			i2, err2 := pop.TournamentSelect(3, rng)
			if err1 != nil || err2 != nil {
				break
			}
			c1, c2, cerr := e.cfg.Domain.Crossover(
				pop.Get(i1).Genome, pop.Get(i2).Genome, rng)
			if cerr != nil {
				break
			}
			for _, child := range []*genome.Genome{c1, c2} {
				_ = e.cfg.Domain.Mutate(child, params.OptimizationMutationRate, rng)
				if pop.Size() >= popSize {
					break
				}
				if pop.Add(child, math.NaN()) != nil {
					break
				}
			}
		}
		pop.IncrementGeneration()
	}

	pop.Evaluate(e.cfg.Domain.Fitness, e.cfg.UserCtx)
	pop.Sort()

	return sanitizeFloat(pop.BestFitness()), sanitizeFloat(pop.AvgFitness()),
		stats.Diversity(pop, rng), nil
}
