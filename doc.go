// Package evogo is a domain-agnostic evolutionary optimization engine with a
// meta-evolution layer that tunes the engine's own parameters while a run is
// in progress.
//
// The engine evolves populations of byte-buffer genomes against a pluggable
// Domain (initialization, mutation, crossover, fitness), and adapts its
// behavior along two axes:
//
//   - An adaptive scheduler adjusts mutation rate, selection pressure and
//     population size from observed fitness history, run phase and diversity,
//     and issues recovery interventions when a run stagnates.
//
//   - A meta-population of parameter sets is periodically scored with short
//     trial runs and evolved, so the parameters driving the main run improve
//     alongside the solutions themselves.
//
// Key Components:
//
//   - genome: owned byte-buffer genomes with views, uniform crossover and
//     per-byte mutation.
//
//   - population: individuals with NaN-sentinel fitness, cached aggregate
//     statistics, tournament selection and idempotent evaluation.
//
//   - meta: evolvable parameter sets with validation, a descriptor table for
//     generic mutation, and the meta-population evolution loop.
//
//   - scheduler: phase-aware adaptive parameter scheduling with stagnation
//     detection and diversity interventions.
//
//   - evaluator: concurrent batch fitness evaluation with an optional
//     accelerator backend and silent CPU fallback.
//
//   - engine: the full generation loop tying the above together, with run
//     IDs, termination statuses and periodic meta-evolution.
//
//   - checkpoint: JSON and checksummed binary snapshots plus a SQLite store
//     for resuming runs.
//
//   - telemetry: per-generation run records with Parquet export.
//
// Simple Example:
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/XiaoConstantine/evogo/pkg/domain"
//	    "github.com/XiaoConstantine/evogo/pkg/engine"
//	)
//
//	func main() {
//	    e, err := engine.New(engine.Config{
//	        Domain:         domain.NewSphere(32),
//	        MaxGenerations: 200,
//	        Seed:           42,
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    result, err := e.Run(context.Background())
//	    if err != nil {
//	        panic(err)
//	    }
//	    fmt.Printf("best fitness %.4f after %d generations (%s)\n",
//	        result.BestFitness, result.Generations, result.Status)
//	}
package evogo
