// Package checkpoint persists and restores run state: JSON snapshots, a
// framed binary encoding with integrity checking, and a SQLite-backed store
// keyed by run ID.
package checkpoint

import (
	"encoding/json"
	"math"
	"time"

	"github.com/XiaoConstantine/evogo/pkg/errors"
	"github.com/XiaoConstantine/evogo/pkg/genome"
	"github.com/XiaoConstantine/evogo/pkg/meta"
	"github.com/XiaoConstantine/evogo/pkg/population"
)

// IndividualState is one serialized individual. Evaluated distinguishes a
// real fitness from the NaN sentinel, which JSON cannot carry.
type IndividualState struct {
	Data      []byte  `json:"data"`
	Fitness   float64 `json:"fitness"`
	Evaluated bool    `json:"evaluated"`
}

// MetaState is the serialized meta-layer: enough to resume parameter
// evolution from the best snapshot without replaying trial history.
type MetaState struct {
	Generation      int         `json:"generation"`
	BestMetaFitness float64     `json:"best_meta_fitness"`
	BestParams      meta.Params `json:"best_params"`
}

// Snapshot is a full point-in-time capture of a run.
type Snapshot struct {
	RunID       string            `json:"run_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Generation  int               `json:"generation"`
	BestFitness float64           `json:"best_fitness"`
	Capacity    int               `json:"capacity"`
	Params      meta.Params       `json:"params"`
	Individuals []IndividualState `json:"individuals"`
	Meta        *MetaState        `json:"meta,omitempty"`
}

// Capture builds a snapshot of the population and parameters. metaPop may be
// nil when the run does not use the meta layer.
func Capture(runID string, pop *population.Population, params meta.Params, metaPop *meta.MetaPopulation) (*Snapshot, error) {
	if pop == nil {
		return nil, errors.New(errors.InvalidArgument, "nil population")
	}

	snap := &Snapshot{
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		Generation:  pop.Generation(),
		BestFitness: pop.BestFitness(),
		Capacity:    pop.Capacity(),
		Params:      params,
		Individuals: make([]IndividualState, pop.Size()),
	}

	if math.IsInf(snap.BestFitness, 0) || math.IsNaN(snap.BestFitness) {
		snap.BestFitness = 0
	}

	for i := 0; i < pop.Size(); i++ {
		ind := pop.Get(i)
		// Bytes aliases the live genome buffer; the snapshot must own its
		// copy or later evolution would rewrite captured state.
		state := IndividualState{Data: append([]byte(nil), ind.Genome.Bytes()...)}
		if ind.Evaluated() {
			state.Fitness = ind.Fitness
			state.Evaluated = true
		}
		snap.Individuals[i] = state
	}

	if metaPop != nil {
		snap.Meta = &MetaState{
			Generation:      metaPop.Generation(),
			BestMetaFitness: sanitize(metaPop.BestMetaFitness()),
			BestParams:      metaPop.BestParams(),
		}
	}

	return snap, nil
}

func sanitize(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// RestorePopulation rebuilds the population held in the snapshot, including
// its generation counter and fitness state.
func (s *Snapshot) RestorePopulation() (*population.Population, error) {
	capacity := s.Capacity
	if capacity < len(s.Individuals) {
		capacity = len(s.Individuals)
	}
	if capacity == 0 {
		return nil, errors.New(errors.CheckpointCorrupt, "snapshot has no capacity or individuals")
	}

	pop, err := population.New(capacity)
	if err != nil {
		return nil, err
	}

	for i, state := range s.Individuals {
		fitness := math.NaN()
		if state.Evaluated {
			fitness = state.Fitness
		}
		if err := pop.Add(genome.FromData(state.Data), fitness); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.CheckpointCorrupt, "snapshot individual could not be restored"),
				errors.Fields{"index": i},
			)
		}
	}

	for g := 0; g < s.Generation; g++ {
		pop.IncrementGeneration()
	}
	pop.UpdateStats()
	return pop, nil
}

// EncodeJSON serializes the snapshot as JSON.
func (s *Snapshot) EncodeJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to encode snapshot")
	}
	return data, nil
}

// DecodeJSON parses a JSON snapshot.
func DecodeJSON(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, errors.CheckpointCorrupt, "failed to decode snapshot")
	}
	return &snap, nil
}
