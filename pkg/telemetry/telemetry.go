// Package telemetry collects per-generation run history and exports it as
// Parquet for offline analysis.
package telemetry

import (
	"sync"
)

// Record captures one generation's headline numbers.
type Record struct {
	RunID          string
	Generation     int64
	BestFitness    float64
	AvgFitness     float64
	WorstFitness   float64
	Diversity      float64
	MutationRate   float64
	PopulationSize int64
	Phase          string
	Stagnant       bool
	Evaluations    int64
}

// Collector buffers records in memory until export. Safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Append adds one record.
func (c *Collector) Append(r Record) {
	c.mu.Lock()
	c.records = append(c.records, r)
	c.mu.Unlock()
}

// Len returns the number of buffered records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns a copy of the buffered records in append order.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Reset drops all buffered records.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.records = nil
	c.mu.Unlock()
}
