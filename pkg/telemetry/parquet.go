package telemetry

import (
	"context"
	"os"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/XiaoConstantine/evogo/pkg/errors"
)

var runSchema = arrow.NewSchema([]arrow.Field{
	{Name: "run_id", Type: arrow.BinaryTypes.String},
	{Name: "generation", Type: arrow.PrimitiveTypes.Int64},
	{Name: "best_fitness", Type: arrow.PrimitiveTypes.Float64},
	{Name: "avg_fitness", Type: arrow.PrimitiveTypes.Float64},
	{Name: "worst_fitness", Type: arrow.PrimitiveTypes.Float64},
	{Name: "diversity", Type: arrow.PrimitiveTypes.Float64},
	{Name: "mutation_rate", Type: arrow.PrimitiveTypes.Float64},
	{Name: "population_size", Type: arrow.PrimitiveTypes.Int64},
	{Name: "phase", Type: arrow.BinaryTypes.String},
	{Name: "stagnant", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "evaluations", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// ExportParquet writes the collected run history to a Parquet file.
func (c *Collector) ExportParquet(path string) error {
	records := c.Records()
	if len(records) == 0 {
		return errors.New(errors.InvalidArgument, "no records to export")
	}

	builder := array.NewRecordBuilder(memory.DefaultAllocator, runSchema)
	defer builder.Release()

	for _, r := range records {
		builder.Field(0).(*array.StringBuilder).Append(r.RunID)
		builder.Field(1).(*array.Int64Builder).Append(r.Generation)
		builder.Field(2).(*array.Float64Builder).Append(r.BestFitness)
		builder.Field(3).(*array.Float64Builder).Append(r.AvgFitness)
		builder.Field(4).(*array.Float64Builder).Append(r.WorstFitness)
		builder.Field(5).(*array.Float64Builder).Append(r.Diversity)
		builder.Field(6).(*array.Float64Builder).Append(r.MutationRate)
		builder.Field(7).(*array.Int64Builder).Append(r.PopulationSize)
		builder.Field(8).(*array.StringBuilder).Append(r.Phase)
		builder.Field(9).(*array.BooleanBuilder).Append(r.Stagnant)
		builder.Field(10).(*array.Int64Builder).Append(r.Evaluations)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	table := array.NewTableFromRecords(runSchema, []arrow.Record{rec})
	defer table.Release()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create telemetry file")
	}
	defer f.Close()

	err = pqarrow.WriteTable(table, f, table.NumRows(),
		parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write parquet table")
	}
	return nil
}

// LoadParquet reads a run history back from a Parquet file written by
// ExportParquet.
func LoadParquet(path string) ([]Record, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open telemetry file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader,
		pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to create arrow reader")
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read telemetry table")
	}
	defer table.Release()

	rows := int(table.NumRows())
	records := make([]Record, rows)

	col := func(name string) *arrow.Column {
		indices := table.Schema().FieldIndices(name)
		return table.Column(indices[0])
	}

	runID := col("run_id").Data().Chunk(0).(*array.String)
	generation := col("generation").Data().Chunk(0).(*array.Int64)
	best := col("best_fitness").Data().Chunk(0).(*array.Float64)
	avg := col("avg_fitness").Data().Chunk(0).(*array.Float64)
	worst := col("worst_fitness").Data().Chunk(0).(*array.Float64)
	diversity := col("diversity").Data().Chunk(0).(*array.Float64)
	mutationRate := col("mutation_rate").Data().Chunk(0).(*array.Float64)
	popSize := col("population_size").Data().Chunk(0).(*array.Int64)
	phase := col("phase").Data().Chunk(0).(*array.String)
	stagnant := col("stagnant").Data().Chunk(0).(*array.Boolean)
	evaluations := col("evaluations").Data().Chunk(0).(*array.Int64)

	for i := 0; i < rows; i++ {
		records[i] = Record{
			RunID:          runID.Value(i),
			Generation:     generation.Value(i),
			BestFitness:    best.Value(i),
			AvgFitness:     avg.Value(i),
			WorstFitness:   worst.Value(i),
			Diversity:      diversity.Value(i),
			MutationRate:   mutationRate.Value(i),
			PopulationSize: popSize.Value(i),
			Phase:          phase.Value(i),
			Stagnant:       stagnant.Value(i),
			Evaluations:    evaluations.Value(i),
		}
	}

	return records, nil
}
