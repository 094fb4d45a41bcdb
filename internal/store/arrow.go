package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/nvandessel/smesim/internal/models"
)

// arrowColumn binds one AggregateRecord field to one Arrow column. Exactly
// one of the accessors is set.
type arrowColumn struct {
	name string
	str  func(r *models.AggregateRecord) *string
	i64  func(r *models.AggregateRecord) *int
	f64  func(r *models.AggregateRecord) *float64
}

func (c arrowColumn) dataType() arrow.DataType {
	switch {
	case c.str != nil:
		return arrow.BinaryTypes.String
	case c.i64 != nil:
		return arrow.PrimitiveTypes.Int64
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

type aggRec = models.AggregateRecord

// recordColumns lists the columns in file order.
var recordColumns = []arrowColumn{
	{name: "scenario", str: func(r *aggRec) *string { return &r.Scenario }},
	{name: "year", i64: func(r *aggRec) *int { return &r.Year }},
	{name: "total_smes", i64: func(r *aggRec) *int { return &r.TotalSMEs }},
	{name: "micro_count", i64: func(r *aggRec) *int { return &r.MicroCount }},
	{name: "small_count", i64: func(r *aggRec) *int { return &r.SmallCount }},
	{name: "medium_count", i64: func(r *aggRec) *int { return &r.MediumCount }},
	{name: "formal_count", i64: func(r *aggRec) *int { return &r.FormalCount }},
	{name: "mean_revenue", f64: func(r *aggRec) *float64 { return &r.MeanRevenue }},
	{name: "total_revenue", f64: func(r *aggRec) *float64 { return &r.TotalRevenue }},
	{name: "mean_debt_ratio", f64: func(r *aggRec) *float64 { return &r.MeanDebtRatio }},
	{name: "mean_creditworthiness", f64: func(r *aggRec) *float64 { return &r.MeanCreditworthiness }},
	{name: "mean_digital_literacy", f64: func(r *aggRec) *float64 { return &r.MeanDigitalLiteracy }},
	{name: "mean_productivity", f64: func(r *aggRec) *float64 { return &r.MeanProductivity }},
	{name: "mean_skill_level", f64: func(r *aggRec) *float64 { return &r.MeanSkillLevel }},
	{name: "mean_compliance_cost", f64: func(r *aggRec) *float64 { return &r.MeanComplianceCost }},
	{name: "mean_costs", f64: func(r *aggRec) *float64 { return &r.MeanCosts }},
	{name: "mean_resilience", f64: func(r *aggRec) *float64 { return &r.MeanResilience }},
	{name: "mean_inclusion", f64: func(r *aggRec) *float64 { return &r.MeanInclusion }},
	{name: "formal_share", f64: func(r *aggRec) *float64 { return &r.FormalShare }},
	{name: "financing_access_rate", f64: func(r *aggRec) *float64 { return &r.FinancingAccessRate }},
	{name: "tech_adoption_rate", f64: func(r *aggRec) *float64 { return &r.TechAdoptionRate }},
	{name: "ecommerce_rate", f64: func(r *aggRec) *float64 { return &r.EcommerceRate }},
	{name: "innovator_rate", f64: func(r *aggRec) *float64 { return &r.InnovatorRate }},
	{name: "sustainability_rate", f64: func(r *aggRec) *float64 { return &r.SustainabilityRate }},
	{name: "exporter_rate", f64: func(r *aggRec) *float64 { return &r.ExporterRate }},
	{name: "exporter_count", i64: func(r *aggRec) *int { return &r.ExporterCount }},
	{name: "loans_sought", i64: func(r *aggRec) *int { return &r.LoansSought }},
	{name: "loans_approved", i64: func(r *aggRec) *int { return &r.LoansApproved }},
	{name: "mean_new_loan_rate", f64: func(r *aggRec) *float64 { return &r.MeanNewLoanRate }},
	{name: "new_tech_adopters", i64: func(r *aggRec) *int { return &r.NewTechAdopters }},
	{name: "new_ecommerce_users", i64: func(r *aggRec) *int { return &r.NewEcommerceUsers }},
	{name: "skill_improvements", i64: func(r *aggRec) *int { return &r.SkillImprovements }},
	{name: "new_formalizations", i64: func(r *aggRec) *int { return &r.NewFormalizations }},
	{name: "new_innovators", i64: func(r *aggRec) *int { return &r.NewInnovators }},
	{name: "new_sustainable", i64: func(r *aggRec) *int { return &r.NewSustainable }},
	{name: "shocked_count", i64: func(r *aggRec) *int { return &r.ShockedCount }},
	{name: "new_exporters", i64: func(r *aggRec) *int { return &r.NewExporters }},
	{name: "inclusion_improvements", i64: func(r *aggRec) *int { return &r.InclusionImprovement }},
	{name: "size_upgrades", i64: func(r *aggRec) *int { return &r.SizeUpgrades }},
	{name: "infrastructure_index", f64: func(r *aggRec) *float64 { return &r.InfrastructureIndex }},
}

// RecordSchema returns the Arrow schema of the results files.
func RecordSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(recordColumns))
	for i, c := range recordColumns {
		fields[i] = arrow.Field{Name: c.name, Type: c.dataType()}
	}
	return arrow.NewSchema(fields, nil)
}

// ArrowSink writes each scenario's records to an Arrow IPC file at
// <dir>/<scenario>_results.arrow, one record batch per scenario.
type ArrowSink struct {
	mu     sync.Mutex
	dir    string
	schema *arrow.Schema
	mem    memory.Allocator
	closed bool
}

// NewArrowSink creates an Arrow sink rooted at dir, creating it if needed.
func NewArrowSink(dir string) (*ArrowSink, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &ArrowSink{
		dir:    dir,
		schema: RecordSchema(),
		mem:    memory.NewGoAllocator(),
	}, nil
}

// Path returns the file scenario's records are written to.
func (s *ArrowSink) Path(scenario string) string {
	return ResultsPath(s.dir, scenario, "arrow")
}

// WriteResults writes records as a single record batch.
func (s *ArrowSink) WriteResults(ctx context.Context, scenario string, records []models.AggregateRecord) error {
	if err := checkScenario(scenario); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec := s.buildRecord(records)
	defer rec.Release()

	path := s.Path(scenario)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".results-*.arrow")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w, err := ipc.NewFileWriter(tmp, ipc.WithSchema(s.schema), ipc.WithAllocator(s.mem))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		tmp.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finish arrow file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move results into place: %w", err)
	}
	return nil
}

func (s *ArrowSink) buildRecord(records []models.AggregateRecord) arrow.Record {
	b := array.NewRecordBuilder(s.mem, s.schema)
	defer b.Release()

	for i := range records {
		r := &records[i]
		for j, c := range recordColumns {
			switch {
			case c.str != nil:
				b.Field(j).(*array.StringBuilder).Append(*c.str(r))
			case c.i64 != nil:
				b.Field(j).(*array.Int64Builder).Append(int64(*c.i64(r)))
			default:
				b.Field(j).(*array.Float64Builder).Append(*c.f64(r))
			}
		}
	}
	return b.NewRecord()
}

// Close marks the sink closed.
func (s *ArrowSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ReadArrow reads records written by ArrowSink.
func ReadArrow(path string) ([]models.AggregateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow file %s: %w", path, err)
	}
	defer r.Close()

	if !r.Schema().Equal(RecordSchema()) {
		return nil, fmt.Errorf("arrow file %s has an unexpected schema", path)
	}

	var records []models.AggregateRecord
	for i := 0; i < r.NumRecords(); i++ {
		batch, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		rows := int(batch.NumRows())
		start := len(records)
		records = append(records, make([]models.AggregateRecord, rows)...)
		for j, c := range recordColumns {
			col := batch.Column(j)
			for k := 0; k < rows; k++ {
				rec := &records[start+k]
				switch {
				case c.str != nil:
					*c.str(rec) = col.(*array.String).Value(k)
				case c.i64 != nil:
					*c.i64(rec) = int(col.(*array.Int64).Value(k))
				default:
					*c.f64(rec) = col.(*array.Float64).Value(k)
				}
			}
		}
	}
	return records, nil
}
