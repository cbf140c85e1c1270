package report

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// LeaderboardRecord is one ranked contract in a Parquet export.
type LeaderboardRecord struct {
	Rank         int32    `parquet:"rank,snappy"`
	ContractID   string   `parquet:"contract_id,snappy"`
	ContractName string   `parquet:"contract_name,snappy"`
	PartC        *float64 `parquet:"part_c,optional,snappy"`
	PartD        *float64 `parquet:"part_d,optional,snappy"`
	Overall      *float64 `parquet:"overall,optional,snappy"`
}

// SimulationRecord is one measure of one contract in a batch simulation
// export, with the contract's averages repeated on every record. Not-applicable
// values, ratings and averages are stored as nulls.
type SimulationRecord struct {
	RunID            string   `parquet:"run_id,snappy"`
	PlanType         string   `parquet:"plan_type,snappy"`
	Uplift           float64  `parquet:"uplift,snappy"`
	ContractID       string   `parquet:"contract_id,snappy"`
	ContractName     string   `parquet:"contract_name,snappy"`
	Measure          string   `parquet:"measure,optional,snappy"`
	Baseline         *float64 `parquet:"baseline,optional,snappy"`
	BaselineStar     *int32   `parquet:"baseline_star,optional,snappy"`
	Projected        *float64 `parquet:"projected,optional,snappy"`
	ProjectedStar    *int32   `parquet:"projected_star,optional,snappy"`
	DeltaPct         *int32   `parquet:"delta_pct,optional,snappy"`
	BaselinePartC    *float64 `parquet:"baseline_part_c,optional,snappy"`
	BaselinePartD    *float64 `parquet:"baseline_part_d,optional,snappy"`
	BaselineOverall  *float64 `parquet:"baseline_overall,optional,snappy"`
	ProjectedPartC   *float64 `parquet:"projected_part_c,optional,snappy"`
	ProjectedPartD   *float64 `parquet:"projected_part_d,optional,snappy"`
	ProjectedOverall *float64 `parquet:"projected_overall,optional,snappy"`
	DeltaOverall     *float64 `parquet:"delta_overall,optional,snappy"`
}

func nullable(a model.Average) *float64 {
	v, ok := a.Value()
	if !ok {
		return nil
	}
	return &v
}

// LeaderboardRecords converts ranked entries into Parquet rows.
func LeaderboardRecords(entries []types.Entry) []LeaderboardRecord {
	out := make([]LeaderboardRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardRecord{
			Rank:         int32(e.Rank), //nolint:gosec // ranks are bounded by the contract count
			ContractID:   e.ContractID,
			ContractName: e.Name,
			PartC:        nullable(e.Summary.PartC),
			PartD:        nullable(e.Summary.PartD),
			Overall:      nullable(e.Summary.Overall),
		})
	}
	return out
}

// SimulationRecords converts a simulation report into Parquet rows, one per
// contract and measure. A contract without measures still gets one record.
func SimulationRecords(rep types.SimulationReport) []SimulationRecord {
	out := make([]SimulationRecord, 0, len(rep.Results)*len(rep.Measures))
	for _, res := range rep.Results {
		p := res.Projection
		base := SimulationRecord{
			RunID:            rep.RunID,
			PlanType:         string(rep.PlanType),
			Uplift:           rep.Uplift,
			ContractID:       res.Contract.ID,
			ContractName:     res.Contract.Name,
			BaselinePartC:    nullable(p.Baseline.PartC),
			BaselinePartD:    nullable(p.Baseline.PartD),
			BaselineOverall:  nullable(p.Baseline.Overall),
			ProjectedPartC:   nullable(p.Projected.PartC),
			ProjectedPartD:   nullable(p.Projected.PartD),
			ProjectedOverall: nullable(p.Projected.Overall),
			DeltaOverall:     nullable(p.Delta.Overall),
		}
		if len(p.Rows) == 0 {
			out = append(out, base)
			continue
		}
		for _, row := range p.Rows {
			rec := base
			rec.Measure = string(row.Measure)
			rec.Baseline = nullableValue(row.Baseline)
			rec.BaselineStar = nullableStar(row.BaselineStar)
			rec.Projected = nullableValue(row.Projected)
			rec.ProjectedStar = nullableStar(row.ProjectedStar)
			if n, ok := row.DeltaPct.Points(); ok {
				pts := int32(n) //nolint:gosec // whole percentage points stay within ±100
				rec.DeltaPct = &pts
			}
			out = append(out, rec)
		}
	}
	return out
}

func nullableValue(v model.MeasureValue) *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

func nullableStar(s model.StarRating) *int32 {
	if !s.IsRated() {
		return nil
	}
	n := int32(s)
	return &n
}

// writeParquet writes rows using the schema inferred from T's struct tags.
func writeParquet[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func renderParquet(w io.Writer, v any) error {
	switch v := v.(type) {
	case []types.Entry:
		return writeParquet(w, LeaderboardRecords(v))
	case types.SimulationReport:
		return writeParquet(w, SimulationRecords(v))
	default:
		return unsupported(Parquet, v)
	}
}
