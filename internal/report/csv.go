package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// writeCSVWithHeader writes a header followed by the rows fn produces.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

var detailHeader = []string{"measure", "baseline", "baseline_star", "projected", "projected_star", "delta_pct"}

var simulationHeader = []string{
	"run_id", "plan_type", "contract_id", "contract_name",
	"baseline_part_c", "baseline_part_d", "baseline_overall",
	"projected_part_c", "projected_part_d", "projected_overall",
	"delta_overall",
}

func (r *Renderer) renderCSV(w io.Writer, v any) error {
	switch v := v.(type) {
	case types.Rating:
		return writeCSVWithHeader(w, []string{"measure", "base_code", "part", "plan_type", "value", "star"}, func(cw *csv.Writer) error {
			return cw.Write([]string{string(v.Measure), v.BaseCode, string(v.Part), string(v.PlanType), v.Value.String(), v.Star.String()})
		})
	case model.SummaryAverages:
		return writeCSVWithHeader(w, []string{"part_c", "part_d", "overall"}, func(cw *csv.Writer) error {
			return cw.Write(summaryCells(r, v))
		})
	case types.ContractReport:
		header := append([]string{"contract_id", "plan_type", "part_c", "part_d", "overall"}, detailHeader...)
		return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			prefix := append([]string{v.Contract.ID, string(v.PlanType)}, summaryCells(r, v.Summary)...)
			return writeDetail(cw, prefix, v.Rows)
		})
	case scoring.Projection:
		header := append([]string{"plan_type", "baseline_overall", "projected_overall", "delta_overall"}, detailHeader...)
		return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			prefix := []string{string(v.PlanType), r.average(v.Baseline.Overall), r.average(v.Projected.Overall), r.average(v.Delta.Overall)}
			return writeDetail(cw, prefix, v.Rows)
		})
	case []model.ContractRef:
		return writeCSVWithHeader(w, []string{"id", "contract_name"}, func(cw *csv.Writer) error {
			for _, c := range v {
				if err := cw.Write([]string{c.ID, c.Name}); err != nil {
					return err
				}
			}
			return nil
		})
	case []types.Entry:
		return writeCSVWithHeader(w, []string{"rank", "contract_id", "contract_name", "part_c", "part_d", "overall"}, func(cw *csv.Writer) error {
			for _, e := range v {
				if err := cw.Write(append([]string{strconv.Itoa(e.Rank), e.ContractID, e.Name}, summaryCells(r, e.Summary)...)); err != nil {
					return err
				}
			}
			return nil
		})
	case []types.RuleView:
		return writeCSVWithHeader(w, []string{"code", "part", "reverse", "plan_type", "cutoffs"}, func(cw *csv.Writer) error {
			return cw.WriteAll(ruleRows(v))
		})
	case types.SimulationReport:
		return writeCSVWithHeader(w, append(append([]string(nil), simulationHeader...), detailHeader...), func(cw *csv.Writer) error {
			for _, res := range v.Results {
				prefix := append([]string{v.RunID, string(v.PlanType)}, simulationSummaryCells(r, res)...)
				if len(res.Projection.Rows) == 0 {
					if err := cw.Write(append(prefix, make([]string, len(detailHeader))...)); err != nil {
						return err
					}
					continue
				}
				if err := writeDetail(cw, prefix, res.Projection.Rows); err != nil {
					return err
				}
			}
			return nil
		})
	default:
		return unsupported(CSV, v)
	}
}

func writeDetail(cw *csv.Writer, prefix []string, rows []scoring.MeasureRow) error {
	for _, row := range rows {
		rec := append(append([]string(nil), prefix...), rowCells(row)...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
