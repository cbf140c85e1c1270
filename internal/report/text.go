package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

var (
	gainColor = color.New(color.FgGreen, color.Bold)
	lossColor = color.New(color.FgRed, color.Bold)
	naColor   = color.New(color.FgYellow)
)

// colorDelta highlights gains and losses.
func colorDelta(s string, sign float64) string {
	switch {
	case sign > 0:
		return gainColor.Sprint(s)
	case sign < 0:
		return lossColor.Sprint(s)
	default:
		return s
	}
}

func (r *Renderer) averageDelta(a model.Average) string {
	v, ok := a.Value()
	if !ok {
		return naColor.Sprint(model.NotApplicableText)
	}
	s := r.average(a)
	if v > 0 {
		s = "+" + s
	}
	return colorDelta(s, v)
}

func stars(s model.StarRating) string {
	if !s.IsRated() {
		return naColor.Sprint(model.NotApplicableText)
	}
	return s.String()
}

func changeCell(p model.PercentChange) string {
	n, ok := p.Points()
	if !ok {
		return naColor.Sprint(model.NotApplicableText)
	}
	s := p.String()
	if n > 0 {
		s = "+" + s
	}
	return colorDelta(s, float64(n))
}

func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func (r *Renderer) renderText(w io.Writer, v any) error {
	switch v := v.(type) {
	case types.Rating:
		return renderTable(w, []string{"Measure", "Part", "Plan", "Value", "Stars"}, [][]string{{
			string(v.Measure), string(v.Part), string(v.PlanType), v.Value.String(), stars(v.Star),
		}})
	case model.SummaryAverages:
		return renderTable(w, []string{"Part C", "Part D", "Overall"}, [][]string{summaryCells(r, v)})
	case types.ContractReport:
		return r.textContract(w, v)
	case scoring.Projection:
		return r.textProjection(w, v)
	case []model.ContractRef:
		data := make([][]string, 0, len(v))
		for _, c := range v {
			data = append(data, []string{c.ID, c.Name})
		}
		return renderTable(w, []string{"ID", "Name"}, data)
	case []types.Entry:
		data := make([][]string, 0, len(v))
		for _, e := range v {
			data = append(data, append([]string{strconv.Itoa(e.Rank), e.ContractID, e.Name}, summaryCells(r, e.Summary)...))
		}
		return renderTable(w, []string{"Rank", "ID", "Name", "Part C", "Part D", "Overall"}, data)
	case []types.RuleView:
		return renderTable(w, []string{"Code", "Part", "Reverse", "Plan", "Cutoffs"}, ruleRows(v))
	case types.SimulationReport:
		return r.textSimulation(w, v)
	default:
		return unsupported(Text, v)
	}
}

func (r *Renderer) textContract(w io.Writer, rep types.ContractReport) error {
	if _, err := fmt.Fprintf(w, "%s %s (%s)\n", rep.Contract.ID, rep.Contract.Name, rep.PlanType); err != nil {
		return err
	}
	data := make([][]string, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		data = append(data, []string{string(row.Measure), row.Baseline.Percent(), stars(row.BaselineStar)})
	}
	if err := renderTable(w, []string{"Measure", "Value", "Stars"}, data); err != nil {
		return err
	}
	return renderTable(w, []string{"Part C", "Part D", "Overall"}, [][]string{summaryCells(r, rep.Summary)})
}

func (r *Renderer) textProjection(w io.Writer, p scoring.Projection) error {
	data := make([][]string, 0, len(p.Rows))
	for _, row := range p.Rows {
		data = append(data, []string{
			string(row.Measure),
			row.Baseline.Percent(),
			stars(row.BaselineStar),
			row.Projected.Percent(),
			stars(row.ProjectedStar),
			changeCell(row.DeltaPct),
		})
	}
	if err := renderTable(w, []string{"Measure", "Baseline", "Stars", "Projected", "Stars", "Change"}, data); err != nil {
		return err
	}
	summary := [][]string{
		append([]string{"Baseline"}, summaryCells(r, p.Baseline)...),
		append([]string{"Projected"}, summaryCells(r, p.Projected)...),
		{"Delta", r.averageDelta(p.Delta.PartC), r.averageDelta(p.Delta.PartD), r.averageDelta(p.Delta.Overall)},
	}
	if err := renderTable(w, []string{string(p.PlanType), "Part C", "Part D", "Overall"}, summary); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) textSimulation(w io.Writer, rep types.SimulationReport) error {
	if _, err := fmt.Fprintf(w, "Run %s: %s, uplift %s over %d measures\n",
		rep.RunID, rep.PlanType, strconv.FormatFloat(rep.Uplift, 'f', -1, 64), len(rep.Measures)); err != nil {
		return err
	}
	var rows [][]string
	for _, res := range rep.Results {
		for _, row := range res.Projection.Rows {
			rows = append(rows, []string{
				res.Contract.ID,
				string(row.Measure),
				row.Baseline.Percent(),
				stars(row.BaselineStar),
				row.Projected.Percent(),
				stars(row.ProjectedStar),
				changeCell(row.DeltaPct),
			})
		}
	}
	if len(rows) > 0 {
		if err := renderTable(w, []string{"ID", "Measure", "Baseline", "Stars", "Projected", "Stars", "Change"}, rows); err != nil {
			return err
		}
	}
	data := make([][]string, 0, len(rep.Results))
	for _, res := range rep.Results {
		cells := simulationCells(r, res)
		cells[4] = r.averageDelta(res.Projection.Delta.Overall)
		data = append(data, cells)
	}
	return renderTable(w, []string{"ID", "Name", "Baseline", "Projected", "Delta"}, data)
}
