// Package report renders ratings, projections and rankings as tables, JSON,
// CSV or Parquet.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// Format names an output encoding.
type Format string

const (
	Text    Format = "text"
	JSON    Format = "json"
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// DefaultPrecision is the number of decimals used for averages.
const DefaultPrecision = 2

var (
	// ErrUnknownFormat is returned by ParseFormat for an unsupported name.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrUnsupported is returned when a result has no rendering in a format.
	ErrUnsupported = errors.New("result not supported by output format")
)

// ParseFormat normalizes a format name. An empty name is Text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "table":
		return Text, nil
	case Text, JSON, CSV, Parquet:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Binary reports whether the format must not be written to a terminal.
func (f Format) Binary() bool { return f == Parquet }

// Renderer writes results in one format.
type Renderer struct {
	format    Format
	precision int
}

// New creates a renderer. A negative precision falls back to DefaultPrecision.
func New(format Format, precision int) *Renderer {
	if precision < 0 {
		precision = DefaultPrecision
	}
	if format == "" {
		format = Text
	}
	return &Renderer{format: format, precision: precision}
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format { return r.format }

// Render writes v to w. v must be one of the result types returned by the
// service.
func (r *Renderer) Render(w io.Writer, v any) error {
	switch r.format {
	case JSON:
		return writeJSON(w, v)
	case CSV:
		return r.renderCSV(w, v)
	case Parquet:
		return renderParquet(w, v)
	default:
		return r.renderText(w, v)
	}
}

// RenderTo writes v to the file at path, or to stdout when path is empty.
// A nil stdout means os.Stdout.
func (r *Renderer) RenderTo(path string, stdout io.Writer, v any) error {
	if path == "" && r.format.Binary() {
		return fmt.Errorf("%w: %s output needs a file", ErrUnsupported, r.format)
	}
	return writeWithFile(path, stdout, func(w io.Writer) error {
		return r.Render(w, v)
	})
}

// writeWithFile opens path for writing, or uses stdout for an empty path.
func writeWithFile(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		if stdout == nil {
			stdout = os.Stdout
		}
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeJSON encodes data with consistent indentation.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func unsupported(f Format, v any) error {
	return fmt.Errorf("%w: %s for %T", ErrUnsupported, f, v)
}

// average formats a with the renderer's precision.
func (r *Renderer) average(a model.Average) string { return a.Format(r.precision) }

func summaryCells(r *Renderer, s model.SummaryAverages) []string {
	return []string{r.average(s.PartC), r.average(s.PartD), r.average(s.Overall)}
}

func rowCells(row scoring.MeasureRow) []string {
	return []string{
		string(row.Measure),
		row.Baseline.Percent(),
		row.BaselineStar.String(),
		row.Projected.Percent(),
		row.ProjectedStar.String(),
		row.DeltaPct.String(),
	}
}

func simulationCells(r *Renderer, res types.SimulationResult) []string {
	p := res.Projection
	return []string{
		res.Contract.ID,
		res.Contract.Name,
		r.average(p.Baseline.Overall),
		r.average(p.Projected.Overall),
		r.average(p.Delta.Overall),
	}
}

// simulationSummaryCells holds every average of one simulated contract, the
// columns repeated on each of its detail records.
func simulationSummaryCells(r *Renderer, res types.SimulationResult) []string {
	p := res.Projection
	cells := []string{res.Contract.ID, res.Contract.Name}
	cells = append(cells, summaryCells(r, p.Baseline)...)
	cells = append(cells, summaryCells(r, p.Projected)...)
	return append(cells, r.average(p.Delta.Overall))
}

// ruleRows flattens rules into one row per cutoff table.
func ruleRows(rules []types.RuleView) [][]string {
	var data [][]string
	for _, rv := range rules {
		reverse := strconv.FormatBool(rv.Reverse)
		if rv.Cutoffs != nil {
			data = append(data, []string{rv.Code, string(rv.Part), reverse, "", formatCutoffs(*rv.Cutoffs)})
			continue
		}
		plans := make([]string, 0, len(rv.PlanCutoffs))
		for pt := range rv.PlanCutoffs {
			plans = append(plans, string(pt))
		}
		sort.Strings(plans)
		for _, pt := range plans {
			data = append(data, []string{rv.Code, string(rv.Part), reverse, pt, formatCutoffs(rv.PlanCutoffs[model.PlanType(pt)])})
		}
	}
	return data
}

func formatCutoffs(c thresholds.Cutoffs) string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}
