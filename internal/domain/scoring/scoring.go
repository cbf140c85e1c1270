// Package scoring classifies measure values into star ratings and aggregates
// them into summary averages.
package scoring

import (
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scenario"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
)

const averagePlaces = 2

// Rules abstracts the threshold repository lookups the engine needs.
type Rules interface {
	Lookup(baseCode string, part model.Part, plan model.PlanType) (thresholds.Table, bool)
	Has(baseCode string, part model.Part) bool
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDefaultPlanType sets the plan type used when a caller passes an empty one.
func WithDefaultPlanType(pt model.PlanType) Option {
	return func(e *Engine) {
		if pt != "" {
			e.defaultPlan = pt
		}
	}
}

// Engine is a stateless rating engine over a read-only rule set. It is safe
// for concurrent use.
type Engine struct {
	rules       Rules
	defaultPlan model.PlanType
}

// NewEngine creates an engine backed by rules.
func NewEngine(rules Rules, opts ...Option) *Engine {
	e := &Engine{
		rules:       rules,
		defaultPlan: model.DefaultPlanType,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultPlanType returns the plan type applied to empty plan arguments.
func (e *Engine) DefaultPlanType() model.PlanType { return e.defaultPlan }

func (e *Engine) plan(pt model.PlanType) model.PlanType {
	if pt == "" {
		return e.defaultPlan
	}
	return pt
}

// Classify rates a single value. Markers and codes without a rule yield
// NotRated; a numeric value that clears no tier still earns one star.
func (e *Engine) Classify(value model.MeasureValue, code model.MeasureCode, isPartD bool, plan model.PlanType) model.StarRating {
	v, ok := value.Float()
	if !ok {
		return model.NotRated
	}
	part := model.PartC
	if isPartD {
		part = model.PartD
	}
	tbl, ok := e.rules.Lookup(code.BaseCode(), part, e.plan(plan))
	if !ok {
		return model.NotRated
	}
	return tier(v, tbl)
}

// tier scans from the 5-star boundary down; the first boundary met wins.
func tier(v float64, tbl thresholds.Table) model.StarRating {
	for i := thresholds.TierCount - 1; i >= 0; i-- {
		c := tbl.Cutoffs[i]
		if (!tbl.Reverse && v >= c) || (tbl.Reverse && v <= c) {
			return model.StarRating(i + 1)
		}
	}
	return model.MinStars
}

// Stars holds the individual ratings that fed a summary, by part.
type Stars struct {
	PartC []model.StarRating
	PartD []model.StarRating
}

// Collect classifies every numeric measure with a known rule, grouping stars
// by part. Measures are visited in code order so results are reproducible.
func (e *Engine) Collect(measures model.Measures, plan model.PlanType) Stars {
	var s Stars
	for _, code := range measures.Codes() {
		value := measures[code]
		if !value.IsNumeric() {
			continue
		}
		part := code.Part()
		if !e.rules.Has(code.BaseCode(), part) {
			continue
		}
		star := e.Classify(value, code, part == model.PartD, plan)
		if !star.IsRated() {
			continue
		}
		if part == model.PartD {
			s.PartD = append(s.PartD, star)
		} else {
			s.PartC = append(s.PartC, star)
		}
	}
	return s
}

// Aggregate computes the Part C, Part D and overall averages. The overall
// average is the mean of every individual star, not of the two part averages.
func (e *Engine) Aggregate(measures model.Measures, plan model.PlanType) model.SummaryAverages {
	s := e.Collect(measures, plan)
	all := make([]model.StarRating, 0, len(s.PartC)+len(s.PartD))
	all = append(all, s.PartC...)
	all = append(all, s.PartD...)
	return model.SummaryAverages{
		PartC:   mean(s.PartC),
		PartD:   mean(s.PartD),
		Overall: mean(all),
	}
}

func mean(stars []model.StarRating) model.Average {
	if len(stars) == 0 {
		return model.NoAverage()
	}
	sum := 0
	for _, s := range stars {
		sum += int(s)
	}
	return model.NewAverage(model.Round(float64(sum)/float64(len(stars)), averagePlaces))
}

// MeasureRow compares one measure between a baseline and a projection.
type MeasureRow struct {
	Measure       model.MeasureCode   `json:"measure"`
	Part          model.Part          `json:"part"`
	Baseline      model.MeasureValue  `json:"baseline"`
	BaselineStar  model.StarRating    `json:"baseline_star"`
	Projected     model.MeasureValue  `json:"projected"`
	ProjectedStar model.StarRating    `json:"projected_star"`
	DeltaPct      model.PercentChange `json:"delta_pct"`
}

// Detail builds one row per code, in the given order.
func (e *Engine) Detail(baseline, projected model.Measures, codes []model.MeasureCode, plan model.PlanType) []MeasureRow {
	rows := make([]MeasureRow, 0, len(codes))
	for _, code := range codes {
		before := baseline.Get(code)
		after := projected.Get(code)
		rows = append(rows, MeasureRow{
			Measure:       code,
			Part:          code.Part(),
			Baseline:      before,
			BaselineStar:  e.Classify(before, code, code.IsPartD(), plan),
			Projected:     after,
			ProjectedStar: e.Classify(after, code, code.IsPartD(), plan),
			DeltaPct:      model.ChangeBetween(before, after),
		})
	}
	return rows
}

// Projection is the outcome of a what-if scenario.
type Projection struct {
	PlanType  model.PlanType        `json:"plan_type"`
	Baseline  model.SummaryAverages `json:"baseline"`
	Projected model.SummaryAverages `json:"projected"`
	Delta     model.SummaryAverages `json:"delta"`
	Rows      []MeasureRow          `json:"rows"`
}

// Project lays overrides over baseline and aggregates both. Rows cover the
// overridden measures in code order.
func (e *Engine) Project(baseline model.Measures, overrides scenario.Overrides, plan model.PlanType) Projection {
	return e.ProjectCodes(baseline, overrides, overrides.Codes(), plan)
}

// ProjectCodes is Project with detail rows for an explicit list of codes.
func (e *Engine) ProjectCodes(baseline model.Measures, overrides scenario.Overrides, codes []model.MeasureCode, plan model.PlanType) Projection {
	plan = e.plan(plan)
	combined := scenario.Apply(baseline, overrides)
	before := e.Aggregate(baseline, plan)
	after := e.Aggregate(combined, plan)
	return Projection{
		PlanType:  plan,
		Baseline:  before,
		Projected: after,
		Delta:     after.Sub(before),
		Rows:      e.Detail(baseline, combined, codes, plan),
	}
}
