// Package types contains the request and response shapes shared by the
// service and its HTTP, CLI and MCP surfaces.
package types

import (
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/thresholds"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank       int                   `json:"rank"`
	ContractID string                `json:"contract_id"`
	Name       string                `json:"contract_name"`
	Summary    model.SummaryAverages `json:"summary"`
}

// RateRequest asks for the star rating of one value.
type RateRequest struct {
	Measure  model.MeasureCode  `json:"measure"`
	Value    model.MeasureValue `json:"value"`
	PlanType string             `json:"plan_type"`
}

// Rating is the classification of one value.
type Rating struct {
	Measure  model.MeasureCode  `json:"measure"`
	BaseCode string             `json:"base_code"`
	Part     model.Part         `json:"part"`
	PlanType model.PlanType     `json:"plan_type"`
	Value    model.MeasureValue `json:"value"`
	Star     model.StarRating   `json:"star"`
}

// SummaryRequest asks for the averages of an ad-hoc measure mapping.
type SummaryRequest struct {
	Measures model.Measures `json:"measures"`
	PlanType string         `json:"plan_type"`
}

// ContractReport is one contract with its baseline summary and detail rows.
type ContractReport struct {
	Contract model.Contract        `json:"contract"`
	PlanType model.PlanType        `json:"plan_type"`
	Summary  model.SummaryAverages `json:"summary"`
	Rows     []scoring.MeasureRow  `json:"rows"`
}

// ProjectionRequest describes a what-if scenario for one contract.
type ProjectionRequest struct {
	PlanType string `json:"plan_type"`
	// Overrides replace individual measure proportions.
	Overrides map[model.MeasureCode]float64 `json:"overrides"`
	// Boost adds percentage points to every overridden measure, capped at 100%.
	Boost float64 `json:"boost"`
	// Reset seeds the scenario with the baseline proportions of the measures of
	// interest before overrides and boost are applied.
	Reset bool `json:"reset"`
}

// RuleView is the listing shape of one threshold rule.
type RuleView struct {
	Code        string                                `json:"code"`
	Part        model.Part                            `json:"part"`
	Reverse     bool                                  `json:"reverse"`
	Cutoffs     *thresholds.Cutoffs                   `json:"cutoffs,omitempty"`
	PlanCutoffs map[model.PlanType]thresholds.Cutoffs `json:"plan_cutoffs,omitempty"`
}

// SimulationResult is the uplift projection of one contract.
type SimulationResult struct {
	Contract   model.ContractRef  `json:"contract"`
	Projection scoring.Projection `json:"projection"`
}

// SimulationReport is the outcome of a batch simulation.
type SimulationReport struct {
	RunID    string              `json:"run_id"`
	PlanType model.PlanType      `json:"plan_type"`
	Uplift   float64             `json:"uplift"`
	Measures []model.MeasureCode `json:"measures"`
	Results  []SimulationResult  `json:"results"`
}
