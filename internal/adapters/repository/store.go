// Package repository holds the loaded contracts and ranks them by their
// baseline overall star average.
package repository

import (
	"context"

	"github.com/nmgenxys/starcalc/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank       int                   `json:"rank"`
	ContractID string                `json:"contract_id"`
	Name       string                `json:"contract_name"`
	Summary    model.SummaryAverages `json:"summary"`
}

// Summarizer computes the averages a contract is ranked by.
type Summarizer interface {
	Aggregate(measures model.Measures, plan model.PlanType) model.SummaryAverages
	DefaultPlanType() model.PlanType
}

// Store provides read access to the loaded contracts.
type Store interface {
	// Get returns the contract with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (model.Contract, error)

	// List returns every contract reference ordered by ID.
	List(ctx context.Context) []model.ContractRef

	// FindByName returns contracts whose name contains query, ignoring case.
	FindByName(ctx context.Context, query string) []model.ContractRef

	// Rank returns the leaderboard row for one contract.
	// Returns ErrNotFound if the contract is unknown.
	Rank(ctx context.Context, id string, plan model.PlanType) (Entry, error)

	// TopN returns the top-N entries ordered by overall average desc.
	TopN(ctx context.Context, n int, plan model.PlanType) ([]Entry, error)

	// Count returns the number of contracts.
	Count(ctx context.Context) int
}
