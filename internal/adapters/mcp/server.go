// Package mcp exposes the rating service as Model Context Protocol tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// Server identity reported to MCP clients.
const (
	ServerName    = "starcalc"
	ServerVersion = "1.0.0"
)

// Dependencies are the service operations the tools call.
type Dependencies interface {
	Classify(ctx context.Context, code model.MeasureCode, value model.MeasureValue, plan string) (types.Rating, error)
	Contracts(ctx context.Context, query string) ([]model.ContractRef, error)
	Contract(ctx context.Context, id, plan string) (types.ContractReport, error)
	Project(ctx context.Context, id string, req types.ProjectionRequest) (scoring.Projection, error)
	Leaderboard(ctx context.Context, n int, plan string) ([]types.Entry, error)
}

var planTypes = []string{string(model.PlanMAPD), string(model.PlanPDP)}

// NewMCPServer registers every tool without starting the server.
func NewMCPServer(deps Dependencies) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithLogging(),
	)

	h := &toolHandler{deps: deps}

	s.AddTool(mcp.NewTool("rate_measure",
		mcp.WithDescription("Classify one measure value into a 1-5 star rating."),
		mcp.WithString("measure", mcp.Description("Full measure code, e.g. 'C14: Medication Reconciliation Post-Discharge'."), mcp.Required()),
		mcp.WithString("value", mcp.Description("Proportion in [0,1], or a marker such as 'N/A'."), mcp.Required()),
		mcp.WithString("plan_type", mcp.Description("Part D plan type. Defaults to the configured plan type."), mcp.Enum(planTypes...)),
	), h.handleRateMeasure)

	s.AddTool(mcp.NewTool("contract_summary",
		mcp.WithDescription("Part C, Part D and overall star averages of a loaded contract, with detail rows."),
		mcp.WithString("contract_id", mcp.Description("Contract ID, e.g. 'H1234'."), mcp.Required()),
		mcp.WithString("plan_type", mcp.Description("Part D plan type."), mcp.Enum(planTypes...)),
	), h.handleContractSummary)

	s.AddTool(mcp.NewTool("project_contract",
		mcp.WithDescription("Project a contract's averages under what-if measure values."),
		mcp.WithString("contract_id", mcp.Description("Contract ID."), mcp.Required()),
		mcp.WithString("overrides", mcp.Description("JSON object mapping full measure codes to proportions in [0,1].")),
		mcp.WithNumber("boost", mcp.Description("Percentage points added to every measure of interest and override, capped at 100%.")),
		mcp.WithBoolean("reset", mcp.Description("Seed the scenario with the baseline values of the measures of interest.")),
		mcp.WithString("plan_type", mcp.Description("Part D plan type."), mcp.Enum(planTypes...)),
	), h.handleProjectContract)

	s.AddTool(mcp.NewTool("list_contracts",
		mcp.WithDescription("List loaded contracts, optionally filtered by name."),
		mcp.WithString("query", mcp.Description("Case-insensitive substring of the contract name.")),
	), h.handleListContracts)

	s.AddTool(mcp.NewTool("leaderboard",
		mcp.WithDescription("Contracts ranked by overall star average."),
		mcp.WithNumber("limit", mcp.Description("Number of entries. Defaults to 10.")),
		mcp.WithString("plan_type", mcp.Description("Part D plan type."), mcp.Enum(planTypes...)),
	), h.handleLeaderboard)

	return s
}

// ServeStdio runs the MCP server on stdin/stdout until the client disconnects.
func ServeStdio(deps Dependencies) error {
	return server.ServeStdio(NewMCPServer(deps))
}
