package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/types"
	"github.com/nmgenxys/starcalc/pkg/metrics"
)

const defaultLimit = 10

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	deps Dependencies
}

// result renders v as indented JSON and records the call outcome.
func result(tool string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return failure(tool, "encode result: %v", err)
	}
	metrics.RecordToolCall(tool, "ok")
	return mcp.NewToolResultText(string(data)), nil
}

// failure reports a tool-level error. Protocol errors are reserved for
// transport problems.
func failure(tool, format string, args ...any) (*mcp.CallToolResult, error) {
	metrics.RecordToolCall(tool, "error")
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

func (h *toolHandler) handleRateMeasure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "rate_measure"
	code := request.GetString("measure", "")
	if strings.TrimSpace(code) == "" {
		return failure(tool, "measure is required")
	}
	r, err := h.deps.Classify(ctx, model.MeasureCode(code), model.ParseValue(request.GetString("value", "")), request.GetString("plan_type", ""))
	if err != nil {
		return failure(tool, "rating failed: %v", err)
	}
	return result(tool, r)
}

func (h *toolHandler) handleContractSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "contract_summary"
	id := request.GetString("contract_id", "")
	if id == "" {
		return failure(tool, "contract_id is required")
	}
	rep, err := h.deps.Contract(ctx, id, request.GetString("plan_type", ""))
	if err != nil {
		return failure(tool, "summary failed: %v", err)
	}
	return result(tool, rep)
}

func (h *toolHandler) handleProjectContract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "project_contract"
	id := request.GetString("contract_id", "")
	if id == "" {
		return failure(tool, "contract_id is required")
	}
	req := types.ProjectionRequest{
		PlanType: request.GetString("plan_type", ""),
		Boost:    request.GetFloat("boost", 0),
		Reset:    request.GetBool("reset", false),
	}
	if raw := request.GetString("overrides", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Overrides); err != nil {
			return failure(tool, "invalid overrides: %v", err)
		}
	}
	p, err := h.deps.Project(ctx, id, req)
	if err != nil {
		return failure(tool, "projection failed: %v", err)
	}
	return result(tool, p)
}

func (h *toolHandler) handleListContracts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "list_contracts"
	refs, err := h.deps.Contracts(ctx, request.GetString("query", ""))
	if err != nil {
		return failure(tool, "listing failed: %v", err)
	}
	return result(tool, refs)
}

func (h *toolHandler) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "leaderboard"
	n := request.GetInt("limit", defaultLimit)
	if n < 1 {
		return failure(tool, "limit must be at least 1")
	}
	entries, err := h.deps.Leaderboard(ctx, n, request.GetString("plan_type", ""))
	if err != nil {
		return failure(tool, "leaderboard failed: %v", err)
	}
	return result(tool, entries)
}
