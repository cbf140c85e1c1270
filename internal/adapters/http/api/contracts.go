package api

import (
	"context"
	"net/http"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scoring"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// ContractDependencies defines the interface for stored contract operations.
type ContractDependencies interface {
	Contracts(ctx context.Context, query string) ([]model.ContractRef, error)
	Contract(ctx context.Context, id, plan string) (types.ContractReport, error)
	Project(ctx context.Context, id string, req types.ProjectionRequest) (scoring.Projection, error)
}

// ContractsHandler serves the loaded contracts and their projections.
type ContractsHandler struct {
	deps ContractDependencies
}

// NewContractsHandler creates a new contracts handler.
func NewContractsHandler(deps ContractDependencies) *ContractsHandler {
	return &ContractsHandler{deps: deps}
}

// HandleList handles GET /contracts?q=name requests.
func (h *ContractsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_contracts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	refs, err := h.deps.Contracts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

// HandleGet handles GET /contracts/{id}?plan_type= requests.
func (h *ContractsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_contract"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rep, err := h.deps.Contract(r.Context(), r.PathValue("id"), r.URL.Query().Get("plan_type"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleProject handles POST /contracts/{id}/projection requests.
func (h *ContractsHandler) HandleProject(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_projection"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.ProjectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.Project(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
