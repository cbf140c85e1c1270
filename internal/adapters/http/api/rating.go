package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// RatingDependencies defines the interface for ad-hoc rating operations.
type RatingDependencies interface {
	Classify(ctx context.Context, code model.MeasureCode, value model.MeasureValue, plan string) (types.Rating, error)
	Summarize(ctx context.Context, measures model.Measures, plan string) (model.SummaryAverages, error)
}

// RatingHandler rates values and measure mappings that are not stored.
type RatingHandler struct {
	deps RatingDependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// HandleRate handles POST /rate requests.
func (h *RatingHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.RateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(string(req.Measure)) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing measure")))
		return
	}
	rating, err := h.deps.Classify(r.Context(), req.Measure, req.Value, req.PlanType)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// HandleSummary handles POST /summary requests.
func (h *RatingHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_summary"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req types.SummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	summary, err := h.deps.Summarize(r.Context(), req.Measures, req.PlanType)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
