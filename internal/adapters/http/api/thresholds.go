package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// ThresholdDependencies defines the interface for rule listings.
type ThresholdDependencies interface {
	Thresholds(ctx context.Context, part model.Part) ([]types.RuleView, error)
}

// ThresholdsHandler lists the loaded threshold rules.
type ThresholdsHandler struct {
	deps ThresholdDependencies
}

// NewThresholdsHandler creates a new thresholds handler.
func NewThresholdsHandler(deps ThresholdDependencies) *ThresholdsHandler {
	return &ThresholdsHandler{deps: deps}
}

// HandleGetThresholds handles GET /thresholds?part=C|D requests.
func (h *ThresholdsHandler) HandleGetThresholds(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_thresholds"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var part model.Part
	switch p := strings.ToUpper(r.URL.Query().Get("part")); p {
	case "":
	case string(model.PartC), string(model.PartD):
		part = model.Part(p)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("unknown part %q", p)))
		return
	}
	rules, err := h.deps.Thresholds(r.Context(), part)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}
