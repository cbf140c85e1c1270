// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/nmgenxys/starcalc/internal/adapters/repository"
	service "github.com/nmgenxys/starcalc/internal/app"
	"github.com/nmgenxys/starcalc/internal/domain/model"
	"github.com/nmgenxys/starcalc/internal/domain/scenario"
	"github.com/nmgenxys/starcalc/internal/domain/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RatingDependencies
	ContractDependencies
	RankDependencies
	LeaderboardDependencies
	ThresholdDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	ratingHandler      *RatingHandler
	contractsHandler   *ContractsHandler
	rankHandler        *RankHandler
	leaderboardHandler *LeaderboardHandler
	thresholdsHandler  *ThresholdsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		ratingHandler:      NewRatingHandler(deps),
		contractsHandler:   NewContractsHandler(deps),
		rankHandler:        NewRankHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		thresholdsHandler:  NewThresholdsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleHealth)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	// Business routes carry a request ID.
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	route("/rate", "rate", s.ratingHandler.HandleRate)
	route("/summary", "summary", s.ratingHandler.HandleSummary)
	route("/contracts", "contracts", s.contractsHandler.HandleList)
	route("/contracts/{id}", "contract", s.contractsHandler.HandleGet)
	route("/contracts/{id}/projection", "projection", s.contractsHandler.HandleProject)
	route("/contracts/{id}/rank", "rank", s.rankHandler.HandleGetRank)
	route("/leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	route("/thresholds", "thresholds", s.thresholdsHandler.HandleGetThresholds)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// isBadRequest reports errors caused by the caller's input.
func isBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, model.ErrUnknownPlanType) ||
		errors.Is(err, scenario.ErrOutOfRange) ||
		errors.Is(err, scenario.ErrInvalidBoost) ||
		errors.Is(err, repository.ErrInvalidLimit)
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, repository.ErrNotFound)
}

// writeServiceError maps an upstream error to a status and error code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isBadRequest(err):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
