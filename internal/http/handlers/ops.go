package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coreqcapital/coreq-migrate/internal/http/respond"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/middleware"
	"github.com/coreqcapital/coreq-migrate/internal/models/dto"
)

// StatusRefresher runs a loan status pass.
type StatusRefresher interface {
	Run(ctx context.Context) (dto.StatusRefreshResponse, error)
}

// RateFixer runs an interest-rate repair pass.
type RateFixer interface {
	Run(ctx context.Context) (dto.RateFixResponse, error)
}

// OpsHandler exposes the maintenance jobs. Routes are expected behind admin auth.
type OpsHandler struct {
	statuses StatusRefresher
	rates    RateFixer
}

// NewOpsHandler constructs the handler.
func NewOpsHandler(statuses StatusRefresher, rates RateFixer) *OpsHandler {
	return &OpsHandler{statuses: statuses, rates: rates}
}

// Register attaches the ops routes to mux, wrapping each with guard.
func (h *OpsHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("/statuses/refresh", guard(http.HandlerFunc(h.handleRefresh)))
	mux.Handle("/loans/fix-rates", guard(http.HandlerFunc(h.handleFixRates)))
}

func (h *OpsHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}
	logRequester(r, "status refresh requested")
	res, err := h.statuses.Run(r.Context())
	if err != nil {
		logger.CtxError(r.Context(), "status refresh failed", err)
		respond.Error(w, http.StatusInternalServerError, "status refresh failed")
		return
	}
	respond.JSON(w, http.StatusOK, "loan statuses updated", res)
}

func (h *OpsHandler) handleFixRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}
	logRequester(r, "rate fix requested")
	res, err := h.rates.Run(r.Context())
	if err != nil {
		logger.CtxError(r.Context(), "fix loan rates failed", err)
		respond.Error(w, http.StatusInternalServerError, "fix loan rates failed")
		return
	}
	respond.JSON(w, http.StatusOK, "loan rates fixed", res)
}

func logRequester(r *http.Request, msg string) {
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
		logger.CtxInfo(r.Context(), msg, slog.Int64("user_id", claims.UserID), slog.String("username", claims.Username))
	}
}
