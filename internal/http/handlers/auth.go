package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreqcapital/coreq-migrate/internal/auth"
	"github.com/coreqcapital/coreq-migrate/internal/http/respond"
	"github.com/coreqcapital/coreq-migrate/internal/logger"
	"github.com/coreqcapital/coreq-migrate/internal/models/dto"
)

// LoginService checks staff credentials and mints tokens.
type LoginService interface {
	Login(ctx context.Context, identifier, password string) (dto.LoginResponse, error)
}

// AuthHandler owns the login endpoint used to obtain an ops token.
type AuthHandler struct {
	logins LoginService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(logins LoginService) *AuthHandler {
	return &AuthHandler{logins: logins}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/login", h.handleLogin)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, http.MethodPost)
		return
	}
	var req dto.LoginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}
	res, err := h.logins.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrInactiveUser):
			respond.Error(w, http.StatusForbidden, "user is inactive")
		default:
			logger.CtxError(r.Context(), "login failed", err, slog.String("identifier", req.Identifier))
			respond.Error(w, http.StatusInternalServerError, "failed to log in")
		}
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", res)
}
