package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/auth"
	"github.com/cbt-marketplace/apiserver/internal/policy"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultLimit   = 100
	maxLimit       = 100
	maxJSONBody    = 1 << 20
	messageUnauth  = "not authenticated"
	messageInvalid = "could not validate credentials"
)

type contextKey string

const contextActorKey contextKey = "actor"

func withActor(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextActorKey, user)
}

// actorFromContext returns the authenticated user stored by RequireAuth.
func actorFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextActorKey).(types.User)
	return user, ok && user.ID != ""
}

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ListResponse is the paginated list response payload.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}

// writeServiceError maps service, policy and store errors onto HTTP statuses.
// Unexpected errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: verr.Violations})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "referenced record does not exist")
	case errors.Is(err, policy.ErrForbidden):
		writeError(w, http.StatusForbidden, "not enough permissions")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeUnauthorized(w, "incorrect email or password")
	case errors.Is(err, services.ErrInactiveUser):
		writeError(w, http.StatusBadRequest, "inactive user")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, messageInvalid)
	case errors.Is(err, services.ErrMediaDisabled):
		writeError(w, http.StatusNotFound, "media storage is disabled")
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a single JSON object. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid request body",
		Details: map[string]string{"body": err.Error()},
	})
}

// parsePagination reads skip and limit. Limits above maxLimit are clamped.
func parsePagination(r *http.Request) (skip, limit int, err error) {
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("skip")); raw != "" {
		skip, err = strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return 0, 0, errors.New("invalid skip")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit, nil
}

func writeQueryError(w http.ResponseWriter, field string, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid query",
		Details: map[string]string{field: err.Error()},
	})
}

// requireActor returns the authenticated user or writes 401.
func requireActor(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, messageUnauth)
	}
	return actor, ok
}
