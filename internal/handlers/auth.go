package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/cbt-marketplace/apiserver/internal/auth"
	"github.com/cbt-marketplace/apiserver/internal/services"
	"github.com/cbt-marketplace/apiserver/internal/store"
	"github.com/cbt-marketplace/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler exchanges credentials for tokens and authenticates requests.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenIssuer
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Post("/token", h.Token)
	r.Post("/register", h.Register)
}

// RequireAuth validates the bearer token and loads the user it names.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeUnauthorized(w, messageUnauth)
			return
		}

		claims, err := h.tokens.Parse(tokenString)
		if err != nil {
			writeError(w, http.StatusForbidden, messageInvalid)
			return
		}

		user, err := h.userService.GetByEmail(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			writeServiceError(w, r, h.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), user)))
	})
}

// Token exchanges an email and password for an access token. It accepts a
// JSON body or an OAuth2 password form where username carries the email.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	req, err := parseTokenRequest(r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Register creates an account and returns it with an access token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.Registration
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "bearer",
	})
}

type TokenRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterResponse struct {
	User        types.User `json:"user"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
}

func parseTokenRequest(r *http.Request) (TokenRequest, error) {
	var req TokenRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	default:
		if err := decodeJSON(r, &req); err != nil {
			return TokenRequest{}, err
		}
	}
	if strings.TrimSpace(req.Email) == "" {
		req.Email = req.Username
	}
	req.Email = strings.TrimSpace(req.Email)
	return req, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
