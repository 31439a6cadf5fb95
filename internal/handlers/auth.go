package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tablehop/apiserver/internal/auth"
	"github.com/tablehop/apiserver/internal/logging"
	"github.com/tablehop/apiserver/internal/services"
)

var errMissingToken = errors.New("missing bearer token")

// TokenVerifier validates bearer tokens. *auth.TokenService satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthHandler provides registration, login and logout endpoints.
type AuthHandler struct {
	userService *services.UserService
	logger      logging.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, logger logging.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler, logger logging.Logger) {
	handler := NewAuthHandler(userService, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Post("/logout", handler.Logout)
}

// RequireAuth enforces bearer authentication and stores the verified claims
// in the request context. A missing token is 403, a bad one is 401.
func RequireAuth(tokens TokenVerifier, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusForbidden, "No token provided")
				return
			}

			claims, err := tokens.Verify(r.Context(), tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					writeError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				logger.Error(r.Context(), "verify token", "error", err)
				writeError(w, http.StatusInternalServerError, "Failed to verify token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.userService.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "Username already exists")
			return
		}
		if errors.Is(err, services.ErrPasswordTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error(r.Context(), "register user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "User registered successfully"})
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.userService.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUnknownUser):
		writeError(w, http.StatusBadRequest, "Invalid Username")
		return
	case errors.Is(err, services.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "Incorrect Password")
		return
	default:
		h.logger.Error(r.Context(), "login", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Token: token})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.userService.Logout(r.Context(), claims); err != nil {
		h.logger.Error(r.Context(), "logout", "username", claims.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UnmarshalJSON trims the username so whitespace-only names are rejected.
func (c *CredentialsRequest) UnmarshalJSON(data []byte) error {
	type raw CredentialsRequest
	var v raw
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = CredentialsRequest(v)
	c.Username = strings.TrimSpace(c.Username)
	return nil
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}
