package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/historyguide/apiserver/internal/services"
)

// SubjectVerifier validates a bearer token and returns its subject.
type SubjectVerifier interface {
	Subject(token string) (string, error)
}

// AuthHandler provides registration, login and profile endpoints.
type AuthHandler struct {
	authService *services.AuthService
	logger      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(
	r chi.Router,
	authService *services.AuthService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewAuthHandler(authService, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Get("/myprofile", handler.MyProfile)
}

// RequireAuth enforces bearer authentication and injects the subject into context.
func RequireAuth(verifier SubjectVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := verifier.Subject(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	_, err := h.authService.Register(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			writeError(w, http.StatusConflict, "Email already in use.")
			return
		}
		h.logger.ErrorContext(r.Context(), "register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "User registered successfully."})
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.ErrorContext(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: result.Token})
}

// MyProfile returns the authenticated user's profile.
func (h *AuthHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "profile lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,notblank"`
	LastName  string `json:"lastName" validate:"required,notblank"`
	Email     string `json:"email" validate:"required,notblank"`
	Password  string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var missing *missingFieldsError
	if errors.As(err, &missing) {
		writeError(w, http.StatusBadRequest, missing.Error())
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request")
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
