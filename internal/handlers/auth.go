package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/my-app/apiserver/internal/auth"
	"github.com/my-app/apiserver/internal/services"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 100
	minNameLen     = 2
	maxNameLen     = 50
)

// AuthHandler provides the authentication endpoints: registration, login,
// token refresh, profile, logout, and the password-reset flow.
type AuthHandler struct {
	authService *services.AuthService
	tokens      *auth.TokenManager
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, tokens *auth.TokenManager) {
	handler := NewAuthHandler(authService, tokens)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh", handler.Refresh)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
}

// RequireAuth enforces access-token authentication and injects the account
// into context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.tokens, h.authService)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(tokens *auth.TokenManager, authService *services.AuthService) func(http.Handler) http.Handler {
	return requireAuth(tokens, authService)
}

// requireAuth verifies the bearer token, rejects anything that is not an
// access token, and re-resolves the account so a token outliving its
// account is useless.
func requireAuth(tokens *auth.TokenManager, authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil || claims.TokenType != auth.TokenTypeAccess {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := authService.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, services.ErrUserNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to authenticate")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new account and returns a token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateNewPassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to refresh")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Logout acknowledges a logout. Clients discard their token pair; there is
// no server-side revocation for the stateless pair.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.authService.Logout(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// ForgotPassword starts the reset flow. The response is identical whether
// or not the email has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "if the email exists, a reset link has been sent"})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	if err := validateNewPassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidResetToken) {
			writeError(w, http.StatusBadRequest, "reset link invalid or expired")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return errors.New("invalid email address")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < minNameLen || len(name) > maxNameLen {
		return errors.New("name must be between 2 and 50 characters")
	}
	return nil
}

// validateNewPassword enforces the password policy applied to registration
// and password reset: 6 to 100 characters with at least one letter and one
// digit.
func validateNewPassword(password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return errors.New("password must be between 6 and 100 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("password must contain at least one letter and one digit")
	}
	return nil
}
