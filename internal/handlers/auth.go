package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"

	"go.uber.org/zap"
)

const (
	sessionCookie   = "session_id"
	authTokenHeader = "auth-token"
)

// AuthHandler serves /signup, /login, /logout and /api/me. The token is
// returned in the body and set as the session_id cookie.
type AuthHandler struct {
	auth   *services.AuthService
	logger *zap.Logger
}

// NewAuthHandler wires the account endpoints; auth may be nil when the
// database is disabled, in which case they answer 503.
func NewAuthHandler(auth *services.AuthService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if !h.accept(w, r, http.MethodPost) {
		return
	}
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, token, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.fail(w, "signup", err)
		return
	}
	h.setSession(w, r, token)
	writeJSON(w, http.StatusCreated, models.AuthResponse{Success: true, Token: token, User: user})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.accept(w, r, http.MethodPost) {
		return
	}
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.setSession(w, r, token)
	writeJSON(w, http.StatusOK, models.AuthResponse{Success: true, Token: token, User: user})
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.accept(w, r, http.MethodPost) {
		return
	}
	if err := h.auth.Logout(r.Context(), tokenFromRequest(r)); err != nil {
		h.logger.Warn("logout failed", zap.Error(err))
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, models.AuthResponse{Success: true})
}

// HandleMe returns the account behind the request's token.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if !h.accept(w, r, http.MethodGet) {
		return
	}
	user, err := h.auth.Authenticate(r.Context(), tokenFromRequest(r))
	if err != nil {
		h.fail(w, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// RequireAuth rejects requests without a live token.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			writeError(w, http.StatusServiceUnavailable, "Accounts are disabled", CodeUnavailable)
			return
		}
		if _, err := h.auth.Authenticate(r.Context(), tokenFromRequest(r)); err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				h.logger.Error("token check failed", zap.Error(err))
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized", CodeUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) accept(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		methodNotAllowed(w)
		return false
	}
	if h.auth == nil {
		writeAuthError(w, http.StatusServiceUnavailable, "Accounts are disabled")
		return false
	}
	return true
}

func (h *AuthHandler) fail(w http.ResponseWriter, op string, err error) {
	var invalid *services.ValidationError
	switch {
	case errors.As(err, &invalid):
		writeAuthError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeAuthError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, services.ErrInvalidToken):
		writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrEmailTaken):
		writeAuthError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, services.ErrUsernameTaken):
		writeAuthError(w, http.StatusConflict, "Username already taken")
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *AuthHandler) setSession(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.AuthResponse{Errors: message})
}

// tokenFromRequest reads a bearer token, then the auth-token header, then the
// session cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if t := strings.TrimSpace(r.Header.Get(authTokenHeader)); t != "" {
		return t
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
