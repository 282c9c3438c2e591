package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler signs users in and out.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin          → POST /auth/login (username + password)
//   - HandleLogout         → POST /auth/logout
//   - HandleGitHubLogin    → redirect the browser to GitHub
//   - HandleGitHubCallback → map the GitHub account to a rep, issue the JWT
//
// github is nil when no OAuth app is configured; the GitHub routes are then
// not registered.
type AuthHandler struct {
	auth         *service.AuthService
	github       *auth.GitHubProvider
	tokenTTL     time.Duration
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	tokenTTL time.Duration,
	cookieSecure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:         authService,
		github:       github,
		tokenTTL:     tokenTTL,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token for clients that cannot use cookies.
type LoginResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// setSession stores the JWT in an HttpOnly cookie.
//
// HttpOnly keeps it away from JavaScript; SameSite=Lax keeps it off
// cross-site POSTs. Secure comes from config (on behind HTTPS).
func (h *AuthHandler) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleLogin checks a username/password pair.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"username": "zig", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "invalid JSON body"))
		return
	}

	result, err := h.auth.LoginPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSession(w, result.Token)
	writeJSON(w, http.StatusOK, LoginResponse{
		UserID:    result.User.ID,
		Username:  result.User.Username,
		Token:     result.Token,
		ExpiresIn: int(h.tokenTTL.Seconds()),
	})
}

// HandleLogout deletes the session cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless: one already copied elsewhere stays valid until it
// expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the authorization
// URL. The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state against the cookie
//  2. Exchange the code for the GitHub account
//  3. Find the rep linked to that GitHub login (no sign-up)
//  4. Set the session cookie and redirect home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// --- Step 1: CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: code → GitHub account ---
	code := query.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "upstream_error",
			Message: "GitHub authentication failed",
		})
		return
	}

	// --- Step 3: GitHub account → rep ---
	result, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	// --- Step 4: session ---
	h.setSession(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
