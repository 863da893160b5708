package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/enfdev/letterbox/internal/apperror"
	"github.com/enfdev/letterbox/internal/auth"
	"github.com/enfdev/letterbox/internal/model"
	"github.com/enfdev/letterbox/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler manages the Kakao OAuth flow, session cookies, and the
// profile endpoints.
type AuthHandler struct {
	kakao  *auth.KakaoProvider
	auths  *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(kakao *auth.KakaoProvider, auths *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{kakao: kakao, auths: auths, logger: logger}
}

// HandleKakaoLogin redirects the browser to Kakao's authorization page.
//
// GET /auth/kakao/login
//
// A random state value goes into a short-lived HttpOnly cookie; the
// callback checks it to reject forged redirects.
func (h *AuthHandler) HandleKakaoLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.kakao.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleKakaoCallback completes the OAuth flow: state check, code exchange,
// signup or login, then both session cookies.
//
// GET /auth/kakao/callback?code=xxx&state=yyy
//
// A first-time user is redirected to the profile completion page, a known
// user to the mailbox.
func (h *AuthHandler) HandleKakaoCallback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		h.logger.Warn("auth callback: state mismatch or missing")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	result, err := h.auths.Authenticate(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("auth callback: authentication failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	setSessionCookies(w, result)

	target := "/"
	if result.IsNew {
		target = "/signup/profile"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleRefresh rotates the session using the refresh cookie.
//
// POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, apperror.Forbidden("missing refresh token"))
		return
	}

	result, err := h.auths.Refresh(r.Context(), cookie.Value)
	if err != nil {
		clearSessionCookies(w)
		writeError(w, err)
		return
	}

	setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// HandleLogout invalidates the refresh token and clears both cookies.
//
// POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		if err := h.auths.Logout(r.Context(), userID); err != nil {
			h.logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}
	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// UserResponse is the public projection of a user.
type UserResponse struct {
	ID        string     `json:"id"`
	Nickname  string     `json:"nickname"`
	Email     string     `json:"email,omitempty"`
	BirthYear int        `json:"birthYear,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	Quota     int        `json:"quota"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Nickname:  u.Nickname,
		Email:     u.Email,
		BirthYear: u.BirthYear,
		Role:      u.Role,
		Quota:     u.Quota,
	}
}

// HandleMe returns the logged-in user's profile.
//
// GET /api/users/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("not authenticated"))
		return
	}

	user, err := h.auths.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// CompleteProfileRequest carries the post-signup profile choices.
type CompleteProfileRequest struct {
	Nickname     string `json:"nickname"`
	Role         string `json:"role"`
	BirdName     string `json:"birdName"`
	CategoryName string `json:"categoryName"`
}

// HandleCompleteProfile assigns nickname, role, bird, and category.
//
// PATCH /api/users/me
func (h *AuthHandler) HandleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Forbidden("not authenticated"))
		return
	}

	var req CompleteProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auths.CompleteProfile(r.Context(), userID, service.ProfileParams{
		Nickname:     req.Nickname,
		Role:         req.Role,
		BirdName:     req.BirdName,
		CategoryName: req.CategoryName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleCheckNickname reports nickname availability.
//
// GET /api/users/check-nickname?nickname=xxx
func (h *AuthHandler) HandleCheckNickname(w http.ResponseWriter, r *http.Request) {
	available, err := h.auths.CheckNickname(r.Context(), r.URL.Query().Get("nickname"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func setSessionCookies(w http.ResponseWriter, result *service.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessCookie,
		Value:    result.AccessToken,
		Path:     "/",
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshCookie,
		Value:    result.RefreshToken,
		Path:     "/auth",
		MaxAge:   int(auth.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: auth.AccessCookie, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: auth.RefreshCookie, Value: "", Path: "/auth", MaxAge: -1})
}

// ProfileOptionsResponse lists the choices offered on the profile
// completion form.
type ProfileOptionsResponse struct {
	Birds      []model.Bird     `json:"birds"`
	Categories []model.Category `json:"categories"`
}

// HandleProfileOptions returns the available birds and categories.
//
// GET /api/users/profile-options
func (h *AuthHandler) HandleProfileOptions(w http.ResponseWriter, r *http.Request) {
	birds, categories, err := h.auths.ProfileOptions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileOptionsResponse{Birds: birds, Categories: categories})
}
