// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/volunteerhub/internal/auth"
	"github.com/hitoshi/volunteerhub/internal/middleware"
	"github.com/hitoshi/volunteerhub/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*auth.RegisterResult, error)
	Login(ctx context.Context, username, password string) (*model.Session, model.PublicUser, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (model.PublicUser, error)
	VerifySession(ctx context.Context, sessionID string) (model.PublicUser, error)
}

// CookieSigner はセッションCookie値の署名と検証のインターフェース。
// security.CookieSignerが実装する。
type CookieSigner interface {
	Sign(value string) string
	Verify(signed string) (string, bool)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
	SessionMaxAge  int // セッションCookieの有効期間（秒）
}

// AuthHandler はセッション認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	signer  CookieSigner
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, signer CookieSigner, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		signer:  signer,
		config:  config,
	}
}

// registerRequest はユーザー登録のリクエストボディ。
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register は新規ユーザーを作成し、セッションを確立する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid request body"))
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	// セッション確立に失敗してもユーザー作成は成功として返す。
	// その場合クライアントは改めてログインする。
	if result.Session != nil {
		h.setSessionCookie(w, result.Session.ID)
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"user":    result.User,
	})
}

// Login は資格情報を検証し、セッションを確立する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid request body"))
		return
	}

	session, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID)

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Login successful",
		"user":      user,
		"sessionId": session.ID,
	})
}

// Logout はセッションを破棄する。冪等であり、常に成功を返す。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := h.sessionID(r); sessionID != "" {
		if logoutErr := h.service.Logout(r.Context(), sessionID); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}

// Current は現在のセッションのユーザースナップショットを返す。
// GET /auth/current
func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetCurrentUser(r.Context(), h.sessionID(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// Verify はセッションを検証し、ユーザーの現在の情報を返す。
// セッションのTTLも延長される。
// GET /auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.VerifySession(r.Context(), h.sessionID(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// sessionID はリクエストのCookieから署名を検証してセッションIDを取得する。
// Cookieがない、または署名が不正な場合は空文字列を返し、判断はサービス層に委ねる。
func (h *AuthHandler) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil {
		return ""
	}
	sessionID, ok := h.signer.Verify(cookie.Value)
	if !ok {
		return ""
	}
	return sessionID
}

// setSessionCookie はセッションIDに署名を付与してCookieに設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    h.signer.Sign(sessionID),
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.config.CookieSameSite,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.config.CookieSameSite,
	})
}

// writeAuthError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラーは詳細を隠し500を返す。
func writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}
	slog.Error("unexpected error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
