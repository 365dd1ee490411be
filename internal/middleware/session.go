// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/volunteerhub/internal/model"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// CookieVerifier はセッションCookie値の署名検証のインターフェース。
// security.CookieSignerが実装する。
type CookieVerifier interface {
	Verify(signed string) (string, bool)
}

// NewAttachUserContext はHTTP Only Cookieからセッションを読み取り、
// 有効であればリクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない、署名が不正、セッションが無効、ストアに到達できない、
// いずれの場合もリクエストを拒否せず、未認証のまま後続に委譲する。
// 認可の判断はRequireAuthenticated / RequireRoleが行う。
func NewAttachUserContext(sessionFinder SessionFinder, verifier CookieVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sessionID, ok := verifier.Verify(cookie.Value)
			if !ok {
				// 改竄されたCookieは存在しないものとして扱う
				next.ServeHTTP(w, r)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), sessionID)
			if err != nil {
				// ストア障害でも公開エンドポイントは動作を続ける
				slog.Error("failed to load session",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil || !session.Authenticated {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated は認証済みセッションを必須とするミドルウェアを返す。
// NewAttachUserContextの後に配置する。未認証リクエストには401を返す。
func RequireAuthenticated() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := SessionFromContext(r.Context()); err != nil {
				WriteAPIError(w, model.NewNotAuthenticatedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole は指定ロールのセッションを必須とするミドルウェアを返す。
// NewAttachUserContextの後に配置する。未認証は401、ロール不一致は403を返す。
func RequireRole(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := SessionFromContext(r.Context())
			if err != nil {
				WriteAPIError(w, model.NewNotAuthenticatedError())
				return
			}
			if session.Role != role {
				slog.Warn("role check failed",
					slog.String("user_id", session.UserID),
					slog.String("required_role", string(role)),
					slog.String("path", r.URL.Path),
				)
				WriteAPIError(w, model.NewForbiddenError("Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext はリクエストコンテキストから認証済みセッションを取得する。
// NewAttachUserContextを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*model.Session, error) {
	session, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok || session == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return session, nil
}

// ContextWithSession はコンテキストにセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
