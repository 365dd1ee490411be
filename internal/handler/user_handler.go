package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/volunteerhub/internal/middleware"
	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
)

// UserHandler は管理者向けユーザー管理のHTTPハンドラー。
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// List は全ユーザーの公開フィールド一覧を返す。
// 管理者ロール必須（RequireRoleミドルウェアで保護）。
// GET /api/admin/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.List(r.Context())
	if err != nil {
		slog.Error("failed to list users", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, model.NewStoreUnavailableError())
		return
	}

	result := make([]model.PublicUser, len(users))
	for i, u := range users {
		result[i] = u.Public()
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   result,
	})
}
