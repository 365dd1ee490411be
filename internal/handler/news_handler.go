package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/volunteerhub/internal/middleware"
	"github.com/hitoshi/volunteerhub/internal/model"
)

// NewsServiceInterface はニュースハンドラーが必要とするサービスインターフェース。
type NewsServiceInterface interface {
	ListLatest(ctx context.Context, limit int) ([]*model.NewsItem, error)
}

// NewsHandler はニュース閲覧のHTTPハンドラー。
type NewsHandler struct {
	service NewsServiceInterface
}

// NewNewsHandler はNewsHandlerを生成する。
func NewNewsHandler(service NewsServiceInterface) *NewsHandler {
	return &NewsHandler{service: service}
}

// newsItemResponse はニュース記事のレスポンス表現。
type newsItemResponse struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"publishedAt"`
}

// List は最新のニュース記事一覧を公開日時降順で返す。
// GET /api/news?limit=nn
func (h *NewsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.WriteAPIError(w, model.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	items, err := h.service.ListLatest(r.Context(), limit)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	result := make([]newsItemResponse, len(items))
	for i, item := range items {
		result[i] = newsItemResponse{
			ID:          item.ID,
			Source:      item.Source,
			Title:       item.Title,
			Link:        item.Link,
			Summary:     item.Summary,
			PublishedAt: item.PublishedAt,
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"news":    result,
	})
}
