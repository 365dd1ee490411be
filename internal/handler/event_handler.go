package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunteerhub/internal/event"
	"github.com/hitoshi/volunteerhub/internal/middleware"
	"github.com/hitoshi/volunteerhub/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	Create(ctx context.Context, actor event.Actor, input event.EventInput) (*model.Event, error)
	Get(ctx context.Context, eventID string) (*model.Event, error)
	List(ctx context.Context, category string, limit int) ([]*model.Event, error)
	ListMine(ctx context.Context, actor event.Actor) ([]*model.Event, error)
	Update(ctx context.Context, actor event.Actor, eventID string, input event.EventInput) (*model.Event, error)
	Delete(ctx context.Context, actor event.Actor, eventID string) error
}

// EventHandler はイベント管理のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// eventRequest はイベント作成・更新のリクエストボディ。
type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
}

// eventResponse はイベントのレスポンス表現。
type eventResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	OrganizerID string    `json:"organizerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		Location:    e.Location,
		Category:    e.Category,
		OrganizerID: e.OrganizerID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toEventResponses(events []*model.Event) []eventResponse {
	result := make([]eventResponse, len(events))
	for i, e := range events {
		result[i] = toEventResponse(e)
	}
	return result
}

// Create は新しいイベントを作成する。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), actor, toEventInput(req))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"event":   toEventResponse(created),
	})
}

// List はイベント一覧を返す。認証不要の公開エンドポイント。
// GET /api/events?category=xxx&limit=nn
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			middleware.WriteAPIError(w, model.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	events, err := h.service.List(r.Context(), category, limit)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"events":  toEventResponses(events),
	})
}

// ListMine は操作ユーザーが主催するイベント一覧を返す。
// GET /api/events/mine
func (h *EventHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	events, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"events":  toEventResponses(events),
	})
}

// Get は指定IDのイベントを返す。認証不要の公開エンドポイント。
// GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	found, err := h.service.Get(r.Context(), eventID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"event":   toEventResponse(found),
	})
}

// Update は既存イベントを更新する。主催者本人または管理者のみ。
// PUT /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid request body"))
		return
	}

	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), toEventInput(req))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"event":   toEventResponse(updated),
	})
}

// Delete は既存イベントを削除する。主催者本人または管理者のみ。
// DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeAuthError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Event deleted",
	})
}

func toEventInput(req eventRequest) event.EventInput {
	return event.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Category:    req.Category,
	}
}

// requireActor はコンテキストのセッションから操作ユーザーを取り出す。
// セッションがない場合は401を書き込み、falseを返す。
// RequireAuthenticatedの内側で使う二重チェック。
func requireActor(w http.ResponseWriter, r *http.Request) (event.Actor, bool) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewNotAuthenticatedError())
		return event.Actor{}, false
	}
	return event.Actor{UserID: session.UserID, Role: session.Role}, true
}
