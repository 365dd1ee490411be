// Package event はボランティアイベント管理のドメインロジックを提供する。
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
	"github.com/hitoshi/volunteerhub/internal/security"
)

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 100

// EventInput はイベント作成・更新の入力。
type EventInput struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Category    string
}

// Actor は操作を行う認証済みユーザー。
type Actor struct {
	UserID string
	Role   model.Role
}

// Service はイベント管理のサービス層。
// 作成、更新、削除、一覧取得のビジネスロジックと所有権チェックを提供する。
type Service struct {
	eventRepo    repository.EventRepository
	sanitizer    security.ContentSanitizerService
	storeTimeout time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(eventRepo repository.EventRepository, sanitizer security.ContentSanitizerService, storeTimeout time.Duration) *Service {
	if storeTimeout <= 0 {
		storeTimeout = 30 * time.Second
	}
	return &Service{
		eventRepo:    eventRepo,
		sanitizer:    sanitizer,
		storeTimeout: storeTimeout,
	}
}

// Create は新しいイベントを作成する。
// タイトル、日時、場所は必須。テキストフィールドは保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, actor Actor, input EventInput) (*model.Event, error) {
	cleaned, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       cleaned.Title,
		Description: cleaned.Description,
		Date:        cleaned.Date,
		Location:    cleaned.Location,
		Category:    cleaned.Category,
		OrganizerID: actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.eventRepo.Create(storeCtx, event); err != nil {
		slog.Error("failed to create event", slog.String("error", err.Error()), slog.String("organizer_id", actor.UserID))
		return nil, model.NewStoreUnavailableError()
	}

	slog.Info("event created", "event_id", event.ID, "organizer_id", actor.UserID)
	return event, nil
}

// Get は指定IDのイベントを返す。存在しない場合はEventNotFoundエラー。
func (s *Service) Get(ctx context.Context, eventID string) (*model.Event, error) {
	return s.findEvent(ctx, eventID)
}

// List はイベント一覧を日付昇順で返す。
// categoryが空でない場合はカテゴリで絞り込む。limitが0以下の場合はデフォルト件数。
func (s *Service) List(ctx context.Context, category string, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	events, err := s.eventRepo.List(storeCtx, category, limit)
	if err != nil {
		slog.Error("failed to list events", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}
	return events, nil
}

// ListMine は操作ユーザーが主催するイベント一覧を返す。
func (s *Service) ListMine(ctx context.Context, actor Actor) ([]*model.Event, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	events, err := s.eventRepo.ListByOrganizer(storeCtx, actor.UserID)
	if err != nil {
		slog.Error("failed to list events by organizer", slog.String("error", err.Error()), slog.String("organizer_id", actor.UserID))
		return nil, model.NewStoreUnavailableError()
	}
	return events, nil
}

// Update は既存イベントを更新する。
// 主催者本人または管理者のみ更新できる。
func (s *Service) Update(ctx context.Context, actor Actor, eventID string, input EventInput) (*model.Event, error) {
	cleaned, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, event); err != nil {
		return nil, err
	}

	event.Title = cleaned.Title
	event.Description = cleaned.Description
	event.Date = cleaned.Date
	event.Location = cleaned.Location
	event.Category = cleaned.Category
	event.UpdatedAt = time.Now()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.eventRepo.Update(storeCtx, event); err != nil {
		slog.Error("failed to update event", slog.String("error", err.Error()), slog.String("event_id", eventID))
		return nil, model.NewStoreUnavailableError()
	}

	slog.Info("event updated", "event_id", eventID, "user_id", actor.UserID)
	return event, nil
}

// Delete は既存イベントを削除する。
// 主催者本人または管理者のみ削除できる。
func (s *Service) Delete(ctx context.Context, actor Actor, eventID string) error {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, event); err != nil {
		return err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.eventRepo.DeleteByID(storeCtx, eventID); err != nil {
		slog.Error("failed to delete event", slog.String("error", err.Error()), slog.String("event_id", eventID))
		return model.NewStoreUnavailableError()
	}

	slog.Info("event deleted", "event_id", eventID, "user_id", actor.UserID)
	return nil
}

// validateInput は入力を検証し、サニタイズ済みの入力を返す。
func (s *Service) validateInput(input EventInput) (EventInput, error) {
	input.Title = s.sanitizer.SanitizeText(input.Title)
	input.Description = s.sanitizer.SanitizeText(input.Description)
	input.Location = s.sanitizer.SanitizeText(input.Location)
	input.Category = s.sanitizer.SanitizeText(input.Category)

	if input.Title == "" {
		return input, model.NewValidationError("Title is required")
	}
	if input.Date.IsZero() {
		return input, model.NewValidationError("Date is required")
	}
	if input.Location == "" {
		return input, model.NewValidationError("Location is required")
	}
	return input, nil
}

// authorize は操作ユーザーがイベントを変更できるかを検証する。
func (s *Service) authorize(actor Actor, event *model.Event) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	if event.OrganizerID != actor.UserID {
		slog.Warn("event modification denied", "event_id", event.ID, "user_id", actor.UserID)
		return model.NewForbiddenError("You are not allowed to modify this event")
	}
	return nil
}

func (s *Service) findEvent(ctx context.Context, eventID string) (*model.Event, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	event, err := s.eventRepo.FindByID(storeCtx, eventID)
	if err != nil {
		slog.Error("failed to find event", slog.String("error", err.Error()), slog.String("event_id", eventID))
		return nil, model.NewStoreUnavailableError()
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}
	return event, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
