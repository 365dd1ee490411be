package news

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/volunteerhub/internal/model"
	"github.com/hitoshi/volunteerhub/internal/repository"
)

// defaultPageSize はニュース一覧のデフォルト件数。
const defaultPageSize = 50

// maxPageSize はニュース一覧の最大件数。
const maxPageSize = 200

// Service はニュース閲覧のサービス層。
type Service struct {
	newsRepo     repository.NewsRepository
	storeTimeout time.Duration
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(newsRepo repository.NewsRepository, storeTimeout time.Duration) *Service {
	if storeTimeout <= 0 {
		storeTimeout = 30 * time.Second
	}
	return &Service{
		newsRepo:     newsRepo,
		storeTimeout: storeTimeout,
	}
}

// ListLatest は最新のニュース記事を公開日時降順で返す。
// limitが0以下の場合はデフォルト件数、上限を超える場合は最大件数に丸める。
func (s *Service) ListLatest(ctx context.Context, limit int) ([]*model.NewsItem, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	items, err := s.newsRepo.ListLatest(storeCtx, limit)
	if err != nil {
		slog.Error("failed to list news items", slog.String("error", err.Error()))
		return nil, model.NewStoreUnavailableError()
	}
	return items, nil
}
