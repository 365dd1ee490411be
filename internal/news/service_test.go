package news

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/volunteerhub/internal/model"
)

func TestListLatest_ClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"0はデフォルト件数", 0, defaultPageSize},
		{"負値もデフォルト件数", -5, defaultPageSize},
		{"範囲内はそのまま", 20, 20},
		{"上限超過は最大件数", 10000, maxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			repo := &mockNewsRepo{
				listLatestFn: func(ctx context.Context, limit int) ([]*model.NewsItem, error) {
					gotLimit = limit
					return nil, nil
				},
			}

			svc := NewService(repo, 5*time.Second)
			if _, err := svc.ListLatest(context.Background(), tt.limit); err != nil {
				t.Fatalf("ListLatest: %v", err)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit passed to store = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestListLatest_StoreError_ReturnsStoreUnavailable(t *testing.T) {
	repo := &mockNewsRepo{
		listLatestFn: func(ctx context.Context, limit int) ([]*model.NewsItem, error) {
			return nil, errors.New("connection reset")
		},
	}

	svc := NewService(repo, 5*time.Second)

	_, err := svc.ListLatest(context.Background(), 10)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeStoreUnavailable {
		t.Errorf("error = %v, want STORE_UNAVAILABLE", err)
	}
}
