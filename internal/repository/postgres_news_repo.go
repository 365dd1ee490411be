package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/volunteerhub/internal/model"
)

// PostgresNewsRepo はPostgreSQLを使用したニュース記事リポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

// Upsert は(source, guid)で冪等に記事を保存する。
// 既存記事はタイトル・要約等を上書き更新する。新規作成した場合はtrueを返す。
func (r *PostgresNewsRepo) Upsert(ctx context.Context, item *model.NewsItem) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO news_items (id, source, guid, title, link, summary, published_at, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (source, guid) DO UPDATE
		 SET title = EXCLUDED.title,
		     link = EXCLUDED.link,
		     summary = EXCLUDED.summary,
		     published_at = EXCLUDED.published_at,
		     fetched_at = EXCLUDED.fetched_at
		 RETURNING (xmax = 0)`,
		item.ID, item.Source, item.GUID, item.Title,
		item.Link, item.Summary, item.PublishedAt, item.FetchedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert news item: %w", err)
	}
	return inserted, nil
}

// ListLatest は公開日時降順で最新の記事を返す。
func (r *PostgresNewsRepo) ListLatest(ctx context.Context, limit int) ([]*model.NewsItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, guid, title, link, summary, published_at, fetched_at
		 FROM news_items
		 ORDER BY published_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list news items: %w", err)
	}
	defer rows.Close()

	var items []*model.NewsItem
	for rows.Next() {
		item := &model.NewsItem{}
		if err := rows.Scan(
			&item.ID, &item.Source, &item.GUID, &item.Title,
			&item.Link, &item.Summary, &item.PublishedAt, &item.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan news item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news item rows: %w", err)
	}

	return items, nil
}

// compile-time interface check
var _ NewsRepository = (*PostgresNewsRepo)(nil)
