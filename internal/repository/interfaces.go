// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/volunteerhub/internal/model"
)

// UserRepository はユーザーデータ（Credential Store）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名の完全一致でユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByUsernameOrEmail はユーザー名またはメールアドレスの
	// 完全一致でユーザーを検索する。見つからない場合はnilを返す。
	// 登録時の重複チェックに使用する。
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを作成日時昇順で返す。管理画面用。
	List(ctx context.Context) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、eventsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータ（Session Store）の永続化インターフェース。
// セッションレコードはこのストアのみが所有する。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。
	// 期限切れまたは不在の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// Touch はセッションの有効期限を延長する（スライディングTTL）。
	// セッションが存在しない場合もエラーにしない。
	Touch(ctx context.Context, id string, expiresAt time.Time) error

	// DeleteByID は指定IDのセッションを削除する。
	// 既に存在しない場合もエラーにしない（冪等）。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	// クリーンアップジョブ用。
	DeleteExpired(ctx context.Context) (int64, error)
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// Update はイベントを更新する。
	Update(ctx context.Context, event *model.Event) error

	// DeleteByID は指定IDのイベントを削除する。
	DeleteByID(ctx context.Context, id string) error

	// List はイベントを開催日昇順で返す。
	// categoryが空でない場合はそのカテゴリのみ、limitが0の場合は全件。
	List(ctx context.Context, category string, limit int) ([]*model.Event, error)

	// ListByOrganizer は指定ユーザーが主催するイベントを開催日昇順で返す。
	ListByOrganizer(ctx context.Context, organizerID string) ([]*model.Event, error)
}

// NewsRepository はニュース記事の永続化インターフェース。
type NewsRepository interface {
	// Upsert は(source, guid)で冪等に記事を保存する。
	// 新規作成した場合はtrueを返す。
	Upsert(ctx context.Context, item *model.NewsItem) (bool, error)

	// ListLatest は公開日時降順で最新の記事を返す。
	ListLatest(ctx context.Context, limit int) ([]*model.NewsItem, error)
}
