// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分を表す。
type Role string

const (
	// RoleStandard は一般ボランティアユーザー。
	RoleStandard Role = "standard"
	// RoleAdmin は管理者ユーザー。
	RoleAdmin Role = "admin"
)

// Valid はroleが定義済みの値であるかを返す。
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

// User はサービス利用ユーザーを表す。
// PasswordHashは外部に公開してはならない。
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はAPIレスポンスに含めてよいユーザーの公開フィールド。
// パスワードハッシュを含まない。
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Public はユーザーの公開フィールドのみを抜き出す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// Session はユーザーのログインセッションを表す。
// ユーザー公開フィールドの非正規化スナップショットを保持し、
// リクエストごとのユーザーテーブル参照を避ける。
// スナップショットはセッション作成時点の値であり、
// ユーザーレコードへの管理的変更より古くなりうる。
type Session struct {
	ID            string
	UserID        string
	Username      string
	Email         string
	Role          Role
	Authenticated bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Snapshot はセッションに保存されたユーザースナップショットを
// 公開フィールド形式で返す。
func (s *Session) Snapshot() PublicUser {
	return PublicUser{
		ID:       s.UserID,
		Username: s.Username,
		Email:    s.Email,
		Role:     s.Role,
	}
}
