package repository

import (
	"testing"
)

// 各Postgresリポジトリがインターフェースを満たすことはコンパイル時に検証する。
var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ SessionRepository = (*PostgresSessionRepo)(nil)
	_ EventRepository   = (*PostgresEventRepo)(nil)
	_ NewsRepository    = (*PostgresNewsRepo)(nil)
)

func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	if NewPostgresSessionRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresEventRepo_Initializes(t *testing.T) {
	if NewPostgresEventRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresNewsRepo_Initializes(t *testing.T) {
	if NewPostgresNewsRepo(nil) == nil {
		t.Fatal("expected non-nil repo")
	}
}
