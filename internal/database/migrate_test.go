package database

import (
	"testing"
)

func TestNewMigrator_UnknownScheme_ReturnsError(t *testing.T) {
	_, err := NewMigrator("bogus://localhost/volunteerhub")
	if err == nil {
		t.Fatal("expected error for unknown database scheme")
	}
}

// 埋め込みマイグレーションがup/downのペアで揃っていることを検証する。
func TestMigrationsFS_UpDownPairs(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migration files found")
	}
	if len(entries)%2 != 0 {
		t.Errorf("migration files should come in up/down pairs, got %d files", len(entries))
	}
}
