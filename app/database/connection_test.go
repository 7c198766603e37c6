package database

import (
	"context"
	"testing"
)

func TestNewConnection(t *testing.T) {
	_, err := NewConnection("")
	if err == nil {
		t.Error("Expected error for empty database path")
	}
}

func TestRunMigrations(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected re-running migrations to be a no-op, got: %v", err)
	}
	if dirty {
		t.Error("Expected clean migration state")
	}
	if version != 3 {
		t.Errorf("Expected migration version 3, got: %d", version)
	}

	authors, err := NewAuthorStore(db).ListAuthors(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(authors) != 6 {
		t.Errorf("Expected 6 seeded authors, got: %d", len(authors))
	}
}
