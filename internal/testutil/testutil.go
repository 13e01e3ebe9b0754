// Package testutil provides shared testing utilities for Parafeur.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/parafeur/parafeur/internal/core"
	"github.com/parafeur/parafeur/internal/storage"
)

// TestDB creates an in-memory SQLite database for testing.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(storage.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}

// TestContext returns a context with a timeout for tests.
// The context is automatically cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SeedQuote inserts a sent quote carrying a quote-slot access token.
func SeedQuote(t *testing.T, store *storage.DocumentStore, id, token string) *core.Document {
	t.Helper()

	doc := &core.Document{
		ID:     id,
		Kind:   core.KindQuote,
		Name:   "Mariage Dupont",
		Total:  2400,
		Status: core.StatusSent,
	}
	doc.SetExtra(string(core.FieldTokenQuote), token)
	doc.SetExtra(core.ExtraClientName, "Jane Doe")

	if err := store.Insert(context.Background(), doc); err != nil {
		t.Fatalf("seed quote %s: %v", id, err)
	}
	return doc
}

// SeedContract inserts a sent contract carrying a contract-slot access token.
func SeedContract(t *testing.T, store *storage.DocumentStore, id, token string) *core.Document {
	t.Helper()

	doc := &core.Document{
		ID:     id,
		Kind:   core.KindContract,
		Name:   "Mariage Dupont",
		Total:  2400,
		Status: core.StatusSent,
	}
	doc.SetExtra(string(core.FieldTokenContract), token)
	doc.SetExtra(core.ExtraClientName, "Jane Doe")

	if err := store.Insert(context.Background(), doc); err != nil {
		t.Fatalf("seed contract %s: %v", id, err)
	}
	return doc
}
