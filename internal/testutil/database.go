// Package testutil provides a migrated, seeded SQLite store for tests that
// exercise several packages together.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/storage"
)

// TestDB is a throwaway database with the fixtures it was seeded with.
type TestDB struct {
	Storage   *storage.SQLiteStorage
	t         *testing.T
	Partners  []model.Partner
	Documents []model.LocalFile
	Patterns  []model.LearnedPattern
}

// Seed describes the rows to insert before a test runs.
type Seed struct {
	Partners  []model.Partner
	Documents []model.LocalFile
	Patterns  []model.LearnedPattern
}

// SetupTestDB creates a migrated database in a temp dir and inserts seed.
// It is closed automatically when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Seed{
//		Partners:  []model.Partner{testutil.AcmePartner()},
//		Documents: []model.LocalFile{testutil.AcmeInvoice()},
//	})
func SetupTestDB(t *testing.T, seed Seed) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t}
	for _, p := range seed.Partners {
		db.MustSavePartner(p)
	}
	for _, d := range seed.Documents {
		db.MustSaveDocument(d)
	}
	for _, p := range seed.Patterns {
		db.MustRecordPattern(p)
	}
	return db
}

// MustSavePartner stores p or fails the test.
func (db *TestDB) MustSavePartner(p model.Partner) model.Partner {
	db.t.Helper()
	if err := db.Storage.SavePartner(context.Background(), &p); err != nil {
		db.t.Fatalf("failed to seed partner %q: %v", p.ID, err)
	}
	db.Partners = append(db.Partners, p)
	return p
}

// MustSaveDocument stores d or fails the test. The returned copy carries the
// assigned id.
func (db *TestDB) MustSaveDocument(d model.LocalFile) model.LocalFile {
	db.t.Helper()
	if err := db.Storage.SaveDocument(context.Background(), &d); err != nil {
		db.t.Fatalf("failed to seed document %q: %v", d.Filename, err)
	}
	db.Documents = append(db.Documents, d)
	return d
}

// MustRecordPattern records p or fails the test.
func (db *TestDB) MustRecordPattern(p model.LearnedPattern) model.LearnedPattern {
	db.t.Helper()
	stored, err := db.Storage.RecordPattern(context.Background(), &p)
	if err != nil {
		db.t.Fatalf("failed to seed pattern %q: %v", p.Pattern, err)
	}
	db.Patterns = append(db.Patterns, *stored)
	return *stored
}
