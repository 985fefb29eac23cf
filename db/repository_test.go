package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

// newTestRepository opens a temp database with migrations applied.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite")
	database, err := NewSQLiteConnectionWithDefaults(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := RunMigrations(database); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewRepository(database)
}

func testRecord(prompt string) GenerationRecord {
	return GenerationRecord{
		Prompt:     prompt,
		Width:      512,
		Height:     512,
		Steps:      25,
		CFGScale:   7.5,
		Seed:       42,
		Backend:    "local",
		DurationMS: 1500,
	}
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, testRecord("a red barn in winter"))
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if id == "" {
		t.Fatal("Insert() returned empty ID")
	}

	rec, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	if rec.Prompt != "a red barn in winter" {
		t.Errorf("Prompt = %q, want %q", rec.Prompt, "a red barn in winter")
	}
	if rec.Status != StatusSuccess {
		t.Errorf("Status = %q, want default %q", rec.Status, StatusSuccess)
	}
	if rec.Seed != 42 || rec.DurationMS != 1500 {
		t.Errorf("unexpected record values: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated by the database")
	}
}

func TestRepository_InsertErrorRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := testRecord("a failing prompt")
	rec.Status = StatusError
	rec.ErrorMessage = "out of VRAM"

	id, err := repo.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status != StatusError || got.ErrorMessage != "out of VRAM" {
		t.Errorf("error record not preserved: %+v", got)
	}
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "no-such-id")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got: %v", err)
	}
}

func TestRepository_ListRecent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.Insert(ctx, testRecord("prompt")); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	records, err := repo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent() failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("ListRecent(3) returned %d records, want 3", len(records))
	}
}

func TestRepository_ListRecent_LimitClamping(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := repo.Insert(ctx, testRecord("prompt")); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}

	// Zero limit falls back to the default
	records, err := repo.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecent() failed: %v", err)
	}
	if len(records) != DefaultHistoryLimit {
		t.Errorf("ListRecent(0) returned %d records, want %d", len(records), DefaultHistoryLimit)
	}

	// Oversized limits are clamped, not rejected
	if _, err := repo.ListRecent(ctx, MaxHistoryLimit+50); err != nil {
		t.Errorf("ListRecent() with oversized limit failed: %v", err)
	}
}

func TestRepository_ListRecent_Empty(t *testing.T) {
	repo := newTestRepository(t)

	records, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty slice, got %d records", len(records))
	}
	if records == nil {
		t.Error("expected non-nil empty slice for JSON encoding")
	}
}

func TestRepository_Count(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	repo.Insert(ctx, testRecord("one"))
	repo.Insert(ctx, testRecord("two"))

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")
	database, err := NewSQLiteConnectionWithDefaults(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer database.Close()

	if err := RunMigrations(database); err != nil {
		t.Fatalf("first migration run failed: %v", err)
	}
	if err := RunMigrations(database); err != nil {
		t.Fatalf("repeated migration run failed: %v", err)
	}

	version, dirty, err := MigrationVersion(database)
	if err != nil {
		t.Fatalf("MigrationVersion() failed: %v", err)
	}
	if dirty {
		t.Error("database should not be dirty after clean migrations")
	}
	if version == 0 {
		t.Error("expected non-zero schema version after migrations")
	}
}
