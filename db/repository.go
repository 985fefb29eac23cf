// repository.go provides typed access to the generations table.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// GenerationRecord represents one row in the generations table.
// Image bytes are not stored; the history keeps prompts, parameters,
// and outcomes so past generations can be replayed by seed.
type GenerationRecord struct {
	ID             string    `json:"id"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Steps          int       `json:"steps"`
	CFGScale       float64   `json:"cfg_scale"`
	Seed           int64     `json:"seed"`
	Backend        string    `json:"backend"`
	DurationMS     int64     `json:"duration_ms"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// History limits for the list endpoint.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Repository provides CRUD operations for generation history.
// All methods are safe for concurrent use; SQLite serializes writes
// through the single-writer connection pool.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a Repository over an open database.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// Insert stores a generation record. A missing ID is assigned a UUID and a
// missing status defaults to success. Returns the record ID.
func (r *Repository) Insert(ctx context.Context, record GenerationRecord) (string, error) {
	if r.db == nil {
		return "", fmt.Errorf("database connection is nil")
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = StatusSuccess
	}

	query := `
		INSERT INTO generations (
			id, prompt, negative_prompt, width, height, steps,
			cfg_scale, seed, backend, duration_ms, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Prompt,
		record.NegativePrompt,
		record.Width,
		record.Height,
		record.Steps,
		record.CFGScale,
		record.Seed,
		record.Backend,
		record.DurationMS,
		record.Status,
		record.ErrorMessage,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert generation record: %w", err)
	}

	return record.ID, nil
}

// ListRecent returns the most recent generation records, newest first.
// The limit is clamped to [1, MaxHistoryLimit]; zero or negative limits
// use DefaultHistoryLimit.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := `
		SELECT id, prompt, negative_prompt, width, height, steps,
		       cfg_scale, seed, backend, duration_ms, status, error_message, created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation history: %w", err)
	}
	defer rows.Close()

	records := make([]GenerationRecord, 0, limit)
	for rows.Next() {
		var rec GenerationRecord
		err := rows.Scan(
			&rec.ID,
			&rec.Prompt,
			&rec.NegativePrompt,
			&rec.Width,
			&rec.Height,
			&rec.Steps,
			&rec.CFGScale,
			&rec.Seed,
			&rec.Backend,
			&rec.DurationMS,
			&rec.Status,
			&rec.ErrorMessage,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation records: %w", err)
	}

	return records, nil
}

// Get returns a single record by ID, or sql.ErrNoRows if absent.
func (r *Repository) Get(ctx context.Context, id string) (*GenerationRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	query := `
		SELECT id, prompt, negative_prompt, width, height, steps,
		       cfg_scale, seed, backend, duration_ms, status, error_message, created_at
		FROM generations
		WHERE id = ?`

	var rec GenerationRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Prompt,
		&rec.NegativePrompt,
		&rec.Width,
		&rec.Height,
		&rec.Steps,
		&rec.CFGScale,
		&rec.Seed,
		&rec.Backend,
		&rec.DurationMS,
		&rec.Status,
		&rec.ErrorMessage,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Count returns the total number of history records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count generation records: %w", err)
	}
	return count, nil
}
