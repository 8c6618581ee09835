package platform

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CycleResult is the outcome of one sync cycle.
type CycleResult struct {
	Source            Source    `json:"source"`
	StartedAt         time.Time `json:"started_at"`
	DurationMS        int64     `json:"duration_ms"`
	Address           string    `json:"address,omitempty"`
	UsedBackupAddress bool      `json:"used_backup_address,omitempty"`
	Report            Report    `json:"report"`
	Error             string    `json:"error,omitempty"`
}

// HistoryStore keeps past cycle results.
type HistoryStore interface {
	Record(ctx context.Context, r CycleResult) error
	Recent(ctx context.Context, limit int) ([]CycleResult, error)
}

// SQLiteHistory stores cycle results in the sync_history table.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a history store on an open, migrated database.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// Record inserts one result.
func (h *SQLiteHistory) Record(ctx context.Context, r CycleResult) error {
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO sync_history (source, started_at, duration_ms, registered, updated, skipped, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.Source),
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.DurationMS,
		r.Report.Registered,
		r.Report.Updated,
		r.Report.Skipped,
		r.Report.Failed,
		errText,
	)
	if err != nil {
		return fmt.Errorf("recording sync cycle: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (h *SQLiteHistory) Recent(ctx context.Context, limit int) ([]CycleResult, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT source, started_at, duration_ms, registered, updated, skipped, failed, error
		FROM sync_history
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync history: %w", err)
	}
	defer rows.Close()

	var results []CycleResult
	for rows.Next() {
		var (
			r         CycleResult
			source    string
			startedAt string
			errText   sql.NullString
		)
		if err := rows.Scan(&source, &startedAt, &r.DurationMS,
			&r.Report.Registered, &r.Report.Updated, &r.Report.Skipped, &r.Report.Failed, &errText); err != nil {
			return nil, fmt.Errorf("scanning sync history: %w", err)
		}
		r.Source = Source(source)
		r.Error = errText.String
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync history: %w", err)
	}
	return results, nil
}
