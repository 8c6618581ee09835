package accessory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists accessory records.
type Repository interface {
	// List returns every stored record. Rows that cannot be decoded are
	// skipped: the readable records are returned together with an error
	// wrapping ErrCorruptRecord.
	List(ctx context.Context) ([]*Record, error)

	// Save inserts the record or replaces the stored one with the same UUID.
	Save(ctx context.Context, r *Record) error

	// Delete removes a record. Returns ErrAccessoryNotFound if it does not exist.
	Delete(ctx context.Context, uuid string) error
}

// SQLiteRepository stores records in the accessories table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns every stored record ordered by entity id.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uuid, display_name, context, created_at, updated_at
		FROM accessories
		ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("querying accessories: %w", err)
	}
	defer rows.Close()

	var (
		records []*Record
		corrupt []error
	)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			corrupt = append(corrupt, err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accessories: %w", err)
	}
	if len(corrupt) > 0 {
		return records, fmt.Errorf("%w: %w", ErrCorruptRecord, errors.Join(corrupt...))
	}
	return records, nil
}

// Save upserts the record.
func (r *SQLiteRepository) Save(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshalling context: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accessories (uuid, entity_id, display_name, context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			entity_id = excluded.entity_id,
			display_name = excluded.display_name,
			context = excluded.context,
			updated_at = excluded.updated_at`,
		rec.UUID,
		rec.EntityID(),
		rec.DisplayName,
		string(contextJSON),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving accessory %s: %w", rec.UUID, err)
	}
	return nil
}

// Delete removes a record.
func (r *SQLiteRepository) Delete(ctx context.Context, uuid string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM accessories WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("deleting accessory %s: %w", uuid, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccessoryNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec                  Record
		contextJSON          string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.UUID, &rec.DisplayName, &contextJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccessoryNotFound
		}
		return nil, fmt.Errorf("scanning accessory: %w", err)
	}

	if err := json.Unmarshal([]byte(contextJSON), &rec.Context); err != nil {
		return nil, fmt.Errorf("unmarshalling context of %s: %w", rec.UUID, err)
	}

	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", rec.UUID, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at of %s: %w", rec.UUID, err)
	}
	return &rec, nil
}
