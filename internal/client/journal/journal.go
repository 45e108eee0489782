// Package journal keeps a local record of orphaned uploads: objects whose
// bytes reached storage but whose confirmation failed. Entries stay open
// until a later confirmation succeeds or an operator resolves them.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/dbx"
)

var ErrNotFound = errors.New("orphan not found")

type Repository interface {
	Record(ctx context.Context, e *models.OrphanEntry) error
	Get(ctx context.Context, objectKey string) (*models.OrphanEntry, error)
	ListOpen(ctx context.Context) ([]*models.OrphanEntry, error)
	MarkResolved(ctx context.Context, objectKey string, at time.Time) error
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Record stores e, reopening it if the same object was journaled before.
func (r *SQLiteRepository) Record(ctx context.Context, e *models.OrphanEntry) error {
	query := `INSERT INTO orphans (object_key, owner_id, file_name, attempt_id, reason, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(object_key) DO UPDATE SET
			attempt_id = excluded.attempt_id,
			reason = excluded.reason,
			resolved_at = NULL`

	_, err := r.db.ExecContext(ctx, query, e.ObjectKey, e.OwnerID, e.FileName, e.AttemptID, e.Reason, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record orphan: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, objectKey string) (*models.OrphanEntry, error) {
	query := `SELECT object_key, owner_id, file_name, attempt_id, reason, created_at, resolved_at
		FROM orphans WHERE object_key = ?`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, objectKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get orphan: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListOpen(ctx context.Context) ([]*models.OrphanEntry, error) {
	query := `SELECT object_key, owner_id, file_name, attempt_id, reason, created_at, resolved_at
		FROM orphans WHERE resolved_at IS NULL ORDER BY created_at, object_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting orphans: %w", err)
	}
	defer rows.Close()

	var out []*models.OrphanEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning orphan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orphans: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkResolved(ctx context.Context, objectKey string, at time.Time) error {
	query := `UPDATE orphans SET resolved_at = ? WHERE object_key = ? AND resolved_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, formatTime(at), objectKey)
	if err != nil {
		return fmt.Errorf("failed to resolve orphan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.OrphanEntry, error) {
	var (
		e        models.OrphanEntry
		created  string
		resolved sql.NullString
	)
	if err := s.Scan(&e.ObjectKey, &e.OwnerID, &e.FileName, &e.AttemptID, &e.Reason, &created, &resolved); err != nil {
		return nil, err
	}

	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	e.CreatedAt = t

	if resolved.Valid {
		rt, err := parseTime(resolved.String)
		if err != nil {
			return nil, fmt.Errorf("parse resolved_at: %w", err)
		}
		e.ResolvedAt = &rt
	}
	return &e, nil
}
