package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/dbx"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const documentColumns = `object_key, owner_id, file_name, format, content_type, status, size_bytes, created_at, expires_at, confirmed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		d           models.Document
		status      string
		confirmedAt sql.NullTime
	)
	if err := s.Scan(&d.ObjectKey, &d.OwnerID, &d.FileName, &d.Format, &d.ContentType,
		&status, &d.SizeBytes, &d.CreatedAt, &d.ExpiresAt, &confirmedAt); err != nil {
		return nil, err
	}
	d.Status = models.DocumentStatus(status)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		d.ConfirmedAt = &t
	}
	return &d, nil
}

// Create inserts a pending reservation row.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (object_key, owner_id, file_name, format, content_type, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ObjectKey, doc.OwnerID, doc.FileName, doc.Format, doc.ContentType, string(doc.Status), doc.CreatedAt, doc.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetForUpdate loads the row for objectKey and locks it until the enclosing
// transaction ends. Missing rows yield common.ErrorNotFound.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, objectKey string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE object_key=$1 FOR UPDATE`

	d, err := scanDocument(r.db.QueryRowContext(ctx, query, objectKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return d, nil
}

// MarkConfirmed moves a pending row to confirmed. Exactly one row must be affected.
func (r *PostgresRepository) MarkConfirmed(ctx context.Context, objectKey string, sizeBytes int64, at time.Time) error {
	query := `UPDATE documents SET status='confirmed', size_bytes=$2, confirmed_at=$3 WHERE object_key=$1 AND status='pending'`
	return r.execOne(ctx, "mark confirmed", query, objectKey, sizeBytes, at)
}

// MarkExpired moves a pending row to expired. A row that is no longer
// pending yields common.ErrorNotFound.
func (r *PostgresRepository) MarkExpired(ctx context.Context, objectKey string) error {
	query := `UPDATE documents SET status='expired' WHERE object_key=$1 AND status='pending'`
	return r.execOne(ctx, "mark expired", query, objectKey)
}

func (r *PostgresRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch ra {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
}

// ForEachConfirmed calls fn for every confirmed document of ownerID in
// confirmation order, stopping at the first error fn returns.
func (r *PostgresRepository) ForEachConfirmed(ctx context.Context, ownerID string, fn func(*models.Document) error) error {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE owner_id=$1 AND status='confirmed'
		ORDER BY confirmed_at, object_key`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListPending returns up to limit pending rows created before createdBefore
// or whose reservation expired before expiredBefore, oldest first.
func (r *PostgresRepository) ListPending(ctx context.Context, createdBefore, expiredBefore time.Time, limit int) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents
		WHERE status='pending' AND (created_at < $1 OR expires_at < $2)
		ORDER BY created_at, object_key
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, createdBefore, expiredBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
