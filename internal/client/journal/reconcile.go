package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/client/upload"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
)

// Confirmer re-issues the confirm step. The document store treats confirm as
// idempotent by object key, so repeating it never duplicates a record.
type Confirmer interface {
	Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error)
}

type RetryResult struct {
	Entry  *models.OrphanEntry
	Record *models.DocumentRecord
	Err    error
}

// Reconciler retries confirmation of journaled orphans. It never moves bytes.
type Reconciler struct {
	repo      Repository
	confirmer Confirmer
	log       logging.Logger
	now       func() time.Time
}

func NewReconciler(repo Repository, confirmer Confirmer, log logging.Logger) *Reconciler {
	return &Reconciler{repo: repo, confirmer: confirmer, log: log.With("module", "reconcile"), now: time.Now}
}

// RetryOne confirms a single journaled object.
func (r *Reconciler) RetryOne(ctx context.Context, objectKey string) RetryResult {
	e, err := r.repo.Get(ctx, objectKey)
	if err != nil {
		return RetryResult{Entry: &models.OrphanEntry{ObjectKey: objectKey}, Err: err}
	}
	if e.ResolvedAt != nil {
		return RetryResult{Entry: e, Err: fmt.Errorf("%w: already resolved", ErrNotFound)}
	}
	return r.retry(ctx, e)
}

// RetryAll confirms every open entry, in journal order. One failure does not
// stop the others.
func (r *Reconciler) RetryAll(ctx context.Context) ([]RetryResult, error) {
	entries, err := r.repo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]RetryResult, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results = append(results, r.retry(ctx, e))
	}
	return results, nil
}

func (r *Reconciler) retry(ctx context.Context, e *models.OrphanEntry) RetryResult {
	rec, err := r.confirmer.Confirm(ctx, e.OwnerID, e.FileName, e.ObjectKey)
	if err != nil {
		r.log.Warn(ctx, "orphan confirm retry failed", "object_key", e.ObjectKey, "error", err)
		return RetryResult{Entry: e, Err: err}
	}
	if rec == nil {
		return RetryResult{Entry: e, Err: upload.ErrNoRecord}
	}

	if err := r.repo.MarkResolved(ctx, e.ObjectKey, r.now()); err != nil {
		return RetryResult{Entry: e, Record: rec, Err: fmt.Errorf("confirmed but not marked resolved: %w", err)}
	}
	r.log.Info(ctx, "orphan reconciled", "object_key", e.ObjectKey, "owner_id", e.OwnerID)
	return RetryResult{Entry: e, Record: rec}
}
