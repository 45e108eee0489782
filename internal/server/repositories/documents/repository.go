package documents

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetForUpdate(ctx context.Context, objectKey string) (*models.Document, error)
	MarkConfirmed(ctx context.Context, objectKey string, sizeBytes int64, at time.Time) error
	MarkExpired(ctx context.Context, objectKey string) error
	ForEachConfirmed(ctx context.Context, ownerID string, fn func(*models.Document) error) error
	ListPending(ctx context.Context, createdBefore, expiredBefore time.Time, limit int) ([]*models.Document, error)
}
