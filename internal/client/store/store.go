// Package store is the client side of the remote document store. Two
// transports are provided: gRPC (GRPCClient) and the REST gateway
// (HTTPClient).
package store

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/client/models"
)

type Store interface {
	Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.UploadTicket, error)
	Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error)
	// ListDocuments returns the owner's confirmed documents in store order.
	// Nothing is fetched until the sequence is ranged over, and it can be
	// ranged over only once; call ListDocuments again to refresh.
	ListDocuments(ctx context.Context, ownerID string) iter.Seq2[*models.DocumentRecord, error]
	SweepOrphans(ctx context.Context, olderThan time.Duration) (*models.SweepReport, error)
	Ping(ctx context.Context) error
	Close() error
}

func singleUse(seq iter.Seq2[*models.DocumentRecord, error]) iter.Seq2[*models.DocumentRecord, error] {
	var used atomic.Bool
	return func(yield func(*models.DocumentRecord, error) bool) {
		if used.Swap(true) {
			yield(nil, ErrListConsumed)
			return
		}
		seq(yield)
	}
}

// Collect drains a document sequence, stopping at the first error.
func Collect(seq iter.Seq2[*models.DocumentRecord, error]) ([]*models.DocumentRecord, error) {
	var out []*models.DocumentRecord
	for doc, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func ticketFromAPI(r *api.ReserveResponse) *models.UploadTicket {
	return &models.UploadTicket{Destination: r.UploadURL, ObjectKey: r.ObjectKey}
}

func recordFromAPI(d *api.Document) *models.DocumentRecord {
	return &models.DocumentRecord{
		OwnerID:      d.OwnerID,
		DisplayName:  d.Name,
		Format:       d.Format,
		ObjectKey:    d.ObjectKey,
		RetrievalURL: d.RetrievalURL,
		CreatedAt:    d.CreatedAt,
	}
}

// sweepSeconds converts a sweep age to whole seconds for the wire. Positive
// ages round up, because zero selects reservations by expiry instead.
func sweepSeconds(d time.Duration) int64 {
	if d <= 0 {
		return int64(d / time.Second)
	}
	return int64((d + time.Second - 1) / time.Second)
}

func sweepFromAPI(r *api.SweepOrphansResponse) *models.SweepReport {
	return &models.SweepReport{Scanned: r.Scanned, Deleted: r.Deleted, Expired: r.Expired, Failed: r.Failed}
}
