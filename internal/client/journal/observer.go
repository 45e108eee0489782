package journal

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/client/upload"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
)

const recordTimeout = 5 * time.Second

// Observer journals every upload that ends in a confirmation error.
type Observer struct {
	repo Repository
	log  logging.Logger
	now  func() time.Time
}

func NewObserver(repo Repository, log logging.Logger) *Observer {
	return &Observer{repo: repo, log: log.With("module", "journal"), now: time.Now}
}

func (o *Observer) OnTransition(upload.AttemptInfo, upload.State, upload.State) {}

func (o *Observer) OnFinish(info upload.AttemptInfo, _ upload.Outcome, err error) {
	objectKey, orphaned := upload.NeedsReconciliation(err)
	if !orphaned {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := &models.OrphanEntry{
		ObjectKey: objectKey,
		OwnerID:   info.OwnerID,
		FileName:  info.FileName,
		AttemptID: info.AttemptID,
		Reason:    err.Error(),
		CreatedAt: o.now(),
	}
	if rerr := o.repo.Record(ctx, entry); rerr != nil {
		o.log.Error(ctx, "failed to journal orphaned upload", "object_key", objectKey, "error", rerr)
		return
	}
	o.log.Warn(ctx, "orphaned upload journaled", "object_key", objectKey, "owner_id", info.OwnerID, "file_name", info.FileName)
}
