package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/dbx"
	"github.com/dmitrijs2005/dentdocs/internal/filex"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
	sc "github.com/dmitrijs2005/dentdocs/internal/server/config"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
	"github.com/dmitrijs2005/dentdocs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dentdocs/internal/server/storage"
)

const (
	maxOwnerIDLen  = 128
	maxFileNameLen = 255
	sweepBatchSize = 500
)

// SweepResult counts what one orphan sweep did.
type SweepResult struct {
	Scanned int
	Deleted int
	Expired int
	Failed  int
}

// DocumentService reserves upload destinations, confirms uploaded bytes and
// lists confirmed documents.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	presignTTL  time.Duration
	pendingTTL  time.Duration
	logger      logging.Logger

	now          func() time.Time
	newObjectKey func(ownerID string, t time.Time) string
}

func NewDocumentService(db *sql.DB, repomanager repomanager.RepositoryManager, store storage.ObjectStore,
	config *sc.Config, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:           db,
		repomanager:  repomanager,
		store:        store,
		presignTTL:   config.PresignTTL,
		pendingTTL:   config.PendingTTL,
		logger:       logger.With("module", "documents"),
		now:          func() time.Time { return time.Now().UTC() },
		newObjectKey: ObjectKey,
	}
}

// ObjectKey allocates a fresh storage key for one of ownerID's documents.
func ObjectKey(ownerID string, t time.Time) string {
	return fmt.Sprintf("patients/%s/%04d/%02d/%02d/%v", ownerID, t.Year(), t.Month(), t.Day(), uuid.New())
}

// Format derives a document format tag: the lowercased file extension,
// else the extension registered for contentType, else "bin".
func Format(fileName, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(fileName), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if ext := filex.ExtensionForContentType(contentType); ext != "" {
		return strings.ToLower(ext)
	}
	return "bin"
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

func validateOwnerID(ownerID string) error {
	switch {
	case strings.TrimSpace(ownerID) == "":
		return validationError("ownerId is required")
	case len(ownerID) > maxOwnerIDLen:
		return validationError("ownerId is too long")
	case strings.ContainsAny(ownerID, `/\`):
		return validationError("ownerId must not contain path separators")
	}
	return nil
}

func validateFileName(fileName string) error {
	switch {
	case strings.TrimSpace(fileName) == "":
		return validationError("fileName is required")
	case !utf8.ValidString(fileName):
		return validationError("fileName must be valid UTF-8")
	case len(fileName) > maxFileNameLen:
		return validationError("fileName is too long")
	}
	return nil
}

// Reserve allocates an object key, records a pending row and returns it
// together with a presigned PUT URL bound to contentType.
func (s *DocumentService) Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.Document, string, error) {
	if err := validateOwnerID(ownerID); err != nil {
		return nil, "", err
	}
	if err := validateFileName(fileName); err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = filex.DetectContentType(fileName, nil)
	} else if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return nil, "", validationError("contentType %q: %v", contentType, err)
	}

	now := s.now()
	doc := &models.Document{
		ObjectKey:   s.newObjectKey(ownerID, now),
		OwnerID:     ownerID,
		FileName:    fileName,
		Format:      Format(fileName, contentType),
		ContentType: contentType,
		Status:      models.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.pendingTTL),
	}

	uploadURL, err := s.store.PresignPut(ctx, doc.ObjectKey, contentType, s.presignTTL)
	if err != nil {
		return nil, "", err
	}

	if err := s.repomanager.Documents(s.db).Create(ctx, doc); err != nil {
		return nil, "", err
	}

	s.logger.Info(ctx, "upload reserved", "object_key", doc.ObjectKey, "owner_id", ownerID, "file_name", fileName)
	return doc, uploadURL, nil
}

// Confirm finalizes a reservation once its bytes exist. Confirming an
// already confirmed key returns the stored record again.
func (s *DocumentService) Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.Document, error) {
	if err := validateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}
	if objectKey == "" {
		return nil, validationError("objectKey is required")
	}

	var result *models.Document
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		doc, err := repo.GetForUpdate(ctx, objectKey)
		if err != nil {
			return err
		}
		if doc.OwnerID != ownerID || doc.FileName != fileName {
			return fmt.Errorf("%w: reservation belongs to another document", common.ErrorIncorrectMetadata)
		}

		switch doc.Status {
		case models.StatusConfirmed:
			result = doc
			return nil
		case models.StatusExpired:
			return fmt.Errorf("%w: reservation expired", common.ErrorNotFound)
		}

		size, err := s.store.Head(ctx, objectKey)
		if err != nil {
			return err
		}

		at := s.now()
		if err := repo.MarkConfirmed(ctx, objectKey, size, at); err != nil {
			return err
		}
		doc.Status = models.StatusConfirmed
		doc.SizeBytes = size
		doc.ConfirmedAt = &at
		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.attachRetrievalURL(ctx, result)
	s.logger.Info(ctx, "upload confirmed", "object_key", objectKey, "owner_id", ownerID, "size_bytes", result.SizeBytes)
	return result, nil
}

// List calls yield for each confirmed document of ownerID, oldest
// confirmation first. An error from yield stops the listing and is returned.
func (s *DocumentService) List(ctx context.Context, ownerID string, yield func(*models.Document) error) error {
	if err := validateOwnerID(ownerID); err != nil {
		return err
	}
	return s.repomanager.Documents(s.db).ForEachConfirmed(ctx, ownerID, func(d *models.Document) error {
		s.attachRetrievalURL(ctx, d)
		return yield(d)
	})
}

// retrieval URLs are optional, a signing failure only drops the URL
func (s *DocumentService) attachRetrievalURL(ctx context.Context, d *models.Document) {
	u, err := s.store.PresignGet(ctx, d.ObjectKey, d.FileName, s.presignTTL)
	if err != nil {
		s.logger.Warn(ctx, "presign get failed", "object_key", d.ObjectKey, "error", err)
		return
	}
	d.RetrievalURL = u
}

// SweepOrphans expires pending reservations older than olderThan, deleting
// any bytes uploaded for them. With olderThan == 0 it expires reservations
// whose pending lifetime has run out.
func (s *DocumentService) SweepOrphans(ctx context.Context, olderThan time.Duration) (*SweepResult, error) {
	if olderThan < 0 {
		return nil, validationError("olderThan must not be negative")
	}

	now := s.now()
	var createdBefore, expiredBefore time.Time
	if olderThan > 0 {
		createdBefore = now.Add(-olderThan)
	} else {
		expiredBefore = now
	}

	pending, err := s.repomanager.Documents(s.db).ListPending(ctx, createdBefore, expiredBefore, sweepBatchSize)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Scanned: len(pending)}
	for _, d := range pending {
		deleted, expired, err := s.expire(ctx, d.ObjectKey)
		if deleted {
			res.Deleted++
		}
		if expired {
			res.Expired++
		}
		if err != nil {
			res.Failed++
			s.logger.Warn(ctx, "sweep failed", "object_key", d.ObjectKey, "error", err)
		}
	}

	s.logger.Info(ctx, "orphan sweep finished",
		"scanned", res.Scanned, "deleted", res.Deleted, "expired", res.Expired, "failed", res.Failed)
	return res, nil
}

func (s *DocumentService) expire(ctx context.Context, objectKey string) (deleted, expired bool, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)

		doc, err := repo.GetForUpdate(ctx, objectKey)
		if err != nil {
			return err
		}
		// confirmed concurrently
		if doc.Status != models.StatusPending {
			return nil
		}

		if _, err := s.store.Head(ctx, objectKey); err == nil {
			if err := s.store.Delete(ctx, objectKey); err != nil {
				return err
			}
			deleted = true
		} else if !errors.Is(err, storage.ErrObjectMissing) {
			return err
		}

		if err := repo.MarkExpired(ctx, objectKey); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		expired = false
	}
	return deleted, expired, err
}
