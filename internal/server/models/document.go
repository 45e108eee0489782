// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/api"
)

// DocumentStatus is the lifecycle state of a stored document row.
type DocumentStatus string

const (
	// StatusPending: a destination was reserved, bytes may or may not exist.
	StatusPending DocumentStatus = "pending"
	// StatusConfirmed: bytes were verified and the document is listed.
	StatusConfirmed DocumentStatus = "confirmed"
	// StatusExpired: an operator sweep reclaimed the reservation.
	StatusExpired DocumentStatus = "expired"
)

// Document is one row of the documents table, keyed by its object key.
type Document struct {
	ObjectKey   string
	OwnerID     string
	FileName    string
	Format      string
	ContentType string
	Status      DocumentStatus
	SizeBytes   int64
	CreatedAt   time.Time
	ExpiresAt   time.Time
	// ConfirmedAt is nil until the document is confirmed.
	ConfirmedAt *time.Time

	// RetrievalURL is presigned per response and never stored.
	RetrievalURL string
}

// ToAPI converts d to its wire form. Confirmed documents report their
// confirmation time as creation time.
func (d *Document) ToAPI() *api.Document {
	created := d.CreatedAt
	if d.ConfirmedAt != nil {
		created = *d.ConfirmedAt
	}
	return &api.Document{
		OwnerID:      d.OwnerID,
		Name:         d.FileName,
		Format:       d.Format,
		ObjectKey:    d.ObjectKey,
		RetrievalURL: d.RetrievalURL,
		CreatedAt:    created,
	}
}
