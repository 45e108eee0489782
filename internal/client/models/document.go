// Package models defines the client-side data models of the document upload
// workflow.
package models

import "time"

// UploadTicket is a reservation issued by the document store: where to put
// the bytes and the key they will be stored under. A ticket is single use.
type UploadTicket struct {
	Destination string
	ObjectKey   string
}

// DocumentRecord is a document the store has persisted metadata for.
type DocumentRecord struct {
	OwnerID     string
	DisplayName string
	// Format is a lowercase short tag such as "pdf" or "png".
	Format    string
	ObjectKey string
	// RetrievalURL is empty when the store did not provide one.
	RetrievalURL string
	CreatedAt    time.Time
}

// UploadRequest describes one file to upload for one owner.
type UploadRequest struct {
	OwnerID     string
	FileName    string
	ContentType string
	Payload     []byte
}

// SweepReport summarises an orphan sweep run on the store.
type SweepReport struct {
	Scanned int
	Deleted int
	Expired int
	Failed  int
}
