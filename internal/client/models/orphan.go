package models

import "time"

// OrphanEntry is a locally journaled upload whose bytes reached storage but
// whose confirmation failed. ObjectKey identifies the bytes at rest.
type OrphanEntry struct {
	ObjectKey  string
	OwnerID    string
	FileName   string
	AttemptID  string
	Reason     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
