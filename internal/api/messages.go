package api

import "time"

type ReserveRequest struct {
	OwnerID     string `json:"ownerId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// ReserveResponse is an upload ticket: a single-use destination and the key
// the bytes will be stored under.
type ReserveResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

type ConfirmRequest struct {
	OwnerID   string `json:"ownerId"`
	FileName  string `json:"fileName"`
	ObjectKey string `json:"objectKey"`
}

// Document is a persisted document record.
type Document struct {
	OwnerID      string    `json:"ownerId"`
	Name         string    `json:"name"`
	Format       string    `json:"format"`
	ObjectKey    string    `json:"objectKey"`
	RetrievalURL string    `json:"retrievalUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ListDocumentsRequest struct {
	OwnerID string `json:"ownerId"`
}

type SweepOrphansRequest struct {
	OlderThanSeconds int64 `json:"olderThanSeconds"`
}

type SweepOrphansResponse struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// ErrorBody is the REST error envelope.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// REST error codes.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeObjectMissing = "OBJECT_MISSING"
	CodeInternal      = "INTERNAL_ERROR"
)
