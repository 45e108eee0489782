package store

import "errors"

var (
	ErrUnavailable  = errors.New("document store unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRejected     = errors.New("request rejected by document store")
	ErrListConsumed = errors.New("document list already consumed")
)
