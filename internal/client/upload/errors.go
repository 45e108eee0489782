package upload

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an upload failure.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindAttemptInProgress
	KindReservation
	KindTransfer
	KindConfirmation
	KindCancellationRefused
)

var (
	ErrInvalidRequest      = errors.New("invalid upload request")
	ErrAttemptInProgress   = errors.New("upload already in progress")
	ErrReservation         = errors.New("reservation failed")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrConfirmation        = errors.New("confirmation failed")
	ErrCancellationRefused = errors.New("cancellation refused while confirming")

	// ErrCanceled is the cause of a phase failure produced by Cancel or by
	// cancellation of the caller's context.
	ErrCanceled = errors.New("upload canceled")
	// ErrNotInFlight is returned by Cancel when no attempt holds the key.
	ErrNotInFlight = errors.New("no upload in flight")
	// ErrInvalidTicket is the cause of a reservation failure when the store
	// answered with an incomplete ticket.
	ErrInvalidTicket = errors.New("store returned an incomplete upload ticket")
	// ErrNoRecord is the cause of a confirmation failure when the store
	// acknowledged without returning a record.
	ErrNoRecord = errors.New("store returned no document record")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindAttemptInProgress:
		return ErrAttemptInProgress
	case KindReservation:
		return ErrReservation
	case KindTransfer:
		return ErrTransferFailed
	case KindConfirmation:
		return ErrConfirmation
	case KindCancellationRefused:
		return ErrCancellationRefused
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindAttemptInProgress:
		return "attempt_in_progress"
	case KindReservation:
		return "reservation_error"
	case KindTransfer:
		return "transfer_failed"
	case KindConfirmation:
		return "confirmation_error"
	case KindCancellationRefused:
		return "cancellation_refused"
	default:
		return "unknown"
	}
}

// Error is the classified failure of an attempt. Both the kind sentinel and
// the underlying cause match with errors.Is and errors.As.
type Error struct {
	Kind      Kind
	AttemptID string
	// ObjectKey is set once a ticket was issued. For KindConfirmation it
	// names the orphaned object.
	ObjectKey string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.sentinel().Error())
	if e.ObjectKey != "" {
		fmt.Fprintf(&b, " (object %s)", e.ObjectKey)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of an upload error, or 0 when err is not one.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return 0
}

// Retryable reports whether the caller may start a new attempt for the same
// file. Invalid requests are never retryable; a failed confirmation needs
// reconciliation of the orphan instead of a fresh upload.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindAttemptInProgress, KindReservation, KindTransfer:
		return true
	default:
		return false
	}
}

// NeedsReconciliation reports whether err left bytes in storage without a
// matching record, and returns the object key to reconcile.
func NeedsReconciliation(err error) (string, bool) {
	var ue *Error
	if errors.As(err, &ue) && ue.Kind == KindConfirmation {
		return ue.ObjectKey, true
	}
	return "", false
}
