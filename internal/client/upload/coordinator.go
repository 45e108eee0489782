// Package upload coordinates the three-phase document upload protocol:
// reserve an upload ticket with the document store, transfer the bytes to the
// ticket's destination, then confirm the object so the store records it.
//
// A Coordinator allows one attempt per (owner, file name) at a time, never
// retries on its own and never invents a document record. Its only state is
// the in-memory set of attempts in flight.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
)

// Store is the part of the document store the coordinator talks to.
type Store interface {
	Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.UploadTicket, error)
	Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error)
}

// Transferer moves bytes to a ticket destination.
type Transferer interface {
	Put(ctx context.Context, destination string, payload []byte, contentType string) error
}

// Outcome is the terminal result of one Upload call. Record is set only when
// State is StateSucceeded.
type Outcome struct {
	AttemptID string
	State     State
	Record    *models.DocumentRecord
	ObjectKey string
}

const (
	DefaultReserveTimeout  = 15 * time.Second
	DefaultTransferTimeout = 10 * time.Minute
	DefaultConfirmTimeout  = 30 * time.Second
)

type Coordinator struct {
	store    Store
	transfer Transferer

	reserveTimeout  time.Duration
	transferTimeout time.Duration
	confirmTimeout  time.Duration

	log       logging.Logger
	observers []Observer
	newID     func() string
	now       func() time.Time

	reg *registry
}

type Option func(*Coordinator)

// WithTimeouts sets per-phase timeouts. A non-positive value disables the
// timeout for that phase.
func WithTimeouts(reserve, transfer, confirm time.Duration) Option {
	return func(c *Coordinator) {
		c.reserveTimeout = reserve
		c.transferTimeout = transfer
		c.confirmTimeout = confirm
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observers = append(c.observers, o)
	}
}

// WithIDGenerator replaces the attempt ID generator (random UUIDs).
func WithIDGenerator(f func() string) Option {
	return func(c *Coordinator) {
		c.newID = f
	}
}

func New(store Store, transfer Transferer, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:           store,
		transfer:        transfer,
		reserveTimeout:  DefaultReserveTimeout,
		transferTimeout: DefaultTransferTimeout,
		confirmTimeout:  DefaultConfirmTimeout,
		log:             logging.Nop(),
		newID:           func() string { return uuid.NewString() },
		now:             time.Now,
		reg:             newRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("module", "upload")
	return c
}

// attempt is the state of one Upload call while it is registered.
type attempt struct {
	key  attemptKey
	info AttemptInfo

	mu        sync.Mutex
	state     State
	objectKey string
	canceled  bool
	cancel    context.CancelCauseFunc
}

func (a *attempt) snapshot() (State, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.objectKey
}

// Upload runs one attempt to completion. The returned error is nil only for
// StateSucceeded and is otherwise an *Error.
func (c *Coordinator) Upload(ctx context.Context, req models.UploadRequest) (Outcome, error) {
	a := &attempt{
		key: attemptKey{ownerID: req.OwnerID, fileName: req.FileName},
		info: AttemptInfo{
			AttemptID:   c.newID(),
			OwnerID:     req.OwnerID,
			FileName:    req.FileName,
			ContentType: req.ContentType,
			Size:        len(req.Payload),
			StartedAt:   c.now(),
		},
		state: StateIdle,
	}
	log := c.log.With("attempt_id", a.info.AttemptID, "owner_id", req.OwnerID, "file_name", req.FileName)

	if err := validate(req); err != nil {
		return c.reject(ctx, log, a, &Error{Kind: KindInvalidRequest, AttemptID: a.info.AttemptID, Err: err})
	}

	// The presigned destination is bound to the type sent at reserve, so the
	// transfer must send the very same one.
	if req.ContentType == "" {
		req.ContentType = common.DefaultContentType
		a.info.ContentType = req.ContentType
	}

	attemptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	a.cancel = cancel

	// Reserving from the moment the key is held, so Cancel never sees an
	// idle attempt in the registry.
	a.state = StateReserving
	if !c.reg.acquire(a) {
		return c.reject(ctx, log, a, &Error{Kind: KindAttemptInProgress, AttemptID: a.info.AttemptID})
	}
	defer c.reg.release(a)

	c.transitioned(ctx, log, a, StateIdle, StateReserving)

	ticket, err := c.reserve(attemptCtx, req)
	if err != nil {
		return c.fail(ctx, log, a, StateReserveFailed, KindReservation, err)
	}
	if err := c.advance(ctx, log, a, StateTransferring, ticket.ObjectKey); err != nil {
		return c.fail(ctx, log, a, StateReserveFailed, KindReservation, err)
	}

	if err := c.put(attemptCtx, ticket, req); err != nil {
		return c.fail(ctx, log, a, StateTransferFailed, KindTransfer, err)
	}
	if err := c.advance(ctx, log, a, StateConfirming, ""); err != nil {
		return c.fail(ctx, log, a, StateTransferFailed, KindTransfer, err)
	}

	// Bytes are at rest: confirm must run to completion even if the caller
	// goes away, bounded only by its own timeout.
	record, err := c.confirm(context.WithoutCancel(ctx), req, ticket.ObjectKey)
	if err != nil {
		return c.fail(ctx, log, a, StateConfirmFailed, KindConfirmation, err)
	}

	c.enter(ctx, log, a, StateSucceeded)
	out := Outcome{AttemptID: a.info.AttemptID, State: StateSucceeded, Record: record, ObjectKey: ticket.ObjectKey}
	c.reg.release(a)
	log.Info(ctx, "upload succeeded", "object_key", ticket.ObjectKey, "size", a.info.Size,
		"elapsed", c.now().Sub(a.info.StartedAt))
	c.finish(a, out, nil)
	return out, nil
}

func validate(req models.UploadRequest) error {
	switch {
	case strings.TrimSpace(req.OwnerID) == "":
		return errors.New("owner id is required")
	case strings.TrimSpace(req.FileName) == "":
		return errors.New("file name is required")
	}
	return nil
}

func (c *Coordinator) reserve(ctx context.Context, req models.UploadRequest) (*models.UploadTicket, error) {
	pctx, cancel := phaseContext(ctx, c.reserveTimeout)
	defer cancel()

	ticket, err := c.store.Reserve(pctx, req.OwnerID, req.FileName, req.ContentType)
	if err != nil {
		return nil, phaseError(pctx, err)
	}
	if ticket == nil || ticket.Destination == "" || ticket.ObjectKey == "" {
		return nil, ErrInvalidTicket
	}
	return ticket, nil
}

func (c *Coordinator) put(ctx context.Context, ticket *models.UploadTicket, req models.UploadRequest) error {
	pctx, cancel := phaseContext(ctx, c.transferTimeout)
	defer cancel()

	if err := c.transfer.Put(pctx, ticket.Destination, req.Payload, req.ContentType); err != nil {
		return phaseError(pctx, err)
	}
	return nil
}

func (c *Coordinator) confirm(ctx context.Context, req models.UploadRequest, objectKey string) (*models.DocumentRecord, error) {
	pctx, cancel := phaseContext(ctx, c.confirmTimeout)
	defer cancel()

	record, err := c.store.Confirm(pctx, req.OwnerID, req.FileName, objectKey)
	if err != nil {
		return nil, phaseError(pctx, err)
	}
	if record == nil {
		return nil, ErrNoRecord
	}
	return record, nil
}

func phaseContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeoutCause(parent, d, common.ErrTimeout)
}

// phaseError attaches the reason the phase context ended, if any, to err.
func phaseError(pctx context.Context, err error) error {
	cause := context.Cause(pctx)
	switch {
	case cause == nil:
		return err
	case errors.Is(cause, common.ErrTimeout), errors.Is(cause, context.DeadlineExceeded):
		if errors.Is(err, common.ErrTimeout) {
			return err
		}
		return fmt.Errorf("%w: %w", common.ErrTimeout, err)
	case errors.Is(cause, ErrCanceled), errors.Is(cause, context.Canceled):
		if errors.Is(err, ErrCanceled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	default:
		return err
	}
}

// Cancel aborts the attempt holding (ownerID, fileName). It is accepted only
// while the attempt is reserving or transferring; the key is free again when
// Cancel returns nil. During confirmation it returns an *Error of kind
// KindCancellationRefused and the attempt carries on.
func (c *Coordinator) Cancel(ownerID, fileName string) error {
	a, ok := c.reg.get(attemptKey{ownerID: ownerID, fileName: fileName})
	if !ok {
		return ErrNotInFlight
	}

	a.mu.Lock()
	switch {
	case a.state.Cancelable():
		a.canceled = true
		a.mu.Unlock()
		a.cancel(ErrCanceled)
		c.reg.release(a)
		c.log.Info(context.Background(), "upload cancel accepted", "attempt_id", a.info.AttemptID,
			"owner_id", ownerID, "file_name", fileName)
		return nil
	case a.state == StateConfirming:
		objectKey := a.objectKey
		a.mu.Unlock()
		c.log.Warn(context.Background(), "upload cancel refused while confirming", "attempt_id", a.info.AttemptID,
			"owner_id", ownerID, "file_name", fileName, "object_key", objectKey)
		return &Error{Kind: KindCancellationRefused, AttemptID: a.info.AttemptID, ObjectKey: objectKey}
	default:
		a.mu.Unlock()
		return ErrNotInFlight
	}
}

// InFlight returns the state of the attempt holding (ownerID, fileName).
func (c *Coordinator) InFlight(ownerID, fileName string) (State, bool) {
	a, ok := c.reg.get(attemptKey{ownerID: ownerID, fileName: fileName})
	if !ok {
		return StateIdle, false
	}
	s, _ := a.snapshot()
	return s, true
}

// InFlightCount returns the number of registered attempts.
func (c *Coordinator) InFlightCount() int {
	return c.reg.len()
}

// enter moves a to state unconditionally.
func (c *Coordinator) enter(ctx context.Context, log logging.Logger, a *attempt, to State) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.mu.Unlock()
	c.transitioned(ctx, log, a, from, to)
}

// advance moves a to the next working state unless it was canceled.
func (c *Coordinator) advance(ctx context.Context, log logging.Logger, a *attempt, to State, objectKey string) error {
	a.mu.Lock()
	if a.canceled {
		a.mu.Unlock()
		return ErrCanceled
	}
	from := a.state
	a.state = to
	if objectKey != "" {
		a.objectKey = objectKey
	}
	a.mu.Unlock()
	c.transitioned(ctx, log, a, from, to)
	return nil
}

func (c *Coordinator) transitioned(ctx context.Context, log logging.Logger, a *attempt, from, to State) {
	log.Debug(ctx, "upload transition", "from", from.String(), "to", to.String())
	for _, o := range c.observers {
		o.OnTransition(a.info, from, to)
	}
}

func (c *Coordinator) fail(ctx context.Context, log logging.Logger, a *attempt, to State, kind Kind, cause error) (Outcome, error) {
	c.enter(ctx, log, a, to)
	_, objectKey := a.snapshot()
	c.reg.release(a)

	err := &Error{Kind: kind, AttemptID: a.info.AttemptID, ObjectKey: objectKey, Err: cause}
	out := Outcome{AttemptID: a.info.AttemptID, State: to, ObjectKey: objectKey}

	switch {
	case kind == KindConfirmation:
		log.Error(ctx, "upload confirmation failed, object is orphaned", "object_key", objectKey, "error", cause)
	case errors.Is(cause, ErrCanceled):
		log.Info(ctx, "upload canceled", "state", to.String())
	default:
		log.Warn(ctx, "upload failed", "state", to.String(), "error", cause)
	}

	c.finish(a, out, err)
	return out, err
}

func (c *Coordinator) reject(ctx context.Context, log logging.Logger, a *attempt, err *Error) (Outcome, error) {
	log.Warn(ctx, "upload rejected", "kind", err.Kind.String())
	out := Outcome{AttemptID: a.info.AttemptID, State: StateIdle}
	c.finish(a, out, err)
	return out, err
}

func (c *Coordinator) finish(a *attempt, out Outcome, err error) {
	for _, o := range c.observers {
		o.OnFinish(a.info, out, err)
	}
}
