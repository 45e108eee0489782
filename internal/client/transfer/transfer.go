// Package transfer moves document bytes to the destination named by an
// upload ticket with a single HTTP PUT.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/dentdocs/internal/common"
)

// Kind classifies a failed transfer.
type Kind int

const (
	// KindUnreachable means no response was received.
	KindUnreachable Kind = iota + 1
	// KindStatus means the destination answered with a non-2xx status.
	KindStatus
	// KindTimeout means the transfer did not finish in time.
	KindTimeout
	// KindCanceled means the caller abandoned the transfer.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindStatus:
		return "status"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is returned by Put for every failure.
type Error struct {
	Kind       Kind
	StatusCode int
	// Body is a short prefix of the response body for KindStatus.
	Body string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Body != "" {
			return fmt.Sprintf("transfer failed: status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("transfer failed: status %d", e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("transfer failed (%s): %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("transfer failed (%s)", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports timeouts as common.ErrTimeout.
func (e *Error) Is(target error) bool {
	return e.Kind == KindTimeout && target == common.ErrTimeout
}

const maxErrorBody = 512

// Client performs blob transfers. The zero value is not usable; use New.
type Client struct {
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func New(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put sends payload to destination in exactly one PUT request with the given
// content type (application/octet-stream when empty). It never retries.
func (c *Client) Put(ctx context.Context, destination string, payload []byte, contentType string) error {
	if contentType == "" {
		contentType = common.DefaultContentType
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, destination, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindUnreachable, Err: err}
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Kind: KindStatus, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func classify(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: KindCanceled, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindUnreachable, Err: err}
}
