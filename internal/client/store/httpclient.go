package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/common"
)

// HTTPClient talks to the REST gateway of the document store.
type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewHTTPClient returns a client for baseURL (e.g. "http://localhost:8080").
// A nil httpClient selects a default one.
func NewHTTPClient(baseURL, accessToken string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

type envelope[T any] struct {
	Success bool             `json:"success"`
	Data    T                `json:"data"`
	Error   *api.ErrorDetail `json:"error"`
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(req.Context(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func call[T any](c *HTTPClient, ctx context.Context, method, path string, body any) (*T, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env.Data, nil
}

func (c *HTTPClient) Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.UploadTicket, error) {
	resp, err := call[api.ReserveResponse](c, ctx, http.MethodPost, "/api/v1/uploads",
		&api.ReserveRequest{OwnerID: ownerID, FileName: fileName, ContentType: contentType})
	if err != nil {
		return nil, err
	}
	return ticketFromAPI(resp), nil
}

func (c *HTTPClient) Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error) {
	resp, err := call[api.Document](c, ctx, http.MethodPost, "/api/v1/uploads/confirm",
		&api.ConfirmRequest{OwnerID: ownerID, FileName: fileName, ObjectKey: objectKey})
	if err != nil {
		return nil, err
	}
	return recordFromAPI(resp), nil
}

func (c *HTTPClient) SweepOrphans(ctx context.Context, olderThan time.Duration) (*models.SweepReport, error) {
	resp, err := call[api.SweepOrphansResponse](c, ctx, http.MethodPost, "/api/v1/admin/orphans/sweep",
		&api.SweepOrphansRequest{OlderThanSeconds: sweepSeconds(olderThan)})
	if err != nil {
		return nil, err
	}
	return sweepFromAPI(resp), nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// ListDocuments decodes the "data" array of the response one element at a
// time, so large listings are never held in memory at once.
func (c *HTTPClient) ListDocuments(ctx context.Context, ownerID string) iter.Seq2[*models.DocumentRecord, error] {
	return singleUse(func(yield func(*models.DocumentRecord, error) bool) {
		req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/patients/"+url.PathEscape(ownerID)+"/documents", nil)
		if err != nil {
			yield(nil, err)
			return
		}
		resp, err := c.do(req)
		if err != nil {
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		dec := json.NewDecoder(resp.Body)
		if err := seekArray(dec, "data"); err != nil {
			yield(nil, err)
			return
		}
		for dec.More() {
			var doc api.Document
			if err := dec.Decode(&doc); err != nil {
				yield(nil, fmt.Errorf("decode document: %w", transportError(ctx, err)))
				return
			}
			if !yield(recordFromAPI(&doc), nil) {
				return
			}
		}
		if _, err := dec.Token(); err != nil {
			yield(nil, fmt.Errorf("decode document list: %w", transportError(ctx, err)))
		}
	})
}

// seekArray advances dec past the opening bracket of the array stored under
// key in the top-level object.
func seekArray(dec *json.Decoder, key string) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode document list: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("decode document list: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode document list: %w", err)
		}
		if name, _ := tok.(string); name == key {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("decode document list: %w", err)
			}
			if d, ok := tok.(json.Delim); ok && d == '[' {
				return nil
			}
			if tok == nil {
				return errors.New("decode document list: data is null")
			}
			return errors.New("decode document list: data is not an array")
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("decode document list: %w", err)
		}
	}
	return fmt.Errorf("decode document list: missing %q", key)
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", common.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func statusError(resp *http.Response) error {
	var env envelope[json.RawMessage]
	msg := resp.Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env); err == nil && env.Error != nil {
		msg = env.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return common.ErrTimeout
	case resp.StatusCode == http.StatusServiceUnavailable, resp.StatusCode == http.StatusBadGateway:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	default:
		return fmt.Errorf("document store error: %s", msg)
	}
}
