package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
	"github.com/dmitrijs2005/dentdocs/internal/server/auth"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
	"github.com/dmitrijs2005/dentdocs/internal/server/services"
	"github.com/dmitrijs2005/dentdocs/internal/server/storage"
)

const testSecret = "test-secret-123"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDocuments struct {
	reserveErr error
	confirmErr error
	listDocs   []*models.Document
	listErr    error
	sweepErr   error

	reserved       api.ReserveRequest
	sweepOlderThan time.Duration
}

func (f *fakeDocuments) Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.Document, string, error) {
	f.reserved = api.ReserveRequest{OwnerID: ownerID, FileName: fileName, ContentType: contentType}
	if f.reserveErr != nil {
		return nil, "", f.reserveErr
	}
	return &models.Document{ObjectKey: "patients/" + ownerID + "/k"}, "https://put", nil
}

func (f *fakeDocuments) Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.Document, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Document{ObjectKey: objectKey, OwnerID: ownerID, FileName: fileName, Format: "png", ConfirmedAt: &at}, nil
}

func (f *fakeDocuments) List(ctx context.Context, ownerID string, yield func(*models.Document) error) error {
	for _, d := range f.listDocs {
		if err := yield(d); err != nil {
			return err
		}
	}
	return f.listErr
}

func (f *fakeDocuments) SweepOrphans(ctx context.Context, olderThan time.Duration) (*services.SweepResult, error) {
	f.sweepOlderThan = olderThan
	if f.sweepErr != nil {
		return nil, f.sweepErr
	}
	return &services.SweepResult{Scanned: 2, Deleted: 1, Expired: 2}, nil
}

func newTestRouter(fd *fakeDocuments) (*gin.Engine, *Metrics) {
	m := NewMetrics("test")
	return NewRouter(fd, testSecret, logging.Nop(), m), m
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken("u1", role, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, r http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorBody {
	t.Helper()
	var body api.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body
}

func TestHealth_IsPublic(t *testing.T) {
	r, _ := newTestRouter(&fakeDocuments{})

	w := do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, w.Body.String())
}

func TestAuth(t *testing.T) {
	r, _ := newTestRouter(&fakeDocuments{})
	body := `{"ownerId":"p1","fileName":"a.png","contentType":"image/png"}`

	w := do(t, r, http.MethodPost, "/api/v1/uploads", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeUnauthorized, decodeError(t, w).Error.Code)

	w = do(t, r, http.MethodPost, "/api/v1/uploads", "invalid-jwt-here", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid token", decodeError(t, w).Error.Message)

	expired, err := auth.GenerateToken("u1", common.RoleDentist, []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	w = do(t, r, http.MethodPost, "/api/v1/uploads", expired, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token expired", decodeError(t, w).Error.Message)
}

func TestReserve(t *testing.T) {
	fd := &fakeDocuments{}
	r, _ := newTestRouter(fd)

	w := do(t, r, http.MethodPost, "/api/v1/uploads", token(t, common.RoleDentist),
		`{"ownerId":"p1","fileName":"scan.stl","contentType":"model/stl"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"uploadUrl":"https://put","objectKey":"patients/p1/k"}}`, w.Body.String())
	assert.Equal(t, api.ReserveRequest{OwnerID: "p1", FileName: "scan.stl", ContentType: "model/stl"}, fd.reserved)

	w = do(t, r, http.MethodPost, "/api/v1/uploads", token(t, common.RoleDentist), `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeValidation, decodeError(t, w).Error.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantAPI  string
	}{
		{fmt.Errorf("%w: fileName is required", common.ErrorValidation), http.StatusBadRequest, api.CodeValidation},
		{fmt.Errorf("%w: owner", common.ErrorIncorrectMetadata), http.StatusConflict, api.CodeConflict},
		{storage.ErrObjectMissing, http.StatusConflict, api.CodeObjectMissing},
		{common.ErrorNotFound, http.StatusNotFound, api.CodeNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, api.CodeInternal},
		{errors.New("connection refused to db at 10.0.0.1"), http.StatusInternalServerError, api.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r, _ := newTestRouter(&fakeDocuments{confirmErr: tt.err})

			w := do(t, r, http.MethodPost, "/api/v1/uploads/confirm", token(t, common.RoleDentist),
				`{"ownerId":"p1","fileName":"a.png","objectKey":"k1"}`)
			assert.Equal(t, tt.wantCode, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.wantAPI, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "10.0.0.1")
		})
	}
}

func TestSweep_RequiresManager(t *testing.T) {
	fd := &fakeDocuments{}
	r, _ := newTestRouter(fd)

	w := do(t, r, http.MethodPost, "/api/v1/admin/orphans/sweep", token(t, common.RoleDentist), `{"olderThanSeconds":60}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, api.CodeForbidden, decodeError(t, w).Error.Code)

	w = do(t, r, http.MethodPost, "/api/v1/admin/orphans/sweep", token(t, common.RoleManager), `{"olderThanSeconds":60}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"scanned":2,"deleted":1,"expired":2,"failed":0}}`, w.Body.String())
	assert.Equal(t, time.Minute, fd.sweepOlderThan)
}

func TestListDocuments(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	docs := []*models.Document{
		{ObjectKey: "k1", OwnerID: "p1", FileName: "a.png", Format: "png", ConfirmedAt: &at},
		{ObjectKey: "k2", OwnerID: "p1", FileName: "b.stl", Format: "stl", ConfirmedAt: &at, RetrievalURL: "https://get"},
	}

	t.Run("streams envelope", func(t *testing.T) {
		r, _ := newTestRouter(&fakeDocuments{listDocs: docs})
		w := do(t, r, http.MethodGet, "/api/v1/patients/p1/documents", token(t, common.RoleDentist), "")
		require.Equal(t, http.StatusOK, w.Code)

		var env struct {
			Success bool           `json:"success"`
			Data    []api.Document `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.True(t, env.Success)
		require.Len(t, env.Data, 2)
		assert.Equal(t, "b.stl", env.Data[1].Name)
		assert.Equal(t, "https://get", env.Data[1].RetrievalURL)
	})

	t.Run("empty list", func(t *testing.T) {
		r, _ := newTestRouter(&fakeDocuments{})
		w := do(t, r, http.MethodGet, "/api/v1/patients/p1/documents", token(t, common.RoleDentist), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
	})

	t.Run("error before first document", func(t *testing.T) {
		r, _ := newTestRouter(&fakeDocuments{listErr: fmt.Errorf("%w: ownerId", common.ErrorValidation)})
		w := do(t, r, http.MethodGet, "/api/v1/patients/p1/documents", token(t, common.RoleDentist), "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("error mid-stream truncates body", func(t *testing.T) {
		r, _ := newTestRouter(&fakeDocuments{listDocs: docs, listErr: errors.New("db gone")})
		w := do(t, r, http.MethodGet, "/api/v1/patients/p1/documents", token(t, common.RoleDentist), "")
		var v any
		assert.Error(t, json.Unmarshal(w.Body.Bytes(), &v))
	})
}

func TestMetrics(t *testing.T) {
	r, m := newTestRouter(&fakeDocuments{})

	do(t, r, http.MethodGet, "/health", "", "")
	do(t, r, http.MethodGet, "/health", "", "")
	do(t, r, http.MethodGet, "/nope", "", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "404")))

	w := do(t, r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logging.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := do(t, r, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, api.CodeInternal, decodeError(t, w).Error.Code)
}

// The REST client shipped with dentctl must understand the gateway.
func TestGatewayWithHTTPClient(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fd := &fakeDocuments{listDocs: []*models.Document{
		{ObjectKey: "k1", OwnerID: "p1", FileName: "a.png", Format: "png", ConfirmedAt: &at},
	}}
	r, _ := newTestRouter(fd)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx := context.Background()

	c := store.NewHTTPClient(srv.URL, token(t, common.RoleManager), srv.Client())
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	ticket, err := c.Reserve(ctx, "p1", "a.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "patients/p1/k", ticket.ObjectKey)
	assert.Equal(t, "https://put", ticket.Destination)

	rec, err := c.Confirm(ctx, "p1", "a.png", ticket.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, "a.png", rec.DisplayName)

	recs, err := store.Collect(c.ListDocuments(ctx, "p1"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "k1", recs[0].ObjectKey)

	rep, err := c.SweepOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Deleted)

	fd.confirmErr = storage.ErrObjectMissing
	_, err = c.Confirm(ctx, "p1", "a.png", "k1")
	assert.ErrorIs(t, err, store.ErrRejected)

	anon := store.NewHTTPClient(srv.URL, "", srv.Client())
	_, err = anon.Reserve(ctx, "p1", "a.png", "image/png")
	assert.ErrorIs(t, err, store.ErrUnauthorized)
}
