package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/dentdocs/internal/client/config"
	"github.com/dmitrijs2005/dentdocs/internal/client/journal"
	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
)

// ------------ fakes ------------

type fakeStore struct {
	mu       sync.Mutex
	reserved []string
	confirms int

	reserveErr error
	confirm    func(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error)
	docs       []*models.DocumentRecord
	listErr    error
	sweep      *models.SweepReport
	sweepAge   time.Duration
	pingErr    error
	closed     bool
}

func (f *fakeStore) Reserve(_ context.Context, ownerID, fileName, _ string) (*models.UploadTicket, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved = append(f.reserved, fileName)
	return &models.UploadTicket{Destination: "https://blob.test/" + fileName, ObjectKey: "patients/" + ownerID + "/" + fileName}, nil
}

func (f *fakeStore) Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error) {
	f.mu.Lock()
	f.confirms++
	f.mu.Unlock()
	if f.confirm != nil {
		return f.confirm(ctx, ownerID, fileName, objectKey)
	}
	return &models.DocumentRecord{OwnerID: ownerID, DisplayName: fileName, Format: "pdf", ObjectKey: objectKey}, nil
}

func (f *fakeStore) ListDocuments(context.Context, string) iter.Seq2[*models.DocumentRecord, error] {
	return func(yield func(*models.DocumentRecord, error) bool) {
		for _, d := range f.docs {
			if !yield(d, nil) {
				return
			}
		}
		if f.listErr != nil {
			yield(nil, f.listErr)
		}
	}
}

func (f *fakeStore) SweepOrphans(_ context.Context, olderThan time.Duration) (*models.SweepReport, error) {
	f.sweepAge = olderThan
	return f.sweep, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakeTransfer struct {
	put func(ctx context.Context, destination string) error
}

func (f *fakeTransfer) Put(ctx context.Context, destination string, _ []byte, _ string) error {
	if f.put != nil {
		return f.put(ctx, destination)
	}
	return nil
}

// ------------ helpers ------------

type harness struct {
	app  *App
	st   *fakeStore
	tr   *fakeTransfer
	sigs chan os.Signal
	dir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JournalPath = filepath.Join(dir, "state", "journal.db")

	h := &harness{st: &fakeStore{}, tr: &fakeTransfer{}, sigs: make(chan os.Signal), dir: dir}

	a := NewApp(cfg)
	a.errOut = io.Discard
	a.openStore = func(*config.Config) (store.Store, error) { return h.st, nil }
	a.transfer = h.tr
	a.notify = func() (<-chan os.Signal, func()) { return h.sigs, func() {} }
	a.tty = func(io.Writer) bool { return false }
	h.app = a
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := h.app.rootCommand("test")
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// ------------ upload ------------

func TestUpload_Success(t *testing.T) {
	h := newHarness(t)
	a := writeFile(t, h.dir, "xray.pdf", "%PDF-1.4")
	b := writeFile(t, h.dir, "notes.txt", "hello")
	metricsPath := filepath.Join(h.dir, "dentctl.prom")

	out, err := h.run(t, "upload", "p-1", a, b, "--metrics-textfile", metricsPath)
	require.NoError(t, err)

	assert.Contains(t, out, a+": uploaded as patients/p-1/xray.pdf")
	assert.Contains(t, out, b+": uploaded as patients/p-1/notes.txt")
	assert.ElementsMatch(t, []string{"xray.pdf", "notes.txt"}, h.st.reserved)
	assert.True(t, h.st.closed)

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `dentctl_upload_attempts_total{result="succeeded"} 2`)
}

func TestUpload_MissingFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "upload", "p-1", filepath.Join(h.dir, "nope.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
	assert.Empty(t, h.st.reserved)
}

func TestUpload_RequiresFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "upload", "p-1")
	require.Error(t, err)
}

func TestUpload_ReserveFailureShowsFriendlyMessage(t *testing.T) {
	h := newHarness(t)
	h.st.reserveErr = errors.New("rpc error: code = Unavailable desc = connection refused")
	f := writeFile(t, h.dir, "xray.pdf", "x")

	out, err := h.run(t, "upload", "p-1", f)
	require.Error(t, err)
	assert.Equal(t, "1 of 1 uploads failed", err.Error())
	assert.Contains(t, out, "Could not start the upload. Try again.")
	assert.NotContains(t, out, "connection refused")
}

func TestUpload_ConfirmFailureIsJournaledAndRetried(t *testing.T) {
	h := newHarness(t)
	h.st.confirm = func(context.Context, string, string, string) (*models.DocumentRecord, error) {
		return nil, errors.New("store down")
	}
	f := writeFile(t, h.dir, "scan.png", "png")

	out, err := h.run(t, "upload", "p-1", f)
	require.Error(t, err)
	assert.Contains(t, out, f+": The file was sent but could not be saved to the patient's record.")
	assert.Contains(t, out, f+`: set aside as patients/p-1/scan.png; run "dentctl orphans retry" to save it`)

	out, err = h.run(t, "orphans", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"objectKey":"patients/p-1/scan.png"`)
	assert.Contains(t, out, `"fileName":"scan.png"`)

	h.st.confirm = nil
	out, err = h.run(t, "orphans", "retry")
	require.NoError(t, err)
	assert.Equal(t, "patients/p-1/scan.png: confirmed\n", out)
	assert.Len(t, h.st.reserved, 1, "retry must not reserve again")

	out, err = h.run(t, "orphans", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestUpload_InterruptCancelsTransfer(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	h.tr.put = func(ctx context.Context, _ string) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	f := writeFile(t, h.dir, "xray.pdf", "x")

	go func() {
		<-started
		h.sigs <- os.Interrupt
	}()

	out, err := h.run(t, "upload", "p-1", f)
	require.Error(t, err)
	assert.Contains(t, out, "xray.pdf: canceling")
	assert.Contains(t, out, f+": Upload canceled.")
	assert.Zero(t, h.st.confirms)
}

func TestUpload_InterruptDuringConfirmIsRefused(t *testing.T) {
	h := newHarness(t)
	confirming := make(chan struct{})
	release := make(chan struct{})
	h.st.confirm = func(_ context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error) {
		close(confirming)
		<-release
		return &models.DocumentRecord{OwnerID: ownerID, DisplayName: fileName, ObjectKey: objectKey}, nil
	}
	f := writeFile(t, h.dir, "xray.pdf", "x")

	go func() {
		<-confirming
		h.sigs <- os.Interrupt
		// the second send returns only once the first interrupt was handled
		h.sigs <- os.Interrupt
		close(release)
	}()

	out, err := h.run(t, "upload", "p-1", f)
	require.NoError(t, err)
	assert.Contains(t, out, "xray.pdf: The upload is being saved and can no longer be canceled.")
	assert.Contains(t, out, f+": uploaded as patients/p-1/xray.pdf")
}

// ------------ list ------------

func sampleDocs() []*models.DocumentRecord {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []*models.DocumentRecord{
		{OwnerID: "p-1", DisplayName: "xray.pdf", Format: "pdf", ObjectKey: "patients/p-1/a", CreatedAt: at, RetrievalURL: "https://get/a"},
		{OwnerID: "p-1", DisplayName: "smile.png", Format: "png", ObjectKey: "patients/p-1/b", CreatedAt: at.Add(time.Hour)},
	}
}

func TestList_JSONLines(t *testing.T) {
	h := newHarness(t)
	h.st.docs = sampleDocs()

	out, err := h.run(t, "list", "p-1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"ownerId":"p-1","name":"xray.pdf","format":"pdf","objectKey":"patients/p-1/a","createdAt":"2026-03-01T10:00:00Z","retrievalUrl":"https://get/a"}`, lines[0])
	assert.NotContains(t, lines[1], "retrievalUrl")
}

func TestList_TableOnTerminal(t *testing.T) {
	h := newHarness(t)
	h.st.docs = sampleDocs()
	h.app.tty = func(io.Writer) bool { return true }

	out, err := h.run(t, "list", "p-1")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "OBJECT KEY")
	assert.Contains(t, out, "smile.png")
}

func TestList_EmptyTable(t *testing.T) {
	h := newHarness(t)
	h.app.tty = func(io.Writer) bool { return true }

	out, err := h.run(t, "list", "p-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents.")
}

func TestList_ErrorMidStream(t *testing.T) {
	h := newHarness(t)
	h.st.docs = sampleDocs()[:1]
	h.st.listErr = store.ErrUnavailable

	out, err := h.run(t, "list", "p-1")
	require.ErrorIs(t, err, store.ErrUnavailable)
	assert.Contains(t, out, "xray.pdf")
}

// ------------ orphans ------------

func TestOrphansRetry_UnknownKey(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "orphans", "retry", "patients/p-1/missing")
	require.Error(t, err)
	assert.Contains(t, out, "patients/p-1/missing: ")
	assert.Contains(t, out, journal.ErrNotFound.Error())
}

func TestOrphansRetry_Empty(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "orphans", "retry")
	require.NoError(t, err)
	assert.Equal(t, "No orphaned uploads.\n", out)
}

func TestOrphansSweep(t *testing.T) {
	h := newHarness(t)
	h.st.sweep = &models.SweepReport{Scanned: 3, Deleted: 1, Expired: 3}

	out, err := h.run(t, "orphans", "sweep", "--older-than", "2h")
	require.NoError(t, err)
	assert.Equal(t, "scanned 3, deleted 1, expired 3, failed 0\n", out)
	assert.Equal(t, 2*time.Hour, h.st.sweepAge)

	_, err = h.run(t, "orphans", "sweep", "--older-than", "-1s")
	require.Error(t, err)
}

// ------------ ping / wiring ------------

func TestPing(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok (127.0.0.1:50051)\n", out)

	h.st.pingErr = store.ErrUnavailable
	_, err = h.run(t, "ping", "--transport", "http")
	require.ErrorIs(t, err, store.ErrUnavailable)
}

func TestInvalidTransportRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "ping", "--transport", "smtp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestOpenStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	st, err := openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.GRPCClient{}, st)
	require.NoError(t, st.Close())

	cfg.Transport = config.TransportHTTP
	st, err = openStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.HTTPClient{}, st)
	require.NoError(t, st.Close())
}

func TestOpenJournal_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "journal.db")

	db, err := openJournal(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
