package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
	"github.com/dmitrijs2005/dentdocs/internal/server/services"
	"github.com/dmitrijs2005/dentdocs/internal/server/storage"
)

// ---- fakes ----

type fakeDocuments struct {
	reserveErr error
	confirmDoc *models.Document
	confirmErr error
	listDocs   []*models.Document
	listErr    error
	sweepErr   error

	sweepOlderThan time.Duration
}

func (f *fakeDocuments) Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.Document, string, error) {
	if f.reserveErr != nil {
		return nil, "", f.reserveErr
	}
	return &models.Document{ObjectKey: "patients/" + ownerID + "/k", OwnerID: ownerID, FileName: fileName}, "https://put", nil
}

func (f *fakeDocuments) Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.Document, error) {
	return f.confirmDoc, f.confirmErr
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
	return &services.SweepResult{Scanned: 3, Deleted: 1, Expired: 2}, nil
}

type fakeListStream struct {
	grpc.ServerStreamingServer[api.Document]
	sent    []*api.Document
	sendErr error
}

func (f *fakeListStream) Context() context.Context { return context.Background() }

func (f *fakeListStream) Send(d *api.Document) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, d)
	return nil
}

func newHandlerServer(fd *fakeDocuments) *GRPCServer {
	return &GRPCServer{logger: nopLogger{}, documents: fd, jwtSecret: []byte("secret")}
}

// ---- tests ----

func TestToStatus(t *testing.T) {
	s := newHandlerServer(&fakeDocuments{})

	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: ownerId is required", common.ErrorValidation), codes.InvalidArgument},
		{fmt.Errorf("%w: x", common.ErrorIncorrectMetadata), codes.FailedPrecondition},
		{storage.ErrObjectMissing, codes.FailedPrecondition},
		{common.ErrorNotFound, codes.NotFound},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{status.Error(codes.Unavailable, "gone"), codes.Unavailable},
		{errors.New("pq: connection refused"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := s.toStatus(context.Background(), "op", tt.err)
			if status.Code(got) != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}

	st, _ := status.FromError(s.toStatus(context.Background(), "op", errors.New("secret dsn in message")))
	if st.Message() != "internal error" {
		t.Fatalf("internal errors must not leak details: %q", st.Message())
	}
}

func TestConfirm_Handler(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newHandlerServer(&fakeDocuments{confirmDoc: &models.Document{
		ObjectKey: "k1", OwnerID: "p1", FileName: "a.png", Format: "png", ConfirmedAt: &at, RetrievalURL: "https://get",
	}})

	doc, err := s.Confirm(context.Background(), &api.ConfirmRequest{OwnerID: "p1", FileName: "a.png", ObjectKey: "k1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name != "a.png" || doc.RetrievalURL != "https://get" || !doc.CreatedAt.Equal(at) {
		t.Fatalf("unexpected document: %+v", doc)
	}

	s = newHandlerServer(&fakeDocuments{confirmErr: storage.ErrObjectMissing})
	_, err = s.Confirm(context.Background(), &api.ConfirmRequest{OwnerID: "p1", FileName: "a.png", ObjectKey: "k1"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestReserve_HandlerError(t *testing.T) {
	s := newHandlerServer(&fakeDocuments{reserveErr: fmt.Errorf("%w: fileName is required", common.ErrorValidation)})

	_, err := s.Reserve(context.Background(), &api.ReserveRequest{OwnerID: "p1"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestListDocuments_Handler(t *testing.T) {
	s := newHandlerServer(&fakeDocuments{listDocs: []*models.Document{
		{ObjectKey: "k1", FileName: "a.png"},
		{ObjectKey: "k2", FileName: "b.png"},
	}})

	stream := &fakeListStream{}
	if err := s.ListDocuments(&api.ListDocumentsRequest{OwnerID: "p1"}, stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stream.sent) != 2 || stream.sent[1].ObjectKey != "k2" {
		t.Fatalf("unexpected sent docs: %+v", stream.sent)
	}

	stream = &fakeListStream{sendErr: status.Error(codes.Canceled, "client went away")}
	err := s.ListDocuments(&api.ListDocumentsRequest{OwnerID: "p1"}, stream)
	if status.Code(err) != codes.Canceled {
		t.Fatalf("expected send error to pass through, got %v", err)
	}

	s = newHandlerServer(&fakeDocuments{listErr: errors.New("db down")})
	err = s.ListDocuments(&api.ListDocumentsRequest{OwnerID: "p1"}, &fakeListStream{})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}

func TestSweepOrphans_Handler(t *testing.T) {
	fd := &fakeDocuments{}
	s := newHandlerServer(fd)

	res, err := s.SweepOrphans(context.Background(), &api.SweepOrphansRequest{OlderThanSeconds: 3600})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fd.sweepOlderThan != time.Hour {
		t.Fatalf("olderThan not converted: %v", fd.sweepOlderThan)
	}
	if res.Scanned != 3 || res.Deleted != 1 || res.Expired != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	fd.sweepErr = fmt.Errorf("%w: negative", common.ErrorValidation)
	if _, err := s.SweepOrphans(context.Background(), &api.SweepOrphansRequest{OlderThanSeconds: -1}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestPing_Handler(t *testing.T) {
	s := newHandlerServer(&fakeDocuments{})
	resp, err := s.Ping(context.Background(), &api.PingRequest{})
	if err != nil || resp.Status != "ok" {
		t.Fatalf("unexpected ping: %+v %v", resp, err)
	}
}
