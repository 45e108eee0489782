package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
	"github.com/dmitrijs2005/dentdocs/internal/server/storage"
)

// toStatus maps service errors onto gRPC status codes. Unexpected errors are
// logged and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorIncorrectMetadata):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, storage.ErrObjectMissing):
		return status.Error(codes.FailedPrecondition, "no bytes stored under object key")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	}
	s.logger.Error(ctx, op+" failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) Reserve(ctx context.Context, req *api.ReserveRequest) (*api.ReserveResponse, error) {
	doc, uploadURL, err := s.documents.Reserve(ctx, req.OwnerID, req.FileName, req.ContentType)
	if err != nil {
		return nil, s.toStatus(ctx, "reserve", err)
	}
	return &api.ReserveResponse{UploadURL: uploadURL, ObjectKey: doc.ObjectKey}, nil
}

func (s *GRPCServer) Confirm(ctx context.Context, req *api.ConfirmRequest) (*api.Document, error) {
	doc, err := s.documents.Confirm(ctx, req.OwnerID, req.FileName, req.ObjectKey)
	if err != nil {
		return nil, s.toStatus(ctx, "confirm", err)
	}
	return doc.ToAPI(), nil
}

func (s *GRPCServer) ListDocuments(req *api.ListDocumentsRequest, stream grpc.ServerStreamingServer[api.Document]) error {
	ctx := stream.Context()
	err := s.documents.List(ctx, req.OwnerID, func(d *models.Document) error {
		return stream.Send(d.ToAPI())
	})
	if err != nil {
		return s.toStatus(ctx, "list documents", err)
	}
	return nil
}

func (s *GRPCServer) SweepOrphans(ctx context.Context, req *api.SweepOrphansRequest) (*api.SweepOrphansResponse, error) {
	res, err := s.documents.SweepOrphans(ctx, time.Duration(req.OlderThanSeconds)*time.Second)
	if err != nil {
		return nil, s.toStatus(ctx, "sweep orphans", err)
	}
	return &api.SweepOrphansResponse{
		Scanned: res.Scanned,
		Deleted: res.Deleted,
		Expired: res.Expired,
		Failed:  res.Failed,
	}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "ok"}, nil
}
