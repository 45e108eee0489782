package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
	"github.com/dmitrijs2005/dentdocs/internal/server/models"
	"github.com/dmitrijs2005/dentdocs/internal/server/services"
)

// Documents is the document service as seen by the transport.
type Documents interface {
	Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.Document, string, error)
	Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.Document, error)
	List(ctx context.Context, ownerID string, yield func(*models.Document) error) error
	SweepOrphans(ctx context.Context, olderThan time.Duration) (*services.SweepResult, error)
}

type GRPCServer struct {
	api.UnimplementedDocumentStoreServer
	address   string
	documents Documents
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, ds Documents, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		documents: ds,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamAccessTokenInterceptor),
	}, opts...)
	srv := grpc.NewServer(opts...)
	api.RegisterDocumentStoreServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
