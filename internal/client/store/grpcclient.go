package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/client/models"
	"github.com/dmitrijs2005/dentdocs/internal/common"
)

type GRPCClient struct {
	endpointURL string
	accessToken string
	conn        *grpc.ClientConn
	client      api.DocumentStoreClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.accessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) accessTokenStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.accessToken), desc, cc, method, opts...)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults (insecure transport, token interceptors).
func NewGRPCClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.accessTokenStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewDocumentStoreClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Reserve(ctx context.Context, ownerID, fileName, contentType string) (*models.UploadTicket, error) {
	resp, err := s.client.Reserve(ctx, &api.ReserveRequest{OwnerID: ownerID, FileName: fileName, ContentType: contentType})
	if err != nil {
		return nil, mapError(err)
	}
	return ticketFromAPI(resp), nil
}

func (s *GRPCClient) Confirm(ctx context.Context, ownerID, fileName, objectKey string) (*models.DocumentRecord, error) {
	resp, err := s.client.Confirm(ctx, &api.ConfirmRequest{OwnerID: ownerID, FileName: fileName, ObjectKey: objectKey})
	if err != nil {
		return nil, mapError(err)
	}
	return recordFromAPI(resp), nil
}

func (s *GRPCClient) ListDocuments(ctx context.Context, ownerID string) iter.Seq2[*models.DocumentRecord, error] {
	return singleUse(func(yield func(*models.DocumentRecord, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := s.client.ListDocuments(ctx, &api.ListDocumentsRequest{OwnerID: ownerID})
		if err != nil {
			yield(nil, mapError(err))
			return
		}
		for {
			doc, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, mapError(err))
				return
			}
			if !yield(recordFromAPI(doc), nil) {
				return
			}
		}
	})
}

func (s *GRPCClient) SweepOrphans(ctx context.Context, olderThan time.Duration) (*models.SweepReport, error) {
	resp, err := s.client.SweepOrphans(ctx, &api.SweepOrphansRequest{OlderThanSeconds: sweepSeconds(olderThan)})
	if err != nil {
		return nil, mapError(err)
	}
	return sweepFromAPI(resp), nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "ok" {
		return ErrUnavailable
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.DeadlineExceeded:
		return common.ErrTimeout
	case codes.Canceled:
		return context.Canceled
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
