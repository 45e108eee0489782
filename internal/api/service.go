package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "dentdocs.v1.DocumentStore"

// Full method names, as seen by interceptors.
const (
	MethodReserve       = "/" + ServiceName + "/Reserve"
	MethodConfirm       = "/" + ServiceName + "/Confirm"
	MethodListDocuments = "/" + ServiceName + "/ListDocuments"
	MethodSweepOrphans  = "/" + ServiceName + "/SweepOrphans"
	MethodPing          = "/" + ServiceName + "/Ping"
)

type DocumentStoreServer interface {
	Reserve(context.Context, *ReserveRequest) (*ReserveResponse, error)
	Confirm(context.Context, *ConfirmRequest) (*Document, error)
	ListDocuments(*ListDocumentsRequest, grpc.ServerStreamingServer[Document]) error
	SweepOrphans(context.Context, *SweepOrphansRequest) (*SweepOrphansResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// UnimplementedDocumentStoreServer can be embedded to satisfy
// DocumentStoreServer partially.
type UnimplementedDocumentStoreServer struct{}

func (UnimplementedDocumentStoreServer) Reserve(context.Context, *ReserveRequest) (*ReserveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Reserve not implemented")
}
func (UnimplementedDocumentStoreServer) Confirm(context.Context, *ConfirmRequest) (*Document, error) {
	return nil, status.Error(codes.Unimplemented, "method Confirm not implemented")
}
func (UnimplementedDocumentStoreServer) ListDocuments(*ListDocumentsRequest, grpc.ServerStreamingServer[Document]) error {
	return status.Error(codes.Unimplemented, "method ListDocuments not implemented")
}
func (UnimplementedDocumentStoreServer) SweepOrphans(context.Context, *SweepOrphansRequest) (*SweepOrphansResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SweepOrphans not implemented")
}
func (UnimplementedDocumentStoreServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "ok"}, nil
}

func RegisterDocumentStoreServer(s grpc.ServiceRegistrar, srv DocumentStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req any, Res any](method string, call func(DocumentStoreServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DocumentStoreServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DocumentStoreServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func listDocumentsHandler(srv any, stream grpc.ServerStream) error {
	in := new(ListDocumentsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentStoreServer).ListDocuments(in, &grpc.GenericServerStream[ListDocumentsRequest, Document]{ServerStream: stream})
}

// ServiceDesc describes the DocumentStore service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reserve", Handler: unaryHandler(MethodReserve, DocumentStoreServer.Reserve)},
		{MethodName: "Confirm", Handler: unaryHandler(MethodConfirm, DocumentStoreServer.Confirm)},
		{MethodName: "SweepOrphans", Handler: unaryHandler(MethodSweepOrphans, DocumentStoreServer.SweepOrphans)},
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, DocumentStoreServer.Ping)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ListDocuments", Handler: listDocumentsHandler, ServerStreams: true},
	},
	Metadata: "dentdocs/v1/document_store",
}

type DocumentStoreClient interface {
	Reserve(ctx context.Context, in *ReserveRequest, opts ...grpc.CallOption) (*ReserveResponse, error)
	Confirm(ctx context.Context, in *ConfirmRequest, opts ...grpc.CallOption) (*Document, error)
	ListDocuments(ctx context.Context, in *ListDocumentsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Document], error)
	SweepOrphans(ctx context.Context, in *SweepOrphansRequest, opts ...grpc.CallOption) (*SweepOrphansResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
}

type documentStoreClient struct {
	cc grpc.ClientConnInterface
}

// NewDocumentStoreClient returns a client that always speaks the JSON codec.
func NewDocumentStoreClient(cc grpc.ClientConnInterface) DocumentStoreClient {
	return &documentStoreClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *documentStoreClient) Reserve(ctx context.Context, in *ReserveRequest, opts ...grpc.CallOption) (*ReserveResponse, error) {
	out := new(ReserveResponse)
	if err := c.cc.Invoke(ctx, MethodReserve, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Confirm(ctx context.Context, in *ConfirmRequest, opts ...grpc.CallOption) (*Document, error) {
	out := new(Document)
	if err := c.cc.Invoke(ctx, MethodConfirm, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) ListDocuments(ctx context.Context, in *ListDocumentsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Document], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], MethodListDocuments, callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[ListDocumentsRequest, Document]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *documentStoreClient) SweepOrphans(ctx context.Context, in *SweepOrphansRequest, opts ...grpc.CallOption) (*SweepOrphansResponse, error) {
	out := new(SweepOrphansResponse)
	if err := c.cc.Invoke(ctx, MethodSweepOrphans, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentStoreClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.cc.Invoke(ctx, MethodPing, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
