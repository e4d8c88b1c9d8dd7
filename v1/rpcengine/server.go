package rpcengine

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/awa-ai/awadb/v1/engine"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "awadb.v1.Engine"

// ServiceDesc describes the engine service. Every method is unary and
// exchanges google.protobuf.Struct messages.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*engine.Engine)(nil),
	Methods: []grpc.MethodDesc{
		unary("Create", func(ctx context.Context, e engine.Engine, req createRequest) (empty, error) {
			return empty{}, e.Create(ctx, req.Decl)
		}),
		unary("AddField", func(ctx context.Context, e engine.Engine, req addFieldRequest) (empty, error) {
			return empty{}, e.AddField(ctx, req.Key, req.Field)
		}),
		unary("Add", func(ctx context.Context, e engine.Engine, req addRequest) (empty, error) {
			return empty{}, e.Add(ctx, req.Key, fromWire(req.Docs))
		}),
		unary("Search", func(ctx context.Context, e engine.Engine, req engine.SearchRequest) (rowsResponse, error) {
			rows, err := e.Search(ctx, req)
			return rowsResponse{Rows: rows}, err
		}),
		unary("Get", func(ctx context.Context, e engine.Engine, req engine.GetRequest) (rowsResponse, error) {
			rows, err := e.Get(ctx, req)
			return rowsResponse{Rows: rows}, err
		}),
		unary("Delete", func(ctx context.Context, e engine.Engine, req deleteRequest) (empty, error) {
			return empty{}, e.Delete(ctx, req.Key, req.IDs)
		}),
		unary("Describe", func(ctx context.Context, e engine.Engine, req keyRequest) (describeResponse, error) {
			decl, err := e.Describe(ctx, req.Key)
			return describeResponse{Decl: decl}, err
		}),
		unary("Drop", func(ctx context.Context, e engine.Engine, req keyRequest) (empty, error) {
			return empty{}, e.Drop(ctx, req.Key)
		}),
		unary("List", func(ctx context.Context, e engine.Engine, req listRequest) (listResponse, error) {
			keys, err := e.List(ctx, req.DB)
			return listResponse{Keys: keys}, err
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "awadb/v1/engine.proto",
}

func unary[Req, Resp any](name string, call func(context.Context, engine.Engine, Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, msg any) (any, error) {
				var req Req
				if err := fromStruct(msg.(*structpb.Struct), &req); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(ctx, srv.(engine.Engine), req)
				if err != nil {
					return nil, toStatus(err)
				}
				out, err := toStruct(resp)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Register exposes eng on s.
func Register(s grpc.ServiceRegistrar, eng engine.Engine) {
	s.RegisterService(&ServiceDesc, eng)
}

// NewServer builds a gRPC server that serves eng.
func NewServer(eng engine.Engine, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	Register(s, eng)
	return s
}
