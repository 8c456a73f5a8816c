package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "arithmetic.v1.OperationService"

const (
	MethodSettle        = "/" + ServiceName + "/Settle"
	MethodListRecords   = "/" + ServiceName + "/ListRecords"
	MethodSearchRecords = "/" + ServiceName + "/SearchRecords"
	MethodDeleteRecord  = "/" + ServiceName + "/DeleteRecord"
)

// OperationServiceServer - серверная сторона сервиса операций.
// Сообщения передаются как google.protobuf.Struct.
type OperationServiceServer interface {
	Settle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SearchRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv OperationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OperationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OperationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OperationServiceDesc описывает сервис для grpc.Server.RegisterService
var OperationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OperationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Settle",
			Handler: unaryHandler(MethodSettle, func(s OperationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.Settle(ctx, req)
			}),
		},
		{
			MethodName: "ListRecords",
			Handler: unaryHandler(MethodListRecords, func(s OperationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.ListRecords(ctx, req)
			}),
		},
		{
			MethodName: "SearchRecords",
			Handler: unaryHandler(MethodSearchRecords, func(s OperationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.SearchRecords(ctx, req)
			}),
		},
		{
			MethodName: "DeleteRecord",
			Handler: unaryHandler(MethodDeleteRecord, func(s OperationServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return s.DeleteRecord(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arithmetic/v1/operation.proto",
}

// RegisterOperationServiceServer регистрирует реализацию сервиса
func RegisterOperationServiceServer(s grpc.ServiceRegistrar, srv OperationServiceServer) {
	s.RegisterService(&OperationServiceDesc, srv)
}
