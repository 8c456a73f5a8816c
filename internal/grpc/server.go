package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/logger"
	"arithmetic-calculator/internal/random"
	"arithmetic-calculator/internal/settlement"
)

// Settler выполняет и оплачивает одну операцию
type Settler interface {
	Settle(ctx context.Context, req settlement.Request) (*settlement.Outcome, error)
}

// RecordStore - журнал операций пользователя
type RecordStore interface {
	ListRecords(ctx context.Context, userID int64, page db.Page) ([]*db.Record, int, error)
	SearchRecords(ctx context.Context, userID int64, term string, page db.Page) ([]*db.Record, error)
	SoftDeleteRecord(ctx context.Context, userID, recordID int64) error
}

// OperationService имплементирует OperationServiceServer
type OperationService struct {
	Settler Settler
	Records RecordStore
}

func NewOperationService(settler Settler, records RecordStore) *OperationService {
	return &OperationService{Settler: settler, Records: records}
}

// Settle выполняет операцию от имени пользователя из токена
func (s *OperationService) Settle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	kind, err := evaluator.ParseKind(stringField(req, fieldType))
	if err != nil {
		return nil, toStatus(err)
	}
	first, err := optionalInt(req, fieldFirst)
	if err != nil {
		return nil, toStatus(err)
	}
	second, err := optionalInt(req, fieldSecond)
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := s.Settler.Settle(ctx, settlement.Request{UserID: userID, Kind: kind, First: first, Second: second})
	if err != nil {
		return nil, toStatus(err)
	}

	resp, err := outcomeToStruct(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// ListRecords возвращает страницу журнала пользователя
func (s *OperationService) ListRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	page, err := pageFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}

	records, total, err := s.Records.ListRecords(ctx, userID, page)
	if err != nil {
		return nil, toStatus(err)
	}
	return recordsResponse(records, total)
}

// SearchRecords ищет подстроку в тексте выражений пользователя
func (s *OperationService) SearchRecords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	page, err := pageFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}

	records, err := s.Records.SearchRecords(ctx, userID, stringField(req, fieldTerm), page)
	if err != nil {
		return nil, toStatus(err)
	}
	return recordsResponse(records, len(records))
}

// DeleteRecord мягко удаляет запись пользователя
func (s *OperationService) DeleteRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := auth.UserIDFromContext(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := intField(req, fieldID)
	if err != nil || id <= 0 {
		return nil, status.Error(codes.InvalidArgument, "record id must be a positive integer")
	}

	if err := s.Records.SoftDeleteRecord(ctx, userID, id); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

func recordsResponse(records []*db.Record, total int) (*structpb.Struct, error) {
	resp, err := recordsToStruct(records, total)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// toStatus сопоставляет ошибку предметной области с кодом gRPC
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, evaluator.ErrInvalidOperands),
		errors.Is(err, evaluator.ErrArithmeticDomain),
		errors.Is(err, db.ErrInvalidPage),
		errors.Is(err, db.ErrOperationNotFound):
		code = codes.InvalidArgument
	case errors.Is(err, auth.ErrInvalidToken):
		code = codes.Unauthenticated
	case errors.Is(err, db.ErrUserInactive):
		code = codes.PermissionDenied
	case errors.Is(err, settlement.ErrInsufficientBalance):
		code = codes.FailedPrecondition
	case errors.Is(err, db.ErrBalanceConflict):
		code = codes.Aborted
	case errors.Is(err, random.ErrUpstreamUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		logger.LogERROR("gRPC request failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

// AuthInterceptor проверяет bearer токен из метаданных authorization
func AuthInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var header string
	if values := md.Get("authorization"); len(values) > 0 {
		header = values[0]
	}

	token, err := auth.ParseBearer(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(auth.ContextWithClaims(ctx, claims), req)
}

// LoggingInterceptor пишет метод, код и длительность каждого вызова
func LoggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.LogINFO("gRPC call",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", time.Since(start)))
	return resp, err
}

// NewServer создает gRPC сервер с зарегистрированным сервисом операций
func NewServer(svc OperationServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor, AuthInterceptor))
	s := grpc.NewServer(opts...)
	RegisterOperationServiceServer(s, svc)
	return s
}

// StartGRPCServer запускает gRPC сервер на указанном адресе и возвращает экземпляр сервера
func StartGRPCServer(address string, svc OperationServiceServer) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	s := NewServer(svc)
	logger.LogINFO("gRPC server listening", zap.String("address", address))

	go func() {
		if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.LogERROR("gRPC server stopped", zap.Error(err))
		}
	}()

	return s, nil
}
