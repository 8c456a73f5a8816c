package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/logger"
	"arithmetic-calculator/internal/settlement"
)

const DefaultCallTimeout = 5 * time.Second

// Client - gRPC клиент сервиса операций от имени одного пользователя
type Client struct {
	conn    *grpc.ClientConn
	token   string
	Timeout time.Duration
}

// NewClient устанавливает соединение с сервером, используя незащищенный канал
func NewClient(address, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.Dial(address, opts...)
	if err != nil {
		return nil, err
	}
	return NewClientFromConn(conn, token), nil
}

func NewClientFromConn(conn *grpc.ClientConn, token string) *Client {
	return &Client{conn: conn, token: token, Timeout: DefaultCallTimeout}
}

// Close закрывает соединение с сервером
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		logger.LogERROR("gRPC call failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// Settle выполняет операцию; nil операнд не передается
func (c *Client) Settle(ctx context.Context, kind evaluator.Kind, first, second *int64) (*settlement.Outcome, error) {
	in, err := settleRequest(kind, first, second)
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, MethodSettle, in)
	if err != nil {
		return nil, err
	}
	return outcomeFromStruct(out)
}

// ListRecords возвращает страницу журнала и общее число записей
func (c *Client) ListRecords(ctx context.Context, page db.Page) ([]*db.Record, int, error) {
	in, err := pageRequest(page, nil)
	if err != nil {
		return nil, 0, err
	}
	out, err := c.invoke(ctx, MethodListRecords, in)
	if err != nil {
		return nil, 0, err
	}
	return recordsFromStruct(out)
}

func (c *Client) SearchRecords(ctx context.Context, term string, page db.Page) ([]*db.Record, error) {
	in, err := pageRequest(page, map[string]any{fieldTerm: term})
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, MethodSearchRecords, in)
	if err != nil {
		return nil, err
	}
	records, _, err := recordsFromStruct(out)
	return records, err
}

func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	in, err := structpb.NewStruct(map[string]any{fieldID: id})
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, MethodDeleteRecord, in)
	return err
}
