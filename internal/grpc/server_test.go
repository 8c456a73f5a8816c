package grpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/config"
	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/settlement"
	"arithmetic-calculator/internal/userlock"
)

type fixedRandom string

func (f fixedRandom) RandomString(context.Context) (string, error) { return string(f), nil }

type testEnv struct {
	store *db.Store
	conn  *grpc.ClientConn
}

// setupTestEnvironment поднимает сервис на bufconn поверх базы в памяти
func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()
	config.AppConfig = &config.Config{JWTSecret: "grpc-test-secret", JWTExpirationMinutes: 20}
	db.PasswordCost = bcrypt.MinCost

	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	settler := settlement.New(userlock.NewTable(), store, store, store, evaluator.New(fixedRandom("qwertyuiopasdfghjklzxcvbnmqwerty")))
	server := NewServer(NewOperationService(settler, store))

	lis := bufconn.Listen(1 << 20)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testEnv{store: store, conn: conn}
}

func (e *testEnv) clientFor(t *testing.T, username string, balance int64) (*Client, *db.User) {
	t.Helper()
	user, err := e.store.CreateUser(context.Background(), username, "pw", balance)
	require.NoError(t, err)
	token, err := auth.GenerateToken(user)
	require.NoError(t, err)
	return NewClientFromConn(e.conn, token), user
}

func int64p(v int64) *int64 { return &v }

func TestSettleOverGRPC(t *testing.T) {
	env := setupTestEnvironment(t)
	client, _ := env.clientFor(t, "alice", 100)
	ctx := context.Background()

	out, err := client.Settle(ctx, evaluator.Subtraction, int64p(10), int64p(-5))
	require.NoError(t, err)
	assert.Equal(t, "15", out.Result)
	assert.Equal(t, "10--5", out.Expression)
	assert.Equal(t, int64(99), out.Balance)

	out, err = client.Settle(ctx, evaluator.RandomString, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "qwertyuiopasdfghjklzxcvbnmqwerty", out.Result)
	assert.Equal(t, int64(89), out.Balance)

	// Большие операнды передаются строкой без потери точности
	big := int64(1) << 60
	out, err = client.Settle(ctx, evaluator.Addition, int64p(big), int64p(1))
	require.NoError(t, err)
	assert.Equal(t, "1152921504606846977", out.Result)
}

func TestSettleErrorCodes(t *testing.T) {
	env := setupTestEnvironment(t)
	client, user := env.clientFor(t, "bob", 1)
	ctx := context.Background()

	_, err := client.Settle(ctx, evaluator.Division, int64p(1), int64p(0))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Settle(ctx, evaluator.Kind("modulo"), int64p(1), int64p(2))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Settle(ctx, evaluator.SquareRoot, int64p(9), nil)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	require.NoError(t, env.store.SetUserStatus(ctx, user.ID, db.StatusInactive))
	_, err = client.Settle(ctx, evaluator.Addition, int64p(1), int64p(1))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	anonymous := NewClientFromConn(env.conn, "not-a-token")
	_, err = anonymous.Settle(ctx, evaluator.Addition, int64p(1), int64p(1))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRecordsOverGRPC(t *testing.T) {
	env := setupTestEnvironment(t)
	alice, aliceUser := env.clientFor(t, "alice", 100)
	bob, _ := env.clientFor(t, "bob", 100)
	ctx := context.Background()

	for _, pair := range [][2]int64{{12, 3}, {5, 12}, {2, 2}} {
		_, err := alice.Settle(ctx, evaluator.Multiplication, int64p(pair[0]), int64p(pair[1]))
		require.NoError(t, err)
	}
	_, err := bob.Settle(ctx, evaluator.Multiplication, int64p(12), int64p(12))
	require.NoError(t, err)

	records, total, err := alice.ListRecords(ctx, db.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "12*3", records[0].Expression)
	assert.Equal(t, "36", records[0].Response)
	assert.Equal(t, aliceUser.ID, records[0].UserID)
	assert.Equal(t, evaluator.Multiplication, records[0].Kind)
	assert.False(t, records[0].CreatedAt.IsZero())

	_, _, err = alice.ListRecords(ctx, db.Page{Offset: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	found, err := alice.SearchRecords(ctx, "12", db.Page{})
	require.NoError(t, err)
	require.Len(t, found, 2)

	require.NoError(t, alice.DeleteRecord(ctx, found[0].ID))
	require.NoError(t, alice.DeleteRecord(ctx, found[0].ID))
	assert.Equal(t, codes.InvalidArgument, status.Code(alice.DeleteRecord(ctx, 0)))

	_, total, err = alice.ListRecords(ctx, db.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestToStatusHidesInternalErrors(t *testing.T) {
	err := toStatus(context.Canceled)
	assert.Equal(t, codes.Canceled, status.Code(err))

	err = toStatus(fmt.Errorf("settle: %w", db.ErrBalanceConflict))
	assert.Equal(t, codes.Aborted, status.Code(err))

	err = toStatus(assert.AnError)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, status.Convert(err).Message(), assert.AnError.Error())
}
