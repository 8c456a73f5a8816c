package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"arithmetic-calculator/internal/auth"
	"arithmetic-calculator/internal/config"
	"arithmetic-calculator/internal/db"
	"arithmetic-calculator/internal/evaluator"
	"arithmetic-calculator/internal/grpc"
	"arithmetic-calculator/internal/settlement"
	"arithmetic-calculator/internal/userlock"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	db.PasswordCost = bcrypt.MinCost
	return filepath.Join(t.TempDir(), "cli.db")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"user", "create"}, {"user", "status"},
		{"balance", "set"}, {"balance", "get"},
		{"cost", "list"}, {"cost", "set"},
		{"records", "list"}, {"records", "search"}, {"records", "delete"},
		{"batch"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "cost", "list", "--db", tempDB(t))
	assert.ErrorContains(t, err, "invalid format")
}

func TestAdminCommands(t *testing.T) {
	dbPath := tempDB(t)

	out, err := execute(t, "--db", dbPath, "user", "create", "dana", "pw", "--balance", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "created user dana")

	_, err = execute(t, "--db", dbPath, "user", "create", "dana", "pw")
	assert.ErrorIs(t, err, db.ErrUserAlreadyExists)

	out, err = execute(t, "--db", dbPath, "balance", "set", "dana", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "changed from 7 to 250")

	out, err = execute(t, "--db", dbPath, "--format", "json", "balance", "get", "dana")
	require.NoError(t, err)
	var user db.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, int64(250), user.Balance)

	_, err = execute(t, "--db", dbPath, "user", "status", "dana", "inactive")
	require.NoError(t, err)
	out, err = execute(t, "--db", dbPath, "balance", "get", "dana")
	require.NoError(t, err)
	assert.Contains(t, out, "inactive")

	_, err = execute(t, "--db", dbPath, "cost", "set", "squareRoot", "9")
	require.NoError(t, err)
	out, err = execute(t, "--db", dbPath, "cost", "list")
	require.NoError(t, err)
	assert.Regexp(t, `squareRoot\s+9`, out)

	_, err = execute(t, "--db", dbPath, "cost", "set", "modulo", "2")
	assert.ErrorIs(t, err, evaluator.ErrInvalidOperands)
	_, err = execute(t, "--db", dbPath, "balance", "set", "ghost", "1")
	assert.ErrorIs(t, err, db.ErrUserNotFound)
}

type fixedRandom string

func (f fixedRandom) RandomString(context.Context) (string, error) { return string(f), nil }

// startServer поднимает gRPC сервер на свободном порту поверх файла базы
func startServer(t *testing.T, dbPath string) string {
	t.Helper()
	config.AppConfig = &config.Config{JWTSecret: "cli-test-secret", JWTExpirationMinutes: 20}

	store, err := db.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	settler := settlement.New(userlock.NewTable(), store, store, store, evaluator.New(fixedRandom("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")))
	server := grpc.NewServer(grpc.NewOperationService(settler, store))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	return lis.Addr().String()
}

func TestBatchAndRecords(t *testing.T) {
	dbPath := tempDB(t)
	_, err := execute(t, "--db", dbPath, "user", "create", "erin", "pw", "--balance", "12")
	require.NoError(t, err)

	addr := startServer(t, dbPath)
	store, err := db.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	user, err := store.GetUserByUsername(context.Background(), "erin")
	require.NoError(t, err)
	token, err := auth.GenerateToken(user)
	require.NoError(t, err)

	jobsFile := filepath.Join(t.TempDir(), "jobs.txt")
	require.NoError(t, os.WriteFile(jobsFile, []byte(strings.Join([]string{
		"addition 2 2",
		"addition 3 3",
		"squareRoot 81",
		"randomString",
		"multiplication 4 4",
	}, "\n")), 0o600))

	out, err := execute(t, "--addr", addr, "--token", token, "--format", "json", "batch", jobsFile, "-w", "3")
	require.NoError(t, err)

	var results []BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 5)

	// Баланс 12 не покрывает всех: сумма успешных списаний не больше 12
	var charged int64
	costs := map[evaluator.Kind]int64{evaluator.Addition: 1, evaluator.Multiplication: 1, evaluator.SquareRoot: 5, evaluator.RandomString: 10}
	succeeded := 0
	for _, r := range results {
		if r.Error == "" {
			charged += costs[r.Job.Kind]
			succeeded++
		}
	}
	assert.LessOrEqual(t, charged, int64(12))
	assert.Less(t, succeeded, 5)

	after, err := store.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 12-charged, after.Balance)

	out, err = execute(t, "--addr", addr, "--token", token, "--format", "json", "records", "list")
	require.NoError(t, err)
	var page struct {
		Records    []*db.Record `json:"records"`
		TotalCount int          `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, succeeded, page.TotalCount)

	_, err = execute(t, "--addr", addr, "records", "list")
	assert.ErrorIs(t, err, errNoToken)
}
