package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "GRPC_PORT", "DB_PATH", "JWT_EXPIRATION_MINUTES", "INITIAL_BALANCE", "RATE_LIMIT_RPS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "8081", cfg.GRPCPort)
	assert.Equal(t, 20, cfg.JWTExpirationMinutes)
	assert.Equal(t, int64(100), cfg.InitialBalance)
	assert.Equal(t, 5*time.Second, cfg.RandomTimeout)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
}

func TestLoadFromDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SERVER_PORT=9000\nINITIAL_BALANCE=250\nRANDOM_TIMEOUT_MS=750\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// godotenv не перезаписывает уже заданные переменные
	t.Setenv("SERVER_PORT", "")
	t.Setenv("GRPC_PORT", "")
	t.Setenv("INITIAL_BALANCE", "")
	t.Setenv("RANDOM_TIMEOUT_MS", "")
	os.Unsetenv("SERVER_PORT")
	os.Unsetenv("INITIAL_BALANCE")
	os.Unsetenv("RANDOM_TIMEOUT_MS")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "9001", cfg.GRPCPort)
	assert.Equal(t, int64(250), cfg.InitialBalance)
	assert.Equal(t, 750*time.Millisecond, cfg.RandomTimeout)
}

func TestLoadRejectsGarbage(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"JWT_EXPIRATION_MINUTES", "soon"},
		{"INITIAL_BALANCE", "-5"},
		{"RATE_LIMIT_RPS", "fast"},
		{"SERVER_PORT", "http"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("GRPC_PORT", "")
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
