package random

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomStringSuccess(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":["qwertyuiopasdfghjklzxcvbnmqwerty"],"completionTime":"2024-07-27 10:29:10Z"},"bitsUsed":150},"id":"x"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", time.Second)
	s, err := c.RandomString(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "qwertyuiopasdfghjklzxcvbnmqwerty", s)
	assert.Equal(t, "generateStrings", got.Method)
	assert.Equal(t, "key-123", got.Params.APIKey)
	assert.Equal(t, 1, got.Params.N)
	assert.Equal(t, StringLength, got.Params.Length)
	assert.Equal(t, Alphabet, got.Params.Characters)
	assert.NotEmpty(t, got.ID)
}

func TestRandomStringFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"rpc error", http.StatusOK, `{"jsonrpc":"2.0","error":{"code":401,"message":"Parameter 'apiKey' is malformed"},"id":"x"}`},
		{"malformed json", http.StatusOK, `{"result":`},
		{"missing data", http.StatusOK, `{"jsonrpc":"2.0","result":{"random":{"data":[]}},"id":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).RandomString(context.Background())
			assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		})
	}
}

func TestRandomStringTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second).RandomString(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
