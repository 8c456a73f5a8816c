// Package random запрашивает случайные строки у random.org через JSON-RPC.
package random

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"arithmetic-calculator/internal/logger"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrUpstreamUnavailable = errors.New("random string provider unavailable")

const (
	StringLength = 32
	Alphabet     = "abcdefghijklmnopqrstuvwxyz"

	maxResponseBytes = 1 << 20
)

type Client struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient создает клиента с таймаутом на весь запрос
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		URL:        url,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      string    `json:"id"`
}

type rpcParams struct {
	APIKey      string `json:"apiKey"`
	N           int    `json:"n"`
	Length      int    `json:"length"`
	Characters  string `json:"characters"`
	Replacement bool   `json:"replacement"`
}

// RandomString возвращает одну строку из 32 строчных латинских букв.
// Любой сбой провайдера возвращается как ErrUpstreamUnavailable; повторов нет.
func (c *Client) RandomString(ctx context.Context) (string, error) {
	reqID := uuid.NewString()
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateStrings",
		Params: rpcParams{
			APIKey:      c.APIKey,
			N:           1,
			Length:      StringLength,
			Characters:  Alphabet,
			Replacement: true,
		},
		ID: reqID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		logger.LogERROR("random.org request failed", zap.String("request_id", reqID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.LogERROR("random.org returned non-success status",
			zap.String("request_id", reqID), zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: malformed response", ErrUpstreamUnavailable)
	}

	parsed := gjson.ParseBytes(body)
	if rpcErr := parsed.Get("error"); rpcErr.Exists() {
		msg := rpcErr.Get("message").String()
		if msg == "" {
			msg = rpcErr.Raw
		}
		logger.LogERROR("random.org returned error", zap.String("request_id", reqID), zap.String("error", msg))
		return "", fmt.Errorf("%w: %s", ErrUpstreamUnavailable, msg)
	}

	value := parsed.Get("result.random.data.0")
	if value.Type != gjson.String {
		return "", fmt.Errorf("%w: response has no generated string", ErrUpstreamUnavailable)
	}

	return value.String(), nil
}
