package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workforce-export-api/internal/models"
	"github.com/noah-isme/workforce-export-api/pkg/config"
)

const maxErrorBody = 4 << 10

// RequestError describes a failed call to the attendance backend.
type RequestError struct {
	Status       int
	RequireLogin bool
	Message      string
	Err          error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream request failed (status %d): %s: %v", e.Status, msg, e.Err)
	}
	return fmt.Sprintf("upstream request failed (status %d): %s", e.Status, msg)
}

func (e *RequestError) Unwrap() error { return e.Err }

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx so it is forwarded upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the HR backend's list endpoints.
type Client struct {
	baseURL      string
	serviceToken string
	http         *http.Client
	logger       *zap.Logger
}

// NewClient constructs a client from upstream config.
func NewClient(cfg config.UpstreamConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		serviceToken: cfg.ServiceToken,
		http:         httpClient,
		logger:       logger,
	}
}

// envelope is the object-shaped list response. Data stays raw so both shapes
// share one record decoder.
type envelope struct {
	Data         json.RawMessage `json:"data"`
	Total        *int            `json:"total"`
	HasNext      *bool           `json:"hasNext"`
	RequireLogin bool            `json:"requireLogin"`
	Message      string          `json:"message"`
}

// Request issues path (relative to the base URL, query included) and decodes
// either a bare JSON array of records or a {data,total,hasNext} object.
func (c *Client) Request(ctx context.Context, path, method string) (*models.AttendancePage, error) {
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token := tokenFrom(ctx)
	if token == "" {
		token = c.serviceToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err, Message: "transport error"}
	}
	defer resp.Body.Close() //nolint:errcheck

	c.logger.Debug("upstream request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Err: err, Message: "read response body"}
	}
	return decodePage(resp.StatusCode, body)
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	reqErr := &RequestError{
		Status:       resp.StatusCode,
		RequireLogin: resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == 419,
	}
	var env envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		reqErr.RequireLogin = reqErr.RequireLogin || env.RequireLogin
		reqErr.Message = env.Message
	}
	return reqErr
}

func decodePage(status int, body []byte) (*models.AttendancePage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &models.AttendancePage{}, nil
	}

	page := &models.AttendancePage{}
	raw := json.RawMessage(body)
	if body[0] != '[' {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, &RequestError{Status: status, Err: err, Message: "decode response"}
		}
		if env.RequireLogin {
			return nil, &RequestError{Status: status, RequireLogin: true, Message: env.Message}
		}
		page.Total = env.Total
		page.HasNext = env.HasNext
		raw = env.Data
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return page, nil
	}
	if err := json.Unmarshal(raw, &page.Records); err != nil {
		return nil, &RequestError{Status: status, Err: err, Message: "decode records"}
	}
	return page, nil
}
