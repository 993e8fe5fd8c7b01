package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"pointbox/customer-web/internal/store"
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	DeviceToken string
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Client talks to the PointBox customer API. A bound client reads and
// writes the bearer token through one browser's store.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      *slog.Logger
	metrics     *Metrics
	deviceToken string
	storage     store.Store

	mu    sync.Mutex
	token string
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		http:        httpClient,
		logger:      logger,
		metrics:     opts.Metrics,
		deviceToken: opts.DeviceToken,
	}
}

func (c *Client) Bind(s store.Store) *Client {
	return &Client{
		baseURL:     c.baseURL,
		http:        c.http,
		logger:      c.logger,
		metrics:     c.metrics,
		deviceToken: c.deviceToken,
		storage:     s,
	}
}

func (c *Client) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	if c.storage == nil {
		return nil
	}
	if token == "" {
		return c.storage.Delete(ctx, store.KeyToken)
	}
	return c.storage.Set(ctx, store.KeyToken, token)
}

// Token prefers the stored token so changes made by another request of the
// same browser are picked up.
func (c *Client) Token(ctx context.Context) string {
	c.refreshToken(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) ClearToken(ctx context.Context) error {
	return c.SetToken(ctx, "")
}

func (c *Client) refreshToken(ctx context.Context) {
	if c.storage == nil {
		return
	}
	stored, ok, err := c.storage.Get(ctx, store.KeyToken)
	if err != nil {
		c.logger.WarnContext(ctx, "token read failed", "error", err)
		return
	}
	if ok && stored != "" {
		c.mu.Lock()
		c.token = stored
		c.mu.Unlock()
	}
}

// Request performs an authenticated call: endpoint is appended to the base
// URL and caller headers override the JSON default.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}, headers http.Header) (*Envelope, error) {
	return c.do(ctx, method, endpoint, body, headers, true)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, headers http.Header, authenticated bool) (*Envelope, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		payload = encoded
	}
	c.logRequest(ctx, method, endpoint, payload)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if authenticated {
		if token := c.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, 0, started)
		c.logger.ErrorContext(ctx, "api error", "method", method, "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%s %s: %w: %w", method, endpoint, ErrTransport, err)
	}
	defer resp.Body.Close()
	c.metrics.observe(endpoint, resp.StatusCode, started)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "api error", "method", method, "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%s %s: %w: %w", method, endpoint, ErrTransport, err)
	}
	env, decodeErr := decodeEnvelope(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		c.logger.ErrorContext(ctx, "api error", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "error", apiErr.Error())
		return nil, apiErr
	}
	if decodeErr != nil {
		c.logger.ErrorContext(ctx, "api error", "method", method, "endpoint", endpoint, "error", decodeErr)
		return nil, fmt.Errorf("%s %s: %w: %w", method, endpoint, ErrDecode, decodeErr)
	}
	return env, nil
}

func decodeEnvelope(raw []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("invalid JSON body (%d bytes)", len(raw))
	}
	env := &Envelope{}
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, env); err != nil {
			return nil, err
		}
	}
	env.Raw = json.RawMessage(trimmed)
	return env, nil
}

var redactedFields = []string{"password", "newPassword"}

func (c *Client) logRequest(ctx context.Context, method, endpoint string, payload []byte) {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return
	}
	if payload == nil {
		c.logger.WarnContext(ctx, "api request without body", "method", method, "endpoint", endpoint)
		return
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		c.logger.DebugContext(ctx, "api request", "method", method, "endpoint", endpoint, "body", "non-JSON")
		return
	}
	hasPassword := false
	passwordLength := 0
	for _, name := range redactedFields {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if secret, ok := value.(string); ok && secret != "" && !hasPassword {
			hasPassword = true
			passwordLength = len([]rune(secret))
		}
		fields[name] = "***"
	}
	c.logger.DebugContext(ctx, "api request",
		"method", method,
		"endpoint", endpoint,
		"body", fields,
		"has_password", hasPassword,
		"password_length", passwordLength,
	)
}
