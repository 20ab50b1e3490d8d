package daily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"humming/meet/internal/logger"
)

const defaultBaseURL = "https://api.daily.co/v1"

// maxBody caps how much of a provider reply is read.
const maxBody = 1 << 20

type Client interface {
	CreateRoom(ctx context.Context, name string, props RoomProperties) (*Room, error)
	GetRoom(ctx context.Context, name string) (*Room, error)
	CreateMeetingToken(ctx context.Context, props TokenProperties) (*MeetingToken, error)
}

type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// RateLimit caps requests per second to the provider; zero disables it.
	RateLimit float64
}

type HTTPClient struct {
	http    *http.Client
	apiKey  string
	base    string
	limiter *rate.Limiter
}

func NewClient(opts Options) *HTTPClient {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	c := &HTTPClient{http: hc, apiKey: opts.APIKey, base: base}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

func (c *HTTPClient) CreateRoom(ctx context.Context, name string, props RoomProperties) (*Room, error) {
	body := map[string]any{
		"name":       name,
		"properties": props,
	}
	var room Room
	if err := c.do(ctx, "create_room", http.MethodPost, "/rooms", body, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *HTTPClient) GetRoom(ctx context.Context, name string) (*Room, error) {
	var room Room
	if err := c.do(ctx, "get_room", http.MethodGet, "/rooms/"+url.PathEscape(name), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *HTTPClient) CreateMeetingToken(ctx context.Context, props TokenProperties) (*MeetingToken, error) {
	body := map[string]any{"properties": props}
	var tok MeetingToken
	if err := c.do(ctx, "create_token", http.MethodPost, "/meeting-tokens", body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Ping lists a single room; it succeeds when the API key is accepted.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/rooms?limit=1", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &ConnectionError{Op: op, Err: err}
		}
	}

	var reqBody io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("daily %s: encode request: %w", op, err)
		}
		reqBody = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("daily %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnectionError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &ConnectionError{Op: op, Err: err}
	}
	logger.L().Debug("daily response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", b),
	)

	if resp.StatusCode/100 != 2 {
		return decodeAPIError(op, resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("daily %s: decode response: %w", op, err)
	}
	return nil
}

func decodeAPIError(op string, status int, body []byte) *APIError {
	apiErr := &APIError{Op: op, Status: status}
	var payload struct {
		Error string `json:"error"`
		Info  string `json:"info"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Kind = payload.Error
		apiErr.Info = payload.Info
	} else {
		apiErr.Info = strings.TrimSpace(string(body))
	}
	return apiErr
}
