package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"shanyrakkit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the Shanyrak HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// List returns all shanyraks in creation order.
func (c *Client) List(ctx context.Context) ([]Shanyrak, error) {
	var rows []Shanyrak
	if err := c.do(ctx, http.MethodGet, "/shanyraks", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Leaderboard returns all shanyraks ordered by points descending.
func (c *Client) Leaderboard(ctx context.Context) ([]Shanyrak, error) {
	var rows []Shanyrak
	if err := c.do(ctx, http.MethodGet, "/shanyraks/leaderboard", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get fetches a single shanyrak by id.
func (c *Client) Get(ctx context.Context, id string) (Shanyrak, error) {
	if strings.TrimSpace(id) == "" {
		return Shanyrak{}, ErrEmptyID
	}
	var row Shanyrak
	if err := c.do(ctx, http.MethodGet, "/shanyraks/"+url.PathEscape(id), nil, &row); err != nil {
		return Shanyrak{}, err
	}
	return row, nil
}

// Create registers a new shanyrak and returns the stored row.
func (c *Client) Create(ctx context.Context, name, color string) (Shanyrak, error) {
	payload := map[string]string{"name": name, "color": color}
	var row Shanyrak
	if err := c.do(ctx, http.MethodPost, "/shanyraks", payload, &row); err != nil {
		return Shanyrak{}, err
	}
	return row, nil
}

// AddPoints awards points to a shanyrak and returns the updated row.
func (c *Client) AddPoints(ctx context.Context, id string, points int64) (Shanyrak, error) {
	if strings.TrimSpace(id) == "" {
		return Shanyrak{}, ErrEmptyID
	}
	payload := map[string]int64{"points": points}
	var row Shanyrak
	if err := c.do(ctx, http.MethodPost, "/shanyraks/"+url.PathEscape(id)+"/add-points", payload, &row); err != nil {
		return Shanyrak{}, err
	}
	return row, nil
}

// UpdateMembers applies a signed member-count delta and returns the updated row.
func (c *Client) UpdateMembers(ctx context.Context, id string, delta int64) (Shanyrak, error) {
	if strings.TrimSpace(id) == "" {
		return Shanyrak{}, ErrEmptyID
	}
	payload := map[string]int64{"delta": delta}
	var row Shanyrak
	if err := c.do(ctx, http.MethodPost, "/shanyraks/"+url.PathEscape(id)+"/members", payload, &row); err != nil {
		return Shanyrak{}, err
	}
	return row, nil
}

// Recalculate asks the server to rebuild the leaderboard ordering.
func (c *Client) Recalculate(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/shanyraks/leaderboard/recalculate", nil, nil)
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, target)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
