package moku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/model"
)

// clientKeyHeader carries the ownership key issued by claim_ownership.
const clientKeyHeader = "Moku-Client-Key"

// codeOwnershipConflict is the firmware error code for a refused claim.
const codeOwnershipConflict = "ownership_conflict"

// Default timeouts when the config leaves them unset.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 60 * time.Second
	maxResponseBytes      = 1 << 20
)

// envelope is the device API's response wrapper.
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Messages []string        `json:"messages"`
	Code     string          `json:"code"`
}

// Client talks to Moku devices over their HTTP JSON API.
//
// It implements Connector and Describer. Thread Safety: a Client may be
// shared; each Handle serialises its own requests.
type Client struct {
	port           int
	connectTimeout time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
}

// NewClient creates a device API client.
func NewClient(cfg config.DeviceConfig) *Client {
	c := &Client{
		port:           cfg.Port,
		connectTimeout: cfg.ConnectTimeout,
		requestTimeout: cfg.RequestTimeout,
		httpClient:     &http.Client{},
	}
	if c.port <= 0 {
		c.port = 80
	}
	if c.connectTimeout <= 0 {
		c.connectTimeout = defaultConnectTimeout
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	return c
}

// baseURL turns "10.0.0.5", "10.0.0.5:8080" or "::1" into an http URL.
func (c *Client) baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return "http://" + addr
	}
	return "http://" + net.JoinHostPort(strings.Trim(addr, "[]"), strconv.Itoa(c.port))
}

// Connect claims ownership of the device at addr.
func (c *Client) Connect(ctx context.Context, addr string, force bool) (Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	h := &handle{client: c, base: c.baseURL(addr)}
	resp, env, err := c.do(ctx, http.MethodPost, h.base+"/api/moku/claim_ownership", "", map[string]any{"force_connect": force})
	if err != nil {
		// A conflict is a refusal whatever the body looks like.
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: status %d", ErrOwnedByAnotherClient, resp.StatusCode)
		}
		return nil, err
	}
	if resp.StatusCode == http.StatusConflict || env.Code == codeOwnershipConflict {
		return nil, fmt.Errorf("%w: %s", ErrOwnedByAnotherClient, env.message())
	}
	if err := env.check(resp.StatusCode); err != nil {
		return nil, err
	}

	h.key = resp.Header.Get(clientKeyHeader)
	return h, nil
}

// Describe reads identity from the unauthenticated summary endpoint.
func (c *Client) Describe(ctx context.Context, addr string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	var id Identity
	resp, env, err := c.do(ctx, http.MethodGet, c.baseURL(addr)+"/api/moku/summary", "", nil)
	if err != nil {
		return id, err
	}
	if err := env.check(resp.StatusCode); err != nil {
		return id, err
	}
	if err := json.Unmarshal(env.Data, &id); err != nil {
		return id, fmt.Errorf("%w: decoding summary: %w", ErrRequestFailed, err)
	}
	return id, nil
}

// do performs one request and decodes the envelope. Transport errors wrap
// ErrUnreachable; HTTP error statuses are left to the caller.
func (c *Client) do(ctx context.Context, method, url, key string, body any) (*http.Response, envelope, error) {
	var env envelope

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, env, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, env, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(clientKeyHeader, key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, env, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, env, fmt.Errorf("%w: reading response: %w", ErrUnreachable, err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return resp, env, fmt.Errorf("%w: status %d: malformed response", ErrRequestFailed, resp.StatusCode)
		}
	} else {
		env.Success = resp.StatusCode < 300
	}
	return resp, env, nil
}

func (e envelope) message() string {
	if len(e.Messages) == 0 {
		return e.Code
	}
	return strings.Join(e.Messages, "; ")
}

func (e envelope) check(status int) error {
	if status >= 300 || !e.Success {
		msg := e.message()
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, status, msg)
	}
	return nil
}

// handle is an owned connection returned by Client.Connect.
type handle struct {
	client *Client
	base   string
	key    string

	mu     sync.Mutex
	closed bool
}

func (h *handle) call(ctx context.Context, method, path string, body any, out any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}

	ctx, cancel := context.WithTimeout(ctx, h.client.requestTimeout)
	defer cancel()

	resp, env, err := h.client.do(ctx, method, h.base+path, h.key, body)
	if err != nil {
		return err
	}
	if err := env.check(resp.StatusCode); err != nil {
		return err
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decoding %s: %w", ErrRequestFailed, path, err)
		}
	}
	return nil
}

func (h *handle) Identity(ctx context.Context) (Identity, error) {
	var id Identity
	err := h.call(ctx, http.MethodGet, "/api/moku/summary", nil, &id)
	return id, err
}

func (h *handle) SetInstrument(ctx context.Context, slot int, instrument model.Instrument, bitstream string) error {
	body := map[string]any{"slot": slot, "instrument": string(instrument)}
	if bitstream != "" {
		body["bitstream"] = bitstream
	}
	return h.call(ctx, http.MethodPost, "/api/mim/set_instrument", body, nil)
}

func (h *handle) SetControl(ctx context.Context, slot int, register, value uint32) error {
	path := fmt.Sprintf("/api/slot%d/set_control", slot)
	return h.call(ctx, http.MethodPost, path, map[string]any{"idx": register, "value": value}, nil)
}

func (h *handle) SetTimebase(ctx context.Context, slot int, t1, t2 float64) error {
	path := fmt.Sprintf("/api/slot%d/oscilloscope/set_timebase", slot)
	return h.call(ctx, http.MethodPost, path, map[string]any{"t1": t1, "t2": t2}, nil)
}

func (h *handle) SetConnections(ctx context.Context, conns []model.Connection) error {
	if conns == nil {
		conns = []model.Connection{}
	}
	return h.call(ctx, http.MethodPost, "/api/mim/set_connections", map[string]any{"connections": conns}, nil)
}

func (h *handle) Instrument(ctx context.Context, slot int) (model.Instrument, error) {
	var out struct {
		Instrument string `json:"instrument"`
	}
	path := fmt.Sprintf("/api/mim/get_instrument?slot=%d", slot)
	if err := h.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	if out.Instrument == "" {
		return "", ErrSlotEmpty
	}
	return model.ParseInstrument(out.Instrument), nil
}

// Relinquish releases ownership. The handle is closed even when the
// request fails.
func (h *handle) Relinquish(ctx context.Context) error {
	err := h.call(ctx, http.MethodPost, "/api/moku/relinquish_ownership", nil, nil)

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	if errors.Is(err, ErrHandleClosed) {
		return nil
	}
	return err
}
