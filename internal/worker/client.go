package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"packmill/internal/config"
	"packmill/internal/logging"
)

const maxResponseBytes = 1 << 20

// HTTPDoer abstracts the HTTP client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against the worker's HTTP endpoints.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     *slog.Logger
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for worker calls.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithBaseURL overrides the worker base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithLogger attaches a logger for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "worker-client")
		}
	}
}

// NewClient builds a worker client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(cfg.WorkerURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type startRequest struct {
	Items  []StartItem `json:"items"`
	Params any         `json:"parameters"`
}

// StartConvert asks the worker to begin a conversion job and returns the
// opaque operation id used for all subsequent polls.
func (c *Client) StartConvert(ctx context.Context, items []StartItem, params ConvertParams) (string, error) {
	return c.start(ctx, "start-convert", items, params)
}

// StartPatch asks the worker to begin a binary metadata patch job.
func (c *Client) StartPatch(ctx context.Context, items []StartItem, params PatchParams) (string, error) {
	return c.start(ctx, "start-patch", items, params)
}

// StartPublish asks the worker to begin a pack publishing job.
func (c *Client) StartPublish(ctx context.Context, items []StartItem, params PublishParams) (string, error) {
	return c.start(ctx, "start-publish", items, params)
}

func (c *Client) start(ctx context.Context, endpoint string, items []StartItem, params any) (string, error) {
	env, err := c.post(ctx, endpoint, startRequest{Items: items, Params: params})
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", newError(endpoint, KindRejected, fmt.Errorf("%s", env.failureMessage()))
	}
	id := env.operationID()
	if id == "" {
		return "", newError(endpoint, KindMalformed, fmt.Errorf("start response missing operation id"))
	}
	return id, nil
}

// Progress polls the worker for the current state of an operation.
func (c *Client) Progress(ctx context.Context, operationID string) (ProgressSnapshot, error) {
	const op = "progress"
	if strings.TrimSpace(operationID) == "" {
		return ProgressSnapshot{}, newError(op, KindRejected, fmt.Errorf("operation id required"))
	}
	env, err := c.get(ctx, op, url.Values{"operationId": {operationID}})
	if err != nil {
		return ProgressSnapshot{}, err
	}
	if !env.Success {
		return ProgressSnapshot{}, newError(op, KindRejected, fmt.Errorf("%s", env.failureMessage()))
	}
	snap, err := env.snapshot()
	if err != nil {
		return ProgressSnapshot{}, newError(op, KindMalformed, err)
	}
	return snap, nil
}

// Pause asks the worker to pause a running operation.
func (c *Client) Pause(ctx context.Context, operationID string) error {
	return c.simpleCommand(ctx, "pause", operationID)
}

// Resume asks the worker to resume a paused operation.
func (c *Client) Resume(ctx context.Context, operationID string) error {
	return c.simpleCommand(ctx, "resume", operationID)
}

// Ping probes worker availability.
func (c *Client) Ping(ctx context.Context) error {
	env, err := c.get(ctx, "status", nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return newError("status", KindRejected, fmt.Errorf("%s", env.failureMessage()))
	}
	return nil
}

func (c *Client) simpleCommand(ctx context.Context, endpoint, operationID string) error {
	env, err := c.post(ctx, endpoint, map[string]string{"operationId": operationID})
	if err != nil {
		return err
	}
	if !env.Success {
		return newError(endpoint, KindRejected, fmt.Errorf("%s", env.failureMessage()))
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newError(endpoint, KindMalformed, fmt.Errorf("encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(endpoint, KindUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(endpoint, req)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (*envelope, error) {
	target := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, newError(endpoint, KindUnreachable, err)
	}
	return c.do(endpoint, req)
}

func (c *Client) do(endpoint string, req *http.Request) (*envelope, error) {
	if rid := logging.CorrelationID(req.Context()); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(endpoint, KindUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newError(endpoint, KindUnreachable, fmt.Errorf("read response: %w", err))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, newError(endpoint, KindMalformed, fmt.Errorf("decode response: %w", err))
	}

	if env.locked() {
		return nil, newError(endpoint, KindLocked, fmt.Errorf("%s", env.failureMessage()))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, newError(endpoint, KindUnreachable, fmt.Errorf("worker returned %d", resp.StatusCode))
	}

	logging.WithContext(req.Context(), c.logger).Debug("worker request",
		logging.String("endpoint", endpoint),
		logging.Int("http_status", resp.StatusCode),
		logging.Bool("success", env.Success),
	)
	return &env, nil
}
