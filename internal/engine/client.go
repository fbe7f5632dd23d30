package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jkatofsky/plastering/internal/metrics"
)

const (
	// EnvURL overrides the configured engine URL.
	EnvURL        = "PLASTERING_ENGINE_URL"
	sessionHeader = "X-Engine-Session"
)

// ErrEngine marks failures reported by, or talking to, an engine.
var ErrEngine = errors.New("engine error")

var errMissingURL = fmt.Errorf("engine URL is required (set it in the config or %s)", EnvURL)

type Config struct {
	URL string
	// Timeout bounds each call. Zero means calls block until the engine answers.
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Client posts JSON requests to one engine session. Every call goes to
// {url}/{engine}/{method}.
type Client struct {
	baseURL    string
	engine     string
	session    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(engine string, cfg Config) (*Client, error) {
	baseURL := os.Getenv(EnvURL)
	if baseURL == "" {
		baseURL = cfg.URL
	}
	if baseURL == "" {
		return nil, errMissingURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	session := uuid.NewString()

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		engine:     engine,
		session:    session,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    cfg.Metrics,
		logger:     logger.With("engine", engine, "session", session),
	}, nil
}

// Session identifies the engine-side model instance this client drives.
func (c *Client) Session() string {
	return c.session
}

// Call sends payload to method and decodes the result into out, which may be nil.
func (c *Client) Call(ctx context.Context, method string, payload, out any) error {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		c.metrics.ObserveEngineCall(c.engine, method, elapsed)
		c.logger.Debug("engine call", "method", method, "duration", elapsed)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := c.baseURL + "/" + c.engine + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, c.session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrEngine, c.engine, method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrEngine, c.engine, method, resp.StatusCode, string(respBody))
	}

	var parsed envelope
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("%w: %s %s: %s", ErrEngine, c.engine, method, parsed.Error.Message)
	}

	if out == nil || len(parsed.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
