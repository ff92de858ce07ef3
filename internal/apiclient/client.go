package apiclient

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

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/logger"
)

const (
	APIPrefix = "/api/v1"

	defaultTimeout = 10 * time.Second

	// Responses are small json documents, anything bigger is cut
	maxBodySize = 1 << 20
)

type Config struct {
	// Backend address, e.g. 'http://localhost:3000'
	APIURL string

	// Timeout of a single request. If not set than default is used
	Timeout time.Duration
}

// Client sends json requests to the backend API
type Client struct {
	baseURL string
	timeout time.Duration

	client *http.Client
	logger logger.Logger
}

func New(cfg Config, client *http.Client, l logger.Logger) (*Client, error) {
	u, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: scheme and host required", cfg.APIURL)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/") + APIPrefix,
		timeout: cfg.Timeout,
		client:  client,
		logger:  l.With("component", "apiclient"),
	}, nil
}

// Do sends 'in' as json body (skipped if nil) and decodes successful response into 'out' (skipped if nil).
// Extra headers are set as is.
//
// Errors:
//   - transport failures wrap apperrors.ErrNetworkFailure
//   - non-2xx response is *apperrors.ResponseError (which unwraps to apperrors.ErrNetworkFailure)
//   - undecodable 2xx body wraps apperrors.ErrNetworkFailure and json error
func (c *Client) Do(ctx context.Context, method string, path string, header http.Header, in any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %w", apperrors.ErrNetworkFailure, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", apperrors.ErrNetworkFailure, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.processSuccess(respBody, out)
	default:
		c.logger.Warn("Backend rejected request", "method", method, "path", path, "status_code", resp.StatusCode)
		return apperrors.NewResponseError(resp.StatusCode, respBody)
	}
}

func (c *Client) processSuccess(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	err := json.Unmarshal(body, out)
	if err != nil {
		c.logger.Warn("Failed to decode response", "error", err)
		return fmt.Errorf("%w: failed to decode response: %w", apperrors.ErrNetworkFailure, err)
	}

	return nil
}
