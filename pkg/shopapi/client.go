package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phonelife/storefront/pkg/config"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
)

const (
	defaultTimeout     = 10 * time.Second
	errorBodyReadLimit = 4096
	apiPrefix          = "/api"
)

var errBaseURLRequired = errors.New("shop api base url is required")

// Client talks to the phoneLife REST API that owns products, bookings and orders.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid shop api base url %q", baseURL)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// New builds a client from configuration.
func New(cfg config.ShopAPIConfig, opts ...Option) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts = append([]Option{WithHTTPClient(&http.Client{Timeout: timeout})}, opts...)
	return NewClient(cfg.BaseURL, opts...)
}

// apiError is the error body returned by the API, e.g. {"error": "Créneau déjà réservé"}.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "shop api client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal shop api request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build shop api request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shop api unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return statusError(method, path, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shop api response")
	}
	return nil
}

func statusError(method, path string, status int, raw []byte) error {
	message := apiMessage(raw)
	cause := fmt.Errorf("%s %s: status %d", method, path, status)
	details := map[string]any{"status": status}

	switch {
	case status == http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, message)
	case status == http.StatusConflict:
		if message == "" {
			message = "conflict detected"
		}
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "request rejected by shop api"
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, message).WithDetails(details)
	default:
		if message == "" {
			message = "shop api request failed"
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, message).WithDetails(details)
	}
}

func apiMessage(raw []byte) string {
	var body apiError
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := strings.TrimSpace(body.Error); msg != "" {
			return msg
		}
		return strings.TrimSpace(body.Message)
	}
	return ""
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + apiPrefix + "/" + strings.TrimLeft(path, "/")
}
