// Package api is a client for the kvmd REST endpoints: system info, ATX
// power control, GPIO, mass storage and the video streamer.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single REST call. Uploads are bounded by their
// context only.
const DefaultTimeout = 30 * time.Second

// Config holds what Client needs to reach kvmd
type Config struct {
	// Host is the appliance address, optionally with a port
	Host string

	// Schema is "https" (default) or "http"
	Schema string

	// CertTrusted enables TLS certificate verification
	CertTrusted bool

	Credentials Credentials

	// Timeout bounds each request (default: 30s)
	Timeout time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client talks to the kvmd REST API. It is safe for concurrent use.
type Client struct {
	base   url.URL
	creds  Credentials
	http   *http.Client
	upload *http.Client
	log    zerolog.Logger
}

// envelope is the wrapper kvmd puts around every JSON answer
type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

// New validates cfg and builds a client. It makes no request.
func New(cfg Config, log zerolog.Logger, opts ...Option) (*Client, error) {
	schema := strings.TrimSuffix(strings.ToLower(cfg.Schema), "://")
	if schema == "" {
		schema = "https"
	}
	if schema != "http" && schema != "https" {
		log.Error().Str("schema", cfg.Schema).Msg("schema must be http or https")
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSchema, cfg.Schema)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		base:  url.URL{Scheme: schema, Host: cfg.Host},
		creds: cfg.Credentials,
		log:   log.With().Str("component", "api").Str("host", cfg.Host).Logger(),
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.CertTrusted},
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	upload := *c.http
	upload.Timeout = 0
	c.upload = &upload
	return c, nil
}

// Schema returns "http" or "https".
func (c *Client) Schema() string {
	return c.base.Scheme
}

// Host returns the configured appliance address.
func (c *Client) Host() string {
	return c.base.Host
}

// Credentials returns the credentials attached to every request.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// Info returns /api/info.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	return c.state(ctx, "/api/info")
}

// AuthCheck reports whether kvmd accepts the credentials.
func (c *Client) AuthCheck(ctx context.Context) (bool, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/auth/check", nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		c.log.Info().Msg("user is authenticated")
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Info().Msg("user NOT authenticated")
		return false, nil
	}
	return false, &StatusError{Method: http.MethodGet, Path: "/api/auth/check", StatusCode: resp.StatusCode}
}

// Log returns the kvmd journal for the last seek interval.
func (c *Client) Log(ctx context.Context, seek time.Duration) (string, error) {
	q := url.Values{}
	q.Set("seek", strconv.Itoa(int(seek.Seconds())))
	data, err := c.raw(ctx, "/api/log", q)
	return string(data), err
}

// Metrics returns the Prometheus exposition text.
func (c *Client) Metrics(ctx context.Context) (string, error) {
	data, err := c.raw(ctx, "/api/export/prometheus/metrics", nil)
	return string(data), err
}

// state GETs path and decodes the envelope result into a map.
func (c *Client) state(ctx context.Context, path string) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp.Body, path, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body io.Reader) error {
	resp, err := c.do(ctx, http.MethodPost, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp.Body, path, nil)
}

func (c *Client) raw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// do sends the request and turns non-2xx answers into *StatusError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request rejected")
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Response, error) {
	u := c.base
	u.Path = path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	header, err := c.creds.Header()
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}

	hc := c.http
	if body != nil {
		hc = c.upload
	}
	c.log.Debug().Str("method", method).Str("url", u.Redacted()).Msg("calling")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeEnvelope(r io.Reader, path string, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !env.OK {
		return fmt.Errorf("%w: %s: %s", ErrRequestFailed, path, string(env.Result))
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

// postAction posts name=value to path after checking value against valid.
func (c *Client) postAction(ctx context.Context, path, name, value string, valid []string) error {
	if !slices.Contains(valid, value) {
		c.log.Error().Str("path", path).Str(name, value).Strs("valid", valid).Msg("not a valid option")
		return fmt.Errorf("%w: %s=%q, valid options: %s", ErrInvalidAction, name, value, strings.Join(valid, ", "))
	}
	q := url.Values{}
	q.Set(name, value)
	return c.post(ctx, path, q, nil)
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
