// Package hds is the HTTP client for the health-diagnostics service.
package hds

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
	"codeberg.org/mutker/hdsim/internal/logger"
	"codeberg.org/mutker/hdsim/internal/model"
)

const (
	DefaultBaseURL = "http://localhost:5005"
	defaultTimeout = 10 * time.Second

	registerPath = "/api/v1/apps/register"
	reportPath   = "/api/v1/faults/report"
)

// Client posts registrations and fault reports. It is a small value: copies
// share the underlying *http.Client, so each background call can hold its
// own copy without coordination.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the transport timeout for a whole request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := http.Client{}
		if c.http != nil {
			hc = *c.http
		}
		hc.Timeout = d
		c.http = &hc
	}
}

// WithHTTPClient replaces the underlying transport. A nil client keeps
// the default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger injects a logger; the package logger is used otherwise.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New validates baseURL and returns a client for it.
func New(baseURL string, opts ...Option) (Client, error) {
	errFactory := errors.New()

	u, err := url.Parse(baseURL)
	if err != nil {
		return Client{}, errFactory.Wrap(ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Client{}, errFactory.WithData(ErrInvalidBaseURL, baseURL)
	}

	c := Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// BaseURL returns the service address the client posts to.
func (c Client) BaseURL() string {
	return c.baseURL
}

// Register announces name/version to the service and returns the raw reply.
func (c Client) Register(ctx context.Context, name, version string) (string, error) {
	return c.post(ctx, registerPath, model.RegisterRequest{
		Application: name,
		Version:     version,
	})
}

// ReportFault submits sig and returns the raw reply.
func (c Client) ReportFault(ctx context.Context, sig *model.FaultSignature) (string, error) {
	return c.post(ctx, reportPath, sig)
}

// post sends payload as JSON. Any response the transport completes is
// returned as text whatever its status; only transport failures error.
func (c Client) post(ctx context.Context, path string, payload any) (string, error) {
	errFactory := errors.New()

	body, err := model.Encode(payload)
	if err != nil {
		return "", errFactory.Wrap(ErrSerialization, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", errFactory.Wrap(ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().
		Str("path", path).
		Int("bytes", len(body)).
		Msg("Posting to HDS")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errFactory.Wrap(ErrTransport, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errFactory.WithData(ErrTransport, struct {
			Phase  string
			Status int
			Error  string
		}{
			Phase:  "read_body",
			Status: resp.StatusCode,
			Error:  err.Error(),
		})
	}

	event := c.log.Debug()
	if resp.StatusCode >= http.StatusBadRequest {
		event = c.log.Warn()
	}
	event.Str("path", path).Int("status", resp.StatusCode).Msg("HDS replied")

	return string(text), nil
}
