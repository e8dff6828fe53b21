// Package transport is the HTTP collaborator connectors build their call
// slots on. It turns a Request into an asynchronous Result and never fails
// in any other way.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"relay/internal/async"
)

// Client executes Requests.
type Client struct {
	http    *http.Client
	timeout time.Duration
	maxBody int64
	sched   async.Scheduler
	log     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithScheduler sets the scheduler requests run on.
func WithScheduler(s async.Scheduler) Option {
	return func(c *Client) { c.sched = s }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// New builds a Client with a default tuned HTTP client.
func New(opts ...Option) *Client {
	cfg := DefaultConfig()
	c := &Client{
		http:    NewHTTPClient(cfg),
		timeout: cfg.Timeout,
		maxBody: cfg.MaxBodyBytes,
		sched:   async.Goroutines,
		log:     logrus.NewEntry(&logrus.Logger{Out: io.Discard}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do schedules req and returns its eventual Result.
func (c *Client) Do(ctx context.Context, req Request) *async.Value[Result] {
	return async.Go(c.sched, func() Result { return c.Send(ctx, req) })
}

// Send performs req synchronously.
func (c *Client) Send(ctx context.Context, req Request) Result {
	start := time.Now()
	res := c.send(ctx, req)
	res.Duration = time.Since(start)

	entry := c.log.WithFields(logrus.Fields{
		"method":      req.Method,
		"host":        redactHost(req.Host),
		"path":        req.Path,
		"status":      res.Status,
		"duration_ms": res.Duration.Milliseconds(),
	})
	if res.Err != nil {
		entry.WithError(res.Err).Debug("downstream request failed")
	} else {
		entry.Debug("downstream request completed")
	}
	return res
}

func redactHost(host string) string {
	if u, err := url.Parse(host); err == nil && u.User != nil {
		return u.Redacted()
	}
	return host
}

func (c *Client) send(ctx context.Context, req Request) Result {
	target, err := req.URL()
	if err != nil {
		return Result{Err: err}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Result{Err: xerrors.Errorf("creating request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != nil {
		req.Token.SetAuthHeader(httpReq)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{Err: xerrors.Errorf("%s %s: %w", method, target, err)}
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if c.maxBody > 0 {
		reader = io.LimitReader(resp.Body, c.maxBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return Result{
			Status: resp.StatusCode,
			Header: resp.Header,
			Err:    xerrors.Errorf("reading response: %w", err),
		}
	}

	return Result{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}
}
