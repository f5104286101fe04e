package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benz9527/xdispatch/dispatch"
	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/xlog"
)

var ErrNotAccepted = errors.New("[client] message not accepted")

// StatusError carries the ack of a rejected message.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrNotAccepted.Error(), e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrNotAccepted
}

type clientOptions struct {
	httpClient *http.Client
	logger     xlog.XLogger
}

type Option func(*clientOptions)

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

func WithLogger(logger xlog.XLogger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// Client forwards messages to a dispatch service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     xlog.XLogger
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "parse dispatch service url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, infra.NewErrorStack("dispatch service url must be http or https: " + baseURL)
	}
	o := &clientOptions{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 256,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = xlog.NewXLogger(xlog.WithXLoggerStdOutWriter())
	}
	return &Client{
		baseURL:    u,
		httpClient: o.httpClient,
		logger:     o.logger.Named("Client"),
	}, nil
}

func routePath(route dispatch.Route) (string, error) {
	switch route {
	case dispatch.RouteRing:
		return "/api/messages", nil
	case dispatch.RouteQueue:
		return "/api/messages/queue", nil
	}
	return "", dispatch.ErrUnknownRoute
}

// Send publishes the message and returns the service response body
// verbatim. A non 200 answer still returns the body, with a *StatusError.
func (c *Client) Send(ctx context.Context, route dispatch.Route, message string) (string, error) {
	path, err := routePath(route)
	if err != nil {
		return "", err
	}
	target := *c.baseURL
	target.Path += path
	target.RawQuery = url.Values{"message": []string{message}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), nil)
	if err != nil {
		return "", infra.WrapErrorStack(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", infra.WrapErrorStackWithMessage(err, "send message")
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", infra.WrapErrorStackWithMessage(err, "read ack")
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
