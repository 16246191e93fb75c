package gateway

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

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerRequestID     = "X-Request-ID"
	headerUserAgent     = "User-Agent"

	contentTypeJSON = "application/json"

	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 10 << 20
)

// Doer is the transport capability. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config controls URL resolution and transport defaults.
type Config struct {
	// BaseURL is prepended to every endpoint, e.g. http://localhost:3333/api.
	BaseURL string
	// UserAgent is sent unless the caller overrides it.
	UserAgent string
	// Timeout applies to the default *http.Client only.
	Timeout time.Duration
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
}

// Client executes JSON requests, attaches the stored bearer token, and
// classifies responses.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	maxBody   int64

	store    session.Store
	doer     Doer
	observer Observer
	log      logrus.FieldLogger
	newID    func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithDoer replaces the transport.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithObserver adds an Observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o == nil {
			return
		}
		switch cur := c.observer.(type) {
		case noopObserver:
			c.observer = o
		case multiObserver:
			c.observer = append(cur, o)
		default:
			c.observer = multiObserver{cur, o}
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRequestIDGenerator replaces the X-Request-ID generator.
func WithRequestIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New builds a Client bound to store.
func New(cfg Config, store session.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("gateway: session store required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base URL required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBytes
	}

	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
		store:     store,
		doer:      &http.Client{Timeout: timeout},
		observer:  noopObserver{},
		log:       logrus.StandardLogger(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves endpoint against the base URL with exactly one separator
// between them.
func (c *Client) URL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

type requestOptions struct {
	headers http.Header
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

// WithHeader sets a request header. Caller headers replace the gateway's
// defaults, except Authorization, which the gateway always controls.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.headers.Set(key, value)
	}
}

// WithRequestID fixes the X-Request-ID of a single request.
func WithRequestID(id string) RequestOption {
	return WithHeader(headerRequestID, id)
}

// WithHeaders merges h into the request headers with the same rules as
// WithHeader.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOptions) {
		for k, vs := range h {
			o.headers.Del(k)
			for _, v := range vs {
				o.headers.Add(k, v)
			}
		}
	}
}

// Do sends one request. body, when non-nil, is encoded as JSON. On a 2xx
// response other than 204 the body is decoded into out; out may be nil, in
// which case the body is only checked for being valid JSON.
//
// Do blocks only the calling goroutine and honors ctx.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	ro := requestOptions{headers: make(http.Header)}
	for _, opt := range opts {
		opt(&ro)
	}

	target := c.URL(endpoint)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}

	requestID, err := c.prepareHeaders(ctx, req, ro.headers)
	if err != nil {
		return err
	}

	obs := Observation{
		Method:    method,
		Endpoint:  endpoint,
		RequestID: requestID,
	}
	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"endpoint":   endpoint,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		obs.Duration = time.Since(start)
		obs.Outcome = OutcomeNetworkError
		c.observer.Observe(ctx, obs)
		log.WithError(err).Error("request failed")
		return &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	obs.Status = resp.StatusCode
	obs.Outcome = classify(resp.StatusCode)

	if obs.Outcome == OutcomeSuccess {
		err := c.decodeSuccess(resp, out)
		obs.Duration = time.Since(start)
		if err != nil {
			obs.Outcome = OutcomeDecodeError
			log.WithError(err).WithField("status", resp.StatusCode).Error("response decode failed")
		}
		c.observer.Observe(ctx, obs)
		return err
	}

	httpErr := c.readError(resp)
	log = log.WithField("status", resp.StatusCode)

	switch obs.Outcome {
	case OutcomeUnauthorized:
		if err := c.store.Clear(ctx); err != nil {
			log.WithError(err).Error("session clear after 401 failed")
		} else {
			obs.SessionCleared = true
			log.Info("session cleared after 401")
		}
	case OutcomeForbidden:
		log.Warn("access forbidden")
	case OutcomeServerError:
		log.Error("server error")
	}

	obs.Duration = time.Since(start)
	c.observer.Observe(ctx, obs)
	return httpErr
}

func (c *Client) prepareHeaders(ctx context.Context, req *http.Request, caller http.Header) (string, error) {
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(headerRequestID, c.newID())
	if c.userAgent != "" {
		req.Header.Set(headerUserAgent, c.userAgent)
	}

	for k, vs := range caller {
		if http.CanonicalHeaderKey(k) == headerAuthorization {
			continue
		}
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	token, err := c.store.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("gateway: read session token: %w", err)
	}
	if token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}

	return req.Header.Get(headerRequestID), nil
}

func (c *Client) decodeSuccess(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return &DecodeError{Status: resp.StatusCode, Err: err}
	}
	if out == nil {
		if !json.Valid(data) {
			return &DecodeError{Status: resp.StatusCode, Err: errors.New("invalid JSON body")}
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Status: resp.StatusCode, Err: err}
	}
	return nil
}

func (c *Client) readError(resp *http.Response) *HTTPError {
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return newHTTPError(resp.StatusCode, nil, false)
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return newHTTPError(resp.StatusCode, nil, false)
	}
	return newHTTPError(resp.StatusCode, payload, true)
}
