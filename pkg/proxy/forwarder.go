// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/openapi-gateway/pkg/auth"
	"github.com/go-core-stack/openapi-gateway/pkg/route"
)

// ErrRemoteUnreachable marks a forwarded call that got no response from the
// remote: dial failure, reset connection or timeout.
var ErrRemoteUnreachable = errors.New("remote unreachable")

// ErrResponseTooLarge marks a remote response body above the configured cap.
var ErrResponseTooLarge = errors.New("upstream response too large")

const (
	defaultMaxRequestBody  = 10 << 20
	defaultMaxResponseBody = 32 << 20
)

// Observer receives per-call outcomes. metrics.Metrics satisfies it.
type Observer interface {
	ObserveForward(operation, method string, status int, elapsed time.Duration)
	ObserveUpstreamError(operation string)
}

// Options tunes a Forwarder.
type Options struct {
	// Timeout bounds each outbound call end to end.
	Timeout time.Duration
	// ForwardHeaders is the inbound header allow-list.
	ForwardHeaders []string
	MaxRequestBody int64
	// MaxResponseBody caps how much of a remote response is read.
	MaxResponseBody int64
	Decorators      []auth.Decorator
	Observer        Observer
}

// Forwarder executes forwarded calls against the remote service.
type Forwarder struct {
	// client performs outbound HTTP requests; connections are pooled by the
	// transport but never pinned to a call.
	client         *http.Client
	timeout        time.Duration
	forwardHeaders []string
	maxRequestBody  int64
	maxResponseBody int64
	decorators      []auth.Decorator
	observer        Observer
	logger          zerolog.Logger
}

// NewTransport builds a transport that honours system proxies and keeps
// connections warm.
func NewTransport(insecureSkipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecureSkipVerify, // nolint:gosec -- opt-in for development scenarios
		},
	}
}

// NewForwarder constructs a Forwarder dispatching through transport.
func NewForwarder(transport http.RoundTripper, opts Options) *Forwarder {
	if opts.MaxRequestBody <= 0 {
		opts.MaxRequestBody = defaultMaxRequestBody
	}
	if opts.MaxResponseBody <= 0 {
		opts.MaxResponseBody = defaultMaxResponseBody
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	headers := make([]string, 0, len(opts.ForwardHeaders))
	for _, h := range opts.ForwardHeaders {
		headers = append(headers, http.CanonicalHeaderKey(h))
	}

	return &Forwarder{
		client:          &http.Client{Transport: transport},
		timeout:         opts.Timeout,
		forwardHeaders:  headers,
		maxRequestBody:  opts.MaxRequestBody,
		maxResponseBody: opts.MaxResponseBody,
		decorators:      opts.Decorators,
		observer:        opts.Observer,
		logger:          log.With().Str("component", "proxy").Logger(),
	}
}

// Forward replays in against the remote operation described by d and
// normalizes the response. Cancelling ctx cancels the outbound call.
func (f *Forwarder) Forward(ctx context.Context, d route.Descriptor, in *Request) (*Result, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	target := d.Target + in.Path
	if in.RawQuery != "" {
		target += "?" + in.RawQuery
	}

	var body io.Reader
	if payload := in.Body.Bytes(); payload != nil {
		body = bytes.NewReader(payload)
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, d.Method, target, body)
	if err != nil {
		return nil, &httpError{Status: http.StatusBadGateway, Err: fmt.Errorf("build upstream request: %w", err)}
	}

	upstreamReq.Header = in.Header.Clone()
	if upstreamReq.Header == nil {
		upstreamReq.Header = make(http.Header)
	}
	if in.Body.Kind() == BodyJSON && !isJSONContentType(upstreamReq.Header.Get("Content-Type")) {
		upstreamReq.Header.Set("Content-Type", "application/json")
	}

	if err := auth.Apply(upstreamReq, f.decorators); err != nil {
		return nil, &httpError{Status: http.StatusInternalServerError, Err: fmt.Errorf("decorate request: %w", err)}
	}

	resp, err := f.client.Do(upstreamReq)
	if err != nil {
		return nil, unreachable(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Error().
				Err(closeErr).
				Str("operation", d.OperationID).
				Msg("close upstream response body failed")
		}
	}()

	result, err := normalize(resp, f.maxResponseBody)
	if errors.Is(err, ErrResponseTooLarge) {
		return nil, &httpError{Status: http.StatusBadGateway, Err: err}
	}
	if err != nil {
		return nil, unreachable(err)
	}
	return result, nil
}

// unreachable classifies a transport failure, reporting timeouts and
// cancellations as 504 and everything else as 502.
func unreachable(err error) error {
	wrapped := fmt.Errorf("%w: %w", ErrRemoteUnreachable, err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &httpError{Status: http.StatusGatewayTimeout, Err: wrapped}
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &httpError{Status: http.StatusGatewayTimeout, Err: wrapped}
		}
	}
	return &httpError{Status: http.StatusBadGateway, Err: wrapped}
}

// httpError wraps a status code with the underlying error from the upstream round trip.
type httpError struct {
	Status int   // Status preserves the HTTP status to emit downstream.
	Err    error // Err retains the original cause for logging.
}

// Error implements the error interface for httpError.
func (e *httpError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Status, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (e *httpError) Unwrap() error {
	return e.Err
}

// StatusOf maps err to the status the gateway answers with.
func StatusOf(err error) int {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return http.StatusBadGateway
}

// causeOf strips the status wrapper so the detail sent to callers reads
// like the underlying failure.
func causeOf(err error) string {
	var httpErr *httpError
	if errors.As(err, &httpErr) && httpErr.Err != nil {
		return httpErr.Err.Error()
	}
	return err.Error()
}

type nopObserver struct{}

func (nopObserver) ObserveForward(string, string, int, time.Duration) {}
func (nopObserver) ObserveUpstreamError(string)                       {}

