// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/openapi-gateway/pkg/auth"
	"github.com/go-core-stack/openapi-gateway/pkg/config"
	"github.com/go-core-stack/openapi-gateway/pkg/metrics"
	"github.com/go-core-stack/openapi-gateway/pkg/proxy"
	"github.com/go-core-stack/openapi-gateway/pkg/route"
	"github.com/go-core-stack/openapi-gateway/pkg/schema"
)

var (
	// ErrAlreadyAssembled is returned by a second Assemble call.
	ErrAlreadyAssembled = errors.New("gateway already assembled")
	// ErrRouteConflict marks routes the local router cannot hold together.
	ErrRouteConflict = errors.New("route conflict")
)

// Table is the assembled, read-only route table.
type Table struct {
	Title    string             `json:"title,omitempty"`
	Version  string             `json:"version,omitempty"`
	Upstream string             `json:"upstream"`
	Mount    string             `json:"mount_path,omitempty"`
	Routes   []route.Descriptor `json:"routes"`
}

type assembled struct {
	table *Table
	mux   *http.ServeMux
}

// Gateway serves the synthesized routes once Assemble has succeeded.
type Gateway struct {
	cfg       config.Config
	fetcher   *schema.Fetcher
	forwarder *proxy.Forwarder
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	handler   http.Handler

	// mu serializes Assemble; state is read lock-free by ServeHTTP.
	mu    sync.Mutex
	state atomic.Pointer[assembled]
}

type options struct {
	transport http.RoundTripper
	metrics   *metrics.Metrics
}

// Option customizes a Gateway.
type Option func(*options)

// WithTransport replaces the outbound transport used for the schema fetch
// and every forwarded call.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithMetrics registers collectors on m instead of a fresh registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New validates cfg and wires the gateway. No network traffic happens until
// Assemble.
func New(cfg config.Config, opts ...Option) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = proxy.NewTransport(cfg.InsecureSkipVerify)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	decorators := auth.FromConfig(cfg)

	g := &Gateway{
		cfg:     cfg,
		fetcher: schema.NewFetcher(o.transport, cfg.SchemaPath, cfg.SchemaTimeout, decorators),
		forwarder: proxy.NewForwarder(o.transport, proxy.Options{
			Timeout:         cfg.RequestTimeout,
			ForwardHeaders:  cfg.CanonicalForwardHeaders(),
			MaxRequestBody:  cfg.MaxRequestBody,
			MaxResponseBody: cfg.MaxResponseBody,
			Decorators:      decorators,
			Observer:        o.metrics,
		}),
		metrics: o.metrics,
		logger:  log.With().Str("component", "gateway").Logger(),
	}

	local := http.NewServeMux()
	local.HandleFunc("GET "+reservedPrefix+"/healthz", g.serveHealth)
	local.HandleFunc("GET "+reservedPrefix+"/routes", g.serveRoutes)
	local.Handle("GET "+reservedPrefix+"/metrics", g.metrics.Handler())
	local.HandleFunc("/", g.dispatch)

	g.handler = withCORS(cfg.CORSOrigins, withRequestID(local))

	return g, nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// Assemble fetches the remote schema, builds the route table and registers
// one handler per route. It either publishes the complete table or nothing.
func (g *Gateway) Assemble(ctx context.Context) (*Table, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.Load() != nil {
		return nil, ErrAlreadyAssembled
	}

	start := time.Now()
	state, err := g.assemble(ctx)
	if err != nil {
		g.metrics.ObserveAssembly(0, err)
		return nil, err
	}

	g.state.Store(state)
	g.metrics.ObserveAssembly(len(state.table.Routes), nil)
	g.logger.Info().
		Str("upstream", g.cfg.Upstream.String()).
		Str("title", state.table.Title).
		Int("routes", len(state.table.Routes)).
		Dur("duration", time.Since(start)).
		Msg("route table assembled")

	return state.table, nil
}

func (g *Gateway) assemble(ctx context.Context) (*assembled, error) {
	doc, err := g.fetch(ctx)
	if err != nil {
		return nil, err
	}

	routes := route.Build(doc, g.cfg.Upstream.String())
	for _, d := range routes {
		if d.Renamed != "" {
			g.logger.Warn().
				Str("method", d.Method).
				Str("path", d.Path).
				Str("operation", d.OperationID).
				Str("renamed_from", d.Renamed).
				Msg("duplicate operation id disambiguated")
		}
	}

	mux, err := g.register(routes)
	if err != nil {
		return nil, err
	}

	return &assembled{
		table: &Table{
			Title:    doc.Info.Title,
			Version:  doc.Info.Version,
			Upstream: g.cfg.Upstream.String(),
			Mount:    g.cfg.MountPath,
			Routes:   routes,
		},
		mux: mux,
	}, nil
}

// fetch retrieves the schema, retrying unreachable errors up to the
// configured attempt count. Malformed schemas are never retried.
func (g *Gateway) fetch(ctx context.Context) (*schema.Document, error) {
	var doc *schema.Document
	attempt := 0

	operation := func() error {
		attempt++
		fetched, err := g.fetcher.Fetch(ctx, g.cfg.Upstream)
		if err == nil {
			doc = fetched
			return nil
		}
		if !errors.Is(err, schema.ErrUnreachableRemote) {
			return backoff.Permanent(err)
		}
		if attempt < g.cfg.SchemaAttempts {
			g.logger.Warn().Err(err).Int("attempt", attempt).Msg("schema fetch failed; retrying")
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(g.cfg.SchemaAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return doc, nil
}

// Table returns the assembled route table, or nil before assembly.
func (g *Gateway) Table() *Table {
	state := g.state.Load()
	if state == nil {
		return nil
	}
	return state.table
}

// Routes returns a copy of the assembled route descriptors.
func (g *Gateway) Routes() []route.Descriptor {
	table := g.Table()
	if table == nil {
		return nil
	}
	return append([]route.Descriptor(nil), table.Routes...)
}

func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request) {
	state := g.state.Load()
	if state == nil {
		proxy.WriteError(w, http.StatusServiceUnavailable, "gateway not started")
		return
	}
	state.mux.ServeHTTP(w, r)
}
