// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package schema retrieves and decodes the interface description published
// by the remote service.
package schema

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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/go-core-stack/openapi-gateway/pkg/auth"
)

var (
	// ErrUnreachableRemote marks network or timeout failures reaching the remote.
	ErrUnreachableRemote = errors.New("remote unreachable")
	// ErrMalformedSchema marks a schema response that is absent, non-200 or not JSON.
	ErrMalformedSchema = errors.New("malformed schema")
)

// maxSchemaBytes bounds the schema body we are willing to buffer.
const maxSchemaBytes = 32 << 20

// Fetcher issues the single schema request made at startup.
type Fetcher struct {
	client     *http.Client
	path       string
	decorators []auth.Decorator
	logger     zerolog.Logger
}

// NewFetcher builds a Fetcher requesting path under the base address with a
// client bounded by timeout.
func NewFetcher(transport http.RoundTripper, path string, timeout time.Duration, decorators []auth.Decorator) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		path:       path,
		decorators: decorators,
		logger:     log.With().Str("component", "schema").Logger(),
	}
}

// Fetch retrieves and decodes the remote interface description. It never
// retries; errors wrap ErrUnreachableRemote or ErrMalformedSchema.
func (f *Fetcher) Fetch(ctx context.Context, base *url.URL) (*Document, error) {
	target := strings.TrimSuffix(base.String(), "/") + f.path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build schema request %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json")
	if err := auth.Apply(req, f.decorators); err != nil {
		return nil, fmt.Errorf("decorate schema request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", target, ErrUnreachableRemote, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Error().Err(closeErr).Msg("close schema response body failed")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", target, ErrUnreachableRemote, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %w: status %d: %s", target, ErrMalformedSchema, resp.StatusCode, snippet(body))
	}

	doc, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, err)
	}

	f.logger.Debug().
		Str("url", target).
		Int("paths", doc.PathCount()).
		Dur("duration", time.Since(start)).
		Msg("schema fetched")

	return doc, nil
}

// Decode parses a JSON interface description. The root must be an object;
// a missing paths member yields an empty document.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: document is not a JSON object", ErrMalformedSchema)
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSchema, err)
	}
	if doc.Paths == nil {
		doc.Paths = orderedmap.New[string, PathItem]()
	}
	return &doc, nil
}

// snippet trims a response body for inclusion in an error message.
func snippet(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
