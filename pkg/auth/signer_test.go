// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-core-stack/openapi-gateway/pkg/config"
)

func TestSignerDecorate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "https://example.com/v1/test?foo=bar", nil)

	signer := NewSigner("key123", "secret456")
	signer.Now = func() time.Time {
		return time.Unix(1_700_000_000, 0).UTC()
	}

	require.NoError(t, signer.Decorate(req))

	assert.Equal(t, "key123", req.Header.Get(HeaderAPIKey))
	assert.Equal(t, "d1bfbc31386e7c029a0c30216ff01f5ed337b6de4bb97ac539c7a7feec125d05", req.Header.Get(HeaderSignature))
	assert.Equal(t, "2023-11-14T22:13:20Z", req.Header.Get(HeaderTimestamp))
}

func TestSignerRequiresCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	assert.Error(t, NewSigner("", "secret").Decorate(req))
}

func TestFromConfig(t *testing.T) {
	assert.Empty(t, FromConfig(config.Config{}))

	cfg := config.Config{
		APIKey:        "key",
		APISecret:     "secret",
		SessionHeader: "x-session-id",
		SessionValue:  "session-123",
	}
	decorators := FromConfig(cfg)
	require.Len(t, decorators, 2)

	req := httptest.NewRequest(http.MethodGet, "https://example.com/ping", nil)
	require.NoError(t, Apply(req, decorators))
	assert.Equal(t, "session-123", req.Header.Get("x-session-id"))
	assert.Equal(t, "key", req.Header.Get(HeaderAPIKey))
	assert.NotEmpty(t, req.Header.Get(HeaderSignature))
}
