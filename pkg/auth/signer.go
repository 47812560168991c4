// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package auth holds the outbound credential decorators the gateway applies to
// requests it originates towards the remote service. Nothing here inspects
// inbound credentials; those are relayed through the header allow-list.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-core-stack/openapi-gateway/pkg/config"
)

const (
	HeaderAPIKey    = "x-api-key-id"
	HeaderSignature = "x-signature"
	HeaderTimestamp = "x-timestamp"
)

// Decorator mutates an outbound request before it is dispatched.
type Decorator interface {
	Decorate(req *http.Request) error
}

// Signer injects HMAC auth headers computed from the method, target path and
// timestamp of the outbound request.
type Signer struct {
	Key    string
	Secret string
	Now    func() time.Time
}

// NewSigner constructs a signer with the provided key/secret and a UTC clock.
func NewSigner(key, secret string) *Signer {
	return &Signer{
		Key:    key,
		Secret: secret,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Decorate signs req in place.
func (s *Signer) Decorate(req *http.Request) error {
	if s.Key == "" || s.Secret == "" {
		return fmt.Errorf("signer key and secret must be set")
	}

	timestamp := s.Now().Format(time.RFC3339)

	payload := strings.Join([]string{
		req.Method,
		req.URL.Path,
		timestamp,
	}, "\n")

	mac := hmac.New(sha256.New, []byte(s.Secret))
	if _, err := mac.Write([]byte(payload)); err != nil {
		return fmt.Errorf("compute signature: %w", err)
	}

	req.Header.Set(HeaderAPIKey, s.Key)
	req.Header.Set(HeaderSignature, hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set(HeaderTimestamp, timestamp)

	return nil
}

// StaticHeader sets a fixed header, typically a session identifier the remote
// uses to associate calls with an authenticated principal.
type StaticHeader struct {
	Name  string
	Value string
}

// Decorate sets the header unless it is empty.
func (h StaticHeader) Decorate(req *http.Request) error {
	if h.Name == "" || h.Value == "" {
		return nil
	}
	req.Header.Set(h.Name, h.Value)
	return nil
}

// FromConfig returns the decorators enabled by cfg, in application order.
// The slice is empty when no outbound credentials are configured.
func FromConfig(cfg config.Config) []Decorator {
	var decorators []Decorator
	if cfg.SessionValue != "" {
		decorators = append(decorators, StaticHeader{Name: cfg.SessionHeader, Value: cfg.SessionValue})
	}
	if cfg.APIKey != "" && cfg.APISecret != "" {
		decorators = append(decorators, NewSigner(cfg.APIKey, cfg.APISecret))
	}
	return decorators
}

// Apply runs every decorator against req, stopping at the first failure.
func Apply(req *http.Request, decorators []Decorator) error {
	for _, d := range decorators {
		if err := d.Decorate(req); err != nil {
			return err
		}
	}
	return nil
}
