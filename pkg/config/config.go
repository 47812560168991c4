// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envListenAddr             = "GATEWAY_LISTEN_ADDR"
	envUpstreamURL            = "GATEWAY_UPSTREAM_URL"
	envMountPath              = "GATEWAY_MOUNT_PATH"
	envSchemaPath             = "GATEWAY_SCHEMA_PATH"
	envSchemaTimeout          = "GATEWAY_SCHEMA_TIMEOUT"
	envSchemaAttempts         = "GATEWAY_SCHEMA_ATTEMPTS"
	envRequestTimeout         = "GATEWAY_REQUEST_TIMEOUT"
	envForwardHeaders         = "GATEWAY_FORWARD_HEADERS"
	envMaxRequestBody         = "GATEWAY_MAX_REQUEST_BODY"
	envMaxResponseBody        = "GATEWAY_MAX_RESPONSE_BODY"
	envAPIKey                 = "GATEWAY_API_KEY"
	envAPISecret              = "GATEWAY_API_SECRET"
	envSessionHeader          = "GATEWAY_SESSION_HEADER"
	envSessionValue           = "GATEWAY_SESSION_VALUE"
	envInsecureSkipVerify     = "GATEWAY_UPSTREAM_INSECURE"
	envCORSOrigins            = "GATEWAY_CORS_ORIGINS"
	envLogLevel               = "GATEWAY_LOG_LEVEL"
	envLogFile                = "GATEWAY_LOG_FILE"
	envServerReadTimeout      = "GATEWAY_SERVER_READ_TIMEOUT"
	envServerWriteTimeout     = "GATEWAY_SERVER_WRITE_TIMEOUT"
	envServerIdleTimeout      = "GATEWAY_SERVER_IDLE_TIMEOUT"
	envGracefulShutdown       = "GATEWAY_GRACEFUL_SHUTDOWN"
	defaultListenAddr         = "127.0.0.1:8000"
	defaultSchemaPath         = "/openapi.json"
	defaultSchemaTimeout      = 10 * time.Second
	defaultSchemaAttempts     = 1
	defaultRequestTimeout     = 30 * time.Second
	defaultMaxRequestBody     = 10 << 20
	defaultMaxResponseBody    = 32 << 20
	defaultSessionHeader      = "x-session-id"
	defaultLogLevel           = "info"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 60 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second
)

// DefaultForwardHeaders is the inbound header allow-list used when none is configured.
var DefaultForwardHeaders = []string{"Authorization", "Content-Type"}

// Config captures runtime settings for the gateway.
type Config struct {
	ListenAddr string
	// Upstream is the remote service base address; every route targets it.
	Upstream *url.URL
	// MountPath prefixes every synthesized local route. Empty mounts at the root.
	MountPath      string
	SchemaPath     string
	SchemaTimeout  time.Duration
	SchemaAttempts int
	RequestTimeout time.Duration
	// ForwardHeaders is the allow-list of inbound headers relayed to the remote.
	ForwardHeaders          []string
	MaxRequestBody          int64
	MaxResponseBody         int64
	APIKey                  string
	APISecret               string
	SessionHeader           string
	SessionValue            string
	InsecureSkipVerify      bool
	CORSOrigins             []string
	LogLevel                string
	LogFile                 string
	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// Load reads configuration from environment variables. The upstream is
// optional at this stage so command-line flags can still supply it; call
// Validate once all sources are applied.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:              getString(envListenAddr, defaultListenAddr),
		MountPath:               getString(envMountPath, ""),
		SchemaPath:              getString(envSchemaPath, defaultSchemaPath),
		SchemaTimeout:           getDuration(envSchemaTimeout, defaultSchemaTimeout),
		SchemaAttempts:          getInt(envSchemaAttempts, defaultSchemaAttempts),
		RequestTimeout:          getDuration(envRequestTimeout, defaultRequestTimeout),
		ForwardHeaders:          getList(envForwardHeaders, DefaultForwardHeaders),
		MaxRequestBody:          int64(getInt(envMaxRequestBody, defaultMaxRequestBody)),
		MaxResponseBody:         int64(getInt(envMaxResponseBody, defaultMaxResponseBody)),
		APIKey:                  strings.TrimSpace(os.Getenv(envAPIKey)),
		APISecret:               strings.TrimSpace(os.Getenv(envAPISecret)),
		SessionHeader:           getString(envSessionHeader, defaultSessionHeader),
		SessionValue:            strings.TrimSpace(os.Getenv(envSessionValue)),
		InsecureSkipVerify:      getBool(envInsecureSkipVerify, false),
		CORSOrigins:             getList(envCORSOrigins, nil),
		LogLevel:                strings.ToLower(getString(envLogLevel, defaultLogLevel)),
		LogFile:                 strings.TrimSpace(os.Getenv(envLogFile)),
		ServerReadTimeout:       getDuration(envServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(envServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(envServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(envGracefulShutdown, defaultGracefulShutdown),
	}

	if raw := strings.TrimSpace(os.Getenv(envUpstreamURL)); raw != "" {
		if err := cfg.SetUpstream(raw); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// SetUpstream parses and stores the remote base address.
func (c *Config) SetUpstream(raw string) error {
	upstream, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid upstream url: %w", err)
	}
	if !upstream.IsAbs() || upstream.Host == "" {
		return errors.New("upstream url must be absolute (scheme://host)")
	}
	upstream.Path = strings.TrimSuffix(upstream.Path, "/")
	upstream.RawQuery = ""
	upstream.Fragment = ""
	c.Upstream = upstream
	return nil
}

// Validate checks the values that have no usable default.
func (c Config) Validate() error {
	if c.Upstream == nil {
		return fmt.Errorf("%s is required", envUpstreamURL)
	}
	if c.MountPath != "" && (!strings.HasPrefix(c.MountPath, "/") || strings.HasSuffix(c.MountPath, "/")) {
		return fmt.Errorf("mount path %q must start with / and not end with /", c.MountPath)
	}
	if !strings.HasPrefix(c.SchemaPath, "/") {
		return fmt.Errorf("schema path %q must start with /", c.SchemaPath)
	}
	if c.SchemaTimeout <= 0 || c.RequestTimeout <= 0 {
		return errors.New("schema and request timeouts must be positive")
	}
	if c.SchemaAttempts < 1 {
		return errors.New("schema attempts must be at least 1")
	}
	if (c.APIKey == "") != (c.APISecret == "") {
		return fmt.Errorf("%s and %s must be set together", envAPIKey, envAPISecret)
	}
	return nil
}

// CanonicalForwardHeaders returns the allow-list in canonical MIME form
// without duplicates.
func (c Config) CanonicalForwardHeaders() []string {
	seen := make(map[string]struct{}, len(c.ForwardHeaders))
	out := make([]string, 0, len(c.ForwardHeaders))
	for _, h := range c.ForwardHeaders {
		key := http.CanonicalHeaderKey(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getList splits a comma separated value, dropping blanks.
func getList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
