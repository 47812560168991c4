// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-core-stack/openapi-gateway/pkg/route"
)

// Request is the material extracted from one inbound call before dispatch.
// It lives for a single call and is never shared.
type Request struct {
	// Path is the remote path after placeholder substitution.
	Path string
	// RawQuery is the inbound query string, relayed byte for byte so
	// parameter order survives.
	RawQuery string
	// Header holds only allow-listed inbound headers.
	Header http.Header
	Body   Body
}

// NewRequest extracts a Request from r for route d. params carries the
// unescaped path parameter values matched by the router.
func (f *Forwarder) NewRequest(r *http.Request, d route.Descriptor, params map[string]string) (*Request, error) {
	escaped := make(map[string]string, len(params))
	for name, value := range params {
		escaped[name] = url.PathEscape(value)
	}

	in := &Request{
		Path:     route.Substitute(d.Path, escaped),
		RawQuery: r.URL.RawQuery,
		Header:   allowedHeaders(r.Header, f.forwardHeaders),
	}

	if !carriesBody(d.Method) || r.Body == nil {
		return in, nil
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, f.maxRequestBody+1))
	if err != nil {
		return nil, &httpError{Status: http.StatusBadRequest, Err: fmt.Errorf("read request body: %w", err)}
	}
	if int64(len(payload)) > f.maxRequestBody {
		return nil, &httpError{
			Status: http.StatusRequestEntityTooLarge,
			Err:    fmt.Errorf("request body exceeds %d bytes", f.maxRequestBody),
		}
	}
	in.Body = DecodeBody(payload)

	return in, nil
}

// allowedHeaders copies only the allow-listed headers from src. Keys in
// allow must be canonical.
func allowedHeaders(src http.Header, allow []string) http.Header {
	dst := make(http.Header, len(allow))
	for _, key := range allow {
		if vv, ok := src[key]; ok {
			dst[key] = append([]string(nil), vv...)
		}
	}
	return dst
}

type requestIDKey struct{}

// ContextWithRequestID stores the inbound request id for log correlation.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
