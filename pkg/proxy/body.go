// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
)

// BodyKind tags the variant held by a Body.
type BodyKind int

const (
	// BodyNone sends no payload.
	BodyNone BodyKind = iota
	// BodyJSON sends a decoded JSON value.
	BodyJSON
	// BodyRaw sends the inbound bytes verbatim.
	BodyRaw
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyRaw:
		return "raw"
	}
	return "none"
}

// Body is the outbound payload of a forwarded call. Exactly one variant is
// set at a time.
type Body struct {
	kind BodyKind
	data []byte
}

// JSONBody wraps an already validated JSON value.
func JSONBody(v json.RawMessage) Body {
	return Body{kind: BodyJSON, data: v}
}

// RawBody wraps an opaque payload.
func RawBody(b []byte) Body {
	return Body{kind: BodyRaw, data: b}
}

// DecodeBody attempts to read data as JSON and falls back to raw bytes. An
// empty payload or a JSON null yields BodyNone.
func DecodeBody(data []byte) Body {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return Body{}
	}
	if json.Valid(data) {
		return JSONBody(data)
	}
	return RawBody(data)
}

// Kind reports the variant.
func (b Body) Kind() BodyKind { return b.kind }

// Bytes returns the payload, nil for BodyNone.
func (b Body) Bytes() []byte {
	if b.kind == BodyNone {
		return nil
	}
	return b.data
}

// JSON returns the payload when the body holds a JSON value.
func (b Body) JSON() (json.RawMessage, bool) {
	if b.kind != BodyJSON {
		return nil, false
	}
	return json.RawMessage(b.data), true
}

// isJSONContentType accepts application/json and any +json suffix type.
func isJSONContentType(value string) bool {
	if value == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// bodyMethods lists the methods whose inbound payload is relayed.
var bodyMethods = map[string]struct{}{
	"POST":  {},
	"PUT":   {},
	"PATCH": {},
}

func carriesBody(method string) bool {
	_, ok := bodyMethods[method]
	return ok
}
