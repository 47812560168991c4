// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Result is the normalized outcome of one forwarded call.
type Result struct {
	Status int
	// Content is always a JSON value: the remote body when it is JSON,
	// otherwise {"content": "<raw text>"}.
	Content json.RawMessage
	Header  http.Header
}

// framingHeaders describe the remote connection or body encoding rather than
// the response; they are recomputed for the re-encoded local response.
var framingHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Length",
}

// normalize reads at most limit bytes of resp and converts its body into a
// JSON value.
func normalize(resp *http.Response, limit int64) (*Result, error) {
	payload, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if int64(len(payload)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrResponseTooLarge, limit)
	}

	content := json.RawMessage(bytes.TrimSpace(payload))
	if !isJSONContentType(resp.Header.Get("Content-Type")) || !json.Valid(content) {
		content, err = wrapText(payload)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Status:  resp.StatusCode,
		Content: content,
		Header:  resp.Header.Clone(),
	}, nil
}

// wrapText encodes raw text as {"content": text} without HTML escaping.
func wrapText(payload []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Content string `json:"content"`
	}{Content: string(payload)}); err != nil {
		return nil, fmt.Errorf("wrap upstream text: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteResult relays res to w. Remote headers pass through unfiltered apart
// from framing headers; Content-Type is forced to JSON because Content
// always is.
func WriteResult(w http.ResponseWriter, res *Result) error {
	dst := w.Header()
	for k, vv := range res.Header {
		dst[k] = append([]string(nil), vv...)
	}
	for _, k := range framingHeaders {
		dst.Del(k)
	}
	dst.Set("Content-Type", "application/json")

	w.WriteHeader(res.Status)
	if !bodyAllowed(res.Status) {
		return nil
	}
	_, err := w.Write(res.Content)
	return err
}

// WriteError answers with a gateway-side error in the {"detail": ...}
// shape the remote frameworks use.
func WriteError(w http.ResponseWriter, status int, detail string) {
	payload, err := json.Marshal(struct {
		Detail string `json:"detail"`
	}{Detail: detail})
	if err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
