// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/go-core-stack/openapi-gateway/pkg/proxy"
)

const (
	reservedPrefix  = "/_gateway"
	headerRequestID = "X-Request-ID"
)

func (g *Gateway) serveHealth(w http.ResponseWriter, _ *http.Request) {
	table := g.Table()
	if table == nil {
		proxy.WriteError(w, http.StatusServiceUnavailable, "gateway not started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"routes": len(table.Routes),
	})
}

func (g *Gateway) serveRoutes(w http.ResponseWriter, _ *http.Request) {
	table := g.Table()
	if table == nil {
		proxy.WriteError(w, http.StatusServiceUnavailable, "gateway not started")
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		proxy.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// withRequestID reuses the caller's X-Request-ID or generates one, echoes it
// on the response and stores it on the request context for log correlation.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(proxy.ContextWithRequestID(r.Context(), id)))
	})
}

// withCORS wraps next in a CORS handler when origins are configured.
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return cors.New(cors.Options{
		AllowOriginFunc: allowedOrigin(origins),
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"*"},
	}).Handler(next)
}

func allowedOrigin(origins []string) func(origin string) bool {
	trimScheme := func(origin string) string {
		return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	}
	return func(origin string) bool {
		for _, allowed := range origins {
			if allowed == "*" || allowed == origin || trimScheme(allowed) == trimScheme(origin) {
				return true
			}
		}
		return false
	}
}
