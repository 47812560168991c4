// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-core-stack/openapi-gateway/pkg/route"
)

// ParamsFunc returns the unescaped path parameter values of an inbound
// request, keyed by placeholder name.
type ParamsFunc func(*http.Request) map[string]string

// Synthesize returns the handler for route d. It only captures d; all
// request-dependent work happens per call, so the handler is safe for
// concurrent use.
func Synthesize(d route.Descriptor, fwd *Forwarder, params ParamsFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		event := fwd.logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("operation", d.OperationID).
			Str("request_id", RequestIDFromContext(r.Context())).
			Logger()

		var values map[string]string
		if params != nil {
			values = params(r)
		}

		in, err := fwd.NewRequest(r, d, values)
		if err != nil {
			status := StatusOf(err)
			WriteError(w, status, causeOf(err))
			event.Warn().Err(err).Int("status", status).Msg("rejected inbound request")
			return
		}

		res, err := fwd.Forward(r.Context(), d, in)
		if err != nil {
			status := StatusOf(err)
			detail := "cannot reach remote service"
			if !errors.Is(err, ErrRemoteUnreachable) {
				detail = "cannot forward request"
			}
			WriteError(w, status, detail+": "+causeOf(err))
			fwd.observer.ObserveUpstreamError(d.OperationID)
			event.Error().
				Err(err).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Msg("request failed")
			return
		}

		if res.Status >= http.StatusBadRequest {
			const maxLogBody = 64 * 1024
			logged := res.Content
			if len(logged) > maxLogBody {
				logged = logged[:maxLogBody]
			}
			event.Warn().
				Int("status", res.Status).
				Bytes("upstream_body", logged).
				Msg("upstream returned error")
		}

		if err := WriteResult(w, res); err != nil {
			event.Error().
				Err(err).
				Dur("duration", time.Since(start)).
				Msg("write response failed")
		}
		fwd.observer.ObserveForward(d.OperationID, d.Method, res.Status, time.Since(start))

		event.Info().
			Int("status", res.Status).
			Str("body", in.Body.Kind().String()).
			Dur("duration", time.Since(start)).
			Msg("request proxied")
	})
}
