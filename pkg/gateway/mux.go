// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-core-stack/openapi-gateway/pkg/proxy"
	"github.com/go-core-stack/openapi-gateway/pkg/route"
)

// binding ties one descriptor to its compiled path segments. A loose
// binding sits behind an all-wildcard pattern and checks its literal
// segments itself.
type binding struct {
	segments []route.Segment
	loose    bool
	handler  http.Handler
}

// params maps the router's positional wildcards back to placeholder names.
// ok is false when the request does not fit the binding's segments.
func (b *binding) params(r *http.Request) (map[string]string, bool) {
	values := make(map[string]string)
	for i, seg := range b.segments {
		if seg.Literal() {
			if b.loose && !trailingSlash(b.segments, i) && r.PathValue(wildcard(i)) != seg.Raw {
				return nil, false
			}
			continue
		}
		extracted, ok := seg.Extract(r.PathValue(wildcard(i)))
		if !ok {
			return nil, false
		}
		for k, v := range extracted {
			values[k] = v
		}
	}
	return values, true
}

// group collects the bindings that share one mux pattern, e.g. /users/{id}
// and /users/{name}; the first one that fits a request wins.
type group struct {
	pattern  string
	bindings []*binding
}

func (grp *group) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, b := range grp.bindings {
		if _, ok := b.params(r); ok {
			b.handler.ServeHTTP(w, r)
			return
		}
	}
	notFound(w, r)
}

// register compiles routes into a fresh mux. Templates the mux cannot
// disambiguate, such as /items/{id}/detail and /items/latest/{field}, are
// moved with every route of the same method and shape under one
// all-wildcard pattern, where bindings are tried in table order.
func (g *Gateway) register(routes []route.Descriptor) (*http.ServeMux, error) {
	loose := make(map[string]bool)
	for {
		mux, conflict, err := g.compile(routes, loose)
		if err != nil {
			return nil, err
		}
		if conflict == "" {
			return mux, nil
		}
		loose[conflict] = true
	}
}

// compile registers routes on a new mux. conflict names the fallback
// pattern of the first group the mux rejected.
func (g *Gateway) compile(routes []route.Descriptor, loose map[string]bool) (*http.ServeMux, string, error) {
	var groups []*group
	index := make(map[string]*group)
	fallbacks := make(map[*group]string)

	for _, d := range routes {
		pattern, segments := muxPattern(d.Method, g.cfg.MountPath, d.Path)
		fallback := fallbackPattern(d.Method, g.cfg.MountPath, segments)

		b := &binding{segments: segments}
		if loose[fallback] {
			b.loose = true
			pattern = fallback
		}
		b.handler = proxy.Synthesize(d, g.forwarder, func(r *http.Request) map[string]string {
			values, _ := b.params(r)
			return values
		})

		grp, ok := index[pattern]
		if !ok {
			grp = &group{pattern: pattern}
			index[pattern] = grp
			groups = append(groups, grp)
			fallbacks[grp] = fallback
		}
		grp.bindings = append(grp.bindings, b)
	}

	mux := http.NewServeMux()
	for _, grp := range groups {
		if err := handle(mux, grp.pattern, grp); err != nil {
			fallback := fallbacks[grp]
			if loose[fallback] {
				return nil, "", err
			}
			g.logger.Debug().
				Str("pattern", grp.pattern).
				Str("fallback", fallback).
				Err(err).
				Msg("overlapping route templates share a fallback pattern")
			return nil, fallback, nil
		}
	}
	mux.HandleFunc("/", notFound)

	return mux, "", nil
}

// handle registers h, turning the mux's panic on a bad or conflicting
// pattern into ErrRouteConflict.
func handle(mux *http.ServeMux, pattern string, h http.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRouteConflict, r)
		}
	}()
	mux.Handle(pattern, h)
	return nil
}

// muxPattern translates a path template into a ServeMux pattern. Every
// segment holding a placeholder becomes the positional wildcard {pN}, so
// placeholder names need not be Go identifiers.
func muxPattern(method, mount, template string) (string, []route.Segment) {
	segments := route.Segments(template)
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if seg.Literal() {
			parts[i] = seg.Raw
			continue
		}
		parts[i] = "{" + wildcard(i) + "}"
	}
	return joinPattern(method, mount, parts), segments
}

// fallbackPattern is muxPattern with every segment turned into a wildcard,
// apart from a trailing slash.
func fallbackPattern(method, mount string, segments []route.Segment) string {
	parts := make([]string, len(segments))
	for i := range segments {
		if trailingSlash(segments, i) {
			continue
		}
		parts[i] = "{" + wildcard(i) + "}"
	}
	return joinPattern(method, mount, parts)
}

// trailingSlash reports whether segment i is the empty segment left by a
// trailing slash.
func trailingSlash(segments []route.Segment, i int) bool {
	return i == len(segments)-1 && segments[i].Raw == ""
}

func joinPattern(method, mount string, parts []string) string {
	path := mount + "/" + strings.Join(parts, "/")
	if strings.HasSuffix(path, "/") {
		path += "{$}"
	}
	return method + " " + path
}

func wildcard(i int) string {
	return "p" + strconv.Itoa(i)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	proxy.WriteError(w, http.StatusNotFound, "Not Found")
}
