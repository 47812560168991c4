// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package route turns a decoded interface description into the immutable
// route table served by the gateway.
package route

import (
	"strconv"
	"strings"

	"github.com/go-core-stack/openapi-gateway/pkg/schema"
)

// Descriptor is one synthesized local route bound to one remote operation.
type Descriptor struct {
	Method string `json:"method"`
	// Path is the remote path template; the local route uses the same syntax.
	Path        string   `json:"path"`
	OperationID string   `json:"operation_id"`
	Target      string   `json:"target"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	// Declared is false when OperationID was derived from method and path.
	Declared bool `json:"declared"`
	// Renamed records the pre-disambiguation identifier of a colliding route.
	Renamed string `json:"renamed_from,omitempty"`
}

// Build walks doc in path order and, within a path, in the fixed method order
// GET, POST, PUT, DELETE, PATCH, producing one descriptor per operation.
// Identifiers that collide with an earlier one get a numeric suffix, so the
// result is unique and identical for identical input.
func Build(doc *schema.Document, target string) []Descriptor {
	if doc.PathCount() == 0 {
		return nil
	}

	target = strings.TrimSuffix(target, "/")
	taken := make(map[string]struct{})
	var out []Descriptor

	for pair := doc.Paths.Oldest(); pair != nil; pair = pair.Next() {
		for _, method := range schema.Methods {
			op := pair.Value.Operation(method)
			if op == nil {
				continue
			}

			d := Descriptor{
				Method:   method,
				Path:     pair.Key,
				Target:   target,
				Summary:  op.Summary,
				Tags:     op.Tags,
				Declared: op.OperationID != "",
			}
			id := op.OperationID
			if id == "" {
				id = DeriveOperationID(method, pair.Key)
			}
			d.OperationID = uniqueID(id, taken)
			if d.OperationID != id {
				d.Renamed = id
			}
			taken[d.OperationID] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// DeriveOperationID names an undeclared operation as
// {lower(method)}_{path segments without braces joined by "_"}.
//
//	DeriveOperationID("GET", "/users/{user_id}") == "get_users_user_id"
func DeriveOperationID(method, path string) string {
	replacer := strings.NewReplacer("{", "", "}", "")
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg = replacer.Replace(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.ToLower(method) + "_" + strings.Join(parts, "_")
}

func uniqueID(id string, taken map[string]struct{}) string {
	if _, ok := taken[id]; !ok {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "_" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
