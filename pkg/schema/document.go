// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package schema

import (
	"net/http"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Methods lists the recognised operation methods in table order.
var Methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
}

// Document is the parsed interface description of the remote service.
// Paths keep the order in which the remote document lists them.
type Document struct {
	OpenAPI string                                     `json:"openapi,omitempty"`
	Info    Info                                       `json:"info"`
	Paths   *orderedmap.OrderedMap[string, PathItem] `json:"paths"`
}

// Info carries the descriptive metadata of the remote service.
type Info struct {
	Title       string `json:"title,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// PathItem holds the operations declared under one path template. Methods
// outside the recognised set are dropped during decoding.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
}

// Operation is one described remote operation. Only OperationID feeds route
// synthesis; the rest is carried through to the route listing.
type Operation struct {
	OperationID string      `json:"operationId,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	Description string      `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
}

// Parameter describes a declared operation parameter.
type Parameter struct {
	Name     string `json:"name"`
	In       string `json:"in"`
	Required bool   `json:"required,omitempty"`
}

// Operation returns the operation declared for method, or nil.
func (p PathItem) Operation(method string) *Operation {
	switch method {
	case http.MethodGet:
		return p.Get
	case http.MethodPost:
		return p.Post
	case http.MethodPut:
		return p.Put
	case http.MethodDelete:
		return p.Delete
	case http.MethodPatch:
		return p.Patch
	}
	return nil
}

// PathCount reports how many path templates the document declares.
func (d *Document) PathCount() int {
	if d == nil || d.Paths == nil {
		return 0
	}
	return d.Paths.Len()
}
