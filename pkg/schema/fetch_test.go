// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-core-stack/openapi-gateway/pkg/auth"
)

const sampleSchema = `{
  "openapi": "3.1.0",
  "info": {"title": "Users", "version": "1.2.0", "description": "user service"},
  "paths": {
    "/users/{user_id}": {"get": {"summary": "read"}, "delete": {"operationId": "remove_user"}},
    "/users": {"post": {}, "get": {}, "options": {}},
    "/ping": {"get": {}}
  }
}`

func newSchemaServer(t *testing.T, handler http.HandlerFunc) *url.URL {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u
}

func TestFetchDecodesDocumentInOrder(t *testing.T) {
	var gotPath, gotSession string
	base := newSchemaServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSession = r.Header.Get("x-session-id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleSchema))
	})

	decorators := []auth.Decorator{auth.StaticHeader{Name: "x-session-id", Value: "s-1"}}
	f := NewFetcher(http.DefaultTransport, "/openapi.json", time.Second, decorators)

	doc, err := f.Fetch(context.Background(), base)
	require.NoError(t, err)

	assert.Equal(t, "/openapi.json", gotPath)
	assert.Equal(t, "s-1", gotSession)
	assert.Equal(t, "Users", doc.Info.Title)
	assert.Equal(t, "1.2.0", doc.Info.Version)
	require.Equal(t, 3, doc.PathCount())

	var order []string
	for pair := doc.Paths.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	assert.Equal(t, []string{"/users/{user_id}", "/users", "/ping"}, order)

	item, ok := doc.Paths.Get("/users/{user_id}")
	require.True(t, ok)
	require.NotNil(t, item.Get)
	assert.Equal(t, "read", item.Get.Summary)
	require.NotNil(t, item.Operation(http.MethodDelete))
	assert.Equal(t, "remove_user", item.Operation(http.MethodDelete).OperationID)
	assert.Nil(t, item.Operation(http.MethodPost))
}

func TestFetchNonOKIsMalformed(t *testing.T) {
	base := newSchemaServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := NewFetcher(http.DefaultTransport, "/openapi.json", time.Second, nil).Fetch(context.Background(), base)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedSchema)
	assert.NotErrorIs(t, err, ErrUnreachableRemote)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchUndecodableBodyIsMalformed(t *testing.T) {
	base := newSchemaServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := NewFetcher(http.DefaultTransport, "/openapi.json", time.Second, nil).Fetch(context.Background(), base)
	assert.ErrorIs(t, err, ErrMalformedSchema)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = NewFetcher(http.DefaultTransport, "/openapi.json", time.Second, nil).Fetch(context.Background(), base)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachableRemote)
	assert.Contains(t, err.Error(), base.Host)
}

func TestFetchTimeoutIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	base := newSchemaServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := NewFetcher(http.DefaultTransport, "/openapi.json", 50*time.Millisecond, nil).Fetch(context.Background(), base)
	assert.ErrorIs(t, err, ErrUnreachableRemote)
}

func TestDecode(t *testing.T) {
	doc, err := Decode([]byte(`{"info": {"title": "empty"}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.PathCount())

	doc, err = Decode([]byte(`{"paths": null}`))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.PathCount())

	for _, bad := range []string{``, `[]`, `null`, `"x"`, `{"paths": []}`, `{"paths": {`} {
		_, err := Decode([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedSchema, "input %q", bad)
	}
}
