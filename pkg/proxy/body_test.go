// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBody(t *testing.T) {
	body := DecodeBody([]byte(`{"a":1}`))
	assert.Equal(t, BodyJSON, body.Kind())
	v, ok := body.JSON()
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(v))

	body = DecodeBody([]byte("a=1&b=2"))
	assert.Equal(t, BodyRaw, body.Kind())
	_, ok = body.JSON()
	assert.False(t, ok)
	assert.Equal(t, "a=1&b=2", string(body.Bytes()))

	body = DecodeBody(nil)
	assert.Equal(t, BodyNone, body.Kind())
	assert.Nil(t, body.Bytes())

	assert.Equal(t, BodyNone, DecodeBody([]byte("null")).Kind())
	assert.Equal(t, BodyNone, DecodeBody([]byte(" null\n")).Kind())
	assert.Equal(t, BodyJSON, DecodeBody([]byte(`{}`)).Kind())
	assert.Equal(t, BodyJSON, DecodeBody([]byte(`[1, 2]`)).Kind())
	assert.Equal(t, BodyRaw, DecodeBody([]byte(" ")).Kind())
}

func TestIsJSONContentType(t *testing.T) {
	assert.True(t, isJSONContentType("application/json"))
	assert.True(t, isJSONContentType("application/json; charset=utf-8"))
	assert.True(t, isJSONContentType("application/vnd.api+json"))
	assert.False(t, isJSONContentType("text/plain"))
	assert.False(t, isJSONContentType(""))
	assert.False(t, isJSONContentType(";;"))
}
