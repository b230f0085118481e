// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RequestRoundTrip(t *testing.T) {
	req, err := NewRequest(2, "sendUserMessage", map[string]interface{}{
		"chunks": []MessageChunk{{Text: "hi"}},
	})
	require.NoError(t, err)

	raw, err := Encode(req)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.True(t, decoded.IsRequest())
	assert.Equal(t, "sendUserMessage", decoded.Method)
	require.NotNil(t, decoded.ID)
	assert.Equal(t, uint32(2), *decoded.ID)
}

func TestFrame_ResponseRoundTrip(t *testing.T) {
	resp, err := NewResultResponse(7, map[string]interface{}{"id": "cf-1", "outcome": "approved"})
	require.NoError(t, err)

	raw, err := Encode(resp)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.True(t, decoded.IsResponse())
	assert.False(t, decoded.IsRequest())
	require.NotNil(t, decoded.ID)
	assert.Equal(t, uint32(7), *decoded.ID)
}

func TestDecode_MalformedFrame(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not an object", `"just a string"`},
		{"missing jsonrpc", `{"id":1,"method":"initialize"}`},
		{"trailing data", `{"jsonrpc":"2.0","id":1}garbage`},
		{"not json at all", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestLenientUint32_NumberAndString(t *testing.T) {
	numVal, err := LenientUint32(json.RawMessage(`7`))
	require.NoError(t, err)

	strVal, err := LenientUint32(json.RawMessage(`"7"`))
	require.NoError(t, err)

	assert.Equal(t, numVal, strVal)
	assert.Equal(t, uint32(7), numVal)
}

func TestLenientUint32_NonNumericStringRejected(t *testing.T) {
	_, err := LenientUint32(json.RawMessage(`"not-a-number"`))
	assert.Error(t, err)
}

func TestDecodeGeneric_NonObject(t *testing.T) {
	_, ok := DecodeGeneric([]byte(`[1,2,3]`))
	assert.False(t, ok)

	_, ok = DecodeGeneric([]byte(`"a string"`))
	assert.False(t, ok)

	m, ok := DecodeGeneric([]byte(`{"method":"pushToolCall"}`))
	assert.True(t, ok)
	assert.Contains(t, m, "method")
}
