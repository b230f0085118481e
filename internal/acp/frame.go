// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package acp implements the session supervisor and RPC multiplexer that
// drives agent CLI subprocesses over the Agent Communication Protocol: a
// bidirectional, line-delimited JSON-RPC 2.0 transport.
package acp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedFrame is returned when a stdout line cannot be parsed as a
// JSON-RPC frame: not an object, missing "jsonrpc", or trailing data.
var ErrMalformedFrame = errors.New("acp: malformed frame")

// Frame is the common envelope for both requests and responses on the wire.
// Exactly one of Method (request) or Result/Error (response) is populated.
type Frame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint32         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsRequest reports whether f carries a method (as opposed to a response).
func (f *Frame) IsRequest() bool {
	return f.Method != ""
}

// IsResponse reports whether f carries a result or an error.
func (f *Frame) IsResponse() bool {
	return f.Method == "" && (f.Result != nil || f.Error != nil)
}

// NewRequest builds a request frame with the given id, method, and params.
func NewRequest(id uint32, method string, params interface{}) (*Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("acp: marshal params: %w", err)
	}
	return &Frame{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewResultResponse builds a response frame carrying a result.
func NewResultResponse(id uint32, result interface{}) (*Frame, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("acp: marshal result: %w", err)
	}
	return &Frame{JSONRPC: "2.0", ID: &id, Result: raw}, nil
}

// Encode serializes f as a single line of UTF-8 JSON, without the trailing
// newline (callers append "\n" at the write site alongside flush/log).
func Encode(f *Frame) ([]byte, error) {
	if f.JSONRPC == "" {
		f.JSONRPC = "2.0"
	}
	return json.Marshal(f)
}

// Decode parses one line of the wire protocol into a Frame. It rejects
// anything that isn't a JSON object carrying "jsonrpc", but tolerates
// unknown fields elsewhere.
func Decode(line []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after frame", ErrMalformedFrame)
	}
	if _, ok := raw["jsonrpc"]; !ok {
		return nil, fmt.Errorf("%w: missing jsonrpc field", ErrMalformedFrame)
	}

	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &f, nil
}

// DecodeGeneric parses a line as a generic JSON object, for the
// demultiplexer's best-effort method dispatch. Returns (nil, false) if the
// line is not a JSON object (including valid-but-non-object JSON).
func DecodeGeneric(line []byte) (map[string]json.RawMessage, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil || raw == nil {
		return nil, false
	}
	return raw, true
}

// LenientUint32 decodes a JSON value that may be either a numeric string or
// a JSON number into a uint32, per the wire's lenient toolCallId rule.
// Non-numeric strings are rejected.
func LenientUint32(raw json.RawMessage) (uint32, error) {
	var asNum uint64
	if err := json.Unmarshal(raw, &asNum); err == nil {
		return uint32(asNum), nil
	}

	var asStr string
	if err := json.Unmarshal(raw, &asStr); err != nil {
		return 0, fmt.Errorf("acp: toolCallId is neither number nor string: %w", err)
	}
	n, err := strconv.ParseUint(asStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("acp: toolCallId %q is not numeric: %w", asStr, err)
	}
	return uint32(n), nil
}
