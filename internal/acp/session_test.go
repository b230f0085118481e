// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package acp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingRequestSet_AddRemove(t *testing.T) {
	set := newPendingRequestSet()

	set.Add(7)
	assert.True(t, set.Contains(7))

	removed := set.Remove(7)
	assert.True(t, removed)
	assert.False(t, set.Contains(7))

	// Removing again reports false, never panics or double-fires.
	removed = set.Remove(7)
	assert.False(t, removed)
}

func TestPendingRequestSet_OnlyResolvesOnce(t *testing.T) {
	// Property 2: at most one terminal resolution per id.
	set := newPendingRequestSet()
	set.Add(9)

	first := set.Remove(9)
	second := set.Remove(9)

	assert.True(t, first)
	assert.False(t, second)
}

func TestToolCallIDCounter_StartsAt1001AndIncrements(t *testing.T) {
	c := newToolCallIDCounter()

	assert.Equal(t, uint32(1001), c.Next())
	assert.Equal(t, uint32(1002), c.Next())
	assert.Equal(t, uint32(1003), c.Next())
}

func TestToolCallIDCounter_StrictlyIncreasing(t *testing.T) {
	// Property 1: every allocated id is strictly greater than any prior one.
	c := newToolCallIDCounter()
	var last uint32
	for i := 0; i < 100; i++ {
		id := c.Next()
		assert.Greater(t, id, last)
		last = id
	}
}

func TestSession_TakeStdinPutStdin(t *testing.T) {
	s := newSession("abc", "/tmp/p", 123, nopWriteCloser{}, nil)

	w := s.takeStdin()
	assert.NotNil(t, w)

	// A second take while detached returns nil (exclusive acquisition).
	assert.Nil(t, s.takeStdin())

	s.putStdin(w)
	assert.NotNil(t, s.takeStdin())
}

func TestSession_MarkNotAliveDropsStdinAndIsIdempotent(t *testing.T) {
	s := newSession("abc", "/tmp/p", 123, nopWriteCloser{}, nil)
	assert.True(t, s.isAlive())

	s.markNotAlive()
	assert.False(t, s.isAlive())
	assert.Nil(t, s.stdin)

	// Calling twice must not panic.
	s.markNotAlive()
	assert.False(t, s.isAlive())
}

func TestSession_EnqueueFailsWhenNotAlive(t *testing.T) {
	s := newSession("abc", "/tmp/p", 123, nopWriteCloser{}, nil)
	assert.True(t, s.enqueue([]byte("frame")))

	s.markNotAlive()
	assert.False(t, s.enqueue([]byte("frame")))
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
