package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterOptions_DisabledUsesInMemory(t *testing.T) {
	c := NewClient(DefaultSettings())
	defer func() { _ = c.Close() }()

	opts, err := c.RouterOptions()
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestPing_UnreachableRedis(t *testing.T) {
	s := DefaultSettings()
	s.Addr = "127.0.0.1:1"
	c := NewClient(s)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestEnsureGroupAtTail_UnreachableRedis(t *testing.T) {
	s := DefaultSettings()
	s.Addr = "127.0.0.1:1"
	c := NewClient(s)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.EnsureGroupAtTail(ctx, "can-assistant.session.s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can-assistant")
	assert.Contains(t, err.Error(), "can-assistant.session.s1")
}

func TestEnsureGroupAtTail_WithoutGroupIsNoop(t *testing.T) {
	s := DefaultSettings()
	s.Addr = "127.0.0.1:1"
	s.Group = ""
	c := NewClient(s)
	defer func() { _ = c.Close() }()

	assert.NoError(t, c.EnsureGroupAtTail(context.Background(), "can-assistant.session.s1"))
}

func TestIsBusyGroup(t *testing.T) {
	assert.True(t, isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")))
	assert.False(t, isBusyGroup(errors.New("dial tcp 127.0.0.1:1: connect: connection refused")))
	assert.False(t, isBusyGroup(nil))
}
