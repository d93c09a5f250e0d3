package cache

import (
	"context"
	"testing"
	"time"

	"restaurant-ordering-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory(10, time.Minute)
	ctx := context.Background()

	_, ok := m.Get(ctx, "/menu")
	assert.False(t, ok)

	m.Set(ctx, "/menu", []byte(`{"data":[]}`))
	got, ok := m.Get(ctx, "/menu")
	require.True(t, ok)
	assert.Equal(t, `{"data":[]}`, string(got))
}

func TestMemory_Expires(t *testing.T) {
	m := NewMemory(10, 20*time.Millisecond)
	ctx := context.Background()
	m.Set(ctx, "k", []byte("v"))

	assert.Eventually(t, func() bool {
		_, ok := m.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNew_Memory(t *testing.T) {
	s, err := New(config.CacheConfig{Backend: "memory", TTL: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, s.Close())
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
