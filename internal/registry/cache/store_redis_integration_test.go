//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anagrafe/pkg/testutil/containers"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	defer rc.Terminate(t)

	ctx := context.Background()
	store := NewRedisStore(rc.Client, time.Minute)

	p := person("Mario")
	require.NoError(t, store.Save(ctx, p))

	got, ok, err := store.Find(ctx, p.TaxCode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	require.NoError(t, store.Evict(ctx, p.TaxCode))

	_, ok, err = store.Find(ctx, p.TaxCode)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	defer rc.Terminate(t)

	ctx := context.Background()
	store := NewRedisStore(rc.Client, time.Second)

	require.NoError(t, store.Save(ctx, person("Mario")))

	time.Sleep(1500 * time.Millisecond)

	_, ok, err := store.Find(ctx, "RSSMRA85T10A562S")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire with the TTL")
}
