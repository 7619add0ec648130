package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/types"
)

func TestNewReturnsNoopWhenUnconfigured(t *testing.T) {
	b, err := New("")
	require.NoError(t, err)
	_, ok := b.(*NoopBackend)
	assert.True(t, ok)

	_, err = b.GetByID("p1")
	assert.ErrorIs(t, err, types.ErrStorageBackend)
}

func TestBoltPSCOStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psco.db")
	b, err := New(path)
	require.NoError(t, err)
	defer b.Finish()

	require.NoError(t, b.NewReplica("psco1", "worker-a"))
	loc, err := b.GetByID("psco1")
	require.NoError(t, err)
	assert.Equal(t, "worker-a", loc.Host)

	v1, err := b.NewVersion("psco1")
	require.NoError(t, err)
	v2, err := b.NewVersion("psco1")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}
