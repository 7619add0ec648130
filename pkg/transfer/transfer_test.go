package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/types"
)

type fakeListener struct {
	fetched bool
	failed  types.FailureClass
}

func (l *fakeListener) FetchedValue(types.DataInstanceID)                         { l.fetched = true }
func (l *fakeListener) ErrorFetchingValue(_ types.DataInstanceID, c types.FailureClass) { l.failed = c }

func TestLocalProviderPreserveSourceCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	p := NewLocalProvider()
	l := &fakeListener{}
	param := types.Parameter{TypeTag: types.FILE, PreserveSource: true}

	require.NoError(t, p.AskForTransfer(context.Background(), param, "d1_v1", src, dst, l))
	assert.True(t, l.fetched)

	_, err := os.Stat(src)
	assert.NoError(t, err, "preserveSource must leave the source file in place")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLocalProviderConsumesSourceByDefault(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	p := NewLocalProvider()
	l := &fakeListener{}
	param := types.Parameter{TypeTag: types.FILE}

	require.NoError(t, p.AskForTransfer(context.Background(), param, "d2_v1", src, dst, l))
	assert.True(t, l.fetched)

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "consuming a transfer must remove the source file")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLocalProviderSamePathShortCircuits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	p := NewLocalProvider()
	l := &fakeListener{}
	param := types.Parameter{TypeTag: types.FILE}

	require.NoError(t, p.AskForTransfer(context.Background(), param, "d3_v1", path, path, l))
	assert.True(t, l.fetched)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLocalProviderNoSourceIsFatal(t *testing.T) {
	p := NewLocalProvider()
	l := &fakeListener{}
	param := types.Parameter{TypeTag: types.FILE}

	err := p.AskForTransfer(context.Background(), param, "d4_v1", "", "dst", l)
	assert.ErrorIs(t, err, types.ErrNoSources)
	assert.Equal(t, types.FailureFatal, l.failed)
}
