package datamanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxrun/fluxrun/pkg/storage"
	"github.com/fluxrun/fluxrun/pkg/transfer"
	"github.com/fluxrun/fluxrun/pkg/types"
)

func TestStoreThenLoadObject(t *testing.T) {
	m := New("w1", t.TempDir(), transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	renaming := types.DataInstanceID("d1_v1")
	require.NoError(t, m.StoreParam(types.Parameter{TypeTag: types.OBJECT}, renaming, 42))

	v, err := m.LoadParam(renaming)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestStoreFileAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	m := New("w1", dir, transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	renaming := types.DataInstanceID("d1_v1")

	require.NoError(t, m.StoreParam(types.Parameter{TypeTag: types.FILE}, renaming, []byte("hello")))

	v, err := m.LoadParam(renaming)
	require.NoError(t, err)
	path, ok := v.(string)
	require.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, filepath.Join(dir, string(renaming)), path)
}

func TestFetchParamFileCollapsesDuplicates(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(srcPath, []byte("data"), 0o644))

	m := New("w1", dir, transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	renaming := types.DataInstanceID("d2_v1")
	param := types.Parameter{TypeTag: types.FILE}

	errs := make(chan error, 2)
	go func() { errs <- m.FetchParam(context.Background(), param, renaming, "", srcPath) }()
	go func() { errs <- m.FetchParam(context.Background(), param, renaming, "", srcPath) }()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	reg, ok := m.GetObject(renaming)
	require.True(t, ok)
	assert.Equal(t, 2, reg.Refcount)
}

func TestRemoveObsoletesDeletesFile(t *testing.T) {
	dir := t.TempDir()
	m := New("w1", dir, transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	renaming := types.DataInstanceID("d3_v1")
	require.NoError(t, m.StoreParam(types.Parameter{TypeTag: types.FILE}, renaming, []byte("x")))

	v, _ := m.LoadParam(renaming)
	path := v.(string)
	_, err := os.Stat(path)
	require.NoError(t, err)

	m.RemoveObsoletes([]types.DataInstanceID{renaming})

	_, ok := m.GetObject(renaming)
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadParamUnknownRenaming(t *testing.T) {
	m := New("w1", t.TempDir(), transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	_, err := m.LoadParam("nope")
	assert.ErrorIs(t, err, types.ErrUnknownData)
}

func TestFetchParamFilePreserveSourceKeepsSourceResident(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(srcPath, []byte("data"), 0o644))

	m := New("w1", dir, transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	renaming := types.DataInstanceID("d4_v1")
	param := types.Parameter{TypeTag: types.FILE, PreserveSource: true}

	require.NoError(t, m.FetchParam(context.Background(), param, renaming, "", srcPath))

	_, err := os.Stat(srcPath)
	assert.NoError(t, err, "preserveSource must leave the source file in place")
	_, err = os.Stat(filepath.Join(dir, string(renaming)))
	assert.NoError(t, err, "fetch must materialize the destination")
}

func TestFetchParamFileConsumesSourceWhenNotPreserved(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source")
	require.NoError(t, os.WriteFile(srcPath, []byte("data"), 0o644))

	m := New("w1", dir, transfer.NewLocalProvider(), &storage.NoopBackend{}, true)
	renaming := types.DataInstanceID("d5_v1")
	param := types.Parameter{TypeTag: types.FILE, PreserveSource: false}

	require.NoError(t, m.FetchParam(context.Background(), param, renaming, "", srcPath))

	_, err := os.Stat(srcPath)
	assert.True(t, os.IsNotExist(err), "consuming a fetch must remove the source file")
}

func TestFetchBindingObjectServesFromBindingCache(t *testing.T) {
	dir := t.TempDir()
	m := New("w1", dir, transfer.NewLocalProvider(), &storage.NoopBackend{}, true)

	cachedKey := types.DataInstanceID("cached-source")
	m.BindBindingObject(cachedKey, "bound-value")

	renaming := types.DataInstanceID("d6_v1")
	param := types.Parameter{TypeTag: types.BINDING_OBJECT}
	require.NoError(t, m.FetchParam(context.Background(), param, renaming, "", string(cachedKey)))

	v, err := m.LoadParam(renaming)
	require.NoError(t, err)
	assert.Equal(t, "bound-value", v)
}

func TestFetchParamCollectionWritesManifest(t *testing.T) {
	dir := t.TempDir()
	renaming := types.DataInstanceID("col_v1")
	seed := map[types.DataInstanceID]any{
		types.DataInstanceID(fmt.Sprintf("%s_0", renaming)): 1,
		types.DataInstanceID(fmt.Sprintf("%s_1", renaming)): 2,
	}
	m := New("w1", dir, transfer.NewInMemoryProvider(seed), &storage.NoopBackend{}, true)

	param := types.Parameter{
		TypeTag: types.COLLECTION,
		SubParams: []*types.Parameter{
			{TypeTag: types.PRIMITIVE, Value: 1},
			{TypeTag: types.PRIMITIVE, Value: 2},
		},
	}

	require.NoError(t, m.FetchParam(context.Background(), param, renaming, "", ""))

	reg, ok := m.GetObject(renaming)
	require.True(t, ok)
	require.Len(t, reg.FilePaths, 1)

	manifest, err := os.ReadFile(reg.FilePaths[0])
	require.NoError(t, err)
	assert.Equal(t, "7 col_v1_0\n7 col_v1_1\n", string(manifest))
}
