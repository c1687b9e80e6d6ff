package blobstore

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := store.Write("asset-1", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, store.Path("asset-1"), path)

	data, err := store.Read("asset-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	_, err = store.Write("asset-1", []byte("hello"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "asset-1", entries[0].Name())
}

func TestReadMissing(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Read("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestExists(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, store.Exists("asset-1"))

	_, err = store.Write("asset-1", []byte("hello"))
	require.NoError(t, err)
	assert.True(t, store.Exists("asset-1"))
}

func TestRemove(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Write("asset-1", []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, store.Remove("asset-1"))
	assert.False(t, store.Exists("asset-1"))

	// Removing an asset that was never written is fine.
	require.NoError(t, store.Remove("asset-2"))
}

func TestNewCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "assets")
	_, err := New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
