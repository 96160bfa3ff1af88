package mmap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forensix/scancore/internal/mmap"
)

func TestMap_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")
	want := []byte("aaaaaaaaaaaaaaaabbbbbbbbbbbbbbbb")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	data, closeFn, err := mmap.Map(path)
	require.NoError(t, err)
	require.Equal(t, want, data)
	require.NoError(t, closeFn())
	require.NoError(t, closeFn(), "closing twice must not error")
}

func TestMap_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	data, closeFn, err := mmap.Map(path)
	require.NoError(t, err)
	require.Empty(t, data)
	require.NoError(t, closeFn())
}

func TestMap_MissingFile(t *testing.T) {
	_, _, err := mmap.Map(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
