package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_RoundTrip(t *testing.T) {
	fsys := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, fsys.MkdirAll(dir, 0755))

	path := filepath.Join(dir, "clutter.gz")
	require.NoError(t, fsys.WriteFile(path, []byte("baseline"), 0644))
	assert.True(t, fsys.Exists(path))
	assert.False(t, fsys.Exists(filepath.Join(dir, "missing")))

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "baseline", string(data))

	w, err := fsys.Create(filepath.Join(dir, "created"))
	require.NoError(t, err)
	_, err = w.Write([]byte("chunk"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := fsys.Stat(filepath.Join(dir, "created"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, info.Size())
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/test.txt", []byte("hello, world"), 0644))

	data, err := mfs.ReadFile("/test.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	// mutating the returned slice must not affect the stored file
	data[0] = 'X'
	again, _ := mfs.ReadFile("/test.txt")
	assert.Equal(t, "hello, world", string(again))
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()
	w, err := mfs.Create("/created.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("created content"))
	require.NoError(t, err)

	data, _ := mfs.ReadFile("/created.txt")
	assert.Empty(t, data)

	require.NoError(t, w.Close())
	data, err = mfs.ReadFile("/created.txt")
	require.NoError(t, err)
	assert.Equal(t, "created content", string(data))
}

func TestMemoryFileSystem_StatAndMkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/logs/session/frames", 0755))

	for _, dir := range []string{"/logs", "/logs/session", "/logs/session/frames"} {
		info, err := mfs.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}

	_, err := mfs.Stat("/nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMemoryFileSystem_FailReads(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/locked", []byte("x"), 0644))
	mfs.FailReads("/locked", fs.ErrPermission)

	_, err := mfs.ReadFile("/locked")
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestReadFileLimited(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/small", []byte("1234"), 0644))
	require.NoError(t, mfs.MkdirAll("/dir", 0755))

	data, err := ReadFileLimited(mfs, "/small", 4)
	require.NoError(t, err)
	assert.Equal(t, "1234", string(data))

	_, err = ReadFileLimited(mfs, "/small", 3)
	assert.ErrorContains(t, err, "too large")

	_, err = ReadFileLimited(mfs, "/dir", 10)
	assert.ErrorContains(t, err, "directory")

	_, err = ReadFileLimited(mfs, "/missing", 10)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
