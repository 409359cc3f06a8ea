package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestMoveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in", "book.m4b")
	dst := filepath.Join(dir, "lib", "Author", "Book", "book.m4b")
	writeFile(t, src, "audio")

	require.NoError(t, MoveFile(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(content))
	assert.NoFileExists(t, src)
}

func TestBackupRestoreRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")

	t.Run("missing source is not an error", func(t *testing.T) {
		made, err := BackupFile(filepath.Join(dir, "absent.epub"))
		require.NoError(t, err)
		assert.False(t, made)
	})

	writeFile(t, path, "v1")
	made, err := BackupFile(path)
	require.NoError(t, err)
	assert.True(t, made)
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, ".book.epub.bak"))

	// A failed overwrite restores the original.
	writeFile(t, path, "partial")
	require.NoError(t, RestoreBackup(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))

	made, err = BackupFile(path)
	require.NoError(t, err)
	assert.True(t, made)
	require.NoError(t, RemoveBackup(path))
	assert.NoFileExists(t, filepath.Join(dir, ".book.epub.bak"))

	// Removing an already-gone backup is fine.
	require.NoError(t, RemoveBackup(path))
}

func TestPruneEmptyDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	leaf := filepath.Join(root, "Author", "Series", "Book")
	require.NoError(t, os.MkdirAll(leaf, 0o755))
	writeFile(t, filepath.Join(root, "Author", "other.epub"), "x")

	require.NoError(t, PruneEmptyDirs(leaf, root))

	assert.NoDirExists(t, filepath.Join(root, "Author", "Series"))
	// Author still holds a file, so it and the root survive.
	assert.DirExists(t, filepath.Join(root, "Author"))
	assert.DirExists(t, root)
}

func TestPruneEmptyDirsNeverTouchesRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	leaf := filepath.Join(root, "Author")
	require.NoError(t, os.MkdirAll(leaf, 0o755))

	require.NoError(t, PruneEmptyDirs(leaf, root))
	assert.NoDirExists(t, leaf)
	assert.DirExists(t, root)
}
