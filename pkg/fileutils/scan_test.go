package fileutils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.m4b"), "x")
	writeFile(t, filepath.Join(dir, "sub", "b.MP3"), "x")
	writeFile(t, filepath.Join(dir, "sub", "c.epub"), "x")
	writeFile(t, filepath.Join(dir, ".hidden.m4b"), "x")
	writeFile(t, filepath.Join(dir, "noext"), "x")

	byExt, err := ListByExtension(dir)
	require.NoError(t, err)

	assert.Len(t, byExt[".m4b"], 1)
	assert.Len(t, byExt[".mp3"], 1)
	assert.Len(t, byExt[".epub"], 1)
	assert.NotContains(t, byExt, "")
}

func TestListByExtensionMissingDir(t *testing.T) {
	t.Parallel()

	byExt, err := ListByExtension(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, byExt)
}

func TestPickDominant(t *testing.T) {
	t.Parallel()

	ratings := []string{".m4b", ".mp3", ".flac"}

	// Most frequent extension wins over a better-rated one.
	byExt := map[string][]string{
		".m4b": {"a.m4b"},
		".mp3": {"b.mp3", "c.mp3"},
	}
	assert.Equal(t, []string{"b.mp3", "c.mp3"}, PickDominant(byExt, ratings))

	// Ties go to the earlier-rated extension.
	byExt = map[string][]string{
		".mp3": {"b.mp3"},
		".m4b": {"a.m4b"},
	}
	assert.Equal(t, []string{"a.m4b"}, PickDominant(byExt, ratings))

	// Unrated extensions are ignored entirely.
	byExt = map[string][]string{".wav": {"x.wav"}}
	assert.Nil(t, PickDominant(byExt, ratings))
}

func TestPickAll(t *testing.T) {
	t.Parallel()

	byExt := map[string][]string{
		".epub": {"a.epub"},
		".pdf":  {"b.pdf"},
		".txt":  {"c.txt"},
	}

	got := PickAll(byExt, []string{".epub", ".mobi", ".pdf"})
	assert.Equal(t, []string{"a.epub", "b.pdf"}, got)
}
