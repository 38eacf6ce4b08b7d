package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreUpload(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Upload(context.Background(), []byte("image-bytes"), "image/jpeg",
		FolderArtworks, "art_7")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, FolderArtworks+"/art_7-"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	data, err := os.ReadFile(filepath.Join(store.BaseDir(), key))
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)

	assert.Equal(t, "/static/"+key, store.PublicURL(key))
}

func TestLocalStoreUniqueKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		key, err := store.Upload(context.Background(), []byte("x"), "image/png",
			FolderProfilePhotos, "u_1")
		require.NoError(t, err)
		assert.False(t, seen[key], "key %s issued twice", key)
		seen[key] = true
	}
}

func TestLocalStoreLeavesNoTempFiles(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), []byte("x"), "image/png",
		FolderArtworks, "art_1")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(store.BaseDir(), FolderArtworks))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestExtFromContentType(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":               "jpg",
		"image/png":                "png",
		"image/gif":                "gif",
		"image/webp":               "webp",
		"application/octet-stream": "octet-stream",
		"":                         "bin",
	}
	for contentType, want := range cases {
		assert.Equal(t, want, extFromContentType(contentType), "content type %q", contentType)
	}
}
