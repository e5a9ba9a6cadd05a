package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/libris-go/config"
)

func newTestStore(t *testing.T) *DiskStore {
	store, err := NewDiskStore(&config.StorageConfig{
		MediaDir:      t.TempDir(),
		PublicBaseURL: "/media/",
	})
	require.NoError(t, err)
	return store
}

func TestDiskStore_PutReturnsPublicURL(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Put(context.Background(), "covers/abc.png", []byte{0x89, 0x50})
	require.NoError(t, err)
	assert.Equal(t, "/media/covers/abc.png", url)

	data, err := os.ReadFile(filepath.Join(store.Root(), "covers", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50}, data)
}

func TestDiskStore_PutNormalizesTraversal(t *testing.T) {
	store := newTestStore(t)

	url, err := store.Put(context.Background(), "../../etc/passwd", []byte("nope"))
	require.NoError(t, err)
	// The traversal prefix is stripped; the object lands inside the root.
	assert.Equal(t, "/media/etc/passwd", url)
	_, err = os.Stat(filepath.Join(store.Root(), "etc", "passwd"))
	assert.NoError(t, err)
}

func TestDiskStore_PutRejectsEmptyPath(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Put(context.Background(), "", []byte("x"))
	assert.Error(t, err)
}
