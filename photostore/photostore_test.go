package photostore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewBlobStore(ctx, "mem://", "photos/")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	data := []byte("\x89PNG fake image")
	id, err := s.Put(ctx, data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, ID(data), id)

	again, err := s.Put(ctx, data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, contentType, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "image/png", contentType)

	ids, err := s.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestBlobStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewBlobStore(ctx, "mem://", "")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, _, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "missing"))

	_, err = s.Put(ctx, nil, "image/jpeg")
	assert.Error(t, err)
}

func TestBlobStore_FileBucket(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "photos")
	s, err := NewBlobStore(ctx, "file://"+dir+"?create_dir=true", "")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	id, err := s.Put(ctx, []byte("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, id))

	require.NoError(t, s.Delete(ctx, id))
	_, _, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobStore_BadURL(t *testing.T) {
	_, err := NewBlobStore(context.Background(), "nope://bucket", "")
	assert.Error(t, err)
}
