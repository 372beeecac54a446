package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/storage"
	"github.com/xenking/storefront/internal/storage/storagetest"
)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	n, err := s.Count(ctx, storage.Products)
	require.NoError(t, err)
	assert.Zero(t, n)

	id1, err := s.Insert(ctx, storage.Products, []byte(`{"name":"a"}`))
	require.NoError(t, err)
	id2, err := s.Insert(ctx, storage.Products, []byte(`{"name":"b"}`))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	doc, err := s.Get(ctx, storage.Products, id1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a"}`, string(doc))

	require.NoError(t, s.Replace(ctx, storage.Products, id1, []byte(`{"name":"c"}`)))
	doc, err = s.Get(ctx, storage.Products, id1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"c"}`, string(doc))

	recs, err := s.Scan(ctx, storage.Products)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, id1, recs[0].ID)
	assert.Equal(t, id2, recs[1].ID)

	deleted, err := s.Delete(ctx, storage.Products, id1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"c"}`, string(deleted))

	_, err = s.Get(ctx, storage.Products, id1)
	require.ErrorIs(t, err, storage.ErrNotFound)

	n, err = s.Count(ctx, storage.Products)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_MissingDocument(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, storage.Images, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.Replace(ctx, storage.Images, "nope", []byte(`{}`))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Delete(ctx, storage.Images, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	recs, err := s.Scan(ctx, storage.Images)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, storage.Products, []byte(`{}`))
	require.NoError(t, err)

	_, err = s.Get(ctx, storage.Images, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	doc := []byte(`{"a":1}`)
	id, err := s.Insert(ctx, storage.Products, doc)
	require.NoError(t, err)
	doc[2] = 'b'

	got, err := s.Get(ctx, storage.Products, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, "memory", New())
}
