package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/asset"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage"
	"github.com/xenking/storefront/internal/storage/memory"
)

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewProductRepository(store)

	p := &product.Product{
		Name:      "Mug",
		Variant:   "350ml",
		Price:     1800,
		Category:  "kitchen",
		Colors:    []string{"#fff"},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Images:    []string{"a.png", "b.png"},
	}
	require.NoError(t, repo.Create(ctx, p))
	require.NotEmpty(t, p.ID)

	doc, err := store.Get(ctx, storage.Products, p.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), p.ID, "id is kept outside the document")

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *p, *got)

	got.Price = 1500
	require.NoError(t, repo.Replace(ctx, got))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1500), list[0].Price)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.Get(ctx, p.ID)
	require.ErrorIs(t, err, product.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, p.ID), product.ErrNotFound)
	require.ErrorIs(t, repo.Replace(ctx, p), product.ErrNotFound)
}

func TestProductRepository_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	id, err := store.Insert(ctx, storage.Products, []byte(`{"name":`))
	require.NoError(t, err)

	_, err = NewProductRepository(store).Get(ctx, id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, product.ErrNotFound)
}

func TestImageRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewImageRepository(memory.New())

	img := &asset.Image{
		Filename:  "1-a.png",
		Path:      "/srv/uploads/1-a.png",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, img))
	require.NotEmpty(t, img.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *img, list[0])

	deleted, err := repo.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, *img, *deleted)

	_, err = repo.Delete(ctx, img.ID)
	require.ErrorIs(t, err, asset.ErrNotFound)
}
