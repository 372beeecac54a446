package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/asset"
	"github.com/xenking/storefront/internal/storage"
)

var _ asset.Repository = (*ImageRepository)(nil)

// ImageRepository implements asset.Repository on a document store.
type ImageRepository struct {
	store storage.Store
}

// NewImageRepository returns an ImageRepository that uses the given store.
func NewImageRepository(store storage.Store) *ImageRepository {
	return &ImageRepository{store: store}
}

// List returns all images in insertion order.
func (r *ImageRepository) List(ctx context.Context) ([]asset.Image, error) {
	records, err := r.store.Scan(ctx, storage.Images)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	images := make([]asset.Image, len(records))
	for i, rec := range records {
		img, err := decodeImage(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	return images, nil
}

// Create inserts img and sets its id.
func (r *ImageRepository) Create(ctx context.Context, img *asset.Image) error {
	doc := *img
	doc.ID = ""
	var e jx.Encoder
	doc.Encode(&e)

	id, err := r.store.Insert(ctx, storage.Images, e.Bytes())
	if err != nil {
		return fmt.Errorf("creating image: %w", err)
	}
	img.ID = id
	return nil
}

// Delete removes an image and returns the removed record.
func (r *ImageRepository) Delete(ctx context.Context, id string) (*asset.Image, error) {
	doc, err := r.store.Delete(ctx, storage.Images, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, asset.ErrNotFound
		}
		return nil, fmt.Errorf("deleting image %q: %w", id, err)
	}

	img, err := decodeImage(id, doc)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func decodeImage(id string, doc []byte) (asset.Image, error) {
	var img asset.Image
	if err := img.Decode(jx.DecodeBytes(doc)); err != nil {
		return asset.Image{}, fmt.Errorf("decoding image %q: %w", id, err)
	}
	img.ID = id
	return img, nil
}
