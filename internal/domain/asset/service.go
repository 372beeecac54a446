package asset

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/upload"
)

// Blobs writes and removes uploaded files.
type Blobs interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (upload.Stored, error)
	Remove(name string) error
}

// Service implements image upload, listing and deletion.
type Service struct {
	repo  Repository
	blobs Blobs
	now   func() time.Time
}

// NewService creates an asset Service.
func NewService(repo Repository, blobs Blobs) *Service {
	return &Service{repo: repo, blobs: blobs, now: time.Now}
}

// Upload stores fh and records its metadata. If the metadata cannot be
// written the file is removed again.
func (s *Service) Upload(ctx context.Context, fh *multipart.FileHeader) (*Image, error) {
	stored, err := s.blobs.Save(ctx, fh)
	if err != nil {
		return nil, errors.Wrap(err, "save image")
	}

	img := &Image{
		Filename:  stored.Filename,
		Path:      stored.Path,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, img); err != nil {
		_ = s.blobs.Remove(stored.Filename)
		return nil, errors.Wrap(err, "create image")
	}
	return img, nil
}

// SaveBlob stores fh without recording metadata.
func (s *Service) SaveBlob(ctx context.Context, fh *multipart.FileHeader) (upload.Stored, error) {
	stored, err := s.blobs.Save(ctx, fh)
	if err != nil {
		return upload.Stored{}, errors.Wrap(err, "save blob")
	}
	return stored, nil
}

// List returns every image record.
func (s *Service) List(ctx context.Context) ([]Image, error) {
	images, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list images")
	}
	return images, nil
}

// Delete removes the image record and then its file. A file that cannot be
// removed yields a *BlobRemovalError carrying the already deleted record.
func (s *Service) Delete(ctx context.Context, id string) (*Image, error) {
	img, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "delete image %q", id)
	}
	if err := s.blobs.Remove(img.Filename); err != nil {
		return img, &BlobRemovalError{Image: img, Err: err}
	}
	return img, nil
}
