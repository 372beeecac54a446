// Package asset manages standalone uploaded images and blog uploads.
package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// PublicPrefix is the URL path under which blobs are served.
const PublicPrefix = "/uploads/"

// ErrNotFound is returned when a requested image does not exist.
var ErrNotFound = errors.New("image not found")

// Image is the metadata of an uploaded file.
type Image struct {
	ID        string
	Filename  string
	Path      string
	CreatedAt time.Time
}

// URL returns the public address of the image.
func (i Image) URL() string {
	return URL(i.Filename)
}

// URL returns the public address of a blob.
func URL(filename string) string {
	return PublicPrefix + filename
}

// BlobRemovalError is returned by Delete when the metadata was removed but the
// file could not be. The metadata removal is not undone.
type BlobRemovalError struct {
	Image *Image
	Err   error
}

func (e *BlobRemovalError) Error() string {
	return fmt.Sprintf("image %s deleted but file %q was not removed: %v", e.Image.ID, e.Image.Filename, e.Err)
}

func (e *BlobRemovalError) Unwrap() error { return e.Err }

// Repository defines persistence operations for image metadata.
type Repository interface {
	List(ctx context.Context) ([]Image, error)
	// Create persists img and sets img.ID.
	Create(ctx context.Context, img *Image) error
	// Delete removes the image and returns the removed record.
	Delete(ctx context.Context, id string) (*Image, error)
}
