package product

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/storefront/internal/upload"
)

// Image count bounds for a new product.
const (
	DefaultMinImages = 2
	DefaultMaxImages = 10
)

// Blobs writes product images.
type Blobs interface {
	SaveAll(ctx context.Context, files []*multipart.FileHeader) ([]upload.Stored, error)
	Discard(stored []upload.Stored)
}

// Config holds catalog limits.
type Config struct {
	MinImages int
	MaxImages int
}

// Service implements catalog operations on top of a Repository.
type Service struct {
	repo      Repository
	blobs     Blobs
	validate  *validator.Validate
	minImages int
	maxImages int
	now       func() time.Time
}

// NewService creates a catalog Service. Zero limits in cfg use the defaults.
func NewService(cfg Config, repo Repository, blobs Blobs) *Service {
	if cfg.MinImages <= 0 {
		cfg.MinImages = DefaultMinImages
	}
	if cfg.MaxImages <= 0 {
		cfg.MaxImages = DefaultMaxImages
	}
	return &Service{
		repo:      repo,
		blobs:     blobs,
		validate:  newValidator(),
		minImages: cfg.MinImages,
		maxImages: cfg.MaxImages,
		now:       time.Now,
	}
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return p, nil
}

// Create validates req, writes its images and persists the product. Nothing
// is written when validation fails. If persisting fails, the images are
// removed again.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	if n := len(req.Images); n < s.minImages || n > s.maxImages {
		return nil, errors.Wrapf(ErrImageCount, "got %d, want between %d and %d", n, s.minImages, s.maxImages)
	}
	p, err := req.product(s.validate)
	if err != nil {
		return nil, err
	}

	stored, err := s.blobs.SaveAll(ctx, req.Images)
	if err != nil {
		return nil, errors.Wrap(err, "save images")
	}
	p.Images = make([]string, len(stored))
	for i, st := range stored {
		p.Images[i] = st.Filename
	}
	p.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, &p); err != nil {
		s.blobs.Discard(stored)
		return nil, errors.Wrap(err, "create product")
	}
	return &p, nil
}

// Update applies patch to the stored product. Concurrent updates are not
// coordinated; the last write wins.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	patch.Apply(p)
	if err := s.repo.Replace(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "replace product %q", id)
	}
	return p, nil
}

// Delete removes a product. Its image files are left in place.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	return nil
}
