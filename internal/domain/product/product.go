package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for catalog operations.
var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrImageCount is returned when a new product has too few or too many images.
	ErrImageCount = errors.New("invalid number of images")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Product is a sellable catalog item. Prices are integer minor currency units.
type Product struct {
	ID            string
	Name          string
	Variant       string
	Price         int64
	OriginalPrice *int64
	Category      string
	Colors        []string
	Rating        float64
	Reviews       int64
	IsNew         bool
	Badge         *string
	CreatedAt     time.Time
	// Images are blob filenames in upload order.
	Images []string
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	// Create persists p and sets p.ID.
	Create(ctx context.Context, p *Product) error
	// Replace overwrites the stored product with the same ID.
	Replace(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
