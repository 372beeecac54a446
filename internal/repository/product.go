package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository on a document store.
type ProductRepository struct {
	store storage.Store
}

// NewProductRepository returns a ProductRepository that uses the given store.
func NewProductRepository(store storage.Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// List returns all products in insertion order.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	records, err := r.store.Scan(ctx, storage.Products)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products := make([]product.Product, len(records))
	for i, rec := range records {
		p, err := decodeProduct(rec.ID, rec.Doc)
		if err != nil {
			return nil, err
		}
		products[i] = p
	}
	return products, nil
}

// Get returns a single product by its identifier.
func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	doc, err := r.store.Get(ctx, storage.Products, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := decodeProduct(id, doc)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p and sets its id.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	id, err := r.store.Insert(ctx, storage.Products, encodeProduct(*p))
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	p.ID = id
	return nil
}

// Replace overwrites the stored document of p.
func (r *ProductRepository) Replace(ctx context.Context, p *product.Product) error {
	if err := r.store.Replace(ctx, storage.Products, p.ID, encodeProduct(*p)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return product.ErrNotFound
		}
		return fmt.Errorf("replacing product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.store.Delete(ctx, storage.Products, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return product.ErrNotFound
		}
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	return nil
}

// Count returns the number of stored products.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.store.Count(ctx, storage.Products)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// encodeProduct renders the stored document. The id lives outside it.
func encodeProduct(p product.Product) []byte {
	p.ID = ""
	var e jx.Encoder
	p.Encode(&e)
	return e.Bytes()
}

func decodeProduct(id string, doc []byte) (product.Product, error) {
	var p product.Product
	if err := p.Decode(jx.DecodeBytes(doc)); err != nil {
		return product.Product{}, fmt.Errorf("decoding product %q: %w", id, err)
	}
	p.ID = id
	return p, nil
}
