package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// SeedIfEmpty inserts catalog when the repository holds no products and
// returns how many were inserted. A non-empty catalog is left untouched, so
// running it on every start is safe.
func SeedIfEmpty(ctx context.Context, repo Repository, catalog []Product) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	if n > 0 {
		return 0, nil
	}
	return Seed(ctx, repo, catalog)
}

// Seed inserts every product of catalog. Ids are assigned by the repository
// and missing creation times are set to now.
func Seed(ctx context.Context, repo Repository, catalog []Product) (int, error) {
	now := time.Now().UTC()
	for i := range catalog {
		p := catalog[i]
		p.ID = ""
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if err := repo.Create(ctx, &p); err != nil {
			return i, errors.Wrapf(err, "seed product %q", p.Name)
		}
	}
	return len(catalog), nil
}
