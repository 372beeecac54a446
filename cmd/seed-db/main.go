// Command seed-db loads a product catalog into the configured store.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/app"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/repository"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		ifEmpty      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "store URL (or STOREFRONT_DATABASE_URL, DATABASE_URL, MONGODB_URI env)")
	flag.StringVar(&productsFile, "products-file", "", "path to a products .json or .json.gz file (default: embedded sample catalog)")
	flag.BoolVar(&ifEmpty, "if-empty", false, "only seed when the store holds no products")
	flag.Parse()

	for _, key := range []string{"STOREFRONT_DATABASE_URL", "DATABASE_URL", "MONGODB_URI"} {
		if databaseURL != "" {
			break
		}
		databaseURL = os.Getenv(key)
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, ifEmpty); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string, ifEmpty bool) error {
	catalog, err := readCatalog(productsFile)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}

	slog.Info("connecting to store")

	store, err := app.OpenStore(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() { _ = store.Close(context.Background()) }()

	repo := repository.NewProductRepository(store)

	seed := product.Seed
	if ifEmpty {
		seed = product.SeedIfEmpty
	}
	n, err := seed(ctx, repo, catalog)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}

	slog.Info("inserted products", slog.Int("count", n), slog.Int("catalog", len(catalog)))
	return nil
}

// readCatalog decodes a product list from path. Files ending in .gz are
// decompressed first; an empty path selects the embedded sample catalog.
func readCatalog(path string) ([]product.Product, error) {
	if path == "" {
		slog.Info("using embedded sample catalog")
		return product.DecodeList(db.SampleProducts)
	}

	slog.Info("reading products file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return product.DecodeList(data)
}
