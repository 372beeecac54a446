// Package storage defines the document store used by the catalog and asset
// repositories. A store keeps opaque JSON documents grouped by collection and
// addressed by a store-assigned identifier.
package storage

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Collection names used by the application.
const (
	Products = "products"
	Images   = "images"
)

// ErrNotFound is returned when no document exists for the requested id.
var ErrNotFound = errors.New("document not found")

// Record is a stored document together with its identifier.
type Record struct {
	ID        string
	Doc       []byte
	CreatedAt time.Time
}

// Store is a key-indexed document repository.
//
// Documents are JSON objects. The store never interprets their contents; the
// identifier lives outside the document and is assigned on Insert.
// Implementations must be safe for concurrent use. Replace is a blind
// overwrite, so concurrent writers to the same id resolve as last-write-wins.
type Store interface {
	Insert(ctx context.Context, collection string, doc []byte) (string, error)
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Replace(ctx context.Context, collection, id string, doc []byte) error
	// Delete removes the document and returns its last contents.
	Delete(ctx context.Context, collection, id string) ([]byte, error)
	// Scan returns every document of the collection in insertion order.
	Scan(ctx context.Context, collection string) ([]Record, error)
	Count(ctx context.Context, collection string) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
