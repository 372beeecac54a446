// Package mongo implements storage.Store on MongoDB. Each logical collection
// maps to a Mongo collection and ids are hex-encoded ObjectIDs.
package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/xenking/storefront/internal/storage"
)

// DefaultDatabase is used when the connection URI names no database.
const DefaultDatabase = "storefront"

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store backed by MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and verifies the connection.
func Open(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing mongo uri: %w", err)
	}
	name := cs.Database
	if name == "" {
		name = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(name)}, nil
}

// Insert stores doc under a new ObjectID.
func (s *Store) Insert(ctx context.Context, collection string, doc []byte) (string, error) {
	fields, err := fromJSON(doc)
	if err != nil {
		return "", err
	}
	oid := primitive.NewObjectID()
	fields = append(bson.D{{Key: "_id", Value: oid}}, fields...)

	if _, err := s.db.Collection(collection).InsertOne(ctx, fields); err != nil {
		return "", fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return oid.Hex(), nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	filter, ok := byID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	raw, err := s.db.Collection(collection).FindOne(ctx, filter).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s %q: %w", collection, id, err)
	}
	return toJSON(raw)
}

// Replace overwrites the document stored under id.
func (s *Store) Replace(ctx context.Context, collection, id string, doc []byte) error {
	filter, ok := byID(id)
	if !ok {
		return storage.ErrNotFound
	}
	fields, err := fromJSON(doc)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(collection).ReplaceOne(ctx, filter, fields)
	if err != nil {
		return fmt.Errorf("replacing %s %q: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes the document and returns its last contents.
func (s *Store) Delete(ctx context.Context, collection, id string) ([]byte, error) {
	filter, ok := byID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	raw, err := s.db.Collection(collection).FindOneAndDelete(ctx, filter).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("deleting %s %q: %w", collection, id, err)
	}
	return toJSON(raw)
}

// Scan returns every document ordered by ObjectID, which is insertion order
// for ids generated by this process.
func (s *Store) Scan(ctx context.Context, collection string) ([]storage.Record, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", collection, err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []storage.Record{}
	for cur.Next(ctx) {
		oid, ok := cur.Current.Lookup("_id").ObjectIDOK()
		if !ok {
			continue
		}
		doc, err := toJSON(cur.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, storage.Record{
			ID:        oid.Hex(),
			Doc:       doc,
			CreatedAt: oid.Timestamp(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", collection, err)
	}
	return out, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func byID(id string) (bson.D, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}}, true
}

func fromJSON(doc []byte) (bson.D, error) {
	var fields bson.D
	if err := bson.UnmarshalExtJSON(doc, false, &fields); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return fields, nil
}

// toJSON renders a stored document as relaxed extended JSON without _id.
func toJSON(raw bson.Raw) ([]byte, error) {
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	out := fields[:0]
	for _, e := range fields {
		if e.Key == "_id" {
			continue
		}
		out = append(out, e)
	}
	doc, err := bson.MarshalExtJSON(out, false, false)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return doc, nil
}
