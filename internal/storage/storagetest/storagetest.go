// Package storagetest holds the behaviour every storage.Store backend must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/storage"
)

// Run exercises s against the store contract. The collections used are
// prefixed with name so that backends sharing a database do not collide.
func Run(t *testing.T, name string, s storage.Store) {
	t.Helper()
	ctx := context.Background()
	coll := name + "_contract"

	t.Run("InsertGetReplaceDelete", func(t *testing.T) {
		id, err := s.Insert(ctx, coll, []byte(`{"name":"lamp","price":1999,"tags":["a","b"]}`))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		doc, err := s.Get(ctx, coll, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"lamp","price":1999,"tags":["a","b"]}`, string(doc))

		require.NoError(t, s.Replace(ctx, coll, id, []byte(`{"name":"desk lamp","price":2499,"tags":[]}`)))
		doc, err = s.Get(ctx, coll, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"desk lamp","price":2499,"tags":[]}`, string(doc))

		deleted, err := s.Delete(ctx, coll, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"desk lamp","price":2499,"tags":[]}`, string(deleted))

		_, err = s.Get(ctx, coll, id)
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.Delete(ctx, coll, id)
		require.ErrorIs(t, err, storage.ErrNotFound)
		require.ErrorIs(t, s.Replace(ctx, coll, id, []byte(`{}`)), storage.ErrNotFound)
	})

	t.Run("UnknownID", func(t *testing.T) {
		_, err := s.Get(ctx, coll, "not-an-id")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ScanAndCount", func(t *testing.T) {
		scanColl := coll + "_scan"
		n, err := s.Count(ctx, scanColl)
		require.NoError(t, err)
		require.Zero(t, n)

		var ids []string
		for _, doc := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
			id, err := s.Insert(ctx, scanColl, []byte(doc))
			require.NoError(t, err)
			ids = append(ids, id)
		}

		recs, err := s.Scan(ctx, scanColl)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		for i, rec := range recs {
			assert.Equal(t, ids[i], rec.ID)
			assert.False(t, rec.CreatedAt.IsZero())
		}
		assert.JSONEq(t, `{"n":1}`, string(recs[0].Doc))

		n, err = s.Count(ctx, scanColl)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("ConcurrentReplaceLastWriteWins", func(t *testing.T) {
		id, err := s.Insert(ctx, coll, []byte(`{"v":0}`))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, doc := range []string{`{"v":1}`, `{"v":2}`} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Replace(ctx, coll, id, []byte(doc)))
			}()
		}
		wg.Wait()

		doc, err := s.Get(ctx, coll, id)
		require.NoError(t, err)
		assert.Contains(t, []string{`{"v":1}`, `{"v":2}`}, compact(doc))
	})

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})
}

func compact(doc []byte) string {
	out := make([]byte, 0, len(doc))
	for _, c := range doc {
		if c == ' ' || c == '\n' || c == '\t' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
