package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDocumentRoundTrip(t *testing.T) {
	in := []byte(`{"name":"Aurora Lamp","price":4599,"rating":4.5,"colors":["#fff","#000"],"isNew":true}`)

	fields, err := fromJSON(in)
	require.NoError(t, err)

	withID := append(bson.D{{Key: "_id", Value: primitive.NewObjectID()}}, fields...)
	raw, err := bson.Marshal(withID)
	require.NoError(t, err)

	out, err := toJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(in), string(out))
}

func TestByID_RejectsMalformedHex(t *testing.T) {
	_, ok := byID("42")
	assert.False(t, ok)

	oid := primitive.NewObjectID()
	filter, ok := byID(oid.Hex())
	require.True(t, ok)
	assert.Equal(t, oid, filter[0].Value)
}
