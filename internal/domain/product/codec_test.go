package product

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_EncodeOmitsEmptyOptionals(t *testing.T) {
	p := Product{
		Name:      "Mug",
		Variant:   "350ml",
		Price:     1800,
		Category:  "kitchen",
		Colors:    []string{"#fff"},
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var e jx.Encoder
	p.Encode(&e)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(e.Bytes(), &raw))
	assert.NotContains(t, raw, "id")
	assert.NotContains(t, raw, "originalPrice")
	assert.NotContains(t, raw, "badge")
	assert.Equal(t, "2024-01-02T03:04:05Z", raw["createdAt"])
	assert.Equal(t, []any{}, raw["images"])
	assert.Equal(t, false, raw["isNew"])
}

func TestProduct_DecodeRoundTrip(t *testing.T) {
	orig, badge := int64(2500), "Sale"
	p := Product{
		ID:            "abc",
		Name:          "Backpack",
		Variant:       "22L",
		Price:         1999,
		OriginalPrice: &orig,
		Category:      "bags",
		Colors:        []string{"#000", "#fff"},
		Rating:        4.25,
		Reviews:       7,
		IsNew:         true,
		Badge:         &badge,
		CreatedAt:     time.Date(2024, 6, 1, 12, 30, 0, 123, time.UTC),
		Images:        []string{"a.png", "b.png"},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got Product
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, p, got)
}

func TestDecodePatch(t *testing.T) {
	t.Run("string price", func(t *testing.T) {
		patch, err := DecodePatch([]byte(`{"price":"1500"}`))
		require.NoError(t, err)
		assert.True(t, patch.Price.Set)
		assert.Equal(t, int64(1500), patch.Price.Value)
	})

	t.Run("null clears optional fields", func(t *testing.T) {
		orig, badge := int64(10), "x"
		p := Product{OriginalPrice: &orig, Badge: &badge}

		patch, err := DecodePatch([]byte(`{"originalPrice":null,"badge":null}`))
		require.NoError(t, err)
		patch.Apply(&p)
		assert.Nil(t, p.OriginalPrice)
		assert.Nil(t, p.Badge)
	})

	t.Run("unknown fields ignored", func(t *testing.T) {
		patch, err := DecodePatch([]byte(`{"__v":3,"stock":{"a":1}}`))
		require.NoError(t, err)
		assert.True(t, patch.Empty())
	})

	errCases := map[string]struct {
		body  string
		field string
	}{
		"null name":       {`{"name":null}`, "name"},
		"number name":     {`{"name":12}`, "name"},
		"fraction price":  {`{"price":12.5}`, "price"},
		"bool price":      {`{"price":true}`, "price"},
		"colors object":   {`{"colors":{"a":"b"}}`, "colors"},
		"array body":      {`[1,2]`, "body"},
		"truncated":       {`{"name":"x"`, "body"},
		"trailing junk":   {`{"name":"x"} junk`, "body"},
		"second object":   {`{"name":"x"}{}`, "body"},
		"reviews as text": {`{"reviews":"many"}`, "reviews"},
	}
	for name, tc := range errCases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePatch([]byte(tc.body))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestParseMinor(t *testing.T) {
	v, err := ParseMinor("price", "1200")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	v, err = ParseMinor("price", "1200.00")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v)

	for _, bad := range []string{"", "abc", "1.5", "-3", "99999999999999999999"} {
		_, err := ParseMinor("price", bad)
		assert.Error(t, err, bad)
	}
}
