package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument(t *testing.T) {
	doc := Document("test", Limits{MinImages: 2, MaxImages: 10})
	require.NoError(t, doc.Validate(t.Context()))

	assert.Len(t, doc.Paths.Map(), 5)
	item := doc.Paths.Find("/api/products/{id}")
	require.NotNil(t, item)
	assert.NotNil(t, item.Get)
	assert.NotNil(t, item.Put)
	assert.NotNil(t, item.Delete)

	create := doc.Paths.Find("/api/products").Post
	require.NotNil(t, create)
	images := create.RequestBody.Value.Content.Get("multipart/form-data").Schema.Value.Properties["images"].Value
	assert.Equal(t, uint64(2), images.MinItems)
	require.NotNil(t, images.MaxItems)
	assert.Equal(t, uint64(10), *images.MaxItems)
}

func TestHandler(t *testing.T) {
	h, err := Handler(Document("1.2.3", Limits{MinImages: 2, MaxImages: 10}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, Path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "3.0.3", body.OpenAPI)
	assert.Equal(t, "1.2.3", body.Info.Version)
}
