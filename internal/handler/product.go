package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/upload"
)

// ListProducts returns every product.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		product.EncodeList(e, products)
	})
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Encode)
}

// CreateProduct accepts a multipart form with the product fields and 2 to 10
// files in "images".
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const route = "products"

	form, err := upload.Parse(w, r, h.cfg.ProductUpload)
	if err != nil {
		h.countRejected(ctx, route, err)
		writeError(ctx, w, err)
		return
	}
	defer func() { _ = form.Close() }()

	p, err := h.products.Create(ctx, product.CreateRequest{
		Name:          form.Value("name"),
		Variant:       form.Value("variant"),
		Price:         form.Value("price"),
		OriginalPrice: form.Value("originalPrice"),
		Category:      form.Value("category"),
		Colors:        form.Value("colors"),
		Rating:        form.Value("rating"),
		Reviews:       form.Value("reviews"),
		IsNew:         form.Value("isNew"),
		Badge:         form.Value("badge"),
		Images:        form.Files,
	})
	if err != nil {
		h.countRejected(ctx, route, err)
		writeError(ctx, w, err)
		return
	}
	h.countUpload(ctx, route, len(p.Images))
	writeJSON(w, http.StatusCreated, p.Encode)
}

// UpdateProduct applies a JSON partial update.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(ctx, w, &product.ValidationError{Field: "body", Reason: "is too large"})
			return
		}
		writeError(ctx, w, errors.Wrap(err, "read body"))
		return
	}
	patch, err := product.DecodePatch(data)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	p, err := h.products.Update(ctx, r.PathValue("id"), patch)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Encode)
}

// DeleteProduct removes a product. Its image files stay on disk.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
