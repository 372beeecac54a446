// Package handler implements the storefront REST API on net/http.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/asset"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/upload"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// maxJSONBody caps PUT bodies.
const maxJSONBody = 1 << 20

// Config holds the per-route upload limits.
type Config struct {
	ProductUpload upload.Policy
	ImageUpload   upload.Policy
	BlogUpload    upload.Policy
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ProductUpload: upload.Policy{Field: "images", MaxBytes: 20 << 20, MaxFiles: product.DefaultMaxImages},
		ImageUpload:   upload.Policy{Field: "image", MaxBytes: 5 << 20, MaxFiles: 1},
		BlogUpload:    upload.Policy{Field: "image", MaxBytes: 5 << 20, MaxFiles: 1},
	}
}

// Handler serves the catalog and asset routes under /api.
type Handler struct {
	cfg      Config
	products *product.Service
	assets   *asset.Service

	uploads  metric.Int64Counter
	rejected metric.Int64Counter
}

// New constructs a Handler. Metrics are recorded with meter.
func New(cfg Config, products *product.Service, assets *asset.Service, meter metric.Meter) (*Handler, error) {
	uploads, err := meter.Int64Counter("storefront.uploads",
		metric.WithDescription("Files accepted by upload routes"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "uploads counter")
	}
	rejected, err := meter.Int64Counter("storefront.uploads.rejected",
		metric.WithDescription("Upload requests rejected by validation"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "rejected counter")
	}
	return &Handler{
		cfg:      cfg,
		products: products,
		assets:   assets,
		uploads:  uploads,
		rejected: rejected,
	}, nil
}

// Register mounts the API routes on mux. limit wraps the routes that accept
// uploads.
func (h *Handler) Register(mux *http.ServeMux, limit httpmiddleware.Middleware) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.Handle("POST /api/products", limit(http.HandlerFunc(h.CreateProduct)))
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)

	mux.Handle("POST /api/uploads-blog", limit(http.HandlerFunc(h.UploadBlog)))
	mux.Handle("POST /api/images", limit(http.HandlerFunc(h.UploadImage)))
	mux.HandleFunc("GET /api/images", h.ListImages)
	mux.HandleFunc("DELETE /api/images/{id}", h.DeleteImage)
}

func (h *Handler) countUpload(ctx context.Context, route string, files int) {
	h.uploads.Add(ctx, int64(files), metric.WithAttributes(attribute.String("route", route)))
}

func (h *Handler) countRejected(ctx context.Context, route string, err error) {
	h.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("reason", classify(err).code),
	))
}

// writeJSON renders the value written by fn.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// apiError is a classified failure.
type apiError struct {
	status  int
	code    string
	message string
}

func classify(err error) apiError {
	var verr *product.ValidationError
	switch {
	case errors.As(err, &verr):
		return apiError{http.StatusBadRequest, "validation_error", verr.Error()}
	case errors.Is(err, product.ErrImageCount):
		return apiError{http.StatusBadRequest, "invalid_image_count", err.Error()}
	case errors.Is(err, upload.ErrTooLarge):
		return apiError{http.StatusBadRequest, "file_too_large", err.Error()}
	case errors.Is(err, upload.ErrTooManyFiles):
		return apiError{http.StatusBadRequest, "too_many_files", err.Error()}
	case errors.Is(err, upload.ErrUnsupportedType):
		return apiError{http.StatusBadRequest, "unsupported_file_type", upload.ErrUnsupportedType.Error()}
	case errors.Is(err, upload.ErrMissingFile):
		return apiError{http.StatusBadRequest, "missing_file", "no file uploaded"}
	case errors.Is(err, upload.ErrMalformed):
		return apiError{http.StatusBadRequest, "bad_request", "request must be multipart/form-data"}
	case errors.Is(err, product.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "product not found"}
	case errors.Is(err, asset.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "image not found"}
	default:
		return apiError{http.StatusInternalServerError, "internal", "internal server error"}
	}
}

// writeError maps err to a status and the JSON error envelope. Server-side
// failures are logged; their details never reach the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		zctx.From(ctx).Error("Request failed", zap.Error(err))
	}
	writeJSON(w, e.status, func(enc *jx.Encoder) {
		encodeError(enc, e.code, e.message)
		enc.ObjEnd()
	})
}

// encodeError opens an object and writes the error fields. The caller
// closes the object, so extra fields can follow.
func encodeError(e *jx.Encoder, code, message string) {
	e.ObjStart()
	e.FieldStart("error")
	e.Str(code)
	e.FieldStart("message")
	e.Str(message)
}
