package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/asset"
	"github.com/xenking/storefront/internal/upload"
)

// UploadImage stores a single "image" file and records it.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const route = "images"

	form, err := upload.Parse(w, r, h.cfg.ImageUpload)
	if err != nil {
		h.countRejected(ctx, route, err)
		writeError(ctx, w, err)
		return
	}
	defer func() { _ = form.Close() }()

	fh, err := form.File()
	if err != nil {
		h.countRejected(ctx, route, err)
		writeError(ctx, w, err)
		return
	}
	img, err := h.assets.Upload(ctx, fh)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.countUpload(ctx, route, 1)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Image uploaded successfully")
		e.FieldStart("image")
		img.Encode(e)
		e.ObjEnd()
	})
}

// UploadBlog stores a single "image" file for blog content. No metadata is
// kept.
func (h *Handler) UploadBlog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const route = "uploads-blog"

	form, err := upload.Parse(w, r, h.cfg.BlogUpload)
	if err != nil {
		h.countRejected(ctx, route, err)
		writeError(ctx, w, err)
		return
	}
	defer func() { _ = form.Close() }()

	fh, err := form.File()
	if err != nil {
		h.countRejected(ctx, route, err)
		writeError(ctx, w, err)
		return
	}
	stored, err := h.assets.SaveBlob(ctx, fh)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	h.countUpload(ctx, route, 1)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("File uploaded successfully")
		e.FieldStart("filename")
		e.Str(stored.Filename)
		e.FieldStart("url")
		e.Str(asset.URL(stored.Filename))
		e.ObjEnd()
	})
}

// ListImages returns every image record with its url.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.assets.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, img := range images {
			img.Encode(e)
		}
		e.ArrEnd()
	})
}

// DeleteImage removes the record and then the file. When the file cannot be
// removed the response is 500 but the record stays deleted.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	img, err := h.assets.Delete(ctx, r.PathValue("id"))
	var blobErr *asset.BlobRemovalError
	switch {
	case errors.As(err, &blobErr):
		zctx.From(ctx).Error("Image file not removed",
			zap.String("image_id", img.ID),
			zap.String("filename", img.Filename),
			zap.Error(blobErr.Err),
		)
		writeJSON(w, http.StatusInternalServerError, func(e *jx.Encoder) {
			encodeError(e, "blob_removal_failed", "image record deleted but the file could not be removed")
			e.FieldStart("image")
			img.Encode(e)
			e.ObjEnd()
		})
		return
	case err != nil:
		writeError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Image deleted successfully")
		e.FieldStart("image")
		img.Encode(e)
		e.ObjEnd()
	})
}
