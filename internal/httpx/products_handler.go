package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductStore interface {
	List(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id int64) (catalog.Product, error)
	Create(ctx context.Context, in catalog.NewProduct) (catalog.Product, error)
	Update(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error)
}

type ImageSaver interface {
	Save(original string, r io.Reader) (string, error)
}

type ProductsHandler struct {
	Products       ProductStore
	Images         ImageSaver
	MaxUploadBytes int64
	Log            *zap.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
}

func (h *ProductsHandler) RegisterAdmin(r chi.Router) {
	r.Post("/products", h.create)
	r.Patch("/products/{id}", h.update)
	r.Post("/products/{id}/image", h.uploadImage)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Products.List(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Products.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewProduct
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.Products.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch catalog.ProductPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.Products.Update(r.Context(), id, patch)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// uploadImage takes a multipart "image" field, stores it under a new name
// and points the product at it.
func (h *ProductsHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Products.Get(r.Context(), id); err != nil {
		h.writeErr(w, err)
		return
	}

	// room for the multipart envelope around the file
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+64<<10)
	f, hdr, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, codeImageTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidImage, "image file is required")
		return
	}
	defer f.Close()

	name, err := h.Images.Save(hdr.Filename, f)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	p, err := h.Products.Update(r.Context(), id, catalog.ProductPatch{Image: &name})
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "product not found")
	case errors.Is(err, catalog.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, codeInvalidInput, strings.ReplaceAll(err.Error(), "\n", ": "))
	case errors.Is(err, catalog.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, catalog.ErrUnsupportedImage):
		writeError(w, http.StatusUnsupportedMediaType, codeInvalidImage, err.Error())
	case errors.Is(err, catalog.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeImageTooLarge, "image too large")
	default:
		logger(h.Log).Error("products request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
	}
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
