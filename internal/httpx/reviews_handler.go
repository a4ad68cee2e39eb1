package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	"github.com/ariefcatur/go-bookstore.git/internal/feedback"
	"github.com/ariefcatur/go-bookstore.git/internal/wishlist"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FeedbackStore interface {
	Add(ctx context.Context, f feedback.Feedback) (feedback.Feedback, error)
	ListByProduct(ctx context.Context, productID int64) ([]feedback.Feedback, error)
}

type WishlistStore interface {
	Add(ctx context.Context, userID, productID int64) error
	Remove(ctx context.Context, userID, productID int64) error
	List(ctx context.Context, userID int64) ([]catalog.Product, error)
}

type FeedbackHandler struct {
	Feedback FeedbackStore
	Log      *zap.Logger
}

type AddFeedbackReq struct {
	UserID  int64  `json:"user_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *FeedbackHandler) Register(r chi.Router) {
	r.Get("/products/{id}/feedback", h.list)
	r.Post("/products/{id}/feedback", h.add)
}

func (h *FeedbackHandler) list(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Feedback.ListByProduct(r.Context(), productID)
	if err != nil {
		logger(h.Log).Error("list feedback failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *FeedbackHandler) add(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AddFeedbackReq
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := h.Feedback.Add(r.Context(), feedback.Feedback{
		ProductID: productID,
		UserID:    req.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, f)
	case errors.Is(err, feedback.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, feedback.ErrUnknownReference):
		writeError(w, http.StatusUnprocessableEntity, codeUnknownReference, "unknown product or user")
	default:
		logger(h.Log).Error("add feedback failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
	}
}

type WishlistHandler struct {
	Wishlist WishlistStore
	Log      *zap.Logger
}

type AddWishReq struct {
	ProductID int64 `json:"product_id"`
}

func (h *WishlistHandler) Register(r chi.Router) {
	r.Get("/users/{id}/wishlist", h.list)
	r.Post("/users/{id}/wishlist", h.add)
	r.Delete("/users/{id}/wishlist/{productID}", h.remove)
}

func (h *WishlistHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ps, err := h.Wishlist.List(r.Context(), userID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *WishlistHandler) add(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AddWishReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "product_id is required")
		return
	}
	if err := h.Wishlist.Add(r.Context(), userID, req.ProductID); err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"user_id": userID, "product_id": req.ProductID})
}

func (h *WishlistHandler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	if err := h.Wishlist.Remove(r.Context(), userID, productID); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WishlistHandler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wishlist.ErrNotInWishlist):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, wishlist.ErrUnknownReference):
		writeError(w, http.StatusUnprocessableEntity, codeUnknownReference, "unknown product or user")
	default:
		logger(h.Log).Error("wishlist request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
	}
}
