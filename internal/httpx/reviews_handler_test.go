package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	"github.com/ariefcatur/go-bookstore.git/internal/feedback"
	"github.com/ariefcatur/go-bookstore.git/internal/wishlist"
	"github.com/stretchr/testify/assert"
)

type stubFeedback struct {
	added feedback.Feedback
	err   error
}

func (s *stubFeedback) Add(_ context.Context, f feedback.Feedback) (feedback.Feedback, error) {
	s.added = f
	if s.err != nil {
		return feedback.Feedback{}, s.err
	}
	f.ID = 1
	return f, nil
}

func (s *stubFeedback) ListByProduct(context.Context, int64) ([]feedback.Feedback, error) {
	return []feedback.Feedback{}, nil
}

func TestFeedbackHandler(t *testing.T) {
	fb := &stubFeedback{}
	r := NewRouter(RouterConfig{Feedback: &FeedbackHandler{Feedback: fb}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/5/feedback", strings.NewReader(`{"user_id":2,"rating":4,"comment":"nice"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(5), fb.added.ProductID)
	assert.Equal(t, int64(2), fb.added.UserID)

	fb.err = feedback.ErrUnknownReference
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/5/feedback", strings.NewReader(`{"user_id":2,"rating":4}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/5/feedback", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

type stubWishlist struct {
	removeErr error
}

func (s *stubWishlist) Add(context.Context, int64, int64) error    { return nil }
func (s *stubWishlist) Remove(context.Context, int64, int64) error { return s.removeErr }
func (s *stubWishlist) List(context.Context, int64) ([]catalog.Product, error) {
	return []catalog.Product{{ID: 1, Name: "Dune"}}, nil
}

func TestWishlistHandler(t *testing.T) {
	wl := &stubWishlist{}
	r := NewRouter(RouterConfig{Wishlist: &WishlistHandler{Wishlist: wl}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/1/wishlist", strings.NewReader(`{"product_id":3}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/1/wishlist", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/1/wishlist/3", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	wl.removeErr = wishlist.ErrNotInWishlist
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/1/wishlist/3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/x/wishlist", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/1/wishlist", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Dune"`)
}
