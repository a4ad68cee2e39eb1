package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Log         *zap.Logger
	CORSOrigins []string
	Limiter     RateLimiter // nil disables rate limiting
	RateWindow  time.Duration
	AdminKey    string
	ImageDir    string

	Orders   *OrdersHandler
	Products *ProductsHandler
	Users    *UsersHandler
	Feedback *FeedbackHandler
	Wishlist *WishlistHandler
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	log := logger(cfg.Log)

	r := chi.NewRouter()
	r.Use(PeerAddr, middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigins))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.ImageDir != "" {
		r.Handle("/images/*", http.StripPrefix("/images/", noListing(http.FileServer(http.Dir(cfg.ImageDir)))))
	}

	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(RateLimit(cfg.Limiter, cfg.RateWindow, log))
		}
		if cfg.Users != nil {
			cfg.Users.Register(r)
		}
		if cfg.Products != nil {
			cfg.Products.Register(r)
		}
		if cfg.Orders != nil {
			cfg.Orders.Register(r)
		}
		if cfg.Feedback != nil {
			cfg.Feedback.Register(r)
		}
		if cfg.Wishlist != nil {
			cfg.Wishlist.Register(r)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminOnly(cfg.AdminKey))
			if cfg.Products != nil {
				cfg.Products.RegisterAdmin(r)
			}
			if cfg.Orders != nil {
				cfg.Orders.RegisterAdmin(r)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	return r
}

func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}
