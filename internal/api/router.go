// Package api serves the product store over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

// NewRouter builds the HTTP surface. /healthz is always open; everything
// else sits behind BearerAuth(apiKey). A non-nil mcp handler is mounted at /mcp.
func NewRouter(log *slog.Logger, store storage.Store, apiKey string, mcp http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, OK())
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Get("/api/products", listProducts(log, store))
		r.Get("/api/products/{site}/{code}", getProduct(log, store))
		r.Put("/api/products/{site}/{code}/tracking", setTracking(log, store))

		if mcp != nil {
			r.Handle("/mcp", mcp)
		}
	})

	return r
}
