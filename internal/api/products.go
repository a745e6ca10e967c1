package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
)

const maxListLimit = 1000

type ProductLister interface {
	List(ctx context.Context, f storage.Filter) ([]models.ProductRecord, error)
}

type ProductGetter interface {
	Get(ctx context.Context, site, code string) (models.ProductRecord, error)
}

type TrackingSetter interface {
	SetTracked(ctx context.Context, site, code string, tracked bool) error
}

type ListResponse struct {
	Response
	Products []models.ProductRecord `json:"products"`
}

type ProductResponse struct {
	Response
	Product models.ProductRecord `json:"product"`
}

type TrackingRequest struct {
	Tracked *bool `json:"tracked"`
}

func listProducts(log *slog.Logger, lister ProductLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.listProducts"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		f := storage.Filter{Site: q.Get("site")}
		if v := q.Get("tracked"); v != "" {
			tracked, err := strconv.ParseBool(v)
			if err != nil {
				renderError(w, r, http.StatusBadRequest, "Invalid tracked")
				return
			}
			f.TrackedOnly = tracked
		}
		if v := q.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 0 || limit > maxListLimit {
				renderError(w, r, http.StatusBadRequest, "Invalid limit")
				return
			}
			f.Limit = limit
		}

		products, err := lister.List(r.Context(), f)
		if err != nil {
			log.Error("failed to list products", slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "Internal error")
			return
		}
		if products == nil {
			products = []models.ProductRecord{}
		}

		render.JSON(w, r, ListResponse{Response: OK(), Products: products})
	}
}

func getProduct(log *slog.Logger, getter ProductGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.getProduct"

		site, code := chi.URLParam(r, "site"), chi.URLParam(r, "code")

		product, err := getter.Get(r.Context(), site, code)
		if errors.Is(err, storage.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		if err != nil {
			log.Error("failed to get product",
				slog.String("op", op),
				slog.String("site", site),
				slog.String("code", code),
				slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "Internal error")
			return
		}

		render.JSON(w, r, ProductResponse{Response: OK(), Product: product})
	}
}

func setTracking(log *slog.Logger, setter TrackingSetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.setTracking"

		site, code := chi.URLParam(r, "site"), chi.URLParam(r, "code")

		var req TrackingRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil || req.Tracked == nil {
			renderError(w, r, http.StatusBadRequest, "Body must be {\"tracked\": bool}")
			return
		}

		err := setter.SetTracked(r.Context(), site, code, *req.Tracked)
		if errors.Is(err, storage.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "Product not found")
			return
		}
		if err != nil {
			log.Error("failed to set tracking",
				slog.String("op", op),
				slog.String("site", site),
				slog.String("code", code),
				slog.Any("error", err))
			renderError(w, r, http.StatusInternalServerError, "Internal error")
			return
		}

		log.Info("tracking updated",
			slog.String("site", site),
			slog.String("code", code),
			slog.Bool("tracked", *req.Tracked))
		render.JSON(w, r, OK())
	}
}
