package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/models"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage"
	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/internal/storage/sqlite"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, storage.Store) {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for _, code := range []string{"A1", "B2"} {
		price := decimal.RequireFromString("10.50")
		err := st.Upsert(context.Background(), models.ProductUpdate{
			Site: "shop", Code: code, Name: "Item " + code, URL: "https://shop.example/" + code,
			Price: &price, StockStatus: "In Stock",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	srv := httptest.NewServer(NewRouter(log, st, apiKey, mcp))
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthzIsOpen(t *testing.T) {
	srv, _ := newTestServer(t, "secret")
	if resp := do(t, http.MethodGet, srv.URL+"/healthz", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/api/products", tt.token, "")
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	if resp := do(t, http.MethodPost, srv.URL+"/mcp", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("/mcp without token: status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/mcp", "secret", ""); resp.StatusCode != http.StatusTeapot {
		t.Fatalf("/mcp with token: status = %d", resp.StatusCode)
	}
}

func TestListProducts(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := do(t, http.MethodGet, srv.URL+"/api/products?site=shop&limit=1", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != StatusOK || len(body.Products) != 1 || body.Products[0].Code != "A1" {
		t.Fatalf("body = %+v", body)
	}

	if resp := do(t, http.MethodGet, srv.URL+"/api/products?limit=-1", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d", resp.StatusCode)
	}
}

func TestGetProduct(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := do(t, http.MethodGet, srv.URL+"/api/products/shop/B2", "", "")
	var body ProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Product.Name != "Item B2" || body.Product.LastPrice == nil || body.Product.LastPrice.String() != "10.5" {
		t.Fatalf("product = %+v", body.Product)
	}

	if resp := do(t, http.MethodGet, srv.URL+"/api/products/shop/ZZ", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing product: status = %d", resp.StatusCode)
	}
}

func TestSetTracking(t *testing.T) {
	srv, st := newTestServer(t, "")

	resp := do(t, http.MethodPut, srv.URL+"/api/products/shop/A1/tracking", "", `{"tracked":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	rec, err := st.Get(context.Background(), "shop", "A1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.IsTracked {
		t.Fatal("A1 still tracked")
	}

	if resp := do(t, http.MethodPut, srv.URL+"/api/products/shop/A1/tracking", "", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty body: status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, srv.URL+"/api/products/shop/ZZ/tracking", "", `{"tracked":true}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing product: status = %d", resp.StatusCode)
	}
}
