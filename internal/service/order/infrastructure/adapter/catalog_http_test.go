package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/httpclient"
)

func newHTTPClient() *httpclient.Client {
	return httpclient.NewClient(noop.NewTracerProvider().Tracer("test"), time.Second)
}

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/{productId}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("productId") {
		case "B1":
			_, _ = w.Write([]byte(`{"productId":"B1","price":"10.00"}`))
		case "B2":
			_, _ = w.Write([]byte(`{"productId":"B2","price":null}`))
		case "BROKEN":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"PRODUCT_NOT_FOUND","message":"product not found"}`))
		}
	})
	mux.HandleFunc("POST /products/{productId}/inventory", func(w http.ResponseWriter, r *http.Request) {
		var body inventoryUpdate
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Quantity > 5 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"code":"INSUFFICIENT_STOCK","message":"insufficient stock"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"productId": r.PathValue("productId"), "operation": body.Operation})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogHTTPAdapter_ProductPrice(t *testing.T) {
	srv := catalogServer(t)
	a := NewCatalogHTTPAdapter(newHTTPClient(), httpclient.Static(srv.URL+"/"))
	ctx := context.Background()

	price, err := a.ProductPrice(ctx, "B1")
	require.NoError(t, err)
	require.True(t, price.Valid)
	assert.True(t, price.Decimal.Equal(decimal.NewFromInt(10)))

	price, err = a.ProductPrice(ctx, "B2")
	require.NoError(t, err)
	assert.False(t, price.Valid)

	_, err = a.ProductPrice(ctx, "B404")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, apperr.CodeProductNotFound, apperr.CodeOf(err))

	_, err = a.ProductPrice(ctx, "BROKEN")
	assert.True(t, apperr.IsKind(err, apperr.KindDependencyFailure))
}

func TestCatalogHTTPAdapter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := NewCatalogHTTPAdapter(newHTTPClient(), httpclient.Static(base))
	_, err := a.ProductPrice(context.Background(), "B1")
	assert.True(t, apperr.IsKind(err, apperr.KindDependencyFailure))
	assert.Equal(t, apperr.CodeDependencyUnavailable, apperr.CodeOf(err))
}

func TestCatalogHTTPAdapter_ResolverFailure(t *testing.T) {
	resolve := func(context.Context) (string, error) { return "", errors.New("no healthy instance") }
	a := NewCatalogHTTPAdapter(newHTTPClient(), resolve)
	_, err := a.ProductPrice(context.Background(), "B1")
	assert.True(t, apperr.IsKind(err, apperr.KindDependencyFailure))
}

func TestInventoryHTTPAdapter(t *testing.T) {
	srv := catalogServer(t)
	a := NewInventoryHTTPAdapter(newHTTPClient(), httpclient.Static(srv.URL))
	ctx := context.Background()

	require.NoError(t, a.Reserve(ctx, "B1", 2))
	require.NoError(t, a.Release(ctx, "B1", 2))
	require.NoError(t, a.Deduct(ctx, "B1", 1))
	require.NoError(t, a.Restore(ctx, "B1", 1))

	err := a.Reserve(ctx, "B1", 6)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
}
