package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/httpjson"
	"globalbooks/internal/pkg/keylock"
	"globalbooks/internal/pkg/logger"
	catalogapp "globalbooks/internal/service/catalog/application"
	catalogdomain "globalbooks/internal/service/catalog/domain"
	cataloginfra "globalbooks/internal/service/catalog/infrastructure"
	"globalbooks/internal/service/order/application"
	"globalbooks/internal/service/order/domain"
	"globalbooks/internal/service/order/infrastructure"
	"globalbooks/internal/service/order/infrastructure/adapter"
)

func setup(t *testing.T) *http.ServeMux {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("test")
	store := cataloginfra.NewMemoryProductStore()
	ledger := catalogapp.NewLedger(store, keylock.New(), tracer, logger.Nop(), nil)
	catalog := catalogapp.NewService(store, ledger, nil, tracer, logger.Nop())
	require.NoError(t, catalog.Seed(context.Background(), []catalogdomain.Product{
		{ID: "B1", Title: "The Go Programming Language",
			Price: decimal.NewNullDecimal(decimal.RequireFromString("10.00")), AvailableQuantity: 5},
	}))

	svc := application.NewService(
		infrastructure.NewMemoryRepository(),
		adapter.NewCatalogLocalAdapter(catalog),
		adapter.NewInventoryLocalAdapter(ledger),
		keylock.New(), tracer, logger.Nop(), nil,
		application.Options{Idempotency: infrastructure.NewMemoryIdempotencyStore(time.Hour)},
	)
	mux := http.NewServeMux()
	NewOrderHandler(svc).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeOrder(t *testing.T, rec *httptest.ResponseRecorder) application.OrderResponse {
	t.Helper()
	var out application.OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpjson.ErrorBody {
	t.Helper()
	var body httpjson.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

const createBody = `{
	"customerId": "C1",
	"paymentMethod": "CREDIT_CARD",
	"shippingAddress": {"street": "1 Main St", "city": "Springfield", "zipCode": "12345"},
	"items": [{"productId": "B1", "quantity": 2}]
}`

func create(t *testing.T, mux *http.ServeMux) application.OrderResponse {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/orders", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeOrder(t, rec)
}

func TestCreateOrder(t *testing.T) {
	mux := setup(t)

	rec := do(t, mux, http.MethodPost, "/orders", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decodeOrder(t, rec)
	assert.Equal(t, "/orders/"+o.ID, rec.Header().Get("Location"))
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "20", o.TotalAmount.String())
	assert.Equal(t, "USA", o.ShippingAddress.Country)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "10", o.Items[0].UnitPrice.String())
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   apperr.Code
	}{
		{"malformed", `{`, http.StatusBadRequest, apperr.CodeInvalidInput},
		{"unknown field", `{"customer":"C1"}`, http.StatusBadRequest, apperr.CodeInvalidInput},
		{"missing address", `{"customerId":"C1","paymentMethod":"CARD","items":[{"productId":"B1","quantity":1}]}`,
			http.StatusBadRequest, apperr.CodeInvalidInput},
		{"insufficient stock", strings.Replace(createBody, `"quantity": 2`, `"quantity": 9`, 1),
			http.StatusConflict, apperr.CodeOrderRejected},
		{"unknown product", strings.Replace(createBody, `"B1"`, `"B404"`, 1),
			http.StatusUnprocessableEntity, apperr.CodeOrderRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, setup(t), http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	mux := setup(t)

	first := do(t, mux, http.MethodPost, "/orders", createBody, IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusCreated, first.Code)
	second := do(t, mux, http.MethodPost, "/orders", createBody, IdempotencyKeyHeader, "abc")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, decodeOrder(t, first).ID, decodeOrder(t, second).ID)

	list := do(t, mux, http.MethodGet, "/orders", "")
	var orders []application.OrderResponse
	require.NoError(t, json.NewDecoder(list.Body).Decode(&orders))
	assert.Len(t, orders, 1)
}

func TestGetAndListOrders(t *testing.T) {
	mux := setup(t)
	o := create(t, mux)

	rec := do(t, mux, http.MethodGet, "/orders/"+o.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, o.ID, decodeOrder(t, rec).ID)

	rec = do(t, mux, http.MethodGet, "/orders/ORD-DEADBEEF", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.CodeOrderNotFound, decodeError(t, rec).Code)

	var orders []application.OrderResponse
	rec = do(t, mux, http.MethodGet, "/orders?customerId=C1", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	assert.Len(t, orders, 1)

	rec = do(t, mux, http.MethodGet, "/orders?customerId=C2", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	assert.Empty(t, orders)
}

func TestUpdateStatus(t *testing.T) {
	mux := setup(t)
	o := create(t, mux)
	path := "/orders/" + o.ID + "/status"

	rec := do(t, mux, http.MethodPut, path, `{"status":"CONFIRMED"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusConfirmed, decodeOrder(t, rec).Status)

	rec = do(t, mux, http.MethodPut, path, `{"status":"DELIVERED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.CodeInvalidTransition, decodeError(t, rec).Code)

	rec = do(t, mux, http.MethodPut, path, `{"status":"LOST"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.CodeInvalidInput, decodeError(t, rec).Code)

	rec = do(t, mux, http.MethodPut, "/orders/ORD-DEADBEEF/status", `{"status":"CONFIRMED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteOrder(t *testing.T) {
	mux := setup(t)

	pending := create(t, mux)
	rec := do(t, mux, http.MethodDelete, "/orders/"+pending.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodGet, "/orders/"+pending.ID, "").Code)

	shipped := create(t, mux)
	for _, st := range []string{"CONFIRMED", "SHIPPED"} {
		require.Equal(t, http.StatusOK, do(t, mux, http.MethodPut, "/orders/"+shipped.ID+"/status", `{"status":"`+st+`"}`).Code)
	}
	rec = do(t, mux, http.MethodDelete, "/orders/"+shipped.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.CodeInvalidState, decodeError(t, rec).Code)

	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodDelete, "/orders/ORD-DEADBEEF", "").Code)
}
