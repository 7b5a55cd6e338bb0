package interfaces

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"

	"globalbooks/internal/pkg/httpjson"
	"globalbooks/internal/service/order/application"
)

// IdempotencyKeyHeader names the optional header that makes order creation
// safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader is set on a create response served from an earlier request.
const ReplayedHeader = "Idempotent-Replayed"

// OrderHandler serves the order endpoints.
type OrderHandler struct {
	service *application.Service
}

func NewOrderHandler(service *application.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.handleCreate)
	mux.HandleFunc("GET /orders", h.handleList)
	mux.HandleFunc("GET /orders/{orderId}", h.handleGet)
	mux.HandleFunc("PUT /orders/{orderId}/status", h.handleUpdateStatus)
	mux.HandleFunc("DELETE /orders/{orderId}", h.handleDelete)
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	// Upstream callers may tag the request through baggage; keep it on the span.
	if channel := baggage.FromContext(ctx).Member("order.channel").Value(); channel != "" {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("order.channel", channel))
	}

	var req application.CreateOrderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)

	res, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		status = http.StatusOK
	}
	w.Header().Set("Location", "/orders/"+res.Order.ID)
	httpjson.Write(w, status, application.ToOrderResponse(res.Order))
}

func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), r.PathValue("orderId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, application.ToOrderResponse(o))
}

func (h *OrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("customerId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	out := make([]*application.OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = application.ToOrderResponse(o)
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateStatusRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), r.PathValue("orderId"), req.Status)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, application.ToOrderResponse(o))
}

func (h *OrderHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), r.PathValue("orderId")); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
