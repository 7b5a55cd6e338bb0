package interfaces

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/httpjson"
	"globalbooks/internal/service/catalog/application"
	"globalbooks/internal/service/catalog/domain"
)

// ProductResponse is the wire form of a product. Price is null when the
// catalog has no price for it.
type ProductResponse struct {
	ProductID         string              `json:"productId"`
	Title             string              `json:"title"`
	Author            string              `json:"author,omitempty"`
	Category          string              `json:"category,omitempty"`
	Price             decimal.NullDecimal `json:"price"`
	AvailableQuantity int                 `json:"availableQuantity"`
	ReservedQuantity  int                 `json:"reservedQuantity"`
}

type PriceResponse struct {
	ProductID string          `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"totalPrice"`
}

type InventoryResponse struct {
	ProductID         string    `json:"productId"`
	AvailableQuantity int       `json:"availableQuantity"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	FreeQuantity      int       `json:"freeQuantity"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

type UpdateInventoryRequest struct {
	Quantity  int    `json:"quantity"`
	Operation string `json:"operation"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ProductID:         p.ID,
		Title:             p.Title,
		Author:            p.Author,
		Category:          p.Category,
		Price:             p.Price,
		AvailableQuantity: p.AvailableQuantity,
		ReservedQuantity:  p.ReservedQuantity,
	}
}

func toInventoryResponse(st domain.InventoryStatus) InventoryResponse {
	return InventoryResponse{
		ProductID:         st.ProductID,
		AvailableQuantity: st.AvailableQuantity,
		ReservedQuantity:  st.ReservedQuantity,
		FreeQuantity:      st.Free(),
		LastUpdated:       st.UpdatedAt,
	}
}

// CatalogHandler serves the catalog and inventory endpoints.
type CatalogHandler struct {
	service *application.Service
}

func NewCatalogHandler(service *application.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.handleSearch)
	mux.HandleFunc("GET /products/{productId}", h.handleGetProduct)
	mux.HandleFunc("GET /products/{productId}/price", h.handleGetPrice)
	mux.HandleFunc("GET /products/{productId}/inventory", h.handleGetInventory)
	mux.HandleFunc("POST /products/{productId}/inventory", h.handleUpdateInventory)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.FindByID(r.Context(), r.PathValue("productId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toProductResponse(p))
}

func (h *CatalogHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := domain.Criteria{
		Title:    q.Get("title"),
		Author:   q.Get("author"),
		Category: q.Get("category"),
		Filter:   q.Get("filter"),
	}
	var err error
	if c.MinPrice, err = parsePrice(q.Get("minPrice"), "minPrice"); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if c.MaxPrice, err = parsePrice(q.Get("maxPrice"), "maxPrice"); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if v := q.Get("inStock"); v != "" {
		if c.InStockOnly, err = strconv.ParseBool(v); err != nil {
			httpjson.Error(w, r, apperr.InvalidInput("inStock must be a boolean"))
			return
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			httpjson.Error(w, r, apperr.InvalidInput("limit must be a non-negative integer"))
			return
		}
	}

	seq, err := h.service.Search(r.Context(), c)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	out := make([]ProductResponse, 0)
	for p, err := range seq {
		if err != nil {
			httpjson.Error(w, r, err)
			return
		}
		out = append(out, toProductResponse(p))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	httpjson.Write(w, http.StatusOK, out)
}

func (h *CatalogHandler) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	qty := 1
	if v := r.URL.Query().Get("quantity"); v != "" {
		var err error
		if qty, err = strconv.Atoi(v); err != nil {
			httpjson.Error(w, r, apperr.InvalidInput("quantity must be an integer"))
			return
		}
	}
	quote, err := h.service.PriceQuote(r.Context(), r.PathValue("productId"), qty)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, PriceResponse{
		ProductID: quote.ProductID,
		UnitPrice: quote.UnitPrice,
		Quantity:  quote.Quantity,
		Total:     quote.Total,
	})
}

func (h *CatalogHandler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.CheckInventory(r.Context(), r.PathValue("productId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toInventoryResponse(st))
}

func (h *CatalogHandler) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req UpdateInventoryRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	st, err := h.service.UpdateInventory(r.Context(), r.PathValue("productId"), req.Quantity, req.Operation)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toInventoryResponse(st))
}

func parsePrice(v, field string) (decimal.NullDecimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, apperr.InvalidInput("%s must be a decimal number", field)
	}
	return decimal.NewNullDecimal(d), nil
}
