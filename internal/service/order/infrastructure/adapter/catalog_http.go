package adapter

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/httpclient"
)

// translate turns a failed catalog call into an application error. Errors the
// catalog classified keep their code; anything else means it is unreachable.
func translate(err error, action string) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) && se.Code != "" {
		remote := apperr.FromCode(apperr.Code(se.Code), se.Message)
		if remote.Kind != apperr.KindUnknown {
			return remote
		}
	}
	return apperr.Unavailable(err, "catalog service: %s", action)
}

func productURL(ctx context.Context, resolve httpclient.Resolver, productID, suffix string) (string, error) {
	base, err := resolve(ctx)
	if err != nil {
		return "", apperr.Unavailable(err, "resolve catalog service")
	}
	return fmt.Sprintf("%s/products/%s%s", base, url.PathEscape(productID), suffix), nil
}

// CatalogHTTPAdapter implements port.CatalogService against catalog-service.
type CatalogHTTPAdapter struct {
	client  *httpclient.Client
	resolve httpclient.Resolver
}

func NewCatalogHTTPAdapter(client *httpclient.Client, resolve httpclient.Resolver) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, resolve: resolve}
}

func (a *CatalogHTTPAdapter) ProductPrice(ctx context.Context, productID string) (decimal.NullDecimal, error) {
	target, err := productURL(ctx, a.resolve, productID, "")
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	var product struct {
		ProductID string              `json:"productId"`
		Price     decimal.NullDecimal `json:"price"`
	}
	if err := a.client.GetJSON(ctx, target, &product); err != nil {
		return decimal.NullDecimal{}, translate(err, "get product "+productID)
	}
	return product.Price, nil
}

// InventoryHTTPAdapter implements port.InventoryLedger against catalog-service.
type InventoryHTTPAdapter struct {
	client  *httpclient.Client
	resolve httpclient.Resolver
}

func NewInventoryHTTPAdapter(client *httpclient.Client, resolve httpclient.Resolver) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{client: client, resolve: resolve}
}

type inventoryUpdate struct {
	Quantity  int    `json:"quantity"`
	Operation string `json:"operation"`
}

func (a *InventoryHTTPAdapter) update(ctx context.Context, operation, productID string, qty int) error {
	target, err := productURL(ctx, a.resolve, productID, "/inventory")
	if err != nil {
		return err
	}
	body := inventoryUpdate{Quantity: qty, Operation: operation}
	if err := a.client.PostJSON(ctx, target, body, nil); err != nil {
		return translate(err, fmt.Sprintf("%s %d of %s", operation, qty, productID))
	}
	return nil
}

func (a *InventoryHTTPAdapter) Reserve(ctx context.Context, productID string, qty int) error {
	return a.update(ctx, "RESERVE", productID, qty)
}

func (a *InventoryHTTPAdapter) Release(ctx context.Context, productID string, qty int) error {
	return a.update(ctx, "RELEASE", productID, qty)
}

func (a *InventoryHTTPAdapter) Deduct(ctx context.Context, productID string, qty int) error {
	return a.update(ctx, "DEDUCT", productID, qty)
}

func (a *InventoryHTTPAdapter) Restore(ctx context.Context, productID string, qty int) error {
	return a.update(ctx, "RESTORE", productID, qty)
}
