package main

import (
	"context"

	"github.com/pkg/errors"

	"globalbooks/internal/pkg/bootstrap"
	"globalbooks/internal/pkg/config"
	"globalbooks/internal/pkg/httpclient"
	"globalbooks/internal/pkg/keylock"
	"globalbooks/internal/pkg/metrics"
	"globalbooks/internal/service/catalog"
	catalogapi "globalbooks/internal/service/catalog/interfaces"
	"globalbooks/internal/service/order/application"
	"globalbooks/internal/service/order/domain"
	"globalbooks/internal/service/order/domain/port"
	"globalbooks/internal/service/order/infrastructure"
	"globalbooks/internal/service/order/infrastructure/adapter"
	"globalbooks/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	port        = 8081

	orderLockRoot = "/globalbooks/locks/orders"
)

// main is the composition root: it builds every dependency from the loaded
// configuration and hands the routes to bootstrap.
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             port,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(appCtx *bootstrap.AppCtx) error {
	ctx := context.Background()
	cfg := appCtx.Config
	log := &appCtx.Logger
	m := metrics.New("globalbooks", appCtx.Registry)

	catalogPort, inventoryPort, err := buildCatalog(ctx, appCtx, m)
	if err != nil {
		return err
	}

	var orders domain.OrderRepository
	switch cfg.Order.Store {
	case config.StoreMySQL:
		db, err := appCtx.MySQL(&infrastructure.OrderModel{}, &infrastructure.OrderItemModel{})
		if err != nil {
			return err
		}
		orders = infrastructure.NewGormRepository(db, log)
	default:
		orders = infrastructure.NewMemoryRepository()
	}

	var idempotency port.IdempotencyStore
	switch cfg.Idempotency.Store {
	case config.StoreRedis:
		client, err := appCtx.Redis(ctx)
		if err != nil {
			return err
		}
		idempotency = infrastructure.NewRedisIdempotencyStore(client, cfg.Idempotency.TTL)
	default:
		idempotency = infrastructure.NewMemoryIdempotencyStore(cfg.Idempotency.TTL)
	}

	// Status changes of one order are serialised across replicas when
	// ZooKeeper is configured, otherwise within this process.
	var locks keylock.Locker = keylock.New()
	if cfg.Catalog.Lock == config.LockZooKeeper {
		zl, err := appCtx.ZooKeeperLocker(orderLockRoot)
		if err != nil {
			return err
		}
		locks = zl
	}

	svc := application.NewService(orders, catalogPort, inventoryPort, locks, appCtx.Tracer, log, m, application.Options{
		AllowCallerPriceFallback: cfg.Pricing.AllowCallerPriceFallback,
		IDAttempts:               cfg.Order.IDAttempts,
		Idempotency:              idempotency,
	})
	if cfg.Pricing.AllowCallerPriceFallback {
		log.Warn().Msg("caller-supplied prices are accepted for products the catalog has no price for")
	}

	interfaces.NewOrderHandler(svc).RegisterRoutes(appCtx.Mux)
	return nil
}

// buildCatalog embeds the catalog in this process, or reaches catalog-service
// over HTTP at a static or Nacos-discovered address.
func buildCatalog(ctx context.Context, appCtx *bootstrap.AppCtx, m *metrics.Metrics) (port.CatalogService, port.InventoryLedger, error) {
	cfg := appCtx.Config.Catalog
	if cfg.Mode == config.ModeLocal {
		mod, err := catalog.Build(ctx, appCtx, m)
		if err != nil {
			return nil, nil, err
		}
		// The embedded catalog is served too, so both APIs share one port.
		catalogapi.NewCatalogHandler(mod.Service).RegisterRoutes(appCtx.Mux)
		return adapter.NewCatalogLocalAdapter(mod.Service), adapter.NewInventoryLocalAdapter(mod.Ledger), nil
	}

	var resolve httpclient.Resolver
	switch {
	case cfg.BaseURL != "":
		resolve = httpclient.Static(cfg.BaseURL)
	case appCtx.Nacos != nil:
		resolve = appCtx.Nacos.BaseURL(cfg.ServiceName)
	default:
		return nil, nil, errors.New("remote catalog has neither a base URL nor service discovery")
	}
	client := httpclient.NewClient(appCtx.Tracer, cfg.Timeout)
	appCtx.Logger.Info().Str("catalog_service", cfg.ServiceName).Str("base_url", cfg.BaseURL).Msg("using remote catalog")
	return adapter.NewCatalogHTTPAdapter(client, resolve), adapter.NewInventoryHTTPAdapter(client, resolve), nil
}
