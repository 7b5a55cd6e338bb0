// Package catalog assembles the catalog service from configuration. It is
// used by catalog-service and by order-service when the catalog is embedded.
package catalog

import (
	"context"

	"github.com/pkg/errors"

	"globalbooks/internal/pkg/bootstrap"
	"globalbooks/internal/pkg/config"
	"globalbooks/internal/pkg/keylock"
	"globalbooks/internal/pkg/metrics"
	"globalbooks/internal/service/catalog/application"
	"globalbooks/internal/service/catalog/domain"
	"globalbooks/internal/service/catalog/infrastructure"
	"globalbooks/internal/service/catalog/infrastructure/celfilter"
	"globalbooks/internal/service/catalog/infrastructure/redisledger"
)

const lockRoot = "/globalbooks/locks/inventory"

// Module is a wired catalog.
type Module struct {
	Service *application.Service
	Ledger  application.InventoryLedger
}

// Build wires the product store, the inventory ledger and the lookup service
// selected by appCtx.Config, then loads the seed file if one is set.
func Build(ctx context.Context, appCtx *bootstrap.AppCtx, m *metrics.Metrics) (*Module, error) {
	cfg := appCtx.Config.Catalog
	log := &appCtx.Logger

	var products domain.ProductRepository
	switch cfg.Store {
	case config.StoreMySQL:
		db, err := appCtx.MySQL(&infrastructure.ProductModel{})
		if err != nil {
			return nil, err
		}
		products = infrastructure.NewGormProductStore(db)
	default:
		products = infrastructure.NewMemoryProductStore()
	}

	var ledger application.InventoryLedger
	switch cfg.Ledger {
	case config.StoreRedis:
		client, err := appCtx.Redis(ctx)
		if err != nil {
			return nil, err
		}
		rl, err := redisledger.New(client, log, m)
		if err != nil {
			return nil, err
		}
		ledger = rl
	default:
		var locker keylock.Locker = keylock.New()
		if cfg.Lock == config.LockZooKeeper {
			zl, err := appCtx.ZooKeeperLocker(lockRoot)
			if err != nil {
				return nil, err
			}
			locker = zl
		}
		ledger = application.NewLedger(products, locker, appCtx.Tracer, log, m)
	}

	filters, err := celfilter.NewCompiler()
	if err != nil {
		return nil, errors.Wrap(err, "build filter compiler")
	}
	svc := application.NewService(products, ledger, filters, appCtx.Tracer, log)

	if cfg.SeedFile != "" {
		seed, err := infrastructure.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
		if err := svc.Seed(ctx, seed); err != nil {
			return nil, errors.Wrap(err, "seed catalog")
		}
	}

	appCtx.Logger.Info().Str("store", cfg.Store).Str("ledger", cfg.Ledger).Str("lock", cfg.Lock).Msg("catalog ready")
	return &Module{Service: svc, Ledger: ledger}, nil
}
