package main

import (
	"context"

	"globalbooks/internal/pkg/bootstrap"
	"globalbooks/internal/pkg/metrics"
	"globalbooks/internal/service/catalog"
	"globalbooks/internal/service/catalog/interfaces"
)

const (
	serviceName = "catalog-service"
	port        = 8082
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        port,
		RegisterHandlers: func(appCtx *bootstrap.AppCtx) error {
			m := metrics.New("globalbooks", appCtx.Registry)
			mod, err := catalog.Build(context.Background(), appCtx, m)
			if err != nil {
				return err
			}
			interfaces.NewCatalogHandler(mod.Service).RegisterRoutes(appCtx.Mux)
			return nil
		},
	})
}
