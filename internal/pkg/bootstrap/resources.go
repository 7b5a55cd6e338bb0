package bootstrap

import (
	"context"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"globalbooks/internal/pkg/database"
	"globalbooks/internal/pkg/redis"
	"globalbooks/internal/zookeeper"
)

// resources are opened on first use and shared by every component of the
// process. Each registers its own shutdown hook.
type resources struct {
	db    *gorm.DB
	redis *redis.Client
	zk    *zk.Conn
}

// MySQL returns the process gorm handle, migrating models when configured.
func (a *AppCtx) MySQL(models ...any) (*gorm.DB, error) {
	if a.res.db == nil {
		db, err := database.Open(a.Config.Infra.MySQL)
		if err != nil {
			return nil, err
		}
		a.res.db = db
		a.OnShutdown("mysql", func(context.Context) error { return database.Close(db) })
		a.Logger.Info().Str("host", a.Config.Infra.MySQL.Host).Str("database", a.Config.Infra.MySQL.Database).Msg("connected to mysql")
	}
	if a.Config.Infra.MySQL.AutoMigrate && len(models) > 0 {
		if err := a.res.db.AutoMigrate(models...); err != nil {
			return nil, errors.Wrap(err, "auto migrate")
		}
	}
	return a.res.db, nil
}

// Redis returns the process Redis client.
func (a *AppCtx) Redis(ctx context.Context) (*redis.Client, error) {
	if a.res.redis == nil {
		cfg := a.Config.Infra.Redis
		client, err := redis.NewClient(ctx, cfg.Addrs, cfg.Password, cfg.DB)
		if err != nil {
			return nil, err
		}
		a.res.redis = client
		a.OnShutdown("redis", func(context.Context) error { return client.Close() })
		a.Logger.Info().Str("addrs", cfg.Addrs).Msg("connected to redis")
	}
	return a.res.redis, nil
}

// ZooKeeperLocker returns a distributed per-key locker under root.
func (a *AppCtx) ZooKeeperLocker(root string) (*zookeeper.Locker, error) {
	cfg := a.Config.Infra.ZooKeeper
	if a.res.zk == nil {
		conn, err := zookeeper.Connect(cfg.Servers, cfg.SessionTimeout)
		if err != nil {
			return nil, err
		}
		a.res.zk = conn
		a.OnShutdown("zookeeper", func(context.Context) error {
			conn.Close()
			return nil
		})
		a.Logger.Info().Strs("servers", cfg.Servers).Msg("connected to zookeeper")
	}
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return zookeeper.NewLocker(a.res.zk, root, timeout, a.Logger)
}
