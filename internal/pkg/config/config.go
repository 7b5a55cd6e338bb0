// Package config loads service configuration from a YAML file and lets
// environment variables override individual fields.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreRedis  = "redis"

	LockLocal     = "local"
	LockZooKeeper = "zookeeper"
)

type Config struct {
	Service     ServiceConfig     `yaml:"service"`
	Log         LogConfig         `yaml:"log"`
	Infra       InfraConfig       `yaml:"infra"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Order       OrderConfig       `yaml:"order"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

type ServiceConfig struct {
	Name            string        `yaml:"name" env:"SERVICE_NAME"`
	Port            int           `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Redis     RedisConfig     `yaml:"redis"`
	MySQL     MySQLConfig     `yaml:"mysql"`
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"JAEGER_ENDPOINT"`
	SampleRatio float64 `yaml:"sampleRatio" env:"JAEGER_SAMPLE_RATIO"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled" env:"NACOS_ENABLED"`
	ServerAddrs string `yaml:"serverAddrs" env:"NACOS_SERVER_ADDRS"`
	Namespace   string `yaml:"namespace" env:"NACOS_NAMESPACE"`
	Group       string `yaml:"group" env:"NACOS_GROUP"`
}

type RedisConfig struct {
	Addrs    string `yaml:"addrs" env:"REDIS_ADDRS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" env:"MYSQL_HOST"`
	Port     int    `yaml:"port" env:"MYSQL_PORT"`
	User     string `yaml:"user" env:"MYSQL_USER"`
	Password string `yaml:"password" env:"MYSQL_PASSWORD"`
	Database string `yaml:"database" env:"MYSQL_DATABASE"`
	// AutoMigrate creates the tables on startup.
	AutoMigrate bool `yaml:"autoMigrate" env:"MYSQL_AUTO_MIGRATE"`
}

type ZooKeeperConfig struct {
	Servers        []string      `yaml:"servers" env:"ZK_SERVERS"`
	SessionTimeout time.Duration `yaml:"sessionTimeout" env:"ZK_SESSION_TIMEOUT"`
	LockTimeout    time.Duration `yaml:"lockTimeout" env:"ZK_LOCK_TIMEOUT"`
}

type CatalogConfig struct {
	// Mode selects where the order service finds the catalog: embedded or over HTTP.
	Mode string `yaml:"mode" env:"CATALOG_MODE"`
	// Store holds product records: memory or mysql.
	Store string `yaml:"store" env:"CATALOG_STORE"`
	// Ledger selects the inventory ledger backend: memory, mysql (both use Store) or redis.
	Ledger   string `yaml:"ledger" env:"CATALOG_LEDGER"`
	Lock     string `yaml:"lock" env:"CATALOG_LOCK"`
	SeedFile string `yaml:"seedFile" env:"CATALOG_SEED_FILE"`
	// BaseURL of catalog-service in remote mode. When empty the URL is
	// discovered through Nacos under ServiceName.
	BaseURL     string        `yaml:"baseURL" env:"CATALOG_BASE_URL"`
	ServiceName string        `yaml:"serviceName" env:"CATALOG_SERVICE_NAME"`
	Timeout     time.Duration `yaml:"timeout" env:"CATALOG_TIMEOUT"`
}

type OrderConfig struct {
	Store      string `yaml:"store" env:"ORDER_STORE"`
	IDAttempts int    `yaml:"idAttempts" env:"ORDER_ID_ATTEMPTS"`
}

type PricingConfig struct {
	AllowCallerPriceFallback bool `yaml:"allowCallerPriceFallback" env:"PRICING_ALLOW_CALLER_FALLBACK"`
}

type IdempotencyConfig struct {
	Store string        `yaml:"store" env:"IDEMPOTENCY_STORE"`
	TTL   time.Duration `yaml:"ttl" env:"IDEMPOTENCY_TTL"`
}

// Default returns the configuration used when neither file nor env sets a field.
func Default(serviceName string, port int) Config {
	return Config{
		Service: ServiceConfig{Name: serviceName, Port: port, ShutdownTimeout: 10 * time.Second},
		Log:     LogConfig{Level: "info"},
		Infra: InfraConfig{
			Jaeger:    JaegerConfig{SampleRatio: 1},
			Nacos:     NacosConfig{ServerAddrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			MySQL:     MySQLConfig{Host: "localhost", Port: 3306, User: "root", Database: "globalbooks"},
			ZooKeeper: ZooKeeperConfig{SessionTimeout: 5 * time.Second, LockTimeout: 30 * time.Second},
		},
		Catalog: CatalogConfig{
			Mode:        ModeLocal,
			Store:       StoreMemory,
			Ledger:      StoreMemory,
			Lock:        LockLocal,
			ServiceName: "catalog-service",
			Timeout:     3 * time.Second,
		},
		Order:       OrderConfig{Store: StoreMemory, IDAttempts: 5},
		Idempotency: IdempotencyConfig{Store: StoreMemory, TTL: 24 * time.Hour},
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, applies environment overrides and validates the result.
func Load(path, serviceName string, port int) (*Config, error) {
	cfg := Default(serviceName, port)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service.name is required")
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return errors.Errorf("service.port %d out of range", c.Service.Port)
	}
	if c.Infra.Jaeger.SampleRatio < 0 || c.Infra.Jaeger.SampleRatio > 1 {
		return errors.Errorf("infra.jaeger.sampleRatio %v must be within [0,1]", c.Infra.Jaeger.SampleRatio)
	}

	switch c.Catalog.Mode {
	case ModeLocal:
	case ModeRemote:
		if c.Catalog.BaseURL == "" && !c.Infra.Nacos.Enabled {
			return errors.New("catalog.mode remote needs catalog.baseURL or infra.nacos.enabled")
		}
	default:
		return errors.Errorf("unknown catalog.mode %q", c.Catalog.Mode)
	}
	if err := oneOf("catalog.store", c.Catalog.Store, StoreMemory, StoreMySQL); err != nil {
		return err
	}
	if err := oneOf("catalog.ledger", c.Catalog.Ledger, StoreMemory, StoreMySQL, StoreRedis); err != nil {
		return err
	}
	if c.Catalog.Ledger != StoreRedis && c.Catalog.Ledger != c.Catalog.Store {
		return errors.Errorf("catalog.ledger %q must match catalog.store %q unless it is redis", c.Catalog.Ledger, c.Catalog.Store)
	}
	if err := oneOf("catalog.lock", c.Catalog.Lock, LockLocal, LockZooKeeper); err != nil {
		return err
	}
	if c.Catalog.Lock == LockZooKeeper && len(c.Infra.ZooKeeper.Servers) == 0 {
		return errors.New("catalog.lock zookeeper needs infra.zookeeper.servers")
	}
	if err := oneOf("order.store", c.Order.Store, StoreMemory, StoreMySQL); err != nil {
		return err
	}
	if c.Order.IDAttempts < 1 {
		return errors.New("order.idAttempts must be at least 1")
	}
	if err := oneOf("idempotency.store", c.Idempotency.Store, StoreMemory, StoreRedis); err != nil {
		return err
	}
	if c.Idempotency.TTL <= 0 {
		return errors.New("idempotency.ttl must be positive")
	}
	if (c.Catalog.Ledger == StoreRedis || c.Idempotency.Store == StoreRedis) && c.Infra.Redis.Addrs == "" {
		return errors.New("redis backends need infra.redis.addrs")
	}
	return nil
}

// UsesMySQL reports whether any component of the service reads or writes MySQL.
func (c *Config) UsesMySQL() bool {
	return c.Order.Store == StoreMySQL || c.Catalog.Store == StoreMySQL
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.Errorf("unknown %s %q (allowed: %v)", field, value, allowed)
}
