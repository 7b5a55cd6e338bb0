// Package bootstrap holds the startup and graceful shutdown shared by all services.
package bootstrap

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"globalbooks/internal/pkg/config"
	"globalbooks/internal/pkg/logger"
	"globalbooks/internal/pkg/nacos"
	"globalbooks/internal/pkg/tracing"
)

// AppCtx is what a service receives to build its handlers.
type AppCtx struct {
	Mux      *http.ServeMux
	Config   *config.Config
	Logger   zerolog.Logger
	Tracer   trace.Tracer
	Registry prometheus.Registerer
	// Nacos is nil when registration is disabled.
	Nacos *nacos.Client

	cleanups []cleanup
	res      resources
}

type cleanup struct {
	name string
	fn   func(ctx context.Context) error
}

// OnShutdown registers fn to run during shutdown. Hooks run in reverse order
// of registration, after the HTTP server has stopped accepting requests.
func (a *AppCtx) OnShutdown(name string, fn func(ctx context.Context) error) {
	a.cleanups = append(a.cleanups, cleanup{name: name, fn: fn})
}

// AppInfo holds what differs between services.
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers wires the service's dependencies and routes.
	RegisterHandlers func(appCtx *AppCtx) error
}

// StartService loads configuration, starts tracing, the registry and the HTTP
// server, then blocks until SIGINT/SIGTERM and shuts everything down.
func StartService(info AppInfo) {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, info.ServiceName, info.Port)
	if err != nil {
		bootLog := logger.New(info.ServiceName, "info", false)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(cfg.Service.Name, cfg.Log.Level, cfg.Log.Pretty)

	tp, err := tracing.InitTracerProvider(cfg.Service.Name, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	appCtx := &AppCtx{
		Mux:      http.NewServeMux(),
		Config:   cfg,
		Logger:   log,
		Tracer:   otel.Tracer(cfg.Service.Name),
		Registry: prometheus.DefaultRegisterer,
	}

	if cfg.Infra.Nacos.Enabled {
		appCtx.Nacos, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
	}

	appCtx.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	appCtx.Mux.Handle("GET /metrics", promhttp.Handler())
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(appCtx); err != nil {
			log.Fatal().Err(err).Msg("failed to wire service")
		}
	}

	var ip string
	if appCtx.Nacos != nil {
		ip, err = outboundIP()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := appCtx.Nacos.RegisterServiceInstance(cfg.Service.Name, ip, cfg.Service.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Service.Port),
		Handler: logger.Middleware(log, appCtx.Mux),
	}
	go func() {
		log.Info().Int("port", cfg.Service.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancel()

	// Leave the registry first so peers stop routing here.
	if appCtx.Nacos != nil {
		if err := appCtx.Nacos.DeregisterServiceInstance(cfg.Service.Name, ip, cfg.Service.Port); err != nil {
			log.Error().Err(err).Msg("error deregistering from nacos")
		}
		appCtx.Nacos.Close()
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down http server")
	}

	for i := len(appCtx.cleanups) - 1; i >= 0; i-- {
		c := appCtx.cleanups[i]
		if err := c.fn(ctx); err != nil {
			log.Error().Err(err).Str("resource", c.name).Msg("cleanup failed")
		}
	}

	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error shutting down tracer provider")
	}
	log.Info().Msg("service gracefully shut down")
}

// outboundIP returns the local address used to reach the outside network.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", errors.Wrap(err, "dial udp")
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
