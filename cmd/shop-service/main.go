/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command shop-service runs the shop HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	golog "log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/acronis/shop-service/httpserver"
	"github.com/acronis/shop-service/httpserver/middleware/throttle"
	"github.com/acronis/shop-service/internal/redisconn"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/lrucache"
	"github.com/acronis/shop-service/profserver"
	"github.com/acronis/shop-service/restapi"
	"github.com/acronis/shop-service/resultcache"
	"github.com/acronis/shop-service/retry"
	"github.com/acronis/shop-service/service"
	"github.com/acronis/shop-service/shop"
	"github.com/acronis/shop-service/shop/api"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the YAML configuration file")
	dotEnvPath := pflag.String("env-file", ".env", "file with environment variables, skipped if it does not exist")
	pflag.Parse()

	if err := loadDotEnv(*dotEnvPath); err != nil {
		golog.Fatal(err)
	}
	if err := runApp(*configPath); err != nil {
		golog.Fatal(err)
	}
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func runApp(configPath string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	ctx := context.Background()

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := storage.Close(); closeErr != nil {
			logger.Error("failed to close storage", log.Error(closeErr))
		}
	}()

	var redisClient *redis.Client
	if cfg.redisRequired() {
		if redisClient, err = redisconn.Connect(ctx, cfg.Redis, logger); err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
	}

	metrics := newAppMetrics()
	metrics.MustRegister()
	defer metrics.Unregister()

	exportCacheOpts := shop.ExportCacheOpts{
		LRUMetrics: metrics.LRU.MustCurryWith(prometheus.Labels{"cache": "orders_export"}),
		Metrics:    metrics.ResultCache,
	}
	if redisClient != nil {
		exportCacheOpts.RedisClient = redisClient
	}
	exportCache, exportCacheCleanup, err := shop.NewOrdersExportCache(cfg.Cache, exportCacheOpts)
	if err != nil {
		return fmt.Errorf("create orders export cache: %w", err)
	}
	handler := api.NewHandler(storage,
		shop.NewExporter(storage, exportCache, cfg.Cache.OrdersExportTTL),
		shop.NewImporter(storage),
		shop.NewFeed(storage, fmt.Sprintf("/api/%s/v1", api.ServiceNameInURL)))

	workerUnitOpts := service.WorkerUnitOpts{GracefulStopTimeout: time.Duration(cfg.Server.Timeouts.Shutdown)}
	units := make([]service.Unit, 0, 4)
	if exportCacheCleanup != nil {
		units = append(units, service.NewWorkerUnitWithOpts(exportCacheCleanup, workerUnitOpts))
	}
	stats := map[string]func() int{}
	var apiMiddlewares []func(next http.Handler) http.Handler
	if cfg.Throttle.Enabled {
		guardOpts := throttle.GuardOpts{
			LRUMetrics: metrics.LRU.MustCurryWith(prometheus.Labels{"cache": "throttle_clients"}),
			Logger:     logger,
		}
		if redisClient != nil {
			guardOpts.RedisClient = redisClient
		}
		guard, store, guardErr := throttle.NewGuardFromConfig(cfg.Throttle, guardOpts)
		if guardErr != nil {
			return fmt.Errorf("create throttle guard: %w", guardErr)
		}
		if lenStore, ok := store.(interface{ Len() int }); ok {
			stats["throttle_clients"] = lenStore.Len
		}
		apiMiddlewares = append(apiMiddlewares,
			throttle.MiddlewareFromConfig(cfg.Throttle, guard, api.ErrorDomain, metrics.Throttle))
		if sweepWorker := throttle.NewSweepWorker(cfg.Throttle, store, nil, logger); sweepWorker != nil {
			units = append(units, service.NewWorkerUnitWithOpts(sweepWorker, workerUnitOpts))
		}
	}

	httpServer := httpserver.New(cfg.Server, logger, httpserver.Opts{
		ServiceNameInURL:   api.ServiceNameInURL,
		APIRoutes:          map[httpserver.APIVersion]httpserver.APIRoute{1: handler.Routes},
		APIMiddlewares:     apiMiddlewares,
		ErrorDomain:        api.ErrorDomain,
		HealthCheckContext: newHealthCheck(storage, redisClient),
	})
	units = append([]service.Unit{httpServer}, units...)
	if cfg.Prof.Enabled {
		units = append(units, profserver.New(cfg.Prof, logger, func() map[string]int {
			res := make(map[string]int, len(stats))
			for name, fn := range stats {
				res[name] = fn()
			}
			return res
		}))
	}

	return service.New(logger, service.NewCompositeUnit(units...)).Run(ctx)
}

func openStorage(ctx context.Context, cfg *AppConfig, logger log.FieldLogger) (shop.Storage, error) {
	var storage shop.Storage
	err := retry.DoWithRetry(ctx, cfg.DBRetry.Policy(), nil, retry.NewLoggingNotify(logger, "database connection"),
		func(ctx context.Context) error {
			s, openErr := shop.OpenStorage(cfg.DB, logger)
			if openErr != nil {
				return openErr
			}
			if pingErr := s.Ping(ctx); pingErr != nil {
				_ = s.Close()
				return pingErr
			}
			storage = s
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.DB.Driver, err)
	}
	logger.Info("storage is ready", log.String("driver", cfg.DB.Driver))
	return storage, nil
}

func newHealthCheck(storage shop.Storage, redisClient *redis.Client) httpserver.HealthCheckContext {
	return func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		res := httpserver.HealthCheckResult{"db": httpserver.HealthCheckStatusOK}
		if err := storage.Ping(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res["db"] = httpserver.HealthCheckStatusFail
		}
		if redisClient != nil {
			res["redis"] = httpserver.HealthCheckStatusOK
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				res["redis"] = httpserver.HealthCheckStatusFail
			}
		}
		return res, nil
	}
}

// appMetrics contains Prometheus collectors of the service components except HTTP server ones.
// Registering it also registers the REST API error responses counter.
type appMetrics struct {
	Throttle    *throttle.PrometheusMetrics
	ResultCache *resultcache.PrometheusMetrics
	LRU         *lrucache.PrometheusMetrics
}

func newAppMetrics() *appMetrics {
	return &appMetrics{
		Throttle:    throttle.NewPrometheusMetrics(),
		ResultCache: resultcache.NewPrometheusMetrics(),
		LRU:         lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{CurriedLabelNames: []string{"cache"}}),
	}
}

func (m *appMetrics) MustRegister() {
	restapi.MustInitAndRegisterMetrics("")
	m.Throttle.MustRegister()
	m.ResultCache.MustRegister()
	m.LRU.MustRegister()
}

func (m *appMetrics) Unregister() {
	restapi.UnregisterMetrics()
	m.Throttle.Unregister()
	m.ResultCache.Unregister()
	m.LRU.Unregister()
}
