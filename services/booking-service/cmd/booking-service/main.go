package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/expertbook/libs/config"
	"github.com/md-rashed-zaman/expertbook/libs/grpcx"
	"github.com/md-rashed-zaman/expertbook/libs/httpx"
	"github.com/md-rashed-zaman/expertbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/expertbook/libs/otel"
	"github.com/md-rashed-zaman/expertbook/libs/runtime"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/fanout"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/reservation"
	"github.com/md-rashed-zaman/expertbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	transportLocal = "local"
	transportRedis = "redis"
	transportKafka = "kafka"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	if err := run(service, port, logger); err != nil {
		logger.Error("booking service failed", "err", err)
		os.Exit(1)
	}
}

func run(service, port string, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	backend, err := storage.Open(ctx, storage.Config{
		Driver:        config.String("STORAGE_DRIVER", storage.DriverPostgres),
		DatabaseURL:   config.String("DATABASE_URL", ""),
		SQLitePath:    config.String("SQLITE_PATH", "data/expertbook.db"),
		MongoURI:      config.String("MONGO_URI", ""),
		MongoDatabase: config.String("MONGO_DATABASE", "expertbook"),
		Migrate:       config.Bool("MIGRATE_ON_START", true),
	}, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	readyChecks := append([]runtime.ReadyCheck{}, backend.Ready...)

	var m *metrics.Metrics
	hub := fanout.NewHub(fanout.WithDropHook(func(expertID string) {
		m.EventDropped(expertID)
	}))
	m = metrics.New(hub.SubscriberCount)

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" && backend.Outbox == nil {
		logger.Warn("KAFKA_BROKERS ignored; outbox requires the postgres driver", "driver", backend.Driver)
		brokers = ""
	}

	transport := config.String("FANOUT_TRANSPORT", "")
	if transport == "" {
		transport = transportLocal
		if rdb != nil {
			transport = transportRedis
		}
	}

	var notifier reservation.Notifier
	switch transport {
	case transportLocal:
		notifier = hub
	case transportRedis:
		if rdb == nil {
			return errors.New("FANOUT_TRANSPORT=redis requires REDIS_ADDR")
		}
		bridge := fanout.NewRedisBridge(rdb, hub, logger, fanout.BridgeConfig{
			Channel:       config.String("FANOUT_CHANNEL", fanout.DefaultChannel),
			OnStateChange: m.BreakerTransition,
		})
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("fanout bridge stopped", "err", err)
			}
		}()
		notifier = bridge
	case transportKafka:
		if brokers == "" {
			return errors.New("FANOUT_TRANSPORT=kafka requires KAFKA_BROKERS and the postgres driver")
		}
		// Slot events reach the hub through the outbox relay, so the engine
		// does not notify directly.
		hostname, _ := os.Hostname()
		groupID := config.String("FANOUT_GROUP_ID", service+"-fanout-"+hostname)
		go fanout.NewKafkaFeed(fanout.NewKafkaReader(brokers, groupID), hub, logger).Run(ctx)
	default:
		return fmt.Errorf("unknown FANOUT_TRANSPORT %q", transport)
	}
	logger.Info("fanout transport selected", "transport", transport)

	engine := reservation.New(backend.Experts, backend.Ledger, logger,
		reservation.WithNotifier(notifier),
		reservation.WithRecorder(m),
	)

	if brokers != "" {
		writer := kafkax.NewWriter(brokers)
		defer func() { _ = writer.Close() }()
		relay := outbox.NewPublisher(backend.Outbox, writer, logger, outbox.PublisherConfig{
			PollEvery: 2 * time.Second,
			BatchSize: 50,
			OnRelay:   m.OutboxRelayed,
		})
		go relay.Run(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	rateLimit, err := rateLimiter(ctx, rdb, logger)
	if err != nil {
		return err
	}
	requestTimeout, err := config.Duration("HTTP_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return err
	}
	keepAlive, err := config.Duration("SSE_KEEPALIVE", 25*time.Second)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.Config{
		Logger:         logger,
		Service:        engine,
		Events:         hub,
		ReadyChecks:    readyChecks,
		Metrics:        m.Handler(),
		CORSOrigins:    config.List("CORS_ORIGINS", "http://localhost:3000"),
		RateLimit:      rateLimit,
		JWTSecret:      config.String("AUTH_JWT_SECRET", ""),
		RequestTimeout: requestTimeout,
		KeepAlive:      keepAlive,
	})
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(router, "booking"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var health *grpcx.HealthServer
	if grpcPort := config.String("GRPC_PORT", ""); grpcPort != "" {
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			return err
		}
		health = grpcx.NewHealthServer(logger)
		go func() {
			logger.Info("grpc health server starting", "addr", lis.Addr().String())
			if err := health.Serve(ctx, lis); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "storage", backend.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if health != nil {
		health.SetServing(true, service)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	if health != nil {
		health.SetServing(false, service)
	}
	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// rateLimiter prefers the shared Redis window when Redis is configured and
// otherwise limits per process.
func rateLimiter(ctx context.Context, rdb *redis.Client, logger *slog.Logger) (httpx.Middleware, error) {
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	if perMinute <= 0 {
		return nil, nil
	}
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "")
		return rl.Middleware(logger, true), nil
	}

	rl := httpx.NewRateLimiter(perMinute)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.Sweep(); n > 0 {
					logger.Debug("rate limiter swept idle clients", "count", n)
				}
			}
		}
	}()
	return rl.Middleware(), nil
}
