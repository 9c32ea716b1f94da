package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/Gunvolt24/kafka-runner/config"
	cachemem "github.com/Gunvolt24/kafka-runner/internal/cache/memory"
	ikafka "github.com/Gunvolt24/kafka-runner/internal/kafka"
	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/internal/repo/postgres"
	rest "github.com/Gunvolt24/kafka-runner/internal/transport/http"
	"github.com/Gunvolt24/kafka-runner/internal/usecase"
	"github.com/Gunvolt24/kafka-runner/pkg/logger"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
	"github.com/Gunvolt24/kafka-runner/pkg/telemetry"
)

// App - собранное приложение и его внешние интерфейсы (HTTP, цикл потребления).
type App struct {
	Logger          ports.Logger  // логгер
	HTTPServer      *http.Server  // HTTP-сервер
	Worker          Worker        // цикл потребления
	gracefulTimeout time.Duration // время ожидания завершения HTTP-сервера
}

// Cleanup - функция освобождения ресурсов.
type Cleanup func()

// applyGinMode - устанавливает режим Gin по строке;
// неизвестное значение -> debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// Bootstrap - собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}

	// стек очистки, выполняется в обратном порядке
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}
	fail := func(err error) (*App, Cleanup, error) {
		cleanup()
		return nil, func() {}, err
	}

	if cfg.Metrics.Enabled {
		metrics.MustRegister()
	}

	// Трейсинг OTEL; по умолчанию - no-op провайдер.
	shutdownTrace, tErr := telemetry.Setup(ctx, cfg.TracingConfig())
	if tErr != nil {
		logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
	} else {
		if cfg.Tracing.Enabled {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		}
		closers = append(closers, func() {
			if err := shutdownTrace(context.Background()); err != nil {
				logg.Warnf(ctx, "shutdown tracing: %v", err)
			}
		})
	}

	// Postgres и миграции.
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, pool.Close)
	if err := postgres.Migrate(ctx, pool); err != nil {
		return fail(err)
	}

	// Обработка: архиватор, повторы, failover.
	repo := postgres.NewMessageRepository(pool)
	cache := cachemem.NewOffsetWindow(cfg.Archive.CacheWindow, cfg.Archive.CachePartitions, cfg.Archive.CacheTTL)
	archiver := usecase.NewArchiver(repo, cache, logg, cfg.ArchiverConfig())

	consumer, err := ikafka.NewConsumer(cfg.ConsumerConfig(), logg)
	if err != nil {
		return fail(err)
	}

	var (
		failover    messaging.Failover[kafka.Message]
		pipeClosers = []io.Closer{consumer}
	)
	if cfg.Failover.Enabled {
		parking, err := ikafka.NewParkingFailover(cfg.Kafka.Brokers, cfg.Failover.Topic, logg)
		if err != nil {
			_ = consumer.Close()
			return fail(err)
		}
		failover = parking
		pipeClosers = append(pipeClosers, parking)
		logg.Infof(ctx, "failover enabled parking_topic=%s", cfg.Failover.Topic)
	}

	processor := NewProcessor(archiver, cfg.RetryPolicy(), failover, logg)
	pipeline := NewPipeline(consumer, processor, cfg.Kafka.Topics, cfg.PollBackoff(), logg, pipeClosers...)
	closers = append(closers, func() {
		if err := pipeline.Close(); err != nil {
			logg.Warnf(ctx, "pipeline close error: %v", err)
		}
	})

	// Роутер и HTTP-сервер.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)
	handler := rest.NewHandler(repo, pipeline, logg, cfg.HTTP.HandlerTimeout)
	router := rest.NewRouter(handler, rest.RouterOptions{
		ServiceName: cfg.Tracing.ServiceName,
		Tracing:     cfg.Tracing.Enabled,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	app := &App{
		Logger:          logg,
		HTTPServer:      httpSrv,
		Worker:          pipeline,
		gracefulTimeout: cfg.HTTP.ShutdownTimeout,
	}
	return app, cleanup, nil
}

// Run - запускает HTTP-сервер и цикл потребления; ждёт отмены контекста или ошибки
// любого из них и останавливает оба. Ошибка цикла потребления возвращается вызывающему.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Infof(gctx, "consumer loop starting")
		if err := a.Worker.Run(gctx); err != nil {
			a.Logger.Errorf(gctx, "consumer loop stopped: %v", err)
			return err
		}
		a.Logger.Infof(gctx, "consumer loop stopped")
		return nil
	})

	g.Go(func() error {
		a.Logger.Infof(gctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")

		gt := a.gracefulTimeout
		if gt <= 0 {
			gt = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
		defer cancel()

		if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
		} else {
			a.Logger.Infof(ctx, "http server stopped gracefully")
		}
		return nil
	})

	err := g.Wait()

	if cerr := a.Worker.Close(); cerr != nil {
		a.Logger.Warnf(ctx, "consumer close error: %v", cerr)
	}

	a.Logger.Infof(ctx, "service stopped")
	return err
}
