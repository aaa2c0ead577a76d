package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/crawler"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/iatix"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read configuration: %v\n", err)
		os.Exit(1)
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()

	logger := ectologger.NewEctoLogger(func(m ectologger.EctoLogMessage) {
		data, _ := json.Marshal(m)
		zlog.Info(string(data))
	})

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&exporters.ConsoleExporter{}))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	// Database
	dbPort, err := strconv.Atoi(cfg.DatabasePort)
	if err != nil {
		return errors.Wrap(err, "invalid DB_PORT")
	}
	conn, err := database.ConnectPostgres(database.PostgresConfig{
		Host:            cfg.DatabaseHost,
		Port:            dbPort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	driver, err := migratepg.WithInstance(conn.DB, &migratepg.Config{})
	if err != nil {
		return err
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return err
	}

	db := database.NewDatabaseInstance(conn, logger)

	// Events
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer func() { _ = producer.Close() }()
	emitter := events.NewEmitter(producer, logger)

	// Import pipeline
	imp := crawler.New(db, logger, emitter, iatix.Conversions{})
	imp.Workers = cfg.CrawlerWorkerCount

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
			if cfg.ForceReparse && msg.UpdateRequest != nil {
				msg.UpdateRequest.Force = true
			}
			return imp.HandleMessage(ctx, msg)
		})
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = consumer.Stop() }()
	}

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	var consumerHealth interface{ Health() bool }
	if consumer != nil {
		consumerHealth = consumer
	}
	checker := health.NewChecker(conn, consumerHealth, version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
