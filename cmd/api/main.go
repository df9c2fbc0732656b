package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/auditkit/papertrail/config"
	documentrepo "github.com/auditkit/papertrail/internal/repositories/document"
	reportrepo "github.com/auditkit/papertrail/internal/repositories/report"
	rulerepo "github.com/auditkit/papertrail/internal/repositories/rule"
	"github.com/auditkit/papertrail/pkg/embedding"
	"github.com/auditkit/papertrail/pkg/evaluator"
	"github.com/auditkit/papertrail/pkg/events"
	"github.com/auditkit/papertrail/pkg/graph"
	"github.com/auditkit/papertrail/pkg/kafka"
	"github.com/auditkit/papertrail/pkg/matching"
	"github.com/auditkit/papertrail/pkg/middleware"
	"github.com/auditkit/papertrail/pkg/platform/database"
	"github.com/auditkit/papertrail/pkg/platform/redis"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
	"github.com/auditkit/papertrail/pkg/processor"
	documentroutes "github.com/auditkit/papertrail/pkg/routes/document"
	evaluationroutes "github.com/auditkit/papertrail/pkg/routes/evaluation"
	"github.com/auditkit/papertrail/pkg/routes/health"
	matchroutes "github.com/auditkit/papertrail/pkg/routes/match"
	ruleroutes "github.com/auditkit/papertrail/pkg/routes/rule"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	tracingEndpoint := ""
	if cfg.TracingEnabled {
		tracingEndpoint = cfg.TracingEndpoint
	}
	shutdownTracing, err := tracing.Init(ctx, cfg.AppName, tracingEndpoint)
	if err != nil {
		fatal(logger, err, "Failed to initialize tracing")
	}

	db, err := database.Connect(ctx, database.Config{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		fatal(logger, err, "Failed to connect to database")
	}

	migrations := database.NewMigrationService(logger, database.MigrationConfig{
		FolderPath: cfg.DatabaseMigrationFolderPath,
		Version:    uint(cfg.DatabaseMigrationVersion),
		Force:      cfg.DatabaseMigrationForce,
	})
	if err := migrations.Migrate(cfg.DatabaseName, db); err != nil {
		fatal(logger, err, "Failed to run database migrations")
	}

	var redisClient *redis.Client
	if cfg.EmbeddingCacheEnable {
		redisClient, err = redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, embedding cache disabled")
			redisClient = nil
		}
	}

	graphClient, err := graph.NewClient(graph.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
	}, logger)
	if err != nil {
		fatal(logger, err, "Failed to create graph client")
	}
	graphDocs := graph.NewDocumentService(graphClient, logger)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	documentRepo := documentrepo.NewRepository(db, logger)
	ruleRepo := rulerepo.NewRepository(db, logger)
	reportRepo := reportrepo.NewRepository(db, logger)

	batch := evaluator.NewBatch(evaluator.New(logger), cfg.EvaluationWorkerCount, logger)

	var embedder embedding.Provider
	if cfg.MatchSemanticEnabled && cfg.EmbeddingServiceURL != "" {
		embedder = embedding.NewHTTPProvider(cfg.EmbeddingServiceURL, cfg.EmbeddingServiceToken, logger)
		if redisClient != nil {
			embedder = embedding.NewCachedProvider(embedder, redisClient, cfg.EmbeddingCacheTTL, logger)
		}
	}
	matcher := matching.NewMatcher(embedder, logger)

	proc := processor.NewProcessor(logger, documentRepo, ruleRepo, reportRepo, batch, matcher, graphDocs, emitter)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, proc.ProcessMessage)
		if err := consumer.Start(ctx); err != nil {
			fatal(logger, err, "Failed to start Kafka consumer")
		}
	}

	if err := registerDependencies(logger, documentRepo, ruleRepo, reportRepo, graphDocs, proc); err != nil {
		fatal(logger, err, "Failed to register dependencies")
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	api := e.Group("/api/v1")
	documentroutes.Register(api.Group("/documents"))
	ruleroutes.Register(api.Group("/rules"))
	evaluationroutes.Register(api.Group("/evaluations"))
	matchroutes.Register(api.Group("/matches"))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var consumerHealth interface{ Health() bool }
	if consumer != nil {
		consumerHealth = consumer
	}
	var redisHealth health.RedisPinger
	if redisClient != nil {
		redisHealth = redisClient
	}
	checker := health.NewChecker(db.DB, redisHealth, graphClient, consumerHealth, cfg.Version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil {
			logger.WithError(err).Info("HTTP server stopped")
		}
	}()

	logger.WithFields(map[string]any{
		"app":  cfg.AppName,
		"port": cfg.Port,
	}).Info("Service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Error("Kafka consumer shutdown failed")
		}
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Error("Kafka producer shutdown failed")
	}
	if err := graphClient.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graph client shutdown failed")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Error("Redis client shutdown failed")
		}
	}
	if err := db.Close(); err != nil {
		logger.WithError(err).Error("Database shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Error("Tracing shutdown failed")
	}
}

func fatal(logger ectologger.Logger, err error, msg string) {
	logger.WithError(err).Error(msg)
	os.Exit(1)
}

// newLogger emits structured JSON log lines to stdout
func newLogger(cfg config.Config) ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		if cfg.PrettyLogs {
			b, _ := json.MarshalIndent(msg, "", "  ")
			fmt.Println(string(b))
			return
		}
		b, _ := json.Marshal(msg)
		fmt.Println(string(b))
	})
}

// registerDependencies populates the DI container the route handlers pull from
func registerDependencies(
	logger ectologger.Logger,
	documentRepo *documentrepo.Repository,
	ruleRepo *rulerepo.Repository,
	reportRepo *reportrepo.Repository,
	graphDocs *graph.DocumentService,
	proc *processor.Processor,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*documentrepo.Repository](container, documentRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*rulerepo.Repository](container, ruleRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reportrepo.Repository](container, reportRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*graph.DocumentService](container, graphDocs); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*processor.Processor](container, proc); err != nil {
		return err
	}

	return nil
}
