package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	narrativeAdapter "citywatch/internal/adapter/narrative"
	"citywatch/internal/adapter/social"
	"citywatch/internal/adapter/storage"
	"citywatch/internal/config"
	"citywatch/internal/domain/area"
	"citywatch/internal/domain/narrative"
	"citywatch/internal/domain/post"
	"citywatch/internal/server"
	"citywatch/internal/service/detect"
	"citywatch/internal/service/pipeline"
	"citywatch/internal/service/sentiment"
	"citywatch/internal/service/synthesize"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()

	// Initialize storage adapters
	postStore := storage.NewPostStore(db)
	eventStore := storage.NewEventStore(db)
	sentimentStore := storage.NewSentimentStore(db)

	// Initialize the narrative service client
	narrativeClient := narrativeAdapter.NewHTTPClient(narrativeAdapter.Config{
		BaseURL: cfg.Narrative.BaseURL,
		APIKey:  cfg.Narrative.APIKey,
		Model:   cfg.Narrative.Model,
		Timeout: cfg.Narrative.Timeout,
	})

	// Initialize services
	detector := detect.NewDetector(detect.Config{
		TimeWindow:          cfg.Detect.TimeWindow,
		MaxDistanceMeters:   cfg.Detect.DistanceMeters,
		SimilarityThreshold: cfg.Detect.SimilarityThreshold,
	})

	synthesizer := synthesize.NewSynthesizer(narrativeClient, logger)

	// Initialize the event pipeline
	eventPipeline := pipeline.NewPipeline(
		initSources(cfg.Sources),
		detector,
		synthesizer,
		narrative.NopGeocoder{},
		postStore,
		eventStore,
		natsConn,
		pipeline.Config{
			ScanInterval:   cfg.Pipeline.ScanInterval,
			LookbackWindow: cfg.Pipeline.LookbackWindow,
			MinClusterSize: cfg.Pipeline.MinClusterSize,
			EventsTopic:    cfg.Pipeline.EventsTopic,
		},
		logger,
	)

	// Initialize the sentiment sweeper
	areas, err := loadAreas(cfg.Sentiment.AreasFile)
	if err != nil {
		logger.Fatal("Failed to load area definitions", zap.Error(err))
	}

	areaFetcher := storage.NewAreaFetcher(
		postStore,
		cfg.Sources.SocialSources,
		cfg.Sources.ReportSources,
		cfg.Sentiment.LookbackWindow,
	)

	sweeper := sentiment.NewSweeper(
		areas,
		areaFetcher,
		sentiment.NewNarrativeAnalyzer(narrativeClient, logger),
		sentimentStore,
		natsConn,
		sentiment.SweeperConfig{
			SweepInterval: cfg.Sentiment.SweepInterval,
			EventsTopic:   cfg.Pipeline.EventsTopic,
		},
		logger,
	)

	// Start background loops
	if err := eventPipeline.Start(ctx); err != nil {
		logger.Fatal("Failed to start event pipeline", zap.Error(err))
	}

	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("Failed to start sentiment sweeper", zap.Error(err))
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		eventStore,
		sentimentStore,
		natsConn,
		cfg.Pipeline.EventsTopic,
		logger,
	)

	// Start HTTP server
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Stop the background loops before the HTTP surface so in-flight
	// synthesis finishes with storage still reachable
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := eventPipeline.Stop(shutdownCtx); err != nil {
		logger.Warn("Event pipeline shutdown error", zap.Error(err))
	}

	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Warn("Sentiment sweeper shutdown error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}

// Initialize the structured logger
func initLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// Build the configured social sources. A source without credentials is
// skipped rather than failing startup.
func initSources(cfg config.SourcesConfig) []post.Source {
	var sources []post.Source

	switch {
	case cfg.TwitterAccessToken != "" && cfg.TwitterConsumerKey != "":
		sources = append(sources, social.NewTwitterUserSource(social.TwitterUserConfig{
			ConsumerKey:    cfg.TwitterConsumerKey,
			ConsumerSecret: cfg.TwitterConsumerSecret,
			AccessToken:    cfg.TwitterAccessToken,
			AccessSecret:   cfg.TwitterAccessSecret,
			Query:          cfg.TwitterQuery,
			MaxResults:     cfg.TwitterMaxResults,
		}))
	case cfg.TwitterBearerToken != "":
		sources = append(sources, social.NewTwitterSource(social.TwitterConfig{
			BearerToken: cfg.TwitterBearerToken,
			Query:       cfg.TwitterQuery,
			MaxResults:  cfg.TwitterMaxResults,
		}))
	}

	if cfg.RedditSubreddit != "" {
		sources = append(sources, social.NewRedditSource(social.RedditConfig{
			Subreddit: cfg.RedditSubreddit,
		}))
	}

	return sources
}

// Load area definitions from the optional JSON file, falling back to the
// built-in list.
func loadAreas(path string) ([]area.Definition, error) {
	if path == "" {
		return area.DefaultDefinitions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read areas file: %w", err)
	}

	var areas []area.Definition
	if err := json.Unmarshal(data, &areas); err != nil {
		return nil, fmt.Errorf("unable to parse areas file: %w", err)
	}

	if len(areas) == 0 {
		return nil, fmt.Errorf("areas file %s contains no areas", path)
	}

	return areas, nil
}
