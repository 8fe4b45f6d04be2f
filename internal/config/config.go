package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Detect      DetectConfig
	Pipeline    PipelineConfig
	Narrative   NarrativeConfig
	Sentiment   SentimentConfig
	Sources     SourcesConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// DetectConfig holds duplicate detection configuration
type DetectConfig struct {
	TimeWindow          time.Duration
	DistanceMeters      float64
	SimilarityThreshold float64
}

// PipelineConfig holds event pipeline configuration
type PipelineConfig struct {
	ScanInterval   time.Duration
	LookbackWindow time.Duration
	MinClusterSize int
	EventsTopic    string
}

// NarrativeConfig holds narrative service configuration
type NarrativeConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// SentimentConfig holds sentiment sweep configuration
type SentimentConfig struct {
	SweepInterval  time.Duration
	LookbackWindow time.Duration
	AreasFile      string
}

// SourcesConfig holds social source configuration
type SourcesConfig struct {
	TwitterBearerToken    string
	TwitterConsumerKey    string
	TwitterConsumerSecret string
	TwitterAccessToken    string
	TwitterAccessSecret   string
	TwitterQuery          string
	TwitterMaxResults     int
	RedditSubreddit       string
	SocialSources         []string
	ReportSources         []string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "citywatch"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Detect: DetectConfig{
			TimeWindow:          getEnvAsDuration("DETECT_TIME_WINDOW", 1*time.Hour),
			DistanceMeters:      getEnvAsFloat("DETECT_DISTANCE_METERS", 500.0),
			SimilarityThreshold: getEnvAsFloat("DETECT_SIMILARITY_THRESHOLD", 0.7),
		},
		Pipeline: PipelineConfig{
			ScanInterval:   getEnvAsDuration("PIPELINE_SCAN_INTERVAL", 2*time.Minute),
			LookbackWindow: getEnvAsDuration("PIPELINE_LOOKBACK_WINDOW", 1*time.Hour),
			MinClusterSize: getEnvAsInt("PIPELINE_MIN_CLUSTER_SIZE", 3),
			EventsTopic:    getEnv("PIPELINE_EVENTS_TOPIC", "citywatch"),
		},
		Narrative: NarrativeConfig{
			BaseURL: getEnv("NARRATIVE_BASE_URL", "http://localhost:9090"),
			APIKey:  getEnv("NARRATIVE_API_KEY", ""),
			Model:   getEnv("NARRATIVE_MODEL", ""),
			Timeout: getEnvAsDuration("NARRATIVE_TIMEOUT", 30*time.Second),
		},
		Sentiment: SentimentConfig{
			SweepInterval:  getEnvAsDuration("SENTIMENT_SWEEP_INTERVAL", 15*time.Minute),
			LookbackWindow: getEnvAsDuration("SENTIMENT_LOOKBACK_WINDOW", 6*time.Hour),
			AreasFile:      getEnv("SENTIMENT_AREAS_FILE", ""),
		},
		Sources: SourcesConfig{
			TwitterBearerToken:    getEnv("TWITTER_BEARER_TOKEN", ""),
			TwitterConsumerKey:    getEnv("TWITTER_CONSUMER_KEY", ""),
			TwitterConsumerSecret: getEnv("TWITTER_CONSUMER_SECRET", ""),
			TwitterAccessToken:    getEnv("TWITTER_ACCESS_TOKEN", ""),
			TwitterAccessSecret:   getEnv("TWITTER_ACCESS_SECRET", ""),
			TwitterQuery:          getEnv("TWITTER_QUERY", "(fire OR outage OR accident OR protest) san francisco"),
			TwitterMaxResults:     getEnvAsInt("TWITTER_MAX_RESULTS", 100),
			RedditSubreddit:       getEnv("REDDIT_SUBREDDIT", "sanfrancisco"),
			SocialSources:         getEnvAsSlice("SENTIMENT_SOCIAL_SOURCES", []string{"twitter", "reddit"}),
			ReportSources:         getEnvAsSlice("SENTIMENT_REPORT_SOURCES", []string{"citizen_report"}),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Narrative.APIKey == "" && config.Environment != "development" {
		return fmt.Errorf("narrative API key must be set in non-development environments")
	}

	if config.Detect.SimilarityThreshold < 0 || config.Detect.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be between 0 and 1")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
