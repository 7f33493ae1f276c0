package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Report store drivers.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Extraction limits.
	ExtractMaxRows       int
	ExtractMaxColumns    int
	ExtractMaxInputBytes int
	ExtractStopSpecies   string

	// Report store.
	StoreDriver    string
	StorePath      string
	StoreCacheSize int

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	maxRows, err := positiveInt("EXTRACT_MAX_ROWS", 250_000)
	if err != nil {
		return nil, err
	}
	maxColumns, err := positiveInt("EXTRACT_MAX_COLUMNS", 200)
	if err != nil {
		return nil, err
	}
	maxInputBytes, err := positiveInt("EXTRACT_MAX_INPUT_BYTES", 64<<20)
	if err != nil {
		return nil, err
	}
	storeCacheSize, err := positiveInt("STORE_CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-count-exports"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "extracted-count-history"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "cbc-history-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ExtractMaxRows:       maxRows,
		ExtractMaxColumns:    maxColumns,
		ExtractMaxInputBytes: maxInputBytes,
		ExtractStopSpecies:   os.Getenv("EXTRACT_STOP_SPECIES"),

		StoreDriver:    sharedcfg.EnvOrDefault("STORE_DRIVER", StoreNone),
		StorePath:      sharedcfg.EnvOrDefault("STORE_PATH", "data/reports.db"),
		StoreCacheSize: storeCacheSize,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	switch cfg.StoreDriver {
	case StoreNone, StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s, %s or %s", cfg.StoreDriver, StoreNone, StoreMemory, StoreSQLite)
	}
	if cfg.StoreDriver == StoreSQLite && cfg.StorePath == "" {
		return nil, errors.New("STORE_PATH is required for the sqlite store")
	}

	return cfg, nil
}

// positiveInt reads an integer variable that must be > 0 when set.
func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
