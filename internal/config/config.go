package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables
// (optionally seeded from a .env file).
type Config struct {
	// Input artifacts.
	DataDir         string
	HisDataDir      string // per-station directories of raw per-day files
	StationsFile    string // valid-station list, one ID per line
	StationListFile string // station metadata catalog document

	// Output artifacts.
	NeighborCacheFile string
	CleanedCSV        string
	ImputedCSV        string
	ImputeLogFile     string

	// Imputation parameters.
	MinNeighbors   int
	IDWPower       float64
	WorkerFraction float64

	// Observability.
	HTTPAddr  string // empty disables the metrics/health server
	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration

	// Optional Kafka publishing of imputed rows.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	dataDir := envOrDefault("DATA_DIR", "data")

	minNeighbors, err := parsePositiveInt("MIN_NEIGHBORS", 3)
	if err != nil {
		return nil, err
	}
	idwPower, err := parsePositiveFloat("IDW_POWER", 2)
	if err != nil {
		return nil, err
	}
	workerFraction, err := parsePositiveFloat("WORKER_FRACTION", 0.8)
	if err != nil {
		return nil, err
	}
	if workerFraction > 1 {
		return nil, errors.New("WORKER_FRACTION must be in (0, 1]")
	}

	shutdownTimeout := 10 * time.Second
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
		}
		shutdownTimeout = d
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DataDir:         dataDir,
		HisDataDir:      envOrDefault("HIS_DATA_DIR", filepath.Join(dataDir, "his_data")),
		StationsFile:    envOrDefault("STATIONS_FILE", filepath.Join(dataDir, "web_api", "stations_valid.txt")),
		StationListFile: envOrDefault("STATION_LIST_FILE", filepath.Join(dataDir, "web_api", "station_list.json")),

		NeighborCacheFile: envOrDefault("NEIGHBOR_CACHE_FILE", filepath.Join(dataDir, "web_api", "station_neighbors.json")),
		CleanedCSV:        envOrDefault("CLEANED_CSV", filepath.Join(dataDir, "cleaned_initial_data.csv")),
		ImputedCSV:        envOrDefault("IMPUTED_CSV", filepath.Join(dataDir, "cleaned_initial_data_imputed.csv")),
		ImputeLogFile:     envOrDefault("IMPUTE_LOG", filepath.Join(dataDir, "logs", "preprocess_impute.log")),

		MinNeighbors:   minNeighbors,
		IDWPower:       idwPower,
		WorkerFraction: workerFraction,

		HTTPAddr:  os.Getenv("HTTP_ADDR"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "imputed-observations"),
		KafkaEnabled:   kafkaEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parsePositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", key)
	}
	return f, nil
}
