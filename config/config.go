package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/QuahJunJie/industrial-iot-dashboard/classify"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Thresholds classify.Thresholds
	Database   DatabaseConfig
	Kafka      KafkaConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string
	AllowOrigins []string
}

// UpstreamConfig identifies the device feed to poll
type UpstreamConfig struct {
	BaseURL            string
	DeviceID           string
	Limit              int
	RefreshIntervalSec int
	RequestTimeoutSec  int // 0 aligns the timeout with the refresh interval
	AuthToken          string
}

// DatabaseConfig holds the optional archive connection; empty URL disables
// the archive
type DatabaseConfig struct {
	URL string
}

// KafkaConfig holds broker settings for the mock feed ingest and simulator
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// validLimits is the enumerated set of telemetry window sizes the feed
// accepts.
var validLimits = map[int]bool{30: true, 60: true, 120: true}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	limit, err := intEnv("AEGIS_LIMIT", 60)
	if err != nil {
		return nil, err
	}
	if !validLimits[limit] {
		return nil, fmt.Errorf("invalid AEGIS_LIMIT %d: must be 30, 60 or 120", limit)
	}

	refreshSec, err := intEnv("AEGIS_REFRESH_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	if refreshSec <= 0 {
		return nil, fmt.Errorf("invalid AEGIS_REFRESH_SECONDS %d: must be positive", refreshSec)
	}

	timeoutSec, err := intEnv("AEGIS_REQUEST_TIMEOUT_SECONDS", 0)
	if err != nil {
		return nil, err
	}

	thresholds, err := loadThresholds()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
			AllowOrigins: []string{
				getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
				"http://localhost:3000",
			},
		},
		Upstream: UpstreamConfig{
			BaseURL:            getEnvOrDefault("AEGIS_API_BASE_URL", "http://localhost:8090"),
			DeviceID:           getEnvOrDefault("AEGIS_DEVICE_ID", "aegis-one"),
			Limit:              limit,
			RefreshIntervalSec: refreshSec,
			RequestTimeoutSec:  timeoutSec,
			AuthToken:          os.Getenv("AEGIS_AUTH_TOKEN"),
		},
		Thresholds: thresholds,
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")},
			GroupID: getEnvOrDefault("KAFKA_GROUP_ID", "aegis-mockfeed"),
			Topic:   getEnvOrDefault("KAFKA_TOPIC", "aegis.telemetry"),
		},
	}, nil
}

// loadThresholds reads classification limits, falling back to the stock
// Aegis-One defaults per value.
func loadThresholds() (classify.Thresholds, error) {
	defaults := classify.DefaultThresholds()

	tempWarn, err := floatEnv("THRESHOLD_TEMP_WARNING", defaults.TempWarning)
	if err != nil {
		return classify.Thresholds{}, err
	}
	tempCrit, err := floatEnv("THRESHOLD_TEMP_CRITICAL", defaults.TempCritical)
	if err != nil {
		return classify.Thresholds{}, err
	}
	vibWarn, err := floatEnv("THRESHOLD_VIB_WARNING", defaults.VibWarning)
	if err != nil {
		return classify.Thresholds{}, err
	}
	vibCrit, err := floatEnv("THRESHOLD_VIB_CRITICAL", defaults.VibCritical)
	if err != nil {
		return classify.Thresholds{}, err
	}
	distWarn, err := floatEnv("THRESHOLD_DISTANCE_WARNING_CM", defaults.DistanceWarnCm)
	if err != nil {
		return classify.Thresholds{}, err
	}
	distCrit, err := floatEnv("THRESHOLD_DISTANCE_CRITICAL_CM", defaults.DistanceCritCm)
	if err != nil {
		return classify.Thresholds{}, err
	}

	thresholds := classify.Thresholds{
		TempWarning:    tempWarn,
		TempCritical:   tempCrit,
		VibWarning:     vibWarn,
		VibCritical:    vibCrit,
		DistanceWarnCm: distWarn,
		DistanceCritCm: distCrit,
	}
	if !thresholds.Valid() {
		return classify.Thresholds{}, fmt.Errorf("invalid thresholds: %+v", thresholds)
	}

	return thresholds, nil
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return value, nil
}

func floatEnv(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return value, nil
}
