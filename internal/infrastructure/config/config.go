package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	OTLP   OTLPConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type OTLPConfig struct {
	Endpoint      string
	ServiceName   string
	Environment   string
	ExportEnabled bool
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DB_NAME", "supermercado"),
			Timeout:  getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),
		},
		OTLP: OTLPConfig{
			Endpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:   getEnv("OTEL_SERVICE_NAME", "products-api"),
			Environment:   getEnv("OTEL_ENVIRONMENT", "development"),
			ExportEnabled: getEnvBool("OTEL_EXPORT_ENABLED", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
