package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the service
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Type             string `yaml:"type"` // azure, s3, local
	Container        string `yaml:"container"`
	ConnectionString string `yaml:"connection_string"`
	Bucket           string `yaml:"bucket"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	LocalPath        string `yaml:"local_path"`
	ConditionalWrite bool   `yaml:"conditional_write"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// LoadFromEnv loads configuration from environment variables. It reads the
// environment once and returns a value; nothing consults the environment
// after construction.
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Storage: StorageConfig{
			Type:             getEnv("STORAGE_TYPE", "local"),
			Container:        getEnv("AZURE_STORAGE_CONTAINER", ""),
			ConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
			Bucket:           getEnv("STORAGE_BUCKET", ""),
			Region:           getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:         getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:        getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:        getEnv("STORAGE_SECRET_KEY", ""),
			LocalPath:        getEnv("STORAGE_LOCAL_PATH", "./objects"),
			ConditionalWrite: getEnvBool("STORAGE_CONDITIONAL_WRITE", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// ContainerName returns the namespace objects live in for the configured
// backend type.
func (s *StorageConfig) ContainerName() string {
	switch s.Type {
	case "azure":
		return s.Container
	case "s3":
		return s.Bucket
	default:
		return s.LocalPath
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
