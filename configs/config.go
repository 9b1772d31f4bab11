package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"nbrunner/pkg/models"
)

// ErrMissingNotebook is returned when no notebook URI was configured.
var ErrMissingNotebook = errors.New("document source not specified")

const DefaultPythonVersion = "3.11"

type Config struct {
	Job models.JobRequest

	WorkspaceDir     string
	PapermillBin     string
	JupyterBin       string
	KernelFamily     string
	ExecutionTimeout time.Duration
	HTTPTimeout      time.Duration

	LogLevel    string
	LogEncoding string
	LogOutput   string

	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	PushgatewayURL   string
	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64
}

func LoadConfig() *Config {
	return &Config{
		Job: models.JobRequest{
			ID:            getEnvNonEmpty("JOB_ID", uuid.New().String()),
			NotebookURI:   getEnv("NOTEBOOK", ""),
			Parameters:    getEnv("PARAMETERS", ""),
			WebhookURL:    getEnv("WEBHOOK", ""),
			WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
			PythonVersion: getEnvNonEmpty("PYTHON_VERSION", DefaultPythonVersion),
			OutputURI:     getEnv("OUTPUT_URI", ""),
		},
		WorkspaceDir:      getEnv("WORKSPACE_DIR", ""),
		PapermillBin:      getEnvNonEmpty("PAPERMILL_BIN", "papermill"),
		JupyterBin:        getEnvNonEmpty("JUPYTER_BIN", "jupyter"),
		KernelFamily:      getEnvNonEmpty("KERNEL_FAMILY", "python"),
		ExecutionTimeout:  getEnvAsDuration("EXECUTION_TIMEOUT", 0),
		HTTPTimeout:       getEnvAsDuration("HTTP_TIMEOUT", 60*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogEncoding:       getEnv("LOG_ENCODING", "console"),
		LogOutput:         getEnv("LOG_OUTPUT", "stdout"),
		S3Region:          getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		PushgatewayURL:    getEnv("PUSHGATEWAY_URL", ""),
		OTelEnabled:       getEnvAsBool("OTEL_ENABLED", false),
		OTelEndpoint:      getEnv("OTEL_ENDPOINT", "localhost:4318"),
		OTelSamplingRate:  getEnvAsFloat("OTEL_SAMPLING_RATE", 1.0),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvNonEmpty treats an empty value like an unset one.
func getEnvNonEmpty(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}
