// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/dvloznov/ocr-ledger/internal/currency"
	"github.com/dvloznov/ocr-ledger/internal/infra/bigquery"
	"github.com/dvloznov/ocr-ledger/internal/pipeline"
	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	StoreNotion   = "notion"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	Server    ServerConfig
	Extractor ExtractorConfig
	Currency  CurrencyConfig
	Store     StoreConfig
	Runs      RunsConfig
	Jobs      JobsConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Port string
}

type ExtractorConfig struct {
	Backend string

	GatewayBaseURL string
	GatewayAPIKey  string
	Model          string

	GeminiAPIKey string
	GeminiModel  string

	GigaChatAPIKey string
	GigaChatScope  string
	GigaChatModel  string
}

type CurrencyConfig struct {
	APIKey  string
	BaseURL string
	Target  string
}

type StoreConfig struct {
	Backend string

	NotionAPIKey string
	DatabaseID   string

	DynamoDBTable    string
	DynamoDBRegion   string
	DynamoDBEndpoint string
}

// RunsConfig enables the BigQuery run audit when Project is set.
type RunsConfig struct {
	Project string
	Dataset string
}

type JobsConfig struct {
	Workers    int
	BufferSize int
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Load reads .env if present, then the environment. Missing credentials are
// not an error here; the stage that needs them reports a ConfigurationError.
func Load() *Config {
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Extractor: ExtractorConfig{
			Backend:        strings.ToLower(getEnv("EXTRACTOR_BACKEND", pipeline.BackendChat)),
			GatewayBaseURL: getEnv("AI_GATEWAY_BASE_URL", pipeline.DefaultChatBaseURL),
			GatewayAPIKey:  getEnv("AI_GATEWAY_API_KEY", ""),
			Model:          getEnv("AI_MODEL", pipeline.DefaultChatModel),
			GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", pipeline.DefaultGeminiModel),
			GigaChatAPIKey: getEnv("GIGACHAT_API_KEY", ""),
			GigaChatScope:  getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			GigaChatModel:  getEnv("GIGACHAT_MODEL", pipeline.DefaultGigaChatModel),
		},
		Currency: CurrencyConfig{
			APIKey:  getEnv("CURRENCY_API_KEY", getEnv("currency_API_KEY", "")),
			BaseURL: getEnv("CURRENCY_API_BASE_URL", currency.DefaultBaseURL),
			Target:  strings.ToUpper(getEnv("TARGET_CURRENCY", currency.DefaultTarget)),
		},
		Store: StoreConfig{
			Backend:          strings.ToLower(getEnv("STORE_BACKEND", StoreNotion)),
			NotionAPIKey:     getEnv("NOTION_API_KEY", getEnv("notion_API_KEY", "")),
			DatabaseID:       getEnv("DATABASE_ID", getEnv("Database_ID", "")),
			DynamoDBTable:    getEnv("DYNAMODB_TABLE", ""),
			DynamoDBRegion:   getEnv("AWS_REGION", "us-east-1"),
			DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),
		},
		Runs: RunsConfig{
			Project: getEnv("BIGQUERY_PROJECT", ""),
			Dataset: getEnv("BIGQUERY_DATASET", bigquery.DefaultDataset),
		},
		Jobs: JobsConfig{
			Workers:    getEnvInt("JOB_WORKERS", 5),
			BufferSize: getEnvInt("JOB_BUFFER_SIZE", 100),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// GenerationKey returns the credential the selected extraction backend needs.
func (c ExtractorConfig) GenerationKey() string {
	switch c.Backend {
	case pipeline.BackendGemini:
		return c.GeminiAPIKey
	case pipeline.BackendGigaChat:
		return c.GigaChatAPIKey
	default:
		return c.GatewayAPIKey
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
