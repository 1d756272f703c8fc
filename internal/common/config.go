package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/roomathon/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment   string              `toml:"environment"` // "development" or "production"
	Server        ServerConfig        `toml:"server"`
	Storage       StorageConfig       `toml:"storage"`
	Reports       ReportsConfig       `toml:"reports"`
	Images        ImagesConfig        `toml:"images"`
	LLM           LLMConfig           `toml:"llm"`
	OpenAI        OpenAIConfig        `toml:"openai"`
	Gemini        GeminiConfig        `toml:"gemini"`
	Claude        ClaudeConfig        `toml:"claude"`
	SMTP          SMTPConfig          `toml:"smtp"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
	Blob   BlobConfig   `toml:"blob"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// BlobConfig selects where finished reports are published
type BlobConfig struct {
	Provider        string `toml:"provider"`         // "local" or "gcs"
	Bucket          string `toml:"bucket"`           // GCS bucket name
	CDNDomain       string `toml:"cdn_domain"`       // Optional CDN host used for public URLs
	CredentialsFile string `toml:"credentials_file"` // GCS service account file or inline JSON
	LocalDir        string `toml:"local_dir"`        // Root directory for the local provider
	PublicBaseURL   string `toml:"public_base_url"`  // URL prefix served for the local provider
	UploadTimeout   string `toml:"upload_timeout"`   // e.g. "2m"
}

// ReportsConfig controls the report generation pipeline
type ReportsConfig struct {
	OutputDir              string `toml:"output_dir"`               // Intermediate PDF directory
	Timeout                string `toml:"timeout"`                  // Upper bound for one generation
	SerializePerInspection bool   `toml:"serialize_per_inspection"` // Queue concurrent requests for the same inspection
	Title                  string `toml:"title"`                    // Heading printed on page one
}

// ImagesConfig controls downloading of room images
type ImagesConfig struct {
	Timeout   string `toml:"timeout"`    // Per-image download timeout
	MaxBytes  int64  `toml:"max_bytes"`  // Larger bodies are rejected
	RateLimit int    `toml:"rate_limit"` // Requests per second across all hosts
	UserAgent string `toml:"user_agent"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains settings shared by all providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "openai", "gemini" or "claude"
	MaxTokens       int         `toml:"max_tokens"`       // Completion budget for the summary
	Timeout         string      `toml:"timeout"`          // Per-call timeout
	MaxRetries      int         `toml:"max_retries"`      // Provider-level retries on rate limits
}

// OpenAIConfig contains OpenAI chat-completions configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`    // default: "gpt-4o"
	BaseURL     string  `toml:"base_url"` // OpenAI-compatible gateway
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// SMTPConfig holds fallback mail settings. Values stored in the KV store under smtp_* win.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
	UseTLS   bool   `toml:"use_tls"`
	Timeout  string `toml:"timeout"`
}

// NotificationsConfig controls retrying of failed report emails
type NotificationsConfig struct {
	RetryEnabled  bool   `toml:"retry_enabled"`
	RetrySchedule string `toml:"retry_schedule"` // cron expression
	MaxAttempts   int    `toml:"max_attempts"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default: "15:04:05"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Blob: BlobConfig{
				Provider:      "local",
				LocalDir:      "./data/public",
				PublicBaseURL: "http://localhost:8085/files",
				UploadTimeout: "2m",
			},
		},
		Reports: ReportsConfig{
			OutputDir:              "./reports",
			Timeout:                "10m",
			SerializePerInspection: true,
			Title:                  "Inspection Report",
		},
		Images: ImagesConfig{
			Timeout:   "30s",
			MaxBytes:  20 * 1024 * 1024,
			RateLimit: 5,
			UserAgent: "Roomathon-Reports/1.0",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOpenAI,
			MaxTokens:       2000,
			Timeout:         "2m",
			MaxRetries:      2,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o",
			Temperature: 0.3,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0.3,
		},
		SMTP: SMTPConfig{
			Port:     587,
			UseTLS:   true,
			FromName: "Roomathon",
			Timeout:  "30s",
		},
		Notifications: NotificationsConfig{
			RetryEnabled:  true,
			RetrySchedule: "*/10 * * * *",
			MaxAttempts:   5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ROOMATHON_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("ROOMATHON_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ROOMATHON_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("ROOMATHON_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if provider := os.Getenv("ROOMATHON_BLOB_PROVIDER"); provider != "" {
		config.Storage.Blob.Provider = provider
	}
	if bucket := os.Getenv("ROOMATHON_BLOB_BUCKET"); bucket != "" {
		config.Storage.Blob.Bucket = bucket
	}
	if cdn := os.Getenv("ROOMATHON_BLOB_CDN_DOMAIN"); cdn != "" {
		config.Storage.Blob.CDNDomain = cdn
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && config.Storage.Blob.CredentialsFile == "" {
		config.Storage.Blob.CredentialsFile = creds
	}

	// Reports configuration
	if dir := os.Getenv("ROOMATHON_REPORTS_DIR"); dir != "" {
		config.Reports.OutputDir = dir
	}
	if timeout := os.Getenv("ROOMATHON_REPORTS_TIMEOUT"); timeout != "" {
		config.Reports.Timeout = timeout
	}

	// Logging configuration
	if level := os.Getenv("ROOMATHON_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ROOMATHON_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM configuration
	if provider := os.Getenv("ROOMATHON_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("ROOMATHON_OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey // ROOMATHON_ prefix takes priority
	}
	if model := os.Getenv("ROOMATHON_OPENAI_MODEL"); model != "" {
		config.OpenAI.Model = model
	}
	if baseURL := os.Getenv("ROOMATHON_OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}
	if apiKey := os.Getenv("ROOMATHON_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("ROOMATHON_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("ROOMATHON_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("ROOMATHON_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// SMTP configuration
	if host := os.Getenv("ROOMATHON_SMTP_HOST"); host != "" {
		config.SMTP.Host = host
	}
	if port := os.Getenv("ROOMATHON_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.SMTP.Port = p
		}
	}
	if username := os.Getenv("ROOMATHON_SMTP_USERNAME"); username != "" {
		config.SMTP.Username = username
	}
	if password := os.Getenv("ROOMATHON_SMTP_PASSWORD"); password != "" {
		config.SMTP.Password = password
	}
	if from := os.Getenv("ROOMATHON_SMTP_FROM"); from != "" {
		config.SMTP.From = from
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"openai_api_key":    {"ROOMATHON_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"gemini_api_key":    {"ROOMATHON_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"ROOMATHON_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// ParseDuration parses a duration string, returning fallback when empty or invalid
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
