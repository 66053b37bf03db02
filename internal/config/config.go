package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// ErrMissingCredential is returned when the selected provider has no API credential.
var ErrMissingCredential = errors.New("missing API credential")

// Config aggregates the settings of the whole service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Image  ImageConfig
}

// Load reads the configuration from the environment. It returns
// ErrMissingCredential when the selected provider has no credential.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}
	if err := ai.Validate(); err != nil {
		return nil, err
	}

	image, err := loadImageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Image: image}, nil
}

// ServerConfig describes the HTTP server.
type ServerConfig struct {
	Addr string
}

// loadServerConfig resolves the listen address.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the upstream model settings.
type AIConfig struct {
	Provider     string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    *int

	Gemini GeminiConfig
	Ark    ArkConfig

	// MaxAttempts bounds upstream calls per reply, RetryDelay is the wait between them.
	MaxAttempts int
	RetryDelay  time.Duration
	// RateLimit caps upstream attempts per second across the process; zero disables it.
	RateLimit float64

	// HistoryMode replays prior turns instead of sending only the latest prompt.
	HistoryMode  bool
	HistoryLimit int
}

// GeminiConfig holds the Google Gemini API settings.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ArkConfig holds the Volcengine Ark settings.
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

// Model returns the model name of the selected provider.
func (c AIConfig) Model() string {
	if c.Provider == ProviderArk {
		return c.Ark.Model
	}
	return c.Gemini.Model
}

// Validate checks that the selected provider has the credentials it needs.
func (c AIConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: set GOOGLE_API_KEY", ErrMissingCredential)
		}
	case ProviderArk:
		if c.Ark.Model == "" {
			return fmt.Errorf("%w: set ARK_MODEL", ErrMissingCredential)
		}
		if c.Ark.APIKey == "" && (c.Ark.AccessKey == "" || c.Ark.SecretKey == "") {
			return fmt.Errorf("%w: set ARK_API_KEY or ARK_ACCESS_KEY + ARK_SECRET_KEY", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("invalid AI_PROVIDER value %q", c.Provider)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("invalid AI_MAX_ATTEMPTS value %d: must be at least 1", c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("invalid AI_RETRY_DELAY value %s", c.RetryDelay)
	}
	return nil
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	maxAttempts := 3
	if override, err := parseOptionalIntEnv("AI_MAX_ATTEMPTS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		maxAttempts = *override
	}

	retryDelay, err := parseDurationEnv("AI_RETRY_DELAY", 2*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	rateLimit := 0.0
	if override, err := parseOptionalFloatEnv("AI_RATE_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		rateLimit = *override
	}

	historyMode, err := parseBoolEnv("AI_HISTORY_MODE", false)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 20
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	return AIConfig{
		Provider:     strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini)),
		SystemPrompt: strings.TrimSpace(os.Getenv("AI_SYSTEM_PROMPT")),
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
			Model:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Ark: ArkConfig{
			APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:     strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		},
		MaxAttempts:  maxAttempts,
		RetryDelay:   retryDelay,
		RateLimit:    rateLimit,
		HistoryMode:  historyMode,
		HistoryLimit: historyLimit,
	}, nil
}

// ImageConfig holds the upload limits.
type ImageConfig struct {
	MaxBytes     int64
	MaxDimension int
	// MaxPixels bounds width*height so oversized images are refused before decoding.
	MaxPixels int64
}

func loadImageConfig() (ImageConfig, error) {
	maxBytes := int64(10 << 20)
	if override, err := parseOptionalIntEnv("IMAGE_MAX_BYTES"); err != nil {
		return ImageConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return ImageConfig{}, fmt.Errorf("invalid IMAGE_MAX_BYTES value %d", *override)
		}
		maxBytes = int64(*override)
	}

	maxDimension := 2048
	if override, err := parseOptionalIntEnv("IMAGE_MAX_DIMENSION"); err != nil {
		return ImageConfig{}, err
	} else if override != nil {
		// 0 disables downscaling.
		maxDimension = *override
	}

	maxPixels := int64(40_000_000)
	if override, err := parseOptionalIntEnv("IMAGE_MAX_PIXELS"); err != nil {
		return ImageConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return ImageConfig{}, fmt.Errorf("invalid IMAGE_MAX_PIXELS value %d", *override)
		}
		maxPixels = int64(*override)
	}

	return ImageConfig{MaxBytes: maxBytes, MaxDimension: maxDimension, MaxPixels: maxPixels}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
