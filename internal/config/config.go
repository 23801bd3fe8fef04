package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Storage backend selectors for uploaded receipt images.
const (
	StorageLocal = "local"
	StorageAzure = "azure"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Host string `koanf:"HOST"`
	Port string `koanf:"PORT"`

	// DataDir holds the flat JSON stores (transactions.json, users.json).
	DataDir string `koanf:"DATA_DIR"`

	// UploadsDir receives uploaded receipt images when the local storage
	// backend is selected.
	UploadsDir string `koanf:"UPLOADS_DIR"`

	RequestTimeout time.Duration `koanf:"REQUEST_TIMEOUT"`
	OCRTimeout     time.Duration `koanf:"OCR_TIMEOUT"`
	FetchTimeout   time.Duration `koanf:"IMAGE_FETCH_TIMEOUT"`

	MaxUploadBytes int64 `koanf:"MAX_UPLOAD_BYTES"`

	OCRLanguage      string `koanf:"OCR_LANGUAGE"`
	OCRMaxConcurrent int    `koanf:"OCR_MAX_CONCURRENT"`

	StorageBackend string `koanf:"STORAGE_BACKEND"`
	AzureAccount   string `koanf:"AZURE_STORAGE_ACCOUNT"`
	AzureKey       string `koanf:"AZURE_STORAGE_KEY"`
	AzureContainer string `koanf:"AZURE_STORAGE_CONTAINER"`

	JWTSecret string `koanf:"JWT_SECRET"`
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// LoadFromEnv loads configuration from the process environment on top of
// defaults and validates the result.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:             "0.0.0.0",
		Port:             "8080",
		DataDir:          "data",
		UploadsDir:       "uploads/receipts",
		RequestTimeout:   30 * time.Second,
		OCRTimeout:       60 * time.Second,
		FetchTimeout:     15 * time.Second,
		MaxUploadBytes:   10 * 1024 * 1024, // 10MB
		OCRLanguage:      "eng",
		OCRMaxConcurrent: 0, // defaults to CPU count
		StorageBackend:   StorageLocal,
		JWTSecret:        "your-secret-key",
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0 (got %d)", c.MaxUploadBytes)
	}
	if c.RequestTimeout <= 0 || c.OCRTimeout <= 0 || c.FetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, ocr=%s, fetch=%s)",
			c.RequestTimeout, c.OCRTimeout, c.FetchTimeout)
	}
	if c.OCRLanguage == "" {
		return fmt.Errorf("OCR_LANGUAGE must not be empty")
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageAzure:
		if c.AzureAccount == "" || c.AzureKey == "" || c.AzureContainer == "" {
			return fmt.Errorf("azure storage backend requires AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_STORAGE_CONTAINER")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND: %q", c.StorageBackend)
	}
	return nil
}
