// Package config provides YAML-based configuration for the relay service.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/models"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server    ServerConfig                         `yaml:"server"`
	Storage   StorageConfig                        `yaml:"storage"`
	RateLimit RateLimitConfig                      `yaml:"rateLimit"`
	Provider  ProviderConfig                       `yaml:"provider"`
	Logging   LoggingConfig                        `yaml:"logging"`
	Workflows map[string]models.WorkflowDescriptor `yaml:"workflows"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains file storage settings.
type StorageConfig struct {
	UploadsDirectory string `yaml:"uploadsDirectory"`
}

// RateLimitConfig bounds processing requests per client address.
type RateLimitConfig struct {
	WindowSeconds int `yaml:"windowSeconds"`
	MaxRequests   int `yaml:"maxRequests"`
}

// ProviderConfig contains credentials and tuning for the remote
// workflow-processing provider.
type ProviderConfig struct {
	BaseURL             string `yaml:"baseUrl"`
	APIKey              string `yaml:"apiKey"`
	TimeoutSeconds      int    `yaml:"timeoutSeconds"`
	PollAttempts        int    `yaml:"pollAttempts"`
	PollIntervalSeconds int    `yaml:"pollIntervalSeconds"`
}

// LoggingConfig contains logging options.
type LoggingConfig struct {
	Level                string `yaml:"level"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8080,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			UploadsDirectory: "./uploads",
		},
		RateLimit: RateLimitConfig{
			WindowSeconds: 120,
			MaxRequests:   10,
		},
		Provider: ProviderConfig{
			BaseURL:             "https://www.runninghub.cn",
			TimeoutSeconds:      30,
			PollAttempts:        1,
			PollIntervalSeconds: 2,
		},
		Logging: LoggingConfig{
			Level:                "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig reads the YAML configuration file at path, overlaying it onto
// the defaults. Any parse or validation failure is fatal to process start.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.apiKey is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.baseUrl is required")
	}
	if len(c.Workflows) == 0 {
		return fmt.Errorf("at least one workflow must be configured")
	}
	for name, wf := range c.Workflows {
		if wf.WorkflowID == "" {
			return fmt.Errorf("workflow %q is missing workflowId", name)
		}
	}
	return nil
}

// EnsureDirectories creates the uploads directory if it does not exist.
func (c *AppConfig) EnsureDirectories() error {
	dir, err := filepath.Abs(c.Storage.UploadsDirectory)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// GetServerAddr returns the listen address for the HTTP server.
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetUploadDir returns the configured uploads directory.
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}
