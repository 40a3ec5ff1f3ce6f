package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 8080
	DefaultSegments    = 4
	DefaultSegmentSize = 1024
)

// LoadConfig loads a portal configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// validateConfig validates the portal configuration
func validateConfig(config *Config) error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if config.Segments < 0 {
		return fmt.Errorf("segments cannot be negative")
	}
	if config.SegmentSize < 0 {
		return fmt.Errorf("segment size cannot be negative")
	}
	if config.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if config.FailTokenEvery < 0 {
		return fmt.Errorf("fail_token_every cannot be negative")
	}
	return nil
}

// applyDefaults fills unset values
func applyDefaults(config *Config) {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Segments == 0 {
		config.Segments = DefaultSegments
	}
	if config.SegmentSize == 0 {
		config.SegmentSize = DefaultSegmentSize
	}
}
