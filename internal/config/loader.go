package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrNoConfigFile is returned by DiscoverConfigPath when no file is found.
var ErrNoConfigFile = errors.New("no config file found")

// Load reads configuration from a YAML file, overlays environment variables
// and validates the result. An empty path means environment-only
// configuration.
func Load(configPath string) (*Config, error) {
	cfg, err := LoadUnvalidated(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated performs every Load step except validation. Secrets that are
// resolved later (for example from SSM) may still be empty.
func LoadUnvalidated(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", absPath)
		}

		if err := VerifyConfigHash(absPath); err != nil {
			return nil, err
		}

		fileCfg, err := loadConfigFile(absPath)
		if err != nil {
			return nil, err
		}
		cfg = applyConfigDefaults(fileCfg)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return cfg, nil
}

// DiscoverConfigPath finds a config file by checking standard locations.
// Priority order: $IMAGERELAY_CONFIG, ~/.config/imagerelay/config.yaml,
// /etc/imagerelay/config.yaml, ./config.yaml.
func DiscoverConfigPath() (string, error) {
	if p := os.Getenv("IMAGERELAY_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "imagerelay", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	systemConfig := "/etc/imagerelay/config.yaml"
	if _, err := os.Stat(systemConfig); err == nil {
		return systemConfig, nil
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml", nil
	}

	return "", fmt.Errorf("%w (checked: $IMAGERELAY_CONFIG, ~/.config/imagerelay, /etc/imagerelay, ./config.yaml)", ErrNoConfigFile)
}

// loadConfigFile loads and parses a single config file.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = defaults.Webhook.Listen
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = defaults.Webhook.Path
	}
	if cfg.Webhook.SignatureHeader == "" {
		cfg.Webhook.SignatureHeader = defaults.Webhook.SignatureHeader
	}
	if cfg.Webhook.MaxBodySize == "" {
		cfg.Webhook.MaxBodySize = defaults.Webhook.MaxBodySize
	}
	if cfg.Webhook.ProcessTimeout == 0 {
		cfg.Webhook.ProcessTimeout = defaults.Webhook.ProcessTimeout
	}
	if cfg.Webhook.MaxConcurrentEvents == 0 {
		cfg.Webhook.MaxConcurrentEvents = defaults.Webhook.MaxConcurrentEvents
	}

	if cfg.Line.APIBaseURL == "" {
		cfg.Line.APIBaseURL = defaults.Line.APIBaseURL
	}
	if cfg.Line.DataAPIBaseURL == "" {
		cfg.Line.DataAPIBaseURL = defaults.Line.DataAPIBaseURL
	}
	if cfg.Line.Timeout == 0 {
		cfg.Line.Timeout = defaults.Line.Timeout
	}
	if cfg.Line.MaxMediaSize == "" {
		cfg.Line.MaxMediaSize = defaults.Line.MaxMediaSize
	}
	if cfg.Line.ReplyTemplate == "" {
		cfg.Line.ReplyTemplate = defaults.Line.ReplyTemplate
	}

	if cfg.Image.MaxWidth == 0 {
		cfg.Image.MaxWidth = defaults.Image.MaxWidth
	}
	if cfg.Image.Quality == 0 {
		cfg.Image.Quality = defaults.Image.Quality
	}
	if cfg.Image.MaxPixels == 0 {
		cfg.Image.MaxPixels = defaults.Image.MaxPixels
	}

	if cfg.Store.Branch == "" {
		cfg.Store.Branch = defaults.Store.Branch
	}
	if cfg.Store.Directory == "" {
		cfg.Store.Directory = defaults.Store.Directory
	}
	if cfg.Store.APIBaseURL == "" {
		cfg.Store.APIBaseURL = defaults.Store.APIBaseURL
	}
	if cfg.Store.RawBaseURL == "" {
		cfg.Store.RawBaseURL = defaults.Store.RawBaseURL
	}
	if cfg.Store.Timeout == 0 {
		cfg.Store.Timeout = defaults.Store.Timeout
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// Left in place so validation can name the missing variable.
		return match
	})
}

// ParseSize parses size strings like "1MB", "512KB" or "2048576" to bytes.
func ParseSize(size string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(size))
	if upper == "" {
		return 0, fmt.Errorf("size is empty")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
