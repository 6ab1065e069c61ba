package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that the configuration can start the relay. Missing secrets
// are reported here so that startup fails instead of silently accepting
// unauthenticated traffic.
func (c *Config) Validate() error {
	var errs []error

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Service.LogLevel)] {
		errs = append(errs, fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", c.Service.LogLevel))
	}
	if f := strings.ToLower(c.Service.LogFormat); f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("service.log_format must be json or text (got %q)", c.Service.LogFormat))
	}

	if !strings.HasPrefix(c.Webhook.Path, "/") {
		errs = append(errs, fmt.Errorf("webhook.path must start with '/' (got %q)", c.Webhook.Path))
	}
	if strings.TrimSpace(c.Webhook.SignatureHeader) == "" {
		errs = append(errs, errors.New("webhook.signature_header is required"))
	}
	if _, err := ParseSize(c.Webhook.MaxBodySize); err != nil {
		errs = append(errs, fmt.Errorf("webhook.max_body_size %q: %w", c.Webhook.MaxBodySize, err))
	}
	if c.Webhook.ProcessTimeout <= 0 {
		errs = append(errs, errors.New("webhook.process_timeout must be positive"))
	}
	if c.Webhook.MaxConcurrentEvents <= 0 {
		errs = append(errs, errors.New("webhook.max_concurrent_events must be positive"))
	}

	if !c.Webhook.SkipSignatureVerification {
		errs = append(errs, requireSecret("line.channel_secret", c.Line.ChannelSecret))
	}
	errs = append(errs, requireSecret("line.channel_access_token", c.Line.ChannelAccessToken))
	errs = append(errs, requireURL("line.api_base_url", c.Line.APIBaseURL))
	errs = append(errs, requireURL("line.data_api_base_url", c.Line.DataAPIBaseURL))
	if c.Line.Timeout <= 0 {
		errs = append(errs, errors.New("line.timeout must be positive"))
	}
	if _, err := ParseSize(c.Line.MaxMediaSize); err != nil {
		errs = append(errs, fmt.Errorf("line.max_media_size %q: %w", c.Line.MaxMediaSize, err))
	}

	if c.Image.MaxWidth <= 0 {
		errs = append(errs, errors.New("image.max_width must be positive"))
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		errs = append(errs, fmt.Errorf("image.quality must be between 1 and 100 (got %d)", c.Image.Quality))
	}
	if c.Image.MaxPixels <= 0 {
		errs = append(errs, errors.New("image.max_pixels must be positive"))
	}

	errs = append(errs, requireSecret("store.token", c.Store.Token))
	if _, _, err := c.Store.OwnerRepo(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Store.Branch) == "" {
		errs = append(errs, errors.New("store.branch is required"))
	}
	if strings.Contains(c.Store.Directory, "..") {
		errs = append(errs, fmt.Errorf("store.directory must not contain '..' (got %q)", c.Store.Directory))
	}
	errs = append(errs, requireURL("store.api_base_url", c.Store.APIBaseURL))
	errs = append(errs, requireURL("store.raw_base_url", c.Store.RawBaseURL))
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout must be positive"))
	}

	return errors.Join(errs...)
}

// OwnerRepo splits Repository ("owner/repo") into its parts.
func (s StoreConfig) OwnerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s.Repository), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("store.repository must be in owner/repo form (got %q)", s.Repository)
	}
	return owner, repo, nil
}

func requireSecret(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}

func requireURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL (got %q)", field, value)
	}
	return nil
}
