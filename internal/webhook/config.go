package webhook

import (
	"fmt"

	"github.com/mattjoyce/imagerelay/internal/config"
)

// FromGlobalConfig converts the service configuration to webhook.Config.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	wc := cfg.Webhook
	maxBodySize := int64(DefaultMaxBodySize)
	if wc.MaxBodySize != "" {
		n, err := config.ParseSize(wc.MaxBodySize)
		if err != nil {
			return Config{}, fmt.Errorf("webhook: invalid max_body_size %q: %w", wc.MaxBodySize, err)
		}
		maxBodySize = n
	}

	if cfg.Line.ChannelSecret == "" && !wc.SkipSignatureVerification {
		return Config{}, fmt.Errorf("webhook: channel secret is required unless signature verification is skipped")
	}

	return Config{
		Listen:                    wc.Listen,
		Path:                      wc.Path,
		SignatureHeader:           wc.SignatureHeader,
		Secret:                    cfg.Line.ChannelSecret,
		SkipSignatureVerification: wc.SkipSignatureVerification,
		MaxBodySize:               maxBodySize,
		ProcessTimeout:            wc.ProcessTimeout,
		MaxConcurrentEvents:       wc.MaxConcurrentEvents,
	}, nil
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.SignatureHeader == "" {
		c.SignatureHeader = DefaultSignatureHeader
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = DefaultProcessTimeout
	}
	if c.MaxConcurrentEvents <= 0 {
		c.MaxConcurrentEvents = DefaultMaxConcurrentEvents
	}
	return c
}
