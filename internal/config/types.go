package config

import "time"

// Config represents the complete imagerelay configuration. It is built once at
// startup and treated as read-only afterwards.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Webhook WebhookConfig `yaml:"webhook"`
	Line    LineConfig    `yaml:"line"`
	Image   ImageConfig   `yaml:"image"`
	Store   StoreConfig   `yaml:"store"`
	Audit   AuditConfig   `yaml:"audit,omitempty"`
	Secrets SecretsConfig `yaml:"secrets,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name" env:"IMAGERELAY_NAME"`
	LogLevel  string `yaml:"log_level" env:"IMAGERELAY_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"IMAGERELAY_LOG_FORMAT"`
}

// WebhookConfig defines the inbound endpoint.
type WebhookConfig struct {
	Listen          string `yaml:"listen" env:"IMAGERELAY_LISTEN"`
	Path            string `yaml:"path" env:"IMAGERELAY_WEBHOOK_PATH"`
	SignatureHeader string `yaml:"signature_header" env:"IMAGERELAY_SIGNATURE_HEADER"`
	// MaxBodySize accepts plain bytes or a KB/MB/GB suffix.
	MaxBodySize         string        `yaml:"max_body_size" env:"IMAGERELAY_MAX_BODY_SIZE"`
	ProcessTimeout      time.Duration `yaml:"process_timeout" env:"IMAGERELAY_PROCESS_TIMEOUT"`
	MaxConcurrentEvents int           `yaml:"max_concurrent_events" env:"IMAGERELAY_MAX_CONCURRENT_EVENTS"`
	// SkipSignatureVerification disables HMAC checks. Local bootstrap only.
	SkipSignatureVerification bool `yaml:"skip_signature_verification" env:"IMAGERELAY_SKIP_SIGNATURE_VERIFICATION"`
}

// LineConfig defines the chat platform credentials and endpoints.
type LineConfig struct {
	ChannelSecret      string        `yaml:"channel_secret" env:"LINE_CHANNEL_SECRET"`
	ChannelAccessToken string        `yaml:"channel_access_token" env:"LINE_CHANNEL_ACCESS_TOKEN"`
	APIBaseURL         string        `yaml:"api_base_url" env:"LINE_API_BASE_URL"`
	DataAPIBaseURL     string        `yaml:"data_api_base_url" env:"LINE_DATA_API_BASE_URL"`
	Timeout            time.Duration `yaml:"timeout" env:"LINE_TIMEOUT"`
	MaxMediaSize       string        `yaml:"max_media_size" env:"LINE_MAX_MEDIA_SIZE"`
	// ReplyTemplate is the confirmation text; %s is replaced by the asset URL.
	ReplyTemplate string `yaml:"reply_template" env:"LINE_REPLY_TEMPLATE"`
}

// ImageConfig controls the transcode step.
type ImageConfig struct {
	MaxWidth int `yaml:"max_width" env:"IMAGE_MAX_WIDTH"`
	Quality  int `yaml:"quality" env:"IMAGE_QUALITY"`
	// MaxPixels rejects inputs whose declared width*height exceeds it.
	MaxPixels int64 `yaml:"max_pixels" env:"IMAGE_MAX_PIXELS"`
}

// StoreConfig locates the remote content store (a GitHub repository).
type StoreConfig struct {
	Token      string        `yaml:"token" env:"GITHUB_TOKEN"`
	Repository string        `yaml:"repository" env:"STORE_REPOSITORY"`
	Branch     string        `yaml:"branch" env:"STORE_BRANCH"`
	Directory  string        `yaml:"directory" env:"STORE_DIRECTORY"`
	APIBaseURL string        `yaml:"api_base_url" env:"STORE_API_BASE_URL"`
	RawBaseURL string        `yaml:"raw_base_url" env:"STORE_RAW_BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"STORE_TIMEOUT"`
	// MirrorDir keeps a local copy of every uploaded asset when set.
	MirrorDir string `yaml:"mirror_dir,omitempty" env:"STORE_MIRROR_DIR"`
}

// AuditConfig enables the SQLite upload ledger when Path is set.
type AuditConfig struct {
	Path string `yaml:"path,omitempty" env:"IMAGERELAY_AUDIT_PATH"`
}

// SecretsConfig enables AWS SSM lookups for secrets left empty.
type SecretsConfig struct {
	SSMPrefix string `yaml:"ssm_prefix,omitempty" env:"IMAGERELAY_SSM_PREFIX"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "imagerelay",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Webhook: WebhookConfig{
			Listen:              ":8080",
			Path:                "/webhook",
			SignatureHeader:     "X-Line-Signature",
			MaxBodySize:         "1MB",
			ProcessTimeout:      25 * time.Second,
			MaxConcurrentEvents: 4,
		},
		Line: LineConfig{
			APIBaseURL:     "https://api.line.me",
			DataAPIBaseURL: "https://api-data.line.me",
			Timeout:        10 * time.Second,
			MaxMediaSize:   "20MB",
			ReplyTemplate:  "Upload complete:\n%s",
		},
		Image: ImageConfig{
			MaxWidth:  1200,
			Quality:   80,
			MaxPixels: 50_000_000,
		},
		Store: StoreConfig{
			Branch:     "main",
			Directory:  "uploads",
			APIBaseURL: "https://api.github.com",
			RawBaseURL: "https://raw.githubusercontent.com",
			Timeout:    15 * time.Second,
		},
	}
}
