// Package app assembles the relay from configuration: stage clients, the
// event router, optional sinks and the webhook server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mattjoyce/imagerelay/internal/config"
	"github.com/mattjoyce/imagerelay/internal/contentstore"
	"github.com/mattjoyce/imagerelay/internal/imaging"
	"github.com/mattjoyce/imagerelay/internal/line"
	"github.com/mattjoyce/imagerelay/internal/paramstore"
	"github.com/mattjoyce/imagerelay/internal/router"
	"github.com/mattjoyce/imagerelay/internal/storage"
	"github.com/mattjoyce/imagerelay/internal/webhook"
)

// GetterFactory builds the parameter store client used for secret lookups.
type GetterFactory func(ctx context.Context) (paramstore.Getter, error)

// DefaultGetterFactory resolves AWS credentials from the environment.
func DefaultGetterFactory(ctx context.Context) (paramstore.Getter, error) {
	return paramstore.NewFromEnvironment(ctx)
}

// LoadConfig resolves configuration with ResolveConfig and validates it.
func LoadConfig(ctx context.Context, path string, newGetter GetterFactory) (*config.Config, error) {
	cfg, err := ResolveConfig(ctx, path, newGetter)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ResolveConfig loads configuration from path (may be empty) and fills empty
// secrets from the parameter store when secrets.ssm_prefix is set. The result
// is not validated.
func ResolveConfig(ctx context.Context, path string, newGetter GetterFactory) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	prefix := cfg.Secrets.SSMPrefix
	if prefix == "" {
		return cfg, nil
	}
	if newGetter == nil {
		newGetter = DefaultGetterFactory
	}
	g, err := newGetter(ctx)
	if err != nil {
		return nil, fmt.Errorf("create parameter store client: %w", err)
	}
	if err := paramstore.ResolveSecrets(ctx, g, prefix, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App is a fully wired relay.
type App struct {
	Config *config.Config
	Engine *router.Engine
	Server *webhook.Server
	Mirror *contentstore.Mirror
	Ledger *storage.Ledger

	db     *sql.DB
	logger *slog.Logger
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the per-upstream HTTP clients. Timeouts from config
// are not applied to a supplied client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) { o.httpClient = c }
}

// Build wires every component from a validated configuration.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}
	httpClient := func(timeout time.Duration) *http.Client {
		if bo.httpClient != nil {
			return bo.httpClient
		}
		return &http.Client{Timeout: timeout}
	}

	maxMedia, err := config.ParseSize(cfg.Line.MaxMediaSize)
	if err != nil {
		return nil, fmt.Errorf("line.max_media_size: %w", err)
	}
	lineClient, err := line.NewClient(cfg.Line.ChannelAccessToken,
		line.WithAPIBaseURL(cfg.Line.APIBaseURL),
		line.WithDataAPIBaseURL(cfg.Line.DataAPIBaseURL),
		line.WithMaxMediaSize(maxMedia),
		line.WithHTTPClient(httpClient(cfg.Line.Timeout)),
	)
	if err != nil {
		return nil, err
	}

	owner, repo, err := cfg.Store.OwnerRepo()
	if err != nil {
		return nil, err
	}
	store, err := contentstore.NewGitHubStore(cfg.Store.Token, owner, repo,
		contentstore.WithBranch(cfg.Store.Branch),
		contentstore.WithDirectory(cfg.Store.Directory),
		contentstore.WithAPIBaseURL(cfg.Store.APIBaseURL),
		contentstore.WithRawBaseURL(cfg.Store.RawBaseURL),
		contentstore.WithHTTPClient(httpClient(cfg.Store.Timeout)),
		contentstore.WithLogger(logger.With("component", "contentstore")),
	)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, logger: logger}
	var sinks []router.AssetSink

	if cfg.Store.MirrorDir != "" {
		m, err := contentstore.NewMirror(cfg.Store.MirrorDir)
		if err != nil {
			return nil, err
		}
		a.Mirror = m
		sinks = append(sinks, m)
		logger.Info("local mirror enabled", "dir", m.Dir())
	}

	if cfg.Audit.Path != "" {
		db, err := storage.OpenSQLite(ctx, cfg.Audit.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit ledger: %w", err)
		}
		a.db = db
		a.Ledger = storage.NewLedger(db)
		sinks = append(sinks, a.Ledger)
		logger.Info("audit ledger enabled", "path", cfg.Audit.Path)
	}

	engine, err := router.New(
		lineClient,
		imaging.NewTransformer(cfg.Image.MaxWidth, cfg.Image.Quality, imaging.WithMaxPixels(cfg.Image.MaxPixels)),
		store,
		lineClient,
		router.Options{
			Branch:        cfg.Store.Branch,
			ReplyTemplate: cfg.Line.ReplyTemplate,
			Sinks:         sinks,
			Logger:        logger.With("component", "router"),
		},
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Engine = engine

	wc, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Server = webhook.New(wc, engine, logger.With("component", "webhook"))

	return a, nil
}

// Close releases the audit ledger, if open.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
