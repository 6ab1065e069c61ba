package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/imagerelay/internal/app"
	"github.com/mattjoyce/imagerelay/internal/config"
	"github.com/mattjoyce/imagerelay/internal/log"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errReported marks failures whose details were already printed.
var errReported = errors.New("reported")

// cli carries flags shared by every subcommand.
type cli struct {
	configPath string
	newGetter  app.GetterFactory
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{newGetter: app.DefaultGetterFactory}

	root := &cobra.Command{
		Use:           "imagerelay",
		Short:         "Relay chat images into a repository",
		Long:          "imagerelay receives image messages from a LINE channel, resizes them, commits them to a GitHub repository and replies with the public URL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config.yaml (default: discovered, or environment only)")

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.configCmd())
	root.AddCommand(c.ledgerCmd())
	root.AddCommand(c.mirrorCmd())
	root.AddCommand(versionCmd())

	return root
}

// resolveConfigPath returns the --config value or a discovered file. An empty
// result means configuration comes from the environment alone.
func (c *cli) resolveConfigPath(stderr io.Writer) (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	discovered, err := config.DiscoverConfigPath()
	if errors.Is(err, config.ErrNoConfigFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	fmt.Fprintf(stderr, "Using discovered config: %s\n", discovered)
	return discovered, nil
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runServe(ctx, cmd.ErrOrStderr())
		},
	}
}

func (c *cli) runServe(ctx context.Context, stderr io.Writer) error {
	path, err := c.resolveConfigPath(stderr)
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(ctx, path, c.newGetter)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("imagerelay starting", "version", version, "config", path)

	a, err := app.Build(ctx, cfg, log.Get())
	if err != nil {
		logger.Error("failed to build relay", "error", err)
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	if err := a.Server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("webhook server stopped", "error", err)
		return err
	}
	logger.Info("imagerelay stopped")
	return nil
}

// loadUnvalidated reads configuration for maintenance commands, which do not
// need upstream credentials.
func (c *cli) loadUnvalidated(path string) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
