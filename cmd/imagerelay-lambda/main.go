package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mattjoyce/imagerelay/internal/app"
	"github.com/mattjoyce/imagerelay/internal/log"
	"github.com/mattjoyce/imagerelay/internal/webhook"
)

func main() {
	ctx := context.Background()

	// IMAGERELAY_CONFIG is optional; Lambda deployments usually configure
	// through the environment and the parameter store alone.
	cfg, err := app.LoadConfig(ctx, os.Getenv("IMAGERELAY_CONFIG"), app.DefaultGetterFactory)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

	a, err := app.Build(ctx, cfg, log.Get())
	if err != nil {
		slog.Error("failed to build relay", "err", err)
		os.Exit(1)
	}

	wc, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		slog.Error("invalid webhook config", "err", err)
		os.Exit(1)
	}

	h, err := newHandler(a.Server, wc)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
