package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

// DefaultReplyTemplate is used when Options.ReplyTemplate is empty.
const DefaultReplyTemplate = "Upload complete:\n%s"

// Options configures an Engine.
type Options struct {
	// Branch is passed to the content store with every upload.
	Branch string
	// ReplyTemplate is the confirmation text; "%s" is replaced by the URL.
	ReplyTemplate string
	Sinks         []AssetSink
	Logger        *slog.Logger
}

// Engine dispatches inbound events over the closed set of supported kinds and
// drives the fetch, transform, store and notify stages for image messages.
type Engine struct {
	fetcher     MediaFetcher
	transformer ImageTransformer
	store       ContentStore
	notifier    ReplyNotifier

	branch        string
	replyTemplate string
	sinks         []AssetSink
	logger        *slog.Logger
}

var _ Router = (*Engine)(nil)

// New creates an Engine from its four stages.
func New(fetcher MediaFetcher, transformer ImageTransformer, store ContentStore, notifier ReplyNotifier, opts Options) (*Engine, error) {
	if fetcher == nil || transformer == nil || store == nil || notifier == nil {
		return nil, errors.New("router: all pipeline stages are required")
	}
	if opts.ReplyTemplate == "" {
		opts.ReplyTemplate = DefaultReplyTemplate
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		fetcher:       fetcher,
		transformer:   transformer,
		store:         store,
		notifier:      notifier,
		branch:        opts.Branch,
		replyTemplate: opts.ReplyTemplate,
		sinks:         opts.Sinks,
		logger:        opts.Logger,
	}, nil
}

// Route handles one event. Unsupported kinds return OutcomeIgnored without any
// I/O. Route never panics on stage failure; the failure is reported in the
// result.
func (e *Engine) Route(ctx context.Context, ev domain.InboundEvent) domain.PipelineResult {
	switch ev.Kind() {
	case domain.KindImageMessage:
		return e.routeImage(ctx, ev)
	default:
		e.logger.Debug("event ignored",
			"event_id", ev.LogID(),
			"type", ev.Type,
			"message_type", messageType(ev),
		)
		return domain.PipelineResult{
			EventID:   ev.LogID(),
			MessageID: ev.MessageID(),
			Outcome:   domain.OutcomeIgnored,
		}
	}
}

func (e *Engine) routeImage(ctx context.Context, ev domain.InboundEvent) domain.PipelineResult {
	logger := e.logger.With(
		"event_id", ev.LogID(),
		"message_id", ev.MessageID(),
		"user_id", ev.Source.UserID,
	)
	if ev.DeliveryContext.IsRedelivery {
		logger.Info("processing redelivered event")
	}

	result := domain.PipelineResult{
		EventID:   ev.LogID(),
		MessageID: ev.MessageID(),
	}

	fail := func(stage domain.Stage, err error) domain.PipelineResult {
		if domain.StageOf(err) == domain.StageNone {
			err = domain.NewStageError(stage, err)
		}
		logger.Error("image pipeline failed",
			"stage", string(stage),
			"status", domain.StatusOf(err),
			"error", err,
		)
		result.Outcome = domain.OutcomeFailed
		result.Stage = stage
		result.Err = err
		return result
	}

	blob, err := e.fetcher.Fetch(ctx, ev.MessageID())
	if err != nil {
		return fail(domain.StageFetch, err)
	}

	asset, err := e.transformer.Transform(ctx, blob)
	if err != nil {
		return fail(domain.StageTransform, err)
	}

	ref, err := e.store.Store(ctx, asset, domain.StoreMetadata{
		Author: ev.Source.UserID,
		Branch: e.branch,
	})
	if err != nil {
		return fail(domain.StageStore, err)
	}
	result.URL = ref.URL

	delivery := domain.Delivery{Event: ev, Asset: asset, Ref: ref}
	for _, sink := range e.sinks {
		if err := sink.Record(ctx, delivery); err != nil {
			logger.Warn("asset sink failed", "filename", asset.Filename, "error", err)
		}
	}

	if err := e.notifier.Notify(ctx, ev.ReplyToken, e.replyText(ref.URL)); err != nil {
		return fail(domain.StageNotify, err)
	}

	logger.Info("image delivered",
		"filename", asset.Filename,
		"bytes", len(asset.Data),
		"width", asset.Width,
		"height", asset.Height,
		"revision", ref.Revision,
	)
	result.Outcome = domain.OutcomeDelivered
	return result
}

func (e *Engine) replyText(url string) string {
	if strings.Contains(e.replyTemplate, "%s") {
		return strings.Replace(e.replyTemplate, "%s", url, 1)
	}
	return e.replyTemplate + "\n" + url
}

func messageType(ev domain.InboundEvent) string {
	if ev.Message == nil {
		return ""
	}
	return ev.Message.Type
}
