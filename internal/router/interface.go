package router

import (
	"context"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_stages.go -package=mocks github.com/mattjoyce/imagerelay/internal/router MediaFetcher,ImageTransformer,ContentStore,ReplyNotifier,AssetSink

// MediaFetcher retrieves the raw content referenced by a message id.
type MediaFetcher interface {
	Fetch(ctx context.Context, messageID string) (domain.RawMediaBlob, error)
}

// ImageTransformer resizes and recompresses a raw image.
type ImageTransformer interface {
	Transform(ctx context.Context, blob domain.RawMediaBlob) (domain.TransformedAsset, error)
}

// ContentStore persists a transformed asset and returns its public reference.
type ContentStore interface {
	Store(ctx context.Context, asset domain.TransformedAsset, meta domain.StoreMetadata) (domain.StoredAssetRef, error)
}

// ReplyNotifier sends a text reply through the platform's reply channel.
type ReplyNotifier interface {
	Notify(ctx context.Context, replyToken, text string) error
}

// AssetSink observes stored assets (local mirror, audit ledger). Sink errors
// are logged and never fail the event.
type AssetSink interface {
	Record(ctx context.Context, d domain.Delivery) error
}

// Router handles one decoded inbound event.
type Router interface {
	Route(ctx context.Context, ev domain.InboundEvent) domain.PipelineResult
}
