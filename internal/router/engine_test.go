package router

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/imagerelay/internal/domain"
	"github.com/mattjoyce/imagerelay/internal/router/mocks"
)

type stageMocks struct {
	fetcher     *mocks.MockMediaFetcher
	transformer *mocks.MockImageTransformer
	store       *mocks.MockContentStore
	notifier    *mocks.MockReplyNotifier
	sink        *mocks.MockAssetSink
}

func newTestEngine(t *testing.T) (*Engine, stageMocks, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := stageMocks{
		fetcher:     mocks.NewMockMediaFetcher(ctrl),
		transformer: mocks.NewMockImageTransformer(ctrl),
		store:       mocks.NewMockContentStore(ctrl),
		notifier:    mocks.NewMockReplyNotifier(ctrl),
		sink:        mocks.NewMockAssetSink(ctrl),
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e, err := New(m.fetcher, m.transformer, m.store, m.notifier, Options{
		Branch: "main",
		Sinks:  []AssetSink{m.sink},
		Logger: logger,
	})
	require.NoError(t, err)
	return e, m, &buf
}

func imageEvent() domain.InboundEvent {
	return domain.InboundEvent{
		Type:           domain.EventTypeMessage,
		WebhookEventID: "evt-1",
		Message:        &domain.EventMessage{Type: domain.MessageTypeImage, ID: "msg123"},
		Source:         domain.EventSource{Type: domain.SourceTypeUser, UserID: "U1"},
		ReplyToken:     "R1",
	}
}

func TestNewRequiresAllStages(t *testing.T) {
	_, err := New(nil, nil, nil, nil, Options{})
	assert.Error(t, err)
}

func TestRouteImageDelivered(t *testing.T) {
	e, m, logs := newTestEngine(t)
	ctx := context.Background()

	blob := domain.RawMediaBlob{Data: []byte("raw"), ContentType: "image/png"}
	asset := domain.TransformedAsset{Data: []byte("jpeg"), Filename: "a.jpg", Width: 1200, Height: 900}
	ref := domain.StoredAssetRef{
		URL:      "https://raw.githubusercontent.com/o/r/main/uploads/a.jpg",
		Path:     "uploads/a.jpg",
		Revision: "abc123",
	}

	gomock.InOrder(
		m.fetcher.EXPECT().Fetch(ctx, "msg123").Return(blob, nil),
		m.transformer.EXPECT().Transform(ctx, blob).Return(asset, nil),
		m.store.EXPECT().Store(ctx, asset, domain.StoreMetadata{Author: "U1", Branch: "main"}).Return(ref, nil),
		m.sink.EXPECT().Record(ctx, domain.Delivery{Event: imageEvent(), Asset: asset, Ref: ref}).Return(nil),
		m.notifier.EXPECT().Notify(ctx, "R1", "Upload complete:\n"+ref.URL).Return(nil),
	)

	res := e.Route(ctx, imageEvent())
	assert.Equal(t, domain.OutcomeDelivered, res.Outcome)
	assert.Equal(t, ref.URL, res.URL)
	assert.Equal(t, "evt-1", res.EventID)
	assert.Equal(t, "msg123", res.MessageID)
	assert.NoError(t, res.Err)
	assert.Contains(t, logs.String(), "image delivered")
}

func TestRouteIgnoresUnsupportedEvents(t *testing.T) {
	e, _, _ := newTestEngine(t)

	tests := []struct {
		name string
		ev   domain.InboundEvent
	}{
		{"follow", domain.InboundEvent{Type: "follow", ReplyToken: "R1"}},
		{"text message", domain.InboundEvent{
			Type:       domain.EventTypeMessage,
			Message:    &domain.EventMessage{Type: "text", ID: "m1"},
			ReplyToken: "R1",
		}},
		{"image without reply token", domain.InboundEvent{
			Type:    domain.EventTypeMessage,
			Message: &domain.EventMessage{Type: domain.MessageTypeImage, ID: "m1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No EXPECT calls: any stage invocation fails the test.
			res := e.Route(context.Background(), tt.ev)
			assert.Equal(t, domain.OutcomeIgnored, res.Outcome)
			assert.NoError(t, res.Err)
		})
	}
}

func TestRouteFetchFailureStopsPipeline(t *testing.T) {
	e, m, logs := newTestEngine(t)
	ctx := context.Background()

	m.fetcher.EXPECT().Fetch(ctx, "msg123").
		Return(domain.RawMediaBlob{}, domain.NewUpstreamError(domain.StageFetch, 500, "boom"))

	res := e.Route(ctx, imageEvent())
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.StageFetch, res.Stage)
	assert.ErrorIs(t, res.Err, domain.ErrMediaFetch)
	assert.Equal(t, 500, domain.StatusOf(res.Err))
	assert.Contains(t, logs.String(), "stage=fetch")
	assert.Contains(t, logs.String(), "status=500")
}

func TestRouteWrapsUntypedStageErrors(t *testing.T) {
	e, m, _ := newTestEngine(t)
	ctx := context.Background()
	blob := domain.RawMediaBlob{Data: []byte("x")}

	m.fetcher.EXPECT().Fetch(ctx, "msg123").Return(blob, nil)
	m.transformer.EXPECT().Transform(ctx, blob).Return(domain.TransformedAsset{}, errors.New("bad pixels"))

	res := e.Route(ctx, imageEvent())
	assert.Equal(t, domain.StageTransform, res.Stage)
	assert.ErrorIs(t, res.Err, domain.ErrTransform)
	assert.Contains(t, res.Err.Error(), "bad pixels")
}

func TestRouteStoreFailureSkipsNotify(t *testing.T) {
	e, m, _ := newTestEngine(t)
	ctx := context.Background()
	blob := domain.RawMediaBlob{Data: []byte("x")}
	asset := domain.TransformedAsset{Data: []byte("y"), Filename: "b.jpg"}

	m.fetcher.EXPECT().Fetch(ctx, "msg123").Return(blob, nil)
	m.transformer.EXPECT().Transform(ctx, blob).Return(asset, nil)
	m.store.EXPECT().Store(ctx, asset, gomock.Any()).
		Return(domain.StoredAssetRef{}, domain.NewUpstreamError(domain.StageStore, 401, "Bad credentials"))

	res := e.Route(ctx, imageEvent())
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.StageStore, res.Stage)
	assert.ErrorIs(t, res.Err, domain.ErrStoreUpload)
	assert.Empty(t, res.URL)
}

func TestRouteNotifyFailureKeepsURL(t *testing.T) {
	e, m, _ := newTestEngine(t)
	ctx := context.Background()
	ref := domain.StoredAssetRef{URL: "https://example.test/c.jpg"}

	m.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(domain.RawMediaBlob{}, nil)
	m.transformer.EXPECT().Transform(gomock.Any(), gomock.Any()).Return(domain.TransformedAsset{}, nil)
	m.store.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any()).Return(ref, nil)
	m.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)
	m.notifier.EXPECT().Notify(gomock.Any(), "R1", gomock.Any()).
		Return(domain.NewUpstreamError(domain.StageNotify, 400, "Invalid reply token"))

	res := e.Route(ctx, imageEvent())
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.StageNotify, res.Stage)
	assert.Equal(t, ref.URL, res.URL)
	assert.ErrorIs(t, res.Err, domain.ErrNotify)
}

func TestRouteSinkFailureIsNotFatal(t *testing.T) {
	e, m, logs := newTestEngine(t)

	m.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(domain.RawMediaBlob{}, nil)
	m.transformer.EXPECT().Transform(gomock.Any(), gomock.Any()).Return(domain.TransformedAsset{Filename: "d.jpg"}, nil)
	m.store.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any()).Return(domain.StoredAssetRef{URL: "u"}, nil)
	m.sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	m.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	res := e.Route(context.Background(), imageEvent())
	assert.Equal(t, domain.OutcomeDelivered, res.Outcome)
	assert.Contains(t, logs.String(), "asset sink failed")
}

func TestReplyTextTemplates(t *testing.T) {
	e := &Engine{replyTemplate: "Saved %s"}
	assert.Equal(t, "Saved u", e.replyText("u"))

	e.replyTemplate = "Done"
	assert.Equal(t, "Done\nu", e.replyText("u"))
}
