package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mattjoyce/imagerelay/internal/config"
	"github.com/mattjoyce/imagerelay/internal/domain"
)

const testSecret = "topsecret"

// mockRouter is a mock implementation of router.Router for testing.
type mockRouter struct {
	routeFn func(ctx context.Context, ev domain.InboundEvent) domain.PipelineResult
	calls   atomic.Int32
}

func (m *mockRouter) Route(ctx context.Context, ev domain.InboundEvent) domain.PipelineResult {
	m.calls.Add(1)
	if m.routeFn != nil {
		return m.routeFn(ctx, ev)
	}
	return domain.PipelineResult{EventID: ev.LogID(), Outcome: domain.OutcomeIgnored}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(r *mockRouter) *Server {
	return New(Config{Secret: testSecret}, r, testLogger())
}

func signedRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(DefaultSignatureHeader, ComputeSignature(body, testSecret))
	return req
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) AckResponse {
	t.Helper()
	var resp AckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

const imageBody = `{"destination":"Uxxx","events":[{"type":"message","webhookEventId":"E1","message":{"type":"image","id":"msg123"},"source":{"type":"user","userId":"U1"},"replyToken":"R1"}]}`

func TestHandleWebhook_ValidSignature(t *testing.T) {
	mr := &mockRouter{
		routeFn: func(_ context.Context, ev domain.InboundEvent) domain.PipelineResult {
			if ev.MessageID() != "msg123" || ev.ReplyToken != "R1" || ev.Source.UserID != "U1" {
				t.Errorf("unexpected event: %+v", ev)
			}
			return domain.PipelineResult{EventID: ev.LogID(), MessageID: ev.MessageID(), Outcome: domain.OutcomeDelivered, URL: "https://x/y.jpg"}
		},
	}
	rec := httptest.NewRecorder()
	newTestServer(mr).Handler().ServeHTTP(rec, signedRequest(http.MethodPost, "/webhook", []byte(imageBody)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeAck(t, rec)
	if resp.Status != "ok" || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	got := resp.Results[0]
	if got.EventID != "E1" || got.Outcome != domain.OutcomeDelivered || got.URL != "https://x/y.jpg" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	cases := map[string]string{
		"wrong":        "bad",
		"missing":      "",
		"other secret": ComputeSignature([]byte(imageBody), "not-the-secret"),
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			mr := &mockRouter{}
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(imageBody))
			if sig != "" {
				req.Header.Set(DefaultSignatureHeader, sig)
			}
			rec := httptest.NewRecorder()
			newTestServer(mr).Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error != "forbidden" {
				t.Errorf("Error = %v, want generic 'forbidden'", resp.Error)
			}
			if mr.calls.Load() != 0 {
				t.Errorf("router called %d times on rejected request", mr.calls.Load())
			}
		})
	}
}

func TestHandleWebhook_SignatureOverRawBytes(t *testing.T) {
	// Same JSON value, different bytes: the signature of the compact form
	// must not authenticate the indented form.
	compact := []byte(`{"events":[]}`)
	indented := []byte("{\n  \"events\": []\n}")

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(indented))
	req.Header.Set(DefaultSignatureHeader, ComputeSignature(compact, testSecret))
	rec := httptest.NewRecorder()
	newTestServer(&mockRouter{}).Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestHandleWebhook_MalformedBody(t *testing.T) {
	mr := &mockRouter{}
	rec := httptest.NewRecorder()
	newTestServer(mr).Handler().ServeHTTP(rec, signedRequest(http.MethodPost, "/webhook", []byte(`{"events":[`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if mr.calls.Load() != 0 {
		t.Fatalf("router called on malformed body")
	}
}

func TestHandleWebhook_EmptyBatch(t *testing.T) {
	for _, body := range []string{`{"destination":"U","events":[]}`, `{}`} {
		mr := &mockRouter{}
		rec := httptest.NewRecorder()
		newTestServer(mr).Handler().ServeHTTP(rec, signedRequest(http.MethodPost, "/webhook", []byte(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("body %s: status = %d, want %d", body, rec.Code, http.StatusOK)
		}
		if resp := decodeAck(t, rec); len(resp.Results) != 0 {
			t.Fatalf("body %s: results = %+v, want none", body, resp.Results)
		}
		if mr.calls.Load() != 0 {
			t.Fatalf("body %s: router called on empty batch", body)
		}
	}
}

func TestHandleWebhook_BodyTooLarge(t *testing.T) {
	mr := &mockRouter{}
	server := New(Config{Secret: testSecret, MaxBodySize: 16}, mr, testLogger())

	body := []byte(imageBody)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, signedRequest(http.MethodPost, "/webhook", body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if mr.calls.Load() != 0 {
		t.Errorf("router called on oversized body")
	}
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		newTestServer(&mockRouter{}).Handler().ServeHTTP(rec, httptest.NewRequest(method, "/webhook", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want %d", method, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestHandleWebhook_UnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&mockRouter{}).Handler().ServeHTTP(rec, signedRequest(http.MethodPost, "/webhook/unknown", []byte(`{}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&mockRouter{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestProcess_MixedBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	mr := &mockRouter{
		routeFn: func(_ context.Context, ev domain.InboundEvent) domain.PipelineResult {
			res := domain.PipelineResult{EventID: ev.LogID(), MessageID: ev.MessageID()}
			switch {
			case ev.Kind() != domain.KindImageMessage:
				res.Outcome = domain.OutcomeIgnored
			case ev.MessageID() == "bad":
				res.Outcome = domain.OutcomeFailed
				res.Stage = domain.StageFetch
			default:
				res.Outcome = domain.OutcomeDelivered
			}
			return res
		},
	}
	body := []byte(`{"events":[
		{"type":"message","webhookEventId":"A","message":{"type":"image","id":"bad"},"source":{"type":"user","userId":"U1"},"replyToken":"R1"},
		{"type":"follow","webhookEventId":"B","source":{"type":"user","userId":"U2"},"replyToken":"R2"},
		{"type":"message","webhookEventId":"C","message":{"type":"image","id":"good"},"source":{"type":"user","userId":"U3"},"replyToken":"R3"}
	]}`)

	resp := newTestServer(mr).Process(context.Background(), body, ComputeSignature(body, testSecret))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.Status, http.StatusOK)
	}
	ack := resp.Body.(AckResponse)
	want := []struct {
		id      string
		outcome domain.Outcome
		stage   domain.Stage
	}{
		{"A", domain.OutcomeFailed, domain.StageFetch},
		{"B", domain.OutcomeIgnored, domain.StageNone},
		{"C", domain.OutcomeDelivered, domain.StageNone},
	}
	if len(ack.Results) != len(want) {
		t.Fatalf("results = %d, want %d", len(ack.Results), len(want))
	}
	for i, w := range want {
		got := ack.Results[i]
		if got.EventID != w.id || got.Outcome != w.outcome || got.Stage != w.stage {
			t.Errorf("result[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestProcess_RunsEventsConcurrentlyWithinLimit(t *testing.T) {
	const n = 6
	var (
		mu      sync.Mutex
		active  int
		peak    int
		release = make(chan struct{})
	)
	mr := &mockRouter{
		routeFn: func(_ context.Context, ev domain.InboundEvent) domain.PipelineResult {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			<-release
			mu.Lock()
			active--
			mu.Unlock()
			return domain.PipelineResult{EventID: ev.LogID(), Outcome: domain.OutcomeDelivered}
		},
	}
	server := New(Config{Secret: testSecret, MaxConcurrentEvents: 3}, mr, testLogger())

	events := make([]string, n)
	for i := range events {
		events[i] = `{"type":"message","message":{"type":"image","id":"m"},"replyToken":"r"}`
	}
	body := []byte(`{"events":[` + strings.Join(events, ",") + `]}`)

	done := make(chan Response, 1)
	go func() { done <- server.Process(context.Background(), body, ComputeSignature(body, testSecret)) }()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		a := active
		mu.Unlock()
		if a == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 3 concurrent events, saw %d", a)
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(release)

	resp := <-done
	if got := len(resp.Body.(AckResponse).Results); got != n {
		t.Fatalf("results = %d, want %d", got, n)
	}
	if peak > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestProcess_PanicBecomesFailedResult(t *testing.T) {
	mr := &mockRouter{
		routeFn: func(context.Context, domain.InboundEvent) domain.PipelineResult {
			panic("boom")
		},
	}
	body := []byte(imageBody)
	resp := newTestServer(mr).Process(context.Background(), body, ComputeSignature(body, testSecret))
	ack := resp.Body.(AckResponse)
	if resp.Status != http.StatusOK || ack.Results[0].Outcome != domain.OutcomeFailed {
		t.Fatalf("unexpected response: %d %+v", resp.Status, ack)
	}
}

func TestProcess_SkipVerification(t *testing.T) {
	mr := &mockRouter{}
	server := New(Config{SkipSignatureVerification: true}, mr, testLogger())
	resp := server.Process(context.Background(), []byte(imageBody), "")
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.Status, http.StatusOK)
	}
	if mr.calls.Load() != 1 {
		t.Fatalf("router calls = %d, want 1", mr.calls.Load())
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	server := New(Config{Secret: "s"}, &mockRouter{}, testLogger())
	if server.config.MaxBodySize != DefaultMaxBodySize {
		t.Errorf("MaxBodySize = %d, want %d", server.config.MaxBodySize, DefaultMaxBodySize)
	}
	if server.config.Path != DefaultPath || server.config.SignatureHeader != DefaultSignatureHeader {
		t.Errorf("unexpected defaults: %+v", server.config)
	}
	if server.config.ProcessTimeout != DefaultProcessTimeout || server.config.MaxConcurrentEvents != DefaultMaxConcurrentEvents {
		t.Errorf("unexpected defaults: %+v", server.config)
	}
}

func TestFromGlobalConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Line.ChannelSecret = "s3cret"
	cfg.Webhook.MaxBodySize = "2MB"

	wc, err := FromGlobalConfig(cfg)
	if err != nil {
		t.Fatalf("FromGlobalConfig: %v", err)
	}
	if wc.MaxBodySize != 2*1024*1024 || wc.Secret != "s3cret" || wc.Path != "/webhook" {
		t.Fatalf("unexpected config: %+v", wc)
	}

	cfg.Webhook.MaxBodySize = "lots"
	if _, err := FromGlobalConfig(cfg); err == nil {
		t.Fatal("expected error for invalid max_body_size")
	}

	cfg.Webhook.MaxBodySize = "1MB"
	cfg.Line.ChannelSecret = ""
	if _, err := FromGlobalConfig(cfg); err == nil {
		t.Fatal("expected error for missing secret")
	}
	cfg.Webhook.SkipSignatureVerification = true
	if _, err := FromGlobalConfig(cfg); err != nil {
		t.Fatalf("skip mode should not need a secret: %v", err)
	}

	if _, err := FromGlobalConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
