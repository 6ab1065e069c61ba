package line

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithAPIBaseURL(srv.URL),
		WithDataAPIBaseURL(srv.URL + "/"),
		WithHTTPClient(srv.Client()),
	}, opts...)
	c, err := NewClient("token-abc", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_EmptyToken(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("tok")
	require.NoError(t, err)
	require.Equal(t, DefaultAPIBaseURL, c.apiBaseURL)
	require.Equal(t, DefaultDataAPIBaseURL, c.dataAPIBaseURL)
	require.Equal(t, int64(DefaultMaxMediaSize), c.maxMediaSize)
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v2/bot/message/msg123/content", r.URL.Path)
		require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	blob, err := newTestClient(t, srv).Fetch(context.Background(), "msg123")
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), blob.Data)
	require.Equal(t, "image/jpeg", blob.ContentType)
}

func TestFetch_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Fetch(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrMediaFetch)
	require.Equal(t, http.StatusNotFound, domain.StatusOf(err))
	require.Contains(t, err.Error(), "Not found")
}

func TestFetch_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, WithMaxMediaSize(16)).Fetch(context.Background(), "big")
	require.ErrorIs(t, err, domain.ErrMediaFetch)
	require.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestFetch_EmptyMessageID(t *testing.T) {
	c, err := NewClient("tok")
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMediaFetch)
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv)
	srv.Close()

	_, err := c.Fetch(context.Background(), "msg")
	require.ErrorIs(t, err, domain.ErrMediaFetch)
	require.Zero(t, domain.StatusOf(err))
}

func TestNotify_Success(t *testing.T) {
	var got replyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Notify(context.Background(), "R1", "Upload complete:\nhttps://x/y.jpg")
	require.NoError(t, err)
	require.Equal(t, "R1", got.ReplyToken)
	require.Len(t, got.Messages, 1)
	require.Equal(t, "text", got.Messages[0].Type)
	require.Contains(t, got.Messages[0].Text, "https://x/y.jpg")
}

func TestNotify_InvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Notify(context.Background(), "expired", "hi")
	require.ErrorIs(t, err, domain.ErrNotify)
	require.Equal(t, http.StatusBadRequest, domain.StatusOf(err))
	require.Equal(t, domain.StageNotify, domain.StageOf(err))
}

func TestNotify_TruncatesLongText(t *testing.T) {
	var got replyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Notify(context.Background(), "R1", strings.Repeat("a", maxTextLength+10))
	require.NoError(t, err)
	require.Len(t, got.Messages[0].Text, maxTextLength)
}
