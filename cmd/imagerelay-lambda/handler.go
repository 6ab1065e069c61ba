package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mattjoyce/imagerelay/internal/webhook"
)

// processor is the transport-neutral webhook core.
type processor interface {
	Process(ctx context.Context, body []byte, signature string) webhook.Response
}

// handler adapts Lambda Function URL invocations to the webhook processor.
type handler struct {
	proc            processor
	path            string
	signatureHeader string
	maxBodySize     int64
}

func newHandler(proc processor, cfg webhook.Config) (*handler, error) {
	if proc == nil {
		return nil, errors.New("processor must not be nil")
	}
	h := &handler{
		proc:            proc,
		path:            cfg.Path,
		signatureHeader: cfg.SignatureHeader,
		maxBodySize:     cfg.MaxBodySize,
	}
	if h.path == "" {
		h.path = webhook.DefaultPath
	}
	if h.signatureHeader == "" {
		h.signatureHeader = webhook.DefaultSignatureHeader
	}
	if h.maxBodySize <= 0 {
		h.maxBodySize = webhook.DefaultMaxBodySize
	}
	return h, nil
}

// Handle serves one invocation. The root path is accepted as well as the
// configured one, since Function URLs are often registered bare.
func (h *handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	path := req.RawPath
	if path == "" {
		path = "/"
	}
	if path == "/healthz" && req.RequestContext.HTTP.Method == http.MethodGet {
		return jsonResponse(http.StatusOK, map[string]string{"status": "ok"}), nil
	}
	if path != h.path && path != "/" {
		return jsonResponse(http.StatusNotFound, webhook.ErrorResponse{Error: "not found"}), nil
	}
	if req.RequestContext.HTTP.Method != http.MethodPost {
		return jsonResponse(http.StatusMethodNotAllowed, webhook.ErrorResponse{Error: "method not allowed"}), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return jsonResponse(http.StatusBadRequest, webhook.ErrorResponse{Error: "failed to read request body"}), nil
		}
		body = decoded
	}
	if int64(len(body)) > h.maxBodySize {
		return jsonResponse(http.StatusRequestEntityTooLarge, webhook.ErrorResponse{Error: "payload too large"}), nil
	}

	resp := h.proc.Process(ctx, body, header(req.Headers, h.signatureHeader))
	return jsonResponse(resp.Status, resp.Body), nil
}

// header looks up name case-insensitively; Function URLs lowercase header names.
func header(headers map[string]string, name string) string {
	if v, ok := headers[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func jsonResponse(status int, body any) events.LambdaFunctionURLResponse {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}
