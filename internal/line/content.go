package line

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

func (c *Client) contentURL(messageID string) string {
	return c.dataAPIBaseURL + "/v2/bot/message/" + url.PathEscape(messageID) + "/content"
}

// Fetch downloads the binary content of a message. Any transport failure or
// non-2xx response is reported as a fetch-stage error.
func (c *Client) Fetch(ctx context.Context, messageID string) (domain.RawMediaBlob, error) {
	if messageID == "" {
		return domain.RawMediaBlob{}, domain.NewStageError(domain.StageFetch, fmt.Errorf("empty message id"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentURL(messageID), nil)
	if err != nil {
		return domain.RawMediaBlob{}, domain.NewStageError(domain.StageFetch, fmt.Errorf("create request: %w", err))
	}
	c.authorize(req)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return domain.RawMediaBlob{}, domain.NewStageError(domain.StageFetch, err)
	}
	defer func() { _ = res.Body.Close() }()

	if !isSuccess(res.StatusCode) {
		return domain.RawMediaBlob{}, upstreamError(domain.StageFetch, res)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, c.maxMediaSize+1))
	if err != nil {
		return domain.RawMediaBlob{}, domain.NewStageError(domain.StageFetch, fmt.Errorf("read content: %w", err))
	}
	if int64(len(data)) > c.maxMediaSize {
		return domain.RawMediaBlob{}, domain.NewStageError(domain.StageFetch,
			fmt.Errorf("content exceeds %d bytes", c.maxMediaSize))
	}
	if len(data) == 0 {
		return domain.RawMediaBlob{}, domain.NewStageError(domain.StageFetch, fmt.Errorf("empty content"))
	}

	return domain.RawMediaBlob{
		Data:        data,
		ContentType: res.Header.Get("Content-Type"),
	}, nil
}
