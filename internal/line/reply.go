package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mattjoyce/imagerelay/internal/domain"
)

// maxTextLength is the platform limit for one text message.
const maxTextLength = 5000

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) replyURL() string {
	return c.apiBaseURL + "/v2/bot/message/reply"
}

// Notify sends a single text reply. Reply tokens are single-use, so Notify
// never retries.
func (c *Client) Notify(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return domain.NewStageError(domain.StageNotify, fmt.Errorf("empty reply token"))
	}
	if r := []rune(text); len(r) > maxTextLength {
		text = string(r[:maxTextLength])
	}

	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return domain.NewStageError(domain.StageNotify, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.replyURL(), bytes.NewReader(body))
	if err != nil {
		return domain.NewStageError(domain.StageNotify, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return domain.NewStageError(domain.StageNotify, err)
	}
	defer func() { _ = res.Body.Close() }()

	if !isSuccess(res.StatusCode) {
		return upstreamError(domain.StageNotify, res)
	}
	return nil
}
