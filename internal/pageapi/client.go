// Package pageapi is a thin client for the platform's graph endpoints used
// by the relay: comment replies and direct messages on behalf of a page.
package pageapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	pkgerrors "hookrelay/pkg/errors"
)

// Client talks to the graph API over HTTP. The zero value is not usable;
// construct with NewClient.
type Client struct {
	base   string
	client *http.Client
	log    logger.Logger
}

func NewClient(base string, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultReplyTimeout
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// ReplyToComment posts message as a reply under the given comment. postID is
// recorded for tracing only; the graph addresses replies by comment id.
func (c *Client) ReplyToComment(ctx context.Context, commentID, postID, message, accessToken string) error {
	if commentID == "" {
		return pkgerrors.ErrValidation.WithMessage("comment id is required")
	}
	endpoint := fmt.Sprintf("%s/%s/comments", c.base, url.PathEscape(commentID))

	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", accessToken)

	c.log.DebugwCtx(ctx, "posting comment reply",
		"comment_id", commentID,
		"post_id", postID)
	return c.postForm(ctx, endpoint, form)
}

// SendMessage sends a text message from the page to a recipient through the
// page's messages endpoint.
func (c *Client) SendMessage(ctx context.Context, pageID, accessToken, recipientID, text string) error {
	if pageID == "" || recipientID == "" {
		return pkgerrors.ErrValidation.WithMessage("page id and recipient id are required")
	}
	endpoint := fmt.Sprintf("%s/%s/messages", c.base, url.PathEscape(pageID))

	recipient, err := json.Marshal(map[string]string{"id": recipientID})
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("recipient", string(recipient))
	form.Set("message", string(body))
	form.Set("access_token", accessToken)

	c.log.DebugwCtx(ctx, "sending page message",
		"page_id", pageID,
		"recipient_id", recipientID)
	return c.postForm(ctx, endpoint, form)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable.WithMessage("graph API request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Graph errors carry a JSON body worth logging verbatim.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		c.log.WarnwCtx(ctx, "graph API rejected request",
			"status", resp.StatusCode,
			"body", string(detail))
		return pkgerrors.ErrServiceUnavailable.WithMessage(
			fmt.Sprintf("graph API returned status %d", resp.StatusCode))
	}
	return nil
}
