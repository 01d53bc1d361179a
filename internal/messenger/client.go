// Package messenger implements the platform side of the bridge: outbound
// message construction and the Send API client.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

var ErrNoRecipient = errors.New("outbound message has no recipient id")

// Client calls the platform Graph API: the Send API plus the (currently
// unwired) comment-reply endpoints.
type Client struct {
	graphBase    string
	version      string
	pageToken    string
	commentToken string
	client       *http.Client
	maxRetries   int
	logger       *slog.Logger
}

type ClientConfig struct {
	GraphBaseURL       string
	APIVersion         string
	PageAccessToken    string
	CommentAccessToken string
	Timeout            time.Duration
	MaxRetries         int
	Logger             *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		graphBase:    cfg.GraphBaseURL,
		version:      cfg.APIVersion,
		pageToken:    cfg.PageAccessToken,
		commentToken: cfg.CommentAccessToken,
		client:       &http.Client{Timeout: cfg.Timeout},
		maxRetries:   cfg.MaxRetries,
		logger:       cfg.Logger,
	}
}

// sendResult is the Send API success body.
type sendResult struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// Send delivers one outbound message through the Send API. Failures are
// returned to the caller for counting and logging; they never propagate to
// the inbound webhook request.
func (c *Client) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if msg.Recipient.ID == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/me/messages?access_token=%s",
		c.graphBase, c.version, url.QueryEscape(c.pageToken))

	start := time.Now()
	resp, err := doWithRetry(ctx, c.client, c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, c.logger)
	metrics.SendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SendsFailed.Inc()
		return fmt.Errorf("send api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.SendsFailed.Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send api returned %d: %s", resp.StatusCode, respBody)
	}

	var result sendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Delivery succeeded; only the echo body was unreadable.
		c.logger.Warn("cannot decode send api response", "err", err)
	}
	metrics.SendsOK.Inc()

	if result.MessageID != "" {
		c.logger.Info("message sent",
			"message_id", result.MessageID, "recipient", result.RecipientID)
	} else {
		c.logger.Info("send api called", "recipient", result.RecipientID)
	}

	return nil
}

var ErrNoCommentToken = errors.New("comment access token not configured")

// SendPrivateReply answers a page comment through a private message.
// Disabled extension point: nothing calls this yet (comment auto-reply is
// pending policy).
func (c *Client) SendPrivateReply(ctx context.Context, commentID, message string) error {
	return c.commentCall(ctx, commentID, "private_replies", message)
}

// SendCommentReply posts a public reply under a page comment. Disabled
// extension point, same as SendPrivateReply.
func (c *Client) SendCommentReply(ctx context.Context, commentID, message string) error {
	return c.commentCall(ctx, commentID, "comments", message)
}

func (c *Client) commentCall(ctx context.Context, commentID, edge, message string) error {
	if c.commentToken == "" {
		return ErrNoCommentToken
	}

	q := url.Values{}
	q.Set("access_token", c.commentToken)
	q.Set("message", message)
	endpoint := fmt.Sprintf("%s/%s/%s/%s?%s", c.graphBase, c.version, commentID, edge, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", edge, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s call: %w", edge, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", edge, resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.ID != "" {
		c.logger.Info("comment reply sent", "id", result.ID, "edge", edge)
	}
	return nil
}
