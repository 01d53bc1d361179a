// Package parseserver talks to the external reply-generation/training
// backend, a Parse Server exposing cloud functions.
package parseserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pagebot/internal/domain"
	"pagebot/internal/metrics"
)

const (
	methodTestMsg     = "testMsg"
	methodGetReplyMsg = "getReplyMsg"
	methodBotTraining = "botTraining"
)

// Client implements domain.ReplyService against the Parse cloud-function API.
type Client struct {
	baseURL       string
	applicationID string
	restKey       string
	client        *http.Client
	logger        *slog.Logger
}

type Config struct {
	BaseURL       string
	ApplicationID string
	RESTKey       string
	Timeout       time.Duration
	Logger        *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		applicationID: cfg.ApplicationID,
		restKey:       cfg.RESTKey,
		client:        &http.Client{Timeout: cfg.Timeout},
		logger:        cfg.Logger,
	}
}

// cloudResult is the envelope every cloud function responds with.
type cloudResult struct {
	Result struct {
		Msg      string `json:"msg"`
		ReplyMsg string `json:"replyMsg"`
	} `json:"result"`
}

// callFunction posts a JSON body to baseURL/functions/<method> and extracts
// result.replyMsg. Any transport error or non-200 is returned to the caller,
// which treats it as "no answer".
func (c *Client) callFunction(ctx context.Context, method string, reqBody any) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal %s request: %w", method, err)
	}

	url := c.baseURL + "/functions/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Parse-Application-Id", c.applicationID)
	req.Header.Set("X-Parse-REST-API-Key", c.restKey)

	metrics.ReplyServiceCalls.Inc()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ReplyServiceFailures.Inc()
		return "", fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ReplyServiceFailures.Inc()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s returned %d: %s", method, resp.StatusCode, respBody)
	}

	var out cloudResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.ReplyServiceFailures.Inc()
		return "", fmt.Errorf("decode %s response: %w", method, err)
	}

	c.logger.Debug("reply service responded",
		"method", method, "msg", out.Result.Msg, "reply_len", len(out.Result.ReplyMsg))
	return out.Result.ReplyMsg, nil
}

// GetReply looks up a trained reply for msg. An empty reply means the
// backend knows no answer.
func (c *Client) GetReply(ctx context.Context, msg string) (string, error) {
	return c.callFunction(ctx, methodGetReplyMsg, map[string]string{"msg": msg})
}

// TestMessage exercises the backend's echo method.
func (c *Client) TestMessage(ctx context.Context, msg string) (string, error) {
	return c.callFunction(ctx, methodTestMsg, map[string]string{"msg": msg})
}

// Train forwards a parsed training record to the backend.
func (c *Client) Train(ctx context.Context, rec domain.TrainingRecord) (string, error) {
	return c.callFunction(ctx, methodBotTraining, rec)
}
