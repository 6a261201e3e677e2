package n8n

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// APIKeyHeader carries the shared secret in both directions.
const APIKeyHeader = "x-api-key"

type Client struct {
	httpClient *resty.Client
	logger     *logrus.Logger
}

func NewClient(secret string, timeout time.Duration, retry RetryConfig, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetLogger(logger).
		SetHeader("Content-Type", "application/json").
		SetHeader(APIKeyHeader, secret)
	retry.apply(httpClient, logger)

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// TriggerWorkflow posts the payload to a workflow webhook URL.
func (c *Client) TriggerWorkflow(ctx context.Context, webhookURL string, payload TriggerPayload) error {
	start := time.Now()

	c.logger.WithFields(logrus.Fields{
		"search_id": payload.SearchID,
		"platform":  payload.Platform,
		"url":       webhookURL,
	}).Debug("Sending workflow webhook")

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(webhookURL)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"search_id":   payload.SearchID,
		"platform":    payload.Platform,
		"status_code": resp.StatusCode(),
		"attempts":    resp.Request.Attempt,
		"duration":    time.Since(start).String(),
	}).Debug("Workflow webhook response received")

	if !resp.IsSuccess() {
		if len(resp.Body()) > 0 && len(resp.Body()) < 500 {
			c.logger.WithFields(logrus.Fields{
				"platform":      payload.Platform,
				"status_code":   resp.StatusCode(),
				"response_body": string(resp.Body()),
			}).Debug("Workflow webhook error body")
		}
		return &StatusError{StatusCode: resp.StatusCode()}
	}

	return nil
}
