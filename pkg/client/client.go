// Package client is the HTTP client side of the sync protocol: it sends
// one batch of event payloads per connection to the sync endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tradeboard/calendar-sync/internal/models"
	"github.com/tradeboard/calendar-sync/pkg/retry"
)

// Config holds sync client configuration
type Config struct {
	Endpoint    string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
}

// Client posts sync batches to the sync endpoint
type Client struct {
	endpoint string
	token    string
	client   *http.Client
	retryer  *retry.Retryer
	logger   *slog.Logger
}

// New creates a sync client. The token is the caller's bearer token;
// acquiring it is the session layer's job.
func New(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retryConfig := retry.DefaultConfig()
	if config.MaxAttempts > 0 {
		retryConfig.MaxAttempts = config.MaxAttempts
	}

	return &Client{
		endpoint: config.Endpoint,
		token:    config.Token,
		client:   &http.Client{Timeout: timeout},
		retryer:  retry.NewRetryer(retryConfig, logger),
		logger:   logger,
	}
}

// Sync sends one batch of events for one connection and returns the
// handler's response. Transport failures and non-2xx statuses are
// retried per the retry configuration; a still-failing call returns an
// error for the caller to aggregate.
func (c *Client) Sync(ctx context.Context, connectionID string, events []models.EventPayload) (*models.SyncResponse, error) {
	body, err := json.Marshal(models.SyncRequest{
		ConnectionID: connectionID,
		Events:       events,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync request: %w", err)
	}

	var resp *models.SyncResponse
	err = c.retryer.Do(ctx, func() error {
		var opErr error
		resp, opErr = c.post(ctx, body)
		return opErr
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Sync batch delivered",
		"connection_id", connectionID,
		"events", len(events),
		"failed", resp.Failed)

	return resp, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*models.SyncResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		// The handler puts its reason in the error envelope; carry it
		// into the HTTPError so aggregated results stay meaningful.
		var errResp models.ErrorResponse
		data, _ := io.ReadAll(httpResp.Body)
		if jsonErr := json.Unmarshal(data, &errResp); jsonErr != nil {
			errResp.Error = ""
		}
		return nil, retry.NewHTTPError(httpResp.StatusCode, httpResp.Status, errResp.Error)
	}

	var resp models.SyncResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse sync response: %w", err)
	}

	return &resp, nil
}
