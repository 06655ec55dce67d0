package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"batchfetch/internal/apifetch"
)

// Client performs single HTTP fetches for request descriptors against one
// service base URL. No retries, auth, or caching happen at this layer.
type Client struct {
	client *resty.Client
	logger zerolog.Logger
}

// Config for creating a new Client
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewClient creates a new Client
func NewClient(cfg Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client: client,
		logger: cfg.Logger.With().Str("component", "fetcher").Logger(),
	}
}

// Do executes the request and returns the raw response body. Non-2xx
// responses become an *apifetch.Error, carrying the service's own error body
// when it parses.
func (c *Client) Do(ctx context.Context, req *apifetch.Request) (json.RawMessage, error) {
	r := c.client.R().SetContext(ctx)

	for name, value := range req.Headers {
		r.SetHeader(name, value)
	}
	if len(req.Data) > 0 {
		r.SetBody([]byte(req.Data))
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	if resp.IsError() {
		c.logger.Debug().
			Str("method", req.Method).
			Str("path", req.Path).
			Int("status", resp.StatusCode()).
			Msg("request failed")
		return nil, parseErrorBody(resp.Body(), resp.StatusCode())
	}

	return json.RawMessage(resp.Body()), nil
}

// parseErrorBody decodes the service's {code, message, data: {status}} error
// shape, falling back to a generic http error for anything else
func parseErrorBody(body []byte, status int) *apifetch.Error {
	var apiErr apifetch.Error
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		if apiErr.Data.Status == 0 {
			apiErr.Data.Status = status
		}
		return &apiErr
	}
	return apifetch.NewError(apifetch.CodeHTTPError, fmt.Sprintf("request failed with status %d", status), status)
}
