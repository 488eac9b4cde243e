package rsl_client

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/rsl-live/arena-overlay/clients"
	"github.com/rsl-live/arena-overlay/internal/models"
)

// RobotsResponse has no success field; the robots endpoint omits it.
type RobotsResponse struct {
	Robots []models.Robot `json:"robots"`
}

// FetchRobots returns the full robot roster. The robots endpoint is the
// slowest and flakiest on the service, so this fetch alone applies bounded
// retry: up to RobotsRetries attempts with a fixed RobotsRetryWait between
// them. The last attempt's failure is surfaced to the caller.
func (c *Client) FetchRobots(ctx context.Context) ([]models.Robot, error) {
	var lastErr error
	for attempt := 1; attempt <= RobotsRetries; attempt++ {
		if attempt > 1 {
			log.Warn().
				Int("attempt", attempt).
				Int("max_attempts", RobotsRetries).
				Err(lastErr).
				Msg("retrying robots fetch")
			select {
			case <-c.clock.After(RobotsRetryWait):
			case <-ctx.Done():
				return nil, &clients.FetchError{Kind: clients.FailNetwork, Endpoint: RobotsEndpoint, Err: ctx.Err()}
			}
		}

		robots, err := c.fetchRobotsOnce(ctx)
		if err == nil {
			return robots, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchRobotsOnce(ctx context.Context) ([]models.Robot, error) {
	ctx, cancel := context.WithTimeout(ctx, RobotsTimeout)
	defer cancel()

	body, err := c.Get(ctx, RobotsEndpoint)
	if err != nil {
		return nil, err
	}

	var response RobotsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &clients.FetchError{Kind: clients.FailDecode, Endpoint: RobotsEndpoint, Err: err}
	}

	return response.Robots, nil
}
