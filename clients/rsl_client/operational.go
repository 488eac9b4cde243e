package rsl_client

import (
	"context"
	"encoding/json"

	"github.com/rsl-live/arena-overlay/clients"
	"github.com/rsl-live/arena-overlay/internal/models"
)

type OperationalResponse struct {
	Success     bool                       `json:"success"`
	Operational []models.OperationalRecord `json:"operational"`
}

// FetchOperational returns the robot/tournament check-in records that carry
// image paths.
func (c *Client) FetchOperational(ctx context.Context) ([]models.OperationalRecord, error) {
	body, err := c.Get(ctx, OperationalEndpoint)
	if err != nil {
		return nil, err
	}

	var response OperationalResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &clients.FetchError{Kind: clients.FailDecode, Endpoint: OperationalEndpoint, Err: err}
	}

	return response.Operational, nil
}
