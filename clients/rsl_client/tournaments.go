package rsl_client

import (
	"context"
	"encoding/json"

	"github.com/rsl-live/arena-overlay/clients"
	"github.com/rsl-live/arena-overlay/internal/models"
)

type TournamentsResponse struct {
	Success     bool                `json:"success"`
	Tournaments []models.Tournament `json:"tournaments"`
}

// FetchTournaments returns every tournament known to the service.
func (c *Client) FetchTournaments(ctx context.Context) ([]models.Tournament, error) {
	body, err := c.Get(ctx, TournamentsEndpoint)
	if err != nil {
		return nil, err
	}

	var response TournamentsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &clients.FetchError{Kind: clients.FailDecode, Endpoint: TournamentsEndpoint, Err: err}
	}

	if !response.Success {
		return nil, &clients.FetchError{Kind: clients.FailRemoteStatus, Endpoint: TournamentsEndpoint}
	}

	return response.Tournaments, nil
}
