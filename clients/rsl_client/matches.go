package rsl_client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/rsl-live/arena-overlay/clients"
	"github.com/rsl-live/arena-overlay/internal/models"
)

type MatchesResponse struct {
	Success bool           `json:"success"`
	Matches []models.Match `json:"matches"`
}

// FetchPendingMatches returns the matches the service still reports as
// pending for the given tournament. An empty list with success:true is a
// valid answer, not an error.
func (c *Client) FetchPendingMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	params := url.Values{}
	params.Set(TournamentIDParam, strconv.Itoa(tournamentID))
	params.Set(StatusParam, models.MatchStatusPending)
	endpoint := MatchesEndpoint + "?" + params.Encode()

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response MatchesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &clients.FetchError{Kind: clients.FailDecode, Endpoint: MatchesEndpoint, Err: err}
	}

	if !response.Success {
		return nil, &clients.FetchError{Kind: clients.FailRemoteStatus, Endpoint: MatchesEndpoint}
	}

	return response.Matches, nil
}
