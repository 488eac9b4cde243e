package snapshot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/rsl-live/arena-overlay/clients/rsl_client"
)

// Refresher fetches one entity kind at a time and installs the result into
// the Store. Failures leave the prior snapshot for that kind untouched and
// come back as a human-readable status string for operator visibility; they
// are never fatal and never block the other kinds.
type Refresher struct {
	store  *Store
	client *rsl_client.Client
}

func NewRefresher(store *Store, client *rsl_client.Client) *Refresher {
	return &Refresher{store: store, client: client}
}

func (r *Refresher) RefreshTournaments(ctx context.Context) (string, error) {
	tournaments, err := r.client.FetchTournaments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("tournaments refresh failed; keeping prior snapshot")
		return fmt.Sprintf("Failed to load tournaments: %v", err), err
	}
	r.store.SetTournaments(tournaments)
	return fmt.Sprintf("Loaded %d tournaments", len(tournaments)), nil
}

func (r *Refresher) RefreshRobots(ctx context.Context) (string, error) {
	robots, err := r.client.FetchRobots(ctx)
	if err != nil {
		log.Error().Err(err).Msg("robots refresh failed; keeping prior snapshot")
		return fmt.Sprintf("Failed to load robots: %v", err), err
	}
	r.store.SetRobots(robots)
	return fmt.Sprintf("Loaded %d robots", len(robots)), nil
}

func (r *Refresher) RefreshOperational(ctx context.Context) (string, error) {
	records, err := r.client.FetchOperational(ctx)
	if err != nil {
		log.Error().Err(err).Msg("operational refresh failed; keeping prior snapshot")
		return fmt.Sprintf("Failed to load check-in records: %v", err), err
	}
	r.store.SetOperational(records)
	return fmt.Sprintf("Loaded %d check-in records", len(records)), nil
}

// RefreshMatches refreshes the pending-match snapshot for one tournament.
// The stored snapshot stays tagged with tournamentID so callers can detect
// results that became stale across a tournament switch.
func (r *Refresher) RefreshMatches(ctx context.Context, tournamentID int) (string, error) {
	matches, err := r.client.FetchPendingMatches(ctx, tournamentID)
	if err != nil {
		log.Error().Err(err).Int("tournament_id", tournamentID).Msg("matches refresh failed; keeping prior snapshot")
		return fmt.Sprintf("Failed to load matches: %v", err), err
	}
	r.store.SetMatches(tournamentID, matches)
	return fmt.Sprintf("Loaded %d pending matches", len(matches)), nil
}
