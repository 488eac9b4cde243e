package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/rsl-live/arena-overlay/clients/rsl_client"
	"github.com/rsl-live/arena-overlay/internal/models"
)

func strptr(s string) *string { return &s }

func testStore() *Store {
	s := NewStore(func(p string) string { return "https://svc.test" + p })
	s.SetRobots([]models.Robot{
		{ID: 1, BotName: "Ripsaw", TeamName: "Garage Built", Elo: 1250},
		{ID: 2, BotName: "Tombstone Jr", TeamName: "Hardcore", Elo: 1400},
		{ID: 3, BotName: "Flipper", TeamName: "Airborne", Elo: 1100},
	})
	s.SetOperational([]models.OperationalRecord{
		{RobotID: 1, TournamentID: 10, CleanImage: strptr("/img/ripsaw-clean.png"), RawImage: strptr("/img/ripsaw-raw.png")},
		{RobotID: 2, TournamentID: 10, RawImage: strptr("/img/tj-raw.png")},
		{RobotID: 3, TournamentID: 11},
		{RobotID: 1, TournamentID: 11, CleanImage: strptr("/img/ripsaw-other.png")},
	})
	return s
}

func TestRobotLookups(t *testing.T) {
	s := testStore()

	r, ok := s.RobotByID(2)
	require.True(t, ok)
	require.Equal(t, "Tombstone Jr", r.BotName)

	r, ok = s.RobotByName("Flipper")
	require.True(t, ok)
	require.Equal(t, 3, r.ID)

	_, ok = s.RobotByName("Nobody")
	require.False(t, ok)
}

func TestImageURLPrefersCleanAndScopesToTournament(t *testing.T) {
	s := testStore()

	cases := []struct {
		name         string
		robotID      int
		tournamentID int
		want         string
	}{
		{"clean preferred", 1, 10, "https://svc.test/img/ripsaw-clean.png"},
		{"raw fallback", 2, 10, "https://svc.test/img/tj-raw.png"},
		{"record without images", 3, 11, ""},
		{"wrong tournament", 2, 11, ""},
		{"tournament-scoped record", 1, 11, "https://svc.test/img/ripsaw-other.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, s.ImageURL(tc.robotID, tc.tournamentID))
		})
	}
}

func TestRobotsForTournament(t *testing.T) {
	s := testStore()

	robots := s.RobotsForTournament(10)
	require.Len(t, robots, 2)
	// sorted by bot name
	require.Equal(t, "Ripsaw", robots[0].BotName)
	require.Equal(t, "Tombstone Jr", robots[1].BotName)

	require.Empty(t, s.RobotsForTournament(99))
}

func TestTournamentByName(t *testing.T) {
	s := testStore()
	s.SetTournaments([]models.Tournament{
		{ID: 10, Name: "Bot Bash", EventOrganizer: "RSL", Location: "Austin"},
		{ID: 11, Name: "Robot Ruckus"},
	})

	tour, ok := s.TournamentByName("Robot Ruckus")
	require.True(t, ok)
	require.Equal(t, 11, tour.ID)

	_, ok = s.TournamentByName("Missing Cup")
	require.False(t, ok)
}

// A failed matches fetch must not disturb any other snapshot kind, and the
// prior matches snapshot must survive.
func TestFailedMatchesFetchLeavesOtherKindsUntouched(t *testing.T) {
	matchesFail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case rsl_client.TournamentsEndpoint:
			w.Write([]byte(`{"success":true,"tournaments":[{"id":10,"name":"Bot Bash"}]}`))
		case rsl_client.RobotsEndpoint:
			w.Write([]byte(`{"robots":[{"id":1,"bot_name":"Ripsaw","team_name":"Garage Built","elo":1250}]}`))
		case rsl_client.OperationalEndpoint:
			w.Write([]byte(`{"success":true,"operational":[{"robot_id":1,"tournament_id":10}]}`))
		case rsl_client.MatchesEndpoint:
			if matchesFail {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"success":true,"matches":[{"id":5,"robot_1_id":1,"robot_2_id":1}]}`))
		}
	}))
	defer srv.Close()

	client := rsl_client.NewClient(srv.URL)
	store := NewStore(client.ImageURL)
	ref := NewRefresher(store, client)
	ctx := context.Background()

	for _, refresh := range []func(context.Context) (string, error){
		ref.RefreshTournaments, ref.RefreshRobots, ref.RefreshOperational,
	} {
		_, err := refresh(ctx)
		require.NoError(t, err)
	}
	_, err := ref.RefreshMatches(ctx, 10)
	require.NoError(t, err)

	matchesFail = true
	status, err := ref.RefreshMatches(ctx, 10)
	require.Error(t, err)
	require.Contains(t, status, "Failed to load matches")

	// other kinds untouched
	require.Len(t, store.Tournaments(), 1)
	_, ok := store.RobotByID(1)
	require.True(t, ok)
	require.Len(t, store.RobotsForTournament(10), 1)

	// prior matches snapshot retained
	tid, matches := store.PendingMatches()
	require.Equal(t, 10, tid)
	require.Len(t, matches, 1)
	require.Equal(t, 5, matches[0].ID)
}
