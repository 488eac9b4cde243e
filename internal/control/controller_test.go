package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/rsl-live/arena-overlay/clients/rsl_client"
	"github.com/rsl-live/arena-overlay/internal/config"
	"github.com/rsl-live/arena-overlay/internal/models"
	"github.com/rsl-live/arena-overlay/internal/presenter"
	"github.com/rsl-live/arena-overlay/internal/selection"
	"github.com/rsl-live/arena-overlay/internal/snapshot"
)

// recorder captures every rendered command for assertion.
type recorder struct {
	mu       sync.Mutex
	commands []presenter.Command
}

func (r *recorder) Render(cmd presenter.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
}

func (r *recorder) count(op presenter.Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, cmd := range r.commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}

// lastPayload decodes the most recent command for op into v.
func (r *recorder) lastPayload(op presenter.Op, v any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.commands) - 1; i >= 0; i-- {
		if r.commands[i].Op == op {
			return json.Unmarshal(r.commands[i].Payload, v) == nil
		}
	}
	return false
}

// testService is a fake check-in service with a mutable pending-match list.
type testService struct {
	srv *httptest.Server

	mu      sync.Mutex
	matches []models.Match
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	s := &testService{
		matches: []models.Match{
			{ID: 2, Robot1ID: 3, Robot2ID: 4, Status: models.MatchStatusPending},
			{ID: 1, Robot1ID: 1, Robot2ID: 2, Status: models.MatchStatusPending},
		},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testService) setMatches(matches []models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = matches
}

func (s *testService) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case rsl_client.TournamentsEndpoint:
		fmt.Fprint(w, `{"success":true,"tournaments":[{"id":10,"name":"Bot Bash","event_organizer":"RSL","location":"Austin"}]}`)
	case rsl_client.RobotsEndpoint:
		fmt.Fprint(w, `{"robots":[
			{"id":1,"bot_name":"Ripsaw","team_name":"Garage Built","elo":1250},
			{"id":2,"bot_name":"Flipper","team_name":"Airborne","elo":1100},
			{"id":3,"bot_name":"Hammer","team_name":"Forge","elo":1050},
			{"id":4,"bot_name":"Spinner","team_name":"Orbit","elo":990}]}`)
	case rsl_client.OperationalEndpoint:
		fmt.Fprint(w, `{"success":true,"operational":[
			{"robot_id":1,"tournament_id":10},
			{"robot_id":2,"tournament_id":10},
			{"robot_id":3,"tournament_id":10},
			{"robot_id":4,"tournament_id":10}]}`)
	case rsl_client.MatchesEndpoint:
		s.mu.Lock()
		matches := make([]models.Match, len(s.matches))
		copy(matches, s.matches)
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true, "matches": matches})
	default:
		http.NotFound(w, r)
	}
}

type fixture struct {
	service      *testService
	rec          *recorder
	clock        *clockwork.FakeClock
	controller   *Controller
	selections   *selection.Manager
	store        *snapshot.Store
	settingsPath string
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithSettings(t, config.DefaultSettings())
}

func newFixtureWithSettings(t *testing.T, settings config.Settings) *fixture {
	t.Helper()

	service := newTestService(t)
	client := rsl_client.NewClient(service.srv.URL)
	store := snapshot.NewStore(client.ImageURL)
	refresher := snapshot.NewRefresher(store, client)
	fc := clockwork.NewFakeClock()
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	selections := selection.NewManager(store, settingsPath, settings, fc)
	rec := &recorder{}

	ctrl := NewController(client, store, refresher, selections, presenter.NewBuilder(store), rec, fc, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &fixture{
		service:      service,
		rec:          rec,
		clock:        fc,
		controller:   ctrl,
		selections:   selections,
		store:        store,
		settingsPath: settingsPath,
	}
}

// waitForBase blocks until all three base snapshots have reported in.
func (f *fixture) waitForBase(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return f.rec.count(presenter.OpStatus) >= 3 },
		5*time.Second, 10*time.Millisecond, "base refresh never completed")
}

func (f *fixture) waitForQueueLen(t *testing.T, n int) presenter.MatchQueuePayload {
	t.Helper()
	var payload presenter.MatchQueuePayload
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpMatchQueue, &payload) && len(payload.Matches) == n
	}, 5*time.Second, 10*time.Millisecond, "match queue never reached %d entries", n)
	return payload
}

func TestStartupPushesPersistedAppearance(t *testing.T) {
	f := newFixture(t)

	var color presenter.ColorPayload
	require.Eventually(t, func() bool { return f.rec.lastPayload(presenter.OpBackgroundColor, &color) },
		5*time.Second, 10*time.Millisecond)
	require.Equal(t, config.DefaultSettings().BackgroundColor, color.Color)

	var names presenter.NameColorsPayload
	require.True(t, f.rec.lastPayload(presenter.OpNameColors, &names))
	require.Equal(t, config.DefaultSettings().LeftColor, names.Left)

	var timer presenter.TimerPayload
	require.True(t, f.rec.lastPayload(presenter.OpTimer, &timer))
	require.Equal(t, config.DefaultSettings().TimerDuration, timer.Seconds)

	f.waitForBase(t)
	require.Len(t, f.store.Tournaments(), 1)
}

// A restart replays the persisted tournament and competitors: the
// tournament-select save must not wipe the names before the roster restore
// runs.
func TestStartupRestoresPersistedSelections(t *testing.T) {
	settings := config.DefaultSettings()
	settings.LastTournament = "Bot Bash"
	settings.LastLeftCompetitor = "Ripsaw"
	settings.LastRightCompetitor = "Flipper"
	f := newFixtureWithSettings(t, settings)
	f.waitForBase(t)

	require.Eventually(t, func() bool {
		left, right := f.selections.Pairing()
		return left == "Ripsaw" && right == "Flipper"
	}, 5*time.Second, 10*time.Millisecond, "persisted competitors not restored")

	// the save triggered by the tournament restore kept the names on disk
	saved, err := config.Load(f.settingsPath)
	require.NoError(t, err)
	require.Equal(t, "Bot Bash", saved.LastTournament)
	require.Equal(t, "Ripsaw", saved.LastLeftCompetitor)
	require.Equal(t, "Flipper", saved.LastRightCompetitor)

	// the restored pairing reaches the renderer on the next service tick
	f.clock.BlockUntil(2)
	var names presenter.NamesPayload
	require.Eventually(t, func() bool {
		f.clock.Advance(DefaultServiceInterval)
		return f.rec.lastPayload(presenter.OpNames, &names) && names.Left == "Ripsaw"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "Flipper", names.Right)
}

func TestAutoModeSelectsHeadOfQueue(t *testing.T) {
	f := newFixture(t)
	f.waitForBase(t)

	f.controller.Do(Action{Type: ActionSelectTournament, Tournament: "Bot Bash"})
	f.controller.Do(Action{Type: ActionSetMode, Mode: "auto"})

	payload := f.waitForQueueLen(t, 2)
	require.Equal(t, "Bot Bash", payload.TournamentName)
	require.Equal(t, 1, payload.Matches[0].MatchNumber, "lowest id leads the queue")
	require.Equal(t, 2, payload.Matches[1].MatchNumber)
	require.False(t, payload.Matches[0].Completed)

	var names presenter.NamesPayload
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpNames, &names) && names.Left == "Ripsaw"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "Flipper", names.Right)
}

func TestCompletedMatchRetainedAtHead(t *testing.T) {
	f := newFixture(t)
	f.waitForBase(t)

	f.controller.Do(Action{Type: ActionSelectTournament, Tournament: "Bot Bash"})
	f.controller.Do(Action{Type: ActionSetMode, Mode: "auto"})
	f.waitForQueueLen(t, 2)

	// match 1 leaves the pending set: inferred complete, kept at slot 0
	f.service.setMatches([]models.Match{{ID: 2, Robot1ID: 3, Robot2ID: 4, Status: models.MatchStatusPending}})
	f.controller.Do(Action{Type: ActionRefreshMatches})

	var payload presenter.MatchQueuePayload
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpMatchQueue, &payload) &&
			len(payload.Matches) == 2 && payload.Matches[0].Completed
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, payload.Matches[0].MatchNumber)
	require.Equal(t, 2, payload.Matches[1].MatchNumber)

	// pairing stays on the completed match until something else is chosen
	var names presenter.NamesPayload
	require.True(t, f.rec.lastPayload(presenter.OpNames, &names))
	require.Equal(t, "Ripsaw", names.Left)
}

func TestSelectingDifferentMatchClearsRetained(t *testing.T) {
	f := newFixture(t)
	f.waitForBase(t)

	f.controller.Do(Action{Type: ActionSelectTournament, Tournament: "Bot Bash"})
	f.controller.Do(Action{Type: ActionSetMode, Mode: "auto"})
	f.waitForQueueLen(t, 2)

	f.service.setMatches([]models.Match{{ID: 2, Robot1ID: 3, Robot2ID: 4, Status: models.MatchStatusPending}})
	f.controller.Do(Action{Type: ActionRefreshMatches})
	require.Eventually(t, func() bool {
		var payload presenter.MatchQueuePayload
		return f.rec.lastPayload(presenter.OpMatchQueue, &payload) &&
			len(payload.Matches) == 2 && payload.Matches[0].Completed
	}, 5*time.Second, 10*time.Millisecond)

	f.controller.Do(Action{Type: ActionSelectMatch, MatchID: 2})

	payload := f.waitForQueueLen(t, 1)
	require.Equal(t, 2, payload.Matches[0].MatchNumber)
	require.False(t, payload.Matches[0].Completed)

	var names presenter.NamesPayload
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpNames, &names) && names.Left == "Hammer"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "Spinner", names.Right)
}

func TestManualSelectionAndUpdate(t *testing.T) {
	f := newFixture(t)
	f.waitForBase(t)

	f.controller.Do(Action{Type: ActionSelectTournament, Tournament: "Bot Bash"})
	f.controller.Do(Action{Type: ActionSelectCompetitor, Side: "left", Name: "Hammer"})
	f.controller.Do(Action{Type: ActionSelectCompetitor, Side: "right", Name: "Spinner"})
	f.controller.Do(Action{Type: ActionUpdate})

	var names presenter.NamesPayload
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpNames, &names) && names.Left == "Hammer"
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "Spinner", names.Right)
}

// A matches result fetched for a previous tournament must never reach the
// store or the renderer.
func TestStaleMatchesResultDiscarded(t *testing.T) {
	store := snapshot.NewStore(nil)
	store.SetTournaments([]models.Tournament{{ID: 10, Name: "Bot Bash"}})
	fc := clockwork.NewFakeClock()
	selections := selection.NewManager(store, filepath.Join(t.TempDir(), "settings.json"), config.DefaultSettings(), fc)
	rec := &recorder{}

	ctrl := NewController(nil, store, nil, selections, presenter.NewBuilder(store), rec, fc, DefaultConfig())

	_, ok := selections.SelectTournament("Bot Bash")
	require.True(t, ok)

	ctrl.handleMatchesResult(fetchResult{
		kind:         kindMatches,
		tournamentID: 99,
		matches:      []models.Match{{ID: 5, Robot1ID: 1, Robot2ID: 2}},
	})

	_, pending := store.PendingMatches()
	require.Empty(t, pending, "stale result must not replace the snapshot")
	require.Zero(t, rec.count(presenter.OpMatchQueue))
	require.Nil(t, selections.MatchState().Current)
}

func TestTimerCountdown(t *testing.T) {
	f := newFixture(t)

	// both loop tickers must be armed before advancing
	f.clock.BlockUntil(2)

	f.controller.Do(Action{Type: ActionTimerSet, Seconds: 3})
	f.controller.Do(Action{Type: ActionTimerStart})

	var timer presenter.TimerPayload
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpTimer, &timer) && timer.Seconds == 3 && !timer.Paused
	}, 5*time.Second, 10*time.Millisecond)

	f.clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpTimer, &timer) && timer.Seconds == 2
	}, 5*time.Second, 10*time.Millisecond)

	f.controller.Do(Action{Type: ActionTimerPause})
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpTimer, &timer) && timer.Paused
	}, 5*time.Second, 10*time.Millisecond)

	f.clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	require.True(t, f.rec.lastPayload(presenter.OpTimer, &timer))
	require.Equal(t, 2, timer.Seconds, "paused timer must not count down")

	f.controller.Do(Action{Type: ActionTimerReset})
	require.Eventually(t, func() bool {
		return f.rec.lastPayload(presenter.OpTimer, &timer) &&
			timer.Seconds == config.DefaultSettings().TimerDuration && !timer.Paused
	}, 5*time.Second, 10*time.Millisecond)
}
