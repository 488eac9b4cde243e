// Package control runs the overlay's single reconciliation timeline. One
// goroutine owns every state transition: poll ticks, fetch results, and
// operator actions all funnel through the same loop, so cycles never
// interleave. Network fetches run on a bounded worker pool and report back
// into the loop tagged with the tournament they were issued for.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/rsl-live/arena-overlay/clients/rsl_client"
	"github.com/rsl-live/arena-overlay/internal/models"
	"github.com/rsl-live/arena-overlay/internal/presenter"
	"github.com/rsl-live/arena-overlay/internal/reconcile"
	"github.com/rsl-live/arena-overlay/internal/selection"
	"github.com/rsl-live/arena-overlay/internal/snapshot"
)

const (
	// DefaultPollInterval paces the auto-mode pending-match poll and the
	// countdown timer.
	DefaultPollInterval = 1 * time.Second
	// DefaultServiceInterval paces the housekeeping tick that flushes
	// deferred presentation updates and queued refresh requests.
	DefaultServiceInterval = 500 * time.Millisecond
	// DefaultMaxWorkers bounds concurrent fetches against the check-in
	// service.
	DefaultMaxWorkers = 3

	actionBuffer = 32
	resultBuffer = 16
)

type fetchKind string

const (
	kindTournaments fetchKind = "tournaments"
	kindRobots      fetchKind = "robots"
	kindOperational fetchKind = "operational"
	kindMatches     fetchKind = "matches"
)

// fetchResult is a worker's report back into the loop. Matches results carry
// the tournament they were fetched for so the loop can discard results that
// went stale across a tournament switch.
type fetchResult struct {
	kind         fetchKind
	tournamentID int
	matches      []models.Match
	status       string
	err          error
}

// Config holds the controller's pacing knobs.
type Config struct {
	PollInterval    time.Duration
	ServiceInterval time.Duration
	MaxWorkers      int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    DefaultPollInterval,
		ServiceInterval: DefaultServiceInterval,
		MaxWorkers:      DefaultMaxWorkers,
	}
}

// Controller wires the snapshot store, selection manager, and presenter into
// the poll-reconcile-present cycle. All mutable cycle state below the channel
// fields is owned by the Run goroutine and never touched elsewhere.
type Controller struct {
	client     *rsl_client.Client
	store      *snapshot.Store
	refresher  *snapshot.Refresher
	selections *selection.Manager
	builder    *presenter.Builder
	renderer   presenter.Renderer
	clock      clockwork.Clock
	config     Config

	actionCh chan Action
	resultCh chan fetchResult
	workers  chan struct{}

	// loop-owned state
	matchesInFlight  bool
	baseOutstanding  int
	restorePending   bool
	deferredPresent  bool
	refreshRequested bool

	timerRemaining int
	timerPaused    bool
	timerRunning   bool
}

func NewController(
	client *rsl_client.Client,
	store *snapshot.Store,
	refresher *snapshot.Refresher,
	selections *selection.Manager,
	builder *presenter.Builder,
	renderer presenter.Renderer,
	clock clockwork.Clock,
	config Config,
) *Controller {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.ServiceInterval <= 0 {
		config.ServiceInterval = DefaultServiceInterval
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultMaxWorkers
	}
	return &Controller{
		client:     client,
		store:      store,
		refresher:  refresher,
		selections: selections,
		builder:    builder,
		renderer:   renderer,
		clock:      clock,
		config:     config,
		actionCh:   make(chan Action, actionBuffer),
		resultCh:   make(chan fetchResult, resultBuffer),
		workers:    make(chan struct{}, config.MaxWorkers),
	}
}

// Do queues an action for the timeline. It never blocks the caller; if the
// loop has fallen far enough behind to fill the buffer the action is dropped
// with a warning.
func (c *Controller) Do(action Action) {
	select {
	case c.actionCh <- action:
	default:
		log.Warn().Str("action", string(action.Type)).Msg("action channel full, dropping action")
	}
}

// HandleRaw decodes an inbound control message and queues it. Wired as the
// hub's inbound-message callback.
func (c *Controller) HandleRaw(data []byte) {
	action, err := ParseAction(data)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring malformed control message")
		return
	}
	if action.Type == "" {
		log.Warn().Msg("ignoring control message without action type")
		return
	}
	c.Do(action)
}

// Run drives the timeline until ctx is cancelled. On startup it pushes the
// persisted appearance, kicks off a full base refresh, and once all three
// base kinds have reported, restores the last tournament from settings.
func (c *Controller) Run(ctx context.Context) error {
	settings := c.selections.Settings()
	c.timerRemaining = settings.TimerDuration
	c.renderer.Render(c.builder.BackgroundColor(settings.BackgroundColor))
	c.renderer.Render(c.builder.NameColors(settings.LeftColor, settings.RightColor))
	c.renderer.Render(c.builder.Timer(c.timerRemaining, false))

	c.restorePending = true
	c.startBaseRefresh(ctx)

	pollTicker := c.clock.NewTicker(c.config.PollInterval)
	defer pollTicker.Stop()
	serviceTicker := c.clock.NewTicker(c.config.ServiceInterval)
	defer serviceTicker.Stop()

	log.Info().
		Dur("poll_interval", c.config.PollInterval).
		Int("max_workers", c.config.MaxWorkers).
		Msg("controller started")

	for {
		select {
		case <-ctx.Done():
			c.selections.Flush()
			log.Info().Msg("controller stopped")
			return ctx.Err()

		case <-pollTicker.Chan():
			c.tickTimer()
			if c.selections.Mode() == selection.ModeAuto {
				c.startMatchesFetch(ctx)
			}

		case <-serviceTicker.Chan():
			if c.refreshRequested {
				c.refreshRequested = false
				c.startBaseRefresh(ctx)
			}
			if c.deferredPresent {
				c.deferredPresent = false
				c.presentPairing()
			}

		case action := <-c.actionCh:
			c.handleAction(ctx, action)

		case result := <-c.resultCh:
			c.handleResult(result)
		}
	}
}

// startBaseRefresh fans the three tournament-independent kinds out to
// workers. Each kind is isolated: a failure leaves its prior snapshot and
// never blocks the others.
func (c *Controller) startBaseRefresh(ctx context.Context) {
	c.baseOutstanding += 3

	run := func(kind fetchKind, fetch func(context.Context) (string, error)) {
		c.workers <- struct{}{}
		defer func() { <-c.workers }()
		status, err := fetch(ctx)
		c.postResult(ctx, fetchResult{kind: kind, status: status, err: err})
	}

	go run(kindTournaments, c.refresher.RefreshTournaments)
	go run(kindRobots, c.refresher.RefreshRobots)
	go run(kindOperational, c.refresher.RefreshOperational)
}

// startMatchesFetch issues one pending-match fetch for the active
// tournament. At most one is in flight; a poll tick that lands while the
// previous fetch is still running is skipped rather than queued.
func (c *Controller) startMatchesFetch(ctx context.Context) {
	if c.matchesInFlight {
		return
	}
	tournamentID, _, ok := c.selections.Tournament()
	if !ok {
		return
	}
	c.matchesInFlight = true

	go func() {
		c.workers <- struct{}{}
		defer func() { <-c.workers }()
		matches, err := c.client.FetchPendingMatches(ctx, tournamentID)
		result := fetchResult{kind: kindMatches, tournamentID: tournamentID, matches: matches, err: err}
		if err != nil {
			result.status = fmt.Sprintf("Failed to load matches: %v", err)
		}
		c.postResult(ctx, result)
	}()
}

func (c *Controller) postResult(ctx context.Context, result fetchResult) {
	select {
	case c.resultCh <- result:
	case <-ctx.Done():
	}
}

func (c *Controller) handleResult(result fetchResult) {
	switch result.kind {
	case kindMatches:
		c.handleMatchesResult(result)
	default:
		if result.status != "" {
			c.renderer.Render(c.builder.Status(result.status))
		}
		c.baseOutstanding--
		if c.baseOutstanding == 0 && c.restorePending {
			c.restorePending = false
			c.restoreLastTournament()
		}
	}
}

func (c *Controller) handleMatchesResult(result fetchResult) {
	c.matchesInFlight = false

	if result.err != nil {
		c.renderer.Render(c.builder.Status(result.status))
		return
	}

	tournamentID, _, ok := c.selections.Tournament()
	if !ok || result.tournamentID != tournamentID {
		log.Debug().
			Int("fetched_for", result.tournamentID).
			Int("current", tournamentID).
			Msg("discarding stale matches result")
		return
	}

	c.store.SetMatches(result.tournamentID, result.matches)
	c.runReconcile(result.matches)
}

// runReconcile executes one cycle over a fresh pending list and pushes the
// resulting queue. A newly auto-selected match also updates the pairing.
func (c *Controller) runReconcile(pending []models.Match) {
	prev := c.selections.MatchState()
	result := reconcile.Step(prev, pending)
	c.selections.SetMatchState(result.State)

	if result.CurrentChanged && result.State.Current != nil {
		c.applyMatchPairing(*result.State.Current)
	}

	tournamentID, tournamentName, _ := c.selections.Tournament()
	c.renderer.Render(c.builder.MatchQueue(tournamentName, tournamentID, result.Display))
}

// applyMatchPairing resolves the match's robots and presents them. Robots
// missing from the snapshot leave the prior pairing alone; the queue still
// shows the match with placeholder cards.
func (c *Controller) applyMatchPairing(match models.Match) {
	red, okRed := c.store.RobotByID(match.Robot1ID)
	blue, okBlue := c.store.RobotByID(match.Robot2ID)
	if !okRed || !okBlue {
		log.Warn().
			Int("match_id", match.ID).
			Int("robot1_id", match.Robot1ID).
			Int("robot2_id", match.Robot2ID).
			Msg("match robots missing from snapshot, keeping prior pairing")
		return
	}
	c.selections.SetPairing(red.BotName, blue.BotName)
	c.presentPairing()
}

// presentPairing pushes the full scene set for the current pairing.
func (c *Controller) presentPairing() {
	left, right := c.selections.Pairing()
	tournamentID, tournamentName, _ := c.selections.Tournament()

	leftView := c.builder.ViewByName(left, tournamentID)
	rightView := c.builder.ViewByName(right, tournamentID)

	c.renderer.Render(c.builder.Names(left, right))
	c.renderer.Render(c.builder.MatchScene(leftView, rightView))
	c.renderer.Render(c.builder.FightCards(leftView, rightView, tournamentName))
	c.renderer.Render(c.builder.Judges(leftView, rightView))
	if leftView.BotName != presenter.NoRobotSelected {
		c.renderer.Render(c.builder.WinnerRed(leftView))
	}
	if rightView.BotName != presenter.NoRobotSelected {
		c.renderer.Render(c.builder.WinnerBlue(rightView))
	}
}

func (c *Controller) handleAction(ctx context.Context, action Action) {
	switch action.Type {
	case ActionSelectTournament:
		name := action.Tournament
		if name == "" {
			name = action.Name
		}
		c.selectTournament(ctx, name)

	case ActionSelectCompetitor:
		c.selectCompetitor(action)

	case ActionSelectMatch:
		c.selectMatch(action.MatchID)

	case ActionSetMode:
		mode := selection.ModeManual
		if action.Mode == string(selection.ModeAuto) {
			mode = selection.ModeAuto
		}
		if c.selections.SetMode(mode) {
			c.startMatchesFetch(ctx)
		}

	case ActionSwitchScene:
		c.switchScene(ctx, action.Scene)

	case ActionUpdate:
		c.presentPairing()

	case ActionRefresh:
		c.refreshRequested = false
		c.startBaseRefresh(ctx)

	case ActionRefreshMatches:
		c.startMatchesFetch(ctx)

	case ActionTimerStart:
		c.timerStart()
	case ActionTimerPause:
		c.timerPause()
	case ActionTimerReset:
		c.timerReset()
	case ActionTimerSet:
		c.timerSet(action.Seconds)

	case ActionApplyColors:
		c.applyColors(action)

	default:
		log.Warn().Str("action", string(action.Type)).Msg("unknown action type")
	}
}

func (c *Controller) selectTournament(ctx context.Context, name string) {
	tournament, ok := c.selections.SelectTournament(name)
	if !ok {
		c.renderer.Render(c.builder.Status("No tournament selected"))
		c.presentPairing()
		return
	}

	c.renderer.Render(c.builder.Status(fmt.Sprintf("Selected tournament: %s", tournament.Name)))

	roster := c.store.RobotsForTournament(tournament.ID)
	names := make([]string, 0, len(roster))
	for _, robot := range roster {
		names = append(names, robot.BotName)
	}
	if c.selections.ReconcileRoster(names) {
		c.deferredPresent = true
	}

	// Fresh tournament, fresh queue.
	c.renderer.Render(c.builder.MatchQueue(tournament.Name, tournament.ID, nil))
	if c.selections.Mode() == selection.ModeAuto {
		c.startMatchesFetch(ctx)
	}
}

// restoreLastTournament replays the persisted tournament choice once the
// base snapshots are in. A name that no longer resolves is dropped quietly.
func (c *Controller) restoreLastTournament() {
	name := c.selections.Settings().LastTournament
	if name == "" {
		return
	}
	if _, ok := c.store.TournamentByName(name); !ok {
		log.Info().Str("tournament", name).Msg("persisted tournament no longer listed, skipping restore")
		return
	}
	log.Info().Str("tournament", name).Msg("restoring persisted tournament")
	c.selectTournament(context.Background(), name)
}

func (c *Controller) selectCompetitor(action Action) {
	if c.selections.Mode() != selection.ModeManual {
		log.Debug().Msg("ignoring manual competitor selection while in auto mode")
		return
	}
	side := selection.SideLeft
	if action.Side == string(selection.SideRight) {
		side = selection.SideRight
	}
	c.selections.SelectCompetitor(side, action.Name)
}

// selectMatch makes a specific queue entry current. The entry may be a still
// pending match or the retained completed one; reselecting the retained
// match keeps it retained.
func (c *Controller) selectMatch(matchID int) {
	state := c.selections.MatchState()
	_, pending := c.store.PendingMatches()

	var match *models.Match
	for i := range pending {
		if pending[i].ID == matchID {
			match = &pending[i]
			break
		}
	}
	if match == nil && state.RetainedCompleted != nil && state.RetainedCompleted.ID == matchID {
		match = state.RetainedCompleted
	}
	if match == nil {
		log.Warn().Int("match_id", matchID).Msg("selected match not in queue")
		return
	}

	c.selections.SelectMatch(*match)
	c.applyMatchPairing(*match)

	tournamentID, tournamentName, _ := c.selections.Tournament()
	entries := reconcile.Display(c.selections.MatchState(), pending)
	c.renderer.Render(c.builder.MatchQueue(tournamentName, tournamentID, entries))
}

func (c *Controller) switchScene(ctx context.Context, scene string) {
	c.renderer.Render(c.builder.SwitchScene(scene))

	left, right := c.selections.Pairing()
	tournamentID, tournamentName, _ := c.selections.Tournament()

	switch scene {
	case "fight-cards":
		leftView := c.builder.ViewByName(left, tournamentID)
		rightView := c.builder.ViewByName(right, tournamentID)
		c.renderer.Render(c.builder.FightCards(leftView, rightView, tournamentName))
	case "judges":
		leftView := c.builder.ViewByName(left, tournamentID)
		rightView := c.builder.ViewByName(right, tournamentID)
		c.renderer.Render(c.builder.Judges(leftView, rightView))
	case "rsl":
		c.renderer.Render(c.builder.RSL(tournamentName))
	case "winner-red":
		c.renderer.Render(c.builder.WinnerRed(c.builder.ViewByName(left, tournamentID)))
	case "winner-blue":
		c.renderer.Render(c.builder.WinnerBlue(c.builder.ViewByName(right, tournamentID)))
	case "match-queue":
		_, pending := c.store.PendingMatches()
		entries := reconcile.Display(c.selections.MatchState(), pending)
		c.renderer.Render(c.builder.MatchQueue(tournamentName, tournamentID, entries))
		c.startMatchesFetch(ctx)
	}
}

func (c *Controller) applyColors(action Action) {
	c.selections.ApplyAppearance(action.Background, action.LeftColor, action.RightColor, action.Duration)
	settings := c.selections.Settings()
	c.renderer.Render(c.builder.BackgroundColor(settings.BackgroundColor))
	c.renderer.Render(c.builder.NameColors(settings.LeftColor, settings.RightColor))
	if action.Duration > 0 && !c.timerRunning {
		c.timerRemaining = settings.TimerDuration
		c.renderer.Render(c.builder.Timer(c.timerRemaining, c.timerPaused))
	}
}

// Timer semantics: start counts down on the poll tick, pause toggles,
// reset reloads the configured duration and stops.

func (c *Controller) timerStart() {
	if c.timerRemaining <= 0 {
		c.timerRemaining = c.selections.Settings().TimerDuration
	}
	c.timerPaused = false
	c.timerRunning = true
	c.renderer.Render(c.builder.Timer(c.timerRemaining, false))
}

func (c *Controller) timerPause() {
	if !c.timerRunning {
		return
	}
	c.timerPaused = !c.timerPaused
	c.renderer.Render(c.builder.Timer(c.timerRemaining, c.timerPaused))
}

func (c *Controller) timerReset() {
	c.timerRunning = false
	c.timerPaused = false
	c.timerRemaining = c.selections.Settings().TimerDuration
	c.renderer.Render(c.builder.Timer(c.timerRemaining, false))
}

func (c *Controller) timerSet(seconds int) {
	if seconds < 0 {
		return
	}
	c.timerRemaining = seconds
	c.renderer.Render(c.builder.Timer(c.timerRemaining, c.timerPaused))
}

func (c *Controller) tickTimer() {
	if !c.timerRunning || c.timerPaused {
		return
	}
	if c.timerRemaining > 0 {
		c.timerRemaining--
		c.renderer.Render(c.builder.Timer(c.timerRemaining, false))
		if c.timerRemaining == 0 {
			c.timerRunning = false
		}
	}
}
