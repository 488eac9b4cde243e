// Package selection tracks operator-chosen or auto-chosen competitors and
// the current match, reconciles those choices across snapshot refreshes,
// and owns the debounced persistence of the settings snapshot.
package selection

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/rsl-live/arena-overlay/internal/config"
	"github.com/rsl-live/arena-overlay/internal/models"
	"github.com/rsl-live/arena-overlay/internal/reconcile"
	"github.com/rsl-live/arena-overlay/internal/snapshot"
)

// Mode selects who drives competitor selection.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// Side identifies a competitor slot on the overlay.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Reserved dropdown values. These never reach the renderer as names and are
// never persisted.
const (
	PlaceholderLeft       = "-- Select Left Competitor --"
	PlaceholderRight      = "-- Select Right Competitor --"
	PlaceholderTournament = "-- Select Tournament --"
)

// DebounceInterval is the quiet period a burst of selection changes must
// observe before one coalesced settings write happens.
const DebounceInterval = 500 * time.Millisecond

// Placeholder returns the reserved value for a side.
func Placeholder(side Side) string {
	if side == SideLeft {
		return PlaceholderLeft
	}
	return PlaceholderRight
}

type pendingSave struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

// Manager holds the selection state shared by the poll cycle and manual
// operator actions. All methods are safe for concurrent use, though in
// practice everything funnels through the controller's single timeline.
type Manager struct {
	store        *snapshot.Store
	clock        clockwork.Clock
	settingsPath string
	saveFn       func(path string, settings config.Settings) error

	mu             sync.Mutex
	settings       config.Settings
	mode           Mode
	tournamentID   int
	tournamentName string
	left           string
	right          string
	matchState     reconcile.State

	saveMu  sync.Mutex
	pending *pendingSave
}

func NewManager(store *snapshot.Store, settingsPath string, settings config.Settings, clock clockwork.Clock) *Manager {
	return &Manager{
		store:        store,
		clock:        clock,
		settingsPath: settingsPath,
		saveFn:       config.Save,
		settings:     settings,
		mode:         ModeManual,
		left:         PlaceholderLeft,
		right:        PlaceholderRight,
	}
}

// SelectTournament resolves name against the snapshot store. The
// placeholder or an unresolved name clears all tournament-dependent state
// and reports ok=false; no error is raised either way. A successful switch
// hard-resets match state so nothing carries over across tournaments.
func (m *Manager) SelectTournament(name string) (models.Tournament, bool) {
	if name == "" || name == PlaceholderTournament {
		m.clearTournament()
		return models.Tournament{}, false
	}

	tournament, ok := m.store.TournamentByName(name)
	if !ok {
		log.Warn().Str("tournament", name).Msg("tournament not in snapshot; clearing selection")
		m.clearTournament()
		return models.Tournament{}, false
	}

	m.mu.Lock()
	m.tournamentID = tournament.ID
	m.tournamentName = tournament.Name
	m.matchState = reconcile.ResetForTournament()
	m.settings.LastTournament = tournament.Name
	m.mu.Unlock()

	log.Info().Str("tournament", tournament.Name).Int("tournament_id", tournament.ID).Msg("tournament selected")
	m.persistNow()
	return tournament, true
}

func (m *Manager) clearTournament() {
	m.mu.Lock()
	m.tournamentID = 0
	m.tournamentName = ""
	m.matchState = reconcile.ResetForTournament()
	m.left = PlaceholderLeft
	m.right = PlaceholderRight
	m.mu.Unlock()
}

// SelectCompetitor records a manual choice for one side. Reserved
// placeholder strings are a silent no-op. Every applied change schedules a
// debounced settings write; bursts coalesce into one write.
func (m *Manager) SelectCompetitor(side Side, name string) bool {
	if name == "" || name == PlaceholderLeft || name == PlaceholderRight {
		return false
	}

	m.mu.Lock()
	if side == SideLeft {
		m.left = name
	} else {
		m.right = name
	}
	m.mu.Unlock()

	m.schedulePersist()
	return true
}

// SetPairing installs both sides at once (auto mode match selection).
func (m *Manager) SetPairing(left, right string) {
	m.mu.Lock()
	m.left = left
	m.right = right
	m.mu.Unlock()
	m.schedulePersist()
}

// ReconcileRoster rebuilds each side's selection after a tournament switch
// or roster refresh. Per side: keep the current choice if still in the
// roster, else restore the last persisted name if present, else fall back
// to the placeholder. Reports whether either side ended up restored, which
// callers use to push a deferred presentation update.
func (m *Manager) ReconcileRoster(names []string) (restored bool) {
	inRoster := make(map[string]bool, len(names))
	for _, n := range names {
		inRoster[n] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restoredLeft := m.reconcileSideLocked(&m.left, m.settings.LastLeftCompetitor, PlaceholderLeft, inRoster)
	restoredRight := m.reconcileSideLocked(&m.right, m.settings.LastRightCompetitor, PlaceholderRight, inRoster)
	return restoredLeft || restoredRight
}

func (m *Manager) reconcileSideLocked(current *string, persisted, placeholder string, inRoster map[string]bool) bool {
	if inRoster[*current] {
		return true
	}
	if persisted != "" && inRoster[persisted] {
		log.Info().Str("competitor", persisted).Msg("restored competitor from saved settings")
		*current = persisted
		return true
	}
	*current = placeholder
	return false
}

// SetMode switches between manual and auto selection. Reports whether an
// immediate reconciliation cycle is due (switching into auto). Switching to
// manual keeps the last pairing as the manual starting point.
func (m *Manager) SetMode(mode Mode) (immediateCycle bool) {
	m.mu.Lock()
	changed := m.mode != mode
	m.mode = mode
	m.mu.Unlock()
	if changed {
		log.Info().Str("mode", string(mode)).Msg("selection mode changed")
	}
	return mode == ModeAuto
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Pairing returns the current left/right competitor values, which may be
// placeholders.
func (m *Manager) Pairing() (left, right string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.left, m.right
}

// Tournament returns the active tournament, ok=false when none is selected.
func (m *Manager) Tournament() (id int, name string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tournamentID, m.tournamentName, m.tournamentID != 0
}

func (m *Manager) MatchState() reconcile.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchState
}

func (m *Manager) SetMatchState(state reconcile.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchState = state
}

// SelectMatch records a match selection, clearing any retained completed
// entry when a different match becomes current.
func (m *Manager) SelectMatch(match models.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchState = reconcile.SelectMatch(m.matchState, match)
}

// Settings returns a copy of the committed settings.
func (m *Manager) Settings() config.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// ApplyAppearance commits color and timer-duration changes and persists
// immediately; appearance edits are single deliberate actions, not bursts.
func (m *Manager) ApplyAppearance(background, left, right string, duration int) {
	m.mu.Lock()
	if background != "" {
		m.settings.BackgroundColor = background
	}
	if left != "" {
		m.settings.LeftColor = left
	}
	if right != "" {
		m.settings.RightColor = right
	}
	if duration > 0 {
		m.settings.TimerDuration = duration
	}
	m.mu.Unlock()
	m.persistNow()
}

// schedulePersist arms (or re-arms) the single debounce timer. At most one
// write is pending at a time; a new selection event replaces the pending
// one rather than stacking.
func (m *Manager) schedulePersist() {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if m.pending != nil {
		close(m.pending.cancel)
		stopAndDrainTimer(m.pending.timer)
	}

	p := &pendingSave{
		timer:  m.clock.NewTimer(DebounceInterval),
		cancel: make(chan struct{}),
	}
	m.pending = p

	go func() {
		select {
		case <-p.timer.Chan():
			m.saveMu.Lock()
			if m.pending == p {
				m.pending = nil
			}
			m.saveMu.Unlock()
			m.persistNow()
		case <-p.cancel:
		}
	}()
}

// Flush cancels any pending debounced write and persists synchronously.
// Called on shutdown so the last committed selection is never lost.
func (m *Manager) Flush() {
	m.saveMu.Lock()
	if m.pending != nil {
		close(m.pending.cancel)
		stopAndDrainTimer(m.pending.timer)
		m.pending = nil
	}
	m.saveMu.Unlock()
	m.persistNow()
}

// persistNow writes the snapshot reflecting the latest committed selection
// at the moment of the write. A side still holding its placeholder leaves
// the last persisted name alone: the tournament-select save runs before the
// roster is reconciled, and wiping the names there would break the restore
// on the next startup.
func (m *Manager) persistNow() {
	m.mu.Lock()
	settings := m.settings
	if m.tournamentName != "" {
		settings.LastTournament = m.tournamentName
	}
	if m.left != PlaceholderLeft {
		settings.LastLeftCompetitor = m.left
	}
	if m.right != PlaceholderRight {
		settings.LastRightCompetitor = m.right
	}
	m.settings = settings
	m.mu.Unlock()

	if err := m.saveFn(m.settingsPath, settings); err != nil {
		log.Error().Err(err).Str("path", m.settingsPath).Msg("failed to save settings")
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so the
// waiting goroutine never leaks a buffered fire.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
