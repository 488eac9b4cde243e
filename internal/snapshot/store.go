package snapshot

import (
	"sort"
	"sync"

	"github.com/rsl-live/arena-overlay/internal/models"
)

// Store holds the latest successfully fetched entities, one collection per
// kind. Each setter replaces exactly one kind atomically; a failed fetch
// never touches the store, so readers always see the last good snapshot.
type Store struct {
	mu sync.RWMutex

	tournaments      []models.Tournament
	tournamentByName map[string]int // name -> index into tournaments

	robots      map[int]models.Robot
	robotByName map[string]int // bot_name -> robot id, rebuilt on every SetRobots

	operational []models.OperationalRecord

	matches           []models.Match
	matchesTournament int // tournament the matches were fetched for

	resolveImage func(path string) string
}

// NewStore creates a Store. resolveImage turns a relative image path into an
// absolute URL (typically rsl_client.Client.ImageURL); nil leaves paths as-is.
func NewStore(resolveImage func(string) string) *Store {
	if resolveImage == nil {
		resolveImage = func(p string) string { return p }
	}
	return &Store{
		tournamentByName: make(map[string]int),
		robots:           make(map[int]models.Robot),
		robotByName:      make(map[string]int),
		resolveImage:     resolveImage,
	}
}

func (s *Store) SetTournaments(tournaments []models.Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tournaments = tournaments
	s.tournamentByName = make(map[string]int, len(tournaments))
	for i, t := range tournaments {
		s.tournamentByName[t.Name] = i
	}
}

func (s *Store) SetRobots(robots []models.Robot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.robots = make(map[int]models.Robot, len(robots))
	s.robotByName = make(map[string]int, len(robots))
	for _, r := range robots {
		s.robots[r.ID] = r
		s.robotByName[r.BotName] = r.ID
	}
}

func (s *Store) SetOperational(records []models.OperationalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operational = records
}

// SetMatches replaces the pending-match snapshot. The tournament id tags the
// snapshot so results from a fetch issued before a tournament switch can be
// recognized as stale and discarded by the caller.
func (s *Store) SetMatches(tournamentID int, matches []models.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = matches
	s.matchesTournament = tournamentID
}

func (s *Store) Tournaments() []models.Tournament {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Tournament, len(s.tournaments))
	copy(out, s.tournaments)
	return out
}

func (s *Store) TournamentByName(name string) (models.Tournament, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.tournamentByName[name]
	if !ok {
		return models.Tournament{}, false
	}
	return s.tournaments[i], true
}

func (s *Store) RobotByID(id int) (models.Robot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.robots[id]
	return r, ok
}

func (s *Store) RobotByName(name string) (models.Robot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.robotByName[name]
	if !ok {
		return models.Robot{}, false
	}
	return s.robots[id], true
}

// ImageURL resolves a robot's image for the given tournament. Only the
// operational record matching that tournament is authoritative; clean image
// is preferred over raw. Returns "" when nothing resolves.
func (s *Store) ImageURL(robotID, tournamentID int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.operational {
		if rec.RobotID == robotID && rec.TournamentID == tournamentID {
			if path := rec.Image(); path != "" {
				return s.resolveImage(path)
			}
			return ""
		}
	}
	return ""
}

// RobotsForTournament returns the robots holding an operational record in
// the given tournament, sorted by bot name.
func (s *Store) RobotsForTournament(tournamentID int) []models.Robot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int]bool)
	var out []models.Robot
	for _, rec := range s.operational {
		if rec.TournamentID != tournamentID || seen[rec.RobotID] {
			continue
		}
		seen[rec.RobotID] = true
		if r, ok := s.robots[rec.RobotID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BotName < out[j].BotName })
	return out
}

// PendingMatches returns a copy of the pending-match snapshot and the
// tournament it belongs to.
func (s *Store) PendingMatches() (int, []models.Match) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Match, len(s.matches))
	copy(out, s.matches)
	return s.matchesTournament, out
}
