// Package reconcile diffs successive pending-match snapshots to drive the
// overlay's match queue. The check-in service exposes no completion event:
// a match that was pending on one poll and gone on the next is inferred
// completed. That inference conflates "completed" with "deleted or
// rescheduled", a known ambiguity of the upstream API that is preserved
// here deliberately.
package reconcile

import (
	"sort"

	"github.com/rsl-live/arena-overlay/internal/models"
)

// State is the reconciler's carry-over between poll cycles.
type State struct {
	// Current is the match presently driving the overlay, nil when none.
	Current *models.Match
	// RetainedCompleted is the most recently inferred-complete match, kept
	// visible at the head of the queue until a different match becomes
	// current. At most one entry.
	RetainedCompleted *models.Match
}

// Entry is one row of the ordered display list.
type Entry struct {
	Match     models.Match
	Completed bool
}

// Result is the outcome of one reconciliation cycle.
type Result struct {
	State State
	// Display is the ordered match list for this cycle: the retained
	// completed entry first, if any, then pending matches ascending by id.
	Display []Entry
	// CurrentChanged reports that Current was newly assigned this cycle
	// (auto-selection of the head of the queue).
	CurrentChanged bool
}

// Step runs one reconciliation cycle over a freshly fetched pending list.
// It never mutates prev; running it twice over the same input yields the
// same result.
func Step(prev State, pending []models.Match) Result {
	matches := make([]models.Match, len(pending))
	copy(matches, pending)
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	next := prev

	switch {
	case prev.Current == nil:
		if len(matches) > 0 {
			m := matches[0]
			next.Current = &m
			return Result{State: next, Display: display(next, matches), CurrentChanged: true}
		}
		// Nothing pending and nothing current: empty cycle.
		return Result{State: next, Display: display(next, matches)}

	default:
		if refreshed, ok := findByID(matches, prev.Current.ID); ok {
			// Still pending: pick up any fields that changed on the service.
			next.Current = &refreshed
			return Result{State: next, Display: display(next, matches)}
		}
		// Current disappeared from the pending set: infer completion. An
		// already-held retained entry is never overwritten.
		if next.RetainedCompleted == nil {
			completed := *prev.Current
			next.RetainedCompleted = &completed
		}
		return Result{State: next, Display: display(next, matches)}
	}
}

// SelectMatch records an operator or auto selection. Selecting a match with
// a different id than the retained completed entry clears that entry.
func SelectMatch(prev State, m models.Match) State {
	next := prev
	selected := m
	next.Current = &selected
	if next.RetainedCompleted != nil && next.RetainedCompleted.ID != m.ID {
		next.RetainedCompleted = nil
	}
	return next
}

// ResetForTournament clears all carry-over. A tournament switch must never
// leak current or retained state across tournaments.
func ResetForTournament() State {
	return State{}
}

// Display derives the ordered display list for a state and pending set
// without running a cycle. Used when re-rendering the queue for a scene
// switch, where no selection side effects are wanted.
func Display(s State, pending []models.Match) []Entry {
	sorted := make([]models.Match, len(pending))
	copy(sorted, pending)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return display(s, sorted)
}

func display(s State, sorted []models.Match) []Entry {
	out := make([]Entry, 0, len(sorted)+1)
	if s.RetainedCompleted != nil {
		out = append(out, Entry{Match: *s.RetainedCompleted, Completed: true})
	}
	for _, m := range sorted {
		out = append(out, Entry{Match: m})
	}
	return out
}

func findByID(matches []models.Match, id int) (models.Match, bool) {
	for _, m := range matches {
		if m.ID == id {
			return m, true
		}
	}
	return models.Match{}, false
}
