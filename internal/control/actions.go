package control

import "encoding/json"

// ActionType names the manual operator operations. They enter the timeline
// through the same loop as poll ticks, so they honor the same invariants.
type ActionType string

const (
	ActionSelectTournament ActionType = "select_tournament"
	ActionSelectCompetitor ActionType = "select_competitor"
	ActionSelectMatch      ActionType = "select_match"
	ActionSetMode          ActionType = "set_mode"
	ActionSwitchScene      ActionType = "switch_scene"
	ActionUpdate           ActionType = "update"
	ActionRefresh          ActionType = "refresh"
	ActionRefreshMatches   ActionType = "refresh_matches"
	ActionTimerStart       ActionType = "timer_start"
	ActionTimerPause       ActionType = "timer_pause"
	ActionTimerReset       ActionType = "timer_reset"
	ActionTimerSet         ActionType = "timer_set"
	ActionApplyColors      ActionType = "apply_colors"
)

// Action is one operator request, either built programmatically or decoded
// from an inbound control websocket message.
type Action struct {
	Type       ActionType `json:"action"`
	Tournament string     `json:"tournament,omitempty"`
	Side       string     `json:"side,omitempty"`
	Name       string     `json:"name,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	Scene      string     `json:"scene,omitempty"`
	MatchID    int        `json:"match_id,omitempty"`
	Seconds    int        `json:"seconds,omitempty"`
	Background string     `json:"background_color,omitempty"`
	LeftColor  string     `json:"left_color,omitempty"`
	RightColor string     `json:"right_color,omitempty"`
	Duration   int        `json:"timer_duration,omitempty"`
}

// ParseAction decodes a raw control message.
func ParseAction(data []byte) (Action, error) {
	var a Action
	err := json.Unmarshal(data, &a)
	return a, err
}
