package models

// MatchStatusPending is the only status the overlay queries for. The service
// exposes no completion event; a match that stops appearing under this filter
// is inferred completed.
const MatchStatusPending = "pending"

// Match represents a scheduled fight between two robots. Lower id means
// earlier in the queue.
type Match struct {
	ID              int    `json:"id"`
	Robot1ID        int    `json:"robot_1_id"`
	Robot2ID        int    `json:"robot_2_id"`
	Robot1EloBefore int    `json:"robot_1_elo_before"`
	Robot2EloBefore int    `json:"robot_2_elo_before"`
	Status          string `json:"status,omitempty"`
}
