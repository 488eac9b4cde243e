package models

// DefaultWeightClass is assumed when the service omits a robot's weight class.
const DefaultWeightClass = "3lb"

// Robot represents a registered combat robot.
type Robot struct {
	ID          int    `json:"id"`
	BotName     string `json:"bot_name"`
	TeamName    string `json:"team_name"`
	Elo         int    `json:"elo"`
	Rank        *int   `json:"mrca_rank,omitempty"`
	WeightClass string `json:"weight_class,omitempty"`
}
