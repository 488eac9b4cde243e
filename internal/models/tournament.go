package models

// Tournament represents a combat robot tournament as reported by the
// check-in service. Replaced wholesale on every refresh.
type Tournament struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	EventOrganizer string `json:"event_organizer"`
	Location       string `json:"location"`
}
