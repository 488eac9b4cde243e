package models

// OperationalRecord ties a robot to a tournament it is checked in for and
// carries its image paths. A robot may have records across several
// tournaments; only the record for the currently selected tournament is
// authoritative for image resolution.
type OperationalRecord struct {
	RobotID      int     `json:"robot_id"`
	TournamentID int     `json:"tournament_id"`
	CleanImage   *string `json:"clean_image,omitempty"`
	RawImage     *string `json:"raw_image,omitempty"`
}

// Image returns the preferred relative image path: clean over raw, else "".
func (r OperationalRecord) Image() string {
	if r.CleanImage != nil && *r.CleanImage != "" {
		return *r.CleanImage
	}
	if r.RawImage != nil && *r.RawImage != "" {
		return *r.RawImage
	}
	return ""
}
