package rsl_client

import "time"

const (
	// Base URL
	BaseURL = "https://rslcheckin.replit.app"

	// API Endpoints
	TournamentsEndpoint = "/api/tournaments"
	RobotsEndpoint      = "/api/robots"
	OperationalEndpoint = "/api/operational"
	MatchesEndpoint     = "/api/matches"

	// Query parameters
	TournamentIDParam = "tournament_id"
	StatusParam       = "status"

	// Timeouts and retry policy
	DefaultTimeout  = 10 * time.Second
	RobotsTimeout   = 15 * time.Second
	RobotsRetries   = 3
	RobotsRetryWait = 2 * time.Second
)
