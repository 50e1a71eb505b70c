// Package simulate drives a running lineup service over HTTP: it seeds a
// random roster, requests many balanced matches and checks every result.
package simulate

import "time"

// Config holds configuration for one simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Players int           // Roster players to create
	Rounds  int           // Matches to request
	MinPool int           // Smallest pool per match
	MaxPool int           // Largest pool per match, 0 means the whole roster
	Workers int           // Concurrent requests
	Timeout time.Duration // HTTP request timeout
	Seed    uint64        // Random seed, 0 picks one from the clock
	Cleanup bool          // Delete seeded players afterwards
	Verbose bool          // Log every round
}

// Stats holds run statistics.
type Stats struct {
	PlayersCreated int64
	MatchesChecked int64
	StaminaMatches int64
	Violations     int64
	MaxSkillDiff   float64
	TotalSkillDiff float64
	StartTime      time.Time
	Duration       time.Duration
	FirstViolation error
}

// MeanSkillDiff is the average skill difference over checked matches.
func (s *Stats) MeanSkillDiff() float64 {
	if s.MatchesChecked == 0 {
		return 0
	}
	return s.TotalSkillDiff / float64(s.MatchesChecked)
}
