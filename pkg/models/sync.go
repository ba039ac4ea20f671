package models

import "time"

// CycleReport summarizes one sync cycle for one game
type CycleReport struct {
	CycleID    int64     `json:"cycleId"`
	Game       string    `json:"gameType"`
	New        int       `json:"newGames"`
	Updated    int       `json:"updatedGames"`
	Results    int       `json:"resultsProcessed"`
	Errors     int       `json:"errors"`
	Skipped    int       `json:"skipped"`
	Total      int       `json:"totalGames"`
	DurationMs int64     `json:"durationMs"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
