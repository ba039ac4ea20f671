package scheduler

import (
	"math"
	"sync"
	"time"

	"github.com/retaildemo/feedsync/pkg/models"
)

// Totals accumulate over one auto-sync session and reset on Start
type Totals struct {
	Cycles           int64      `json:"totalCycles"`
	GamesProcessed   int64      `json:"totalGamesProcessed"`
	NewGames         int64      `json:"totalNewGames"`
	UpdatedGames     int64      `json:"totalUpdatedGames"`
	ResultsProcessed int64      `json:"totalResultsProcessed"`
	Errors           int64      `json:"totalErrors"`
	StartTime        *time.Time `json:"startTime"`
}

// ArmedGame describes one game whose loop Start armed
type ArmedGame struct {
	Type         string `json:"type"`
	Duration     int    `json:"duration"`
	SyncInterval int    `json:"syncInterval"`
}

// StartSummary is returned by Start
type StartSummary struct {
	Message   string      `json:"message"`
	Games     []ArmedGame `json:"games"`
	StartTime time.Time   `json:"startTime"`
}

// FinalStats is returned by Stop
type FinalStats struct {
	Totals
	EndTime time.Time `json:"endTime"`
	Runtime int64     `json:"runtime"`
}

// GameStatus is the runtime state of one enabled game
type GameStatus struct {
	Type                string              `json:"type"`
	Enabled             bool                `json:"enabled"`
	DurationSeconds     int                 `json:"durationSeconds"`
	SyncIntervalSeconds int                 `json:"syncIntervalSeconds"`
	HasTimer            bool                `json:"hasTimer"`
	LastSyncTime        *time.Time          `json:"lastSyncTime"`
	NextSyncTime        *time.Time          `json:"nextSyncTime"`
	SyncStatus          *models.CycleReport `json:"syncStatus"`
}

// Status is the scheduler's current state
type Status struct {
	Active     bool         `json:"active"`
	StartTime  *time.Time   `json:"startTime"`
	TotalStats Totals       `json:"totalStats"`
	Games      []GameStatus `json:"games"`
}

// Stats are the session totals plus derived rates
type Stats struct {
	Totals
	Runtime              int64 `json:"runtime"`
	AverageGamesPerCycle int64 `json:"averageGamesPerCycle"`
	SuccessRate          int64 `json:"successRate"`
}

// delta is one increment applied to a session
type delta struct {
	processed    int
	newGames     int
	updatedGames int
	results      int
	errors       int
}

// session owns the totals of one Start..Stop span. Every Start creates a new
// one so cycles still in flight from a stopped session cannot touch it.
type session struct {
	mu     sync.Mutex
	totals Totals
}

func newSession(start *time.Time) *session {
	return &session{totals: Totals{StartTime: start}}
}

func (s *session) nextCycle() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.Cycles++
	return s.totals.Cycles
}

func (s *session) add(d delta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals.GamesProcessed += int64(d.processed)
	s.totals.NewGames += int64(d.newGames)
	s.totals.UpdatedGames += int64(d.updatedGames)
	s.totals.ResultsProcessed += int64(d.results)
	s.totals.Errors += int64(d.errors)
}

func (s *session) snapshot() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Status reports the active flag, session totals and per-game state
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := s.session.snapshot()
	status := Status{
		Active:     s.active,
		StartTime:  totals.StartTime,
		TotalStats: totals,
		Games:      []GameStatus{},
	}

	for _, g := range s.games.Enabled() {
		gs := GameStatus{
			Type:                g.TypeName,
			Enabled:             g.Enabled,
			DurationSeconds:     g.DurationSeconds,
			SyncIntervalSeconds: int(s.interval(g) / time.Second),
		}
		if st, ok := s.states[g.TypeName]; ok {
			gs.HasTimer = st.hasTimer
			gs.LastSyncTime = st.lastSync
			gs.SyncStatus = st.lastReport
			if s.active && st.hasTimer && st.lastSync != nil {
				next := st.lastSync.Add(s.interval(g))
				gs.NextSyncTime = &next
			}
		}
		status.Games = append(status.Games, gs)
	}
	return status
}

// Stats returns the session totals with runtime, average rounds per cycle
// and success rate as a rounded percentage
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	totals := s.session.snapshot()
	s.mu.Unlock()

	stats := Stats{Totals: totals}
	if totals.StartTime != nil {
		stats.Runtime = s.now().Sub(*totals.StartTime).Milliseconds()
	}
	if totals.Cycles > 0 {
		stats.AverageGamesPerCycle = int64(math.Round(float64(totals.GamesProcessed) / float64(totals.Cycles)))
	}
	if totals.GamesProcessed > 0 {
		rate := float64(totals.GamesProcessed-totals.Errors) / float64(totals.GamesProcessed) * 100
		stats.SuccessRate = int64(math.Round(rate))
	}
	return stats
}
