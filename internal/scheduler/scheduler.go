package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/internal/closer"
	"github.com/retaildemo/feedsync/internal/registry"
	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

var (
	ErrAlreadyActive  = errors.New("auto-sync already active")
	ErrNotActive      = errors.New("auto-sync not active")
	ErrNoGamesEnabled = errors.New("no enabled games found")
	ErrUnknownGame    = errors.New("game configuration not found")
	ErrGameDisabled   = errors.New("game is not enabled")
)

// EventStore is the persistence a sync cycle needs
type EventStore interface {
	EventExists(ctx context.Context, eventID string) (bool, error)
	UpsertEvent(ctx context.Context, ev models.Event) error
	HasWinningValues(ctx context.Context, eventID string) (bool, error)
	UpsertResult(ctx context.Context, r models.GameResult) error
}

// Sweeper runs the secondary pass after each cycle
type Sweeper interface {
	Sweep(ctx context.Context) closer.Report
}

// gameState is the per-game runtime record owned by the scheduler
type gameState struct {
	stop       chan struct{}
	hasTimer   bool
	lastSync   *time.Time
	lastReport *models.CycleReport
}

// Scheduler runs one recurring sync loop per enabled game
type Scheduler struct {
	store     EventStore
	feed      contracts.FeedAdapter
	sweeper   Sweeper
	publisher contracts.Publisher
	games     *registry.GameRegistry
	logger    logrus.FieldLogger

	now      func() time.Time
	interval func(models.GameConfig) time.Duration

	mu      sync.Mutex
	active  bool
	session *session
	ended   chan struct{}
	states  map[string]*gameState
	loops   sync.WaitGroup
}

// Config groups the scheduler's collaborators. Sweeper and Publisher may be nil.
type Config struct {
	Store     EventStore
	Feed      contracts.FeedAdapter
	Sweeper   Sweeper
	Publisher contracts.Publisher
	Games     *registry.GameRegistry
	Logger    logrus.FieldLogger
}

// NewScheduler creates an inactive scheduler
func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{
		store:     cfg.Store,
		feed:      cfg.Feed,
		sweeper:   cfg.Sweeper,
		publisher: cfg.Publisher,
		games:     cfg.Games,
		logger:    cfg.Logger.WithField("component", "scheduler"),
		now:       time.Now,
		interval:  models.GameConfig.Interval,
		session:   newSession(nil),
		states:    make(map[string]*gameState),
	}
}

// Start runs one cycle per enabled game, arms each game's ticker and returns
// once every game is armed
func (s *Scheduler) Start(ctx context.Context) (*StartSummary, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	enabled := s.games.Enabled()
	if len(enabled) == 0 {
		s.mu.Unlock()
		return nil, ErrNoGamesEnabled
	}

	startTime := s.now()
	sess := newSession(&startTime)
	s.session = sess
	s.active = true
	s.ended = make(chan struct{})
	go s.release(ctx, sess, s.ended)

	stops := make([]chan struct{}, len(enabled))
	for i, g := range enabled {
		st := s.state(g.TypeName)
		st.stop = make(chan struct{})
		st.hasTimer = false
		stops[i] = st.stop
	}
	s.mu.Unlock()

	s.logger.WithField("games", len(enabled)).Info("starting auto-sync")

	var armed sync.WaitGroup
	for i, g := range enabled {
		armed.Add(1)
		s.loops.Add(1)
		go s.runGame(ctx, sess, g, stops[i], &armed)
	}
	armed.Wait()

	summary := &StartSummary{
		Message:   fmt.Sprintf("auto-sync started for %d games", len(enabled)),
		StartTime: startTime,
	}
	for _, g := range enabled {
		summary.Games = append(summary.Games, ArmedGame{
			Type:         g.TypeName,
			Duration:     g.DurationSeconds,
			SyncInterval: int(s.interval(g) / time.Second),
		})
	}
	s.logger.Info("auto-sync started")
	return summary, nil
}

// Stop cancels every game loop and returns the session totals. Cycles in
// flight run to completion.
func (s *Scheduler) Stop() (*FinalStats, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	s.disarm()
	sess := s.session
	s.mu.Unlock()

	end := s.now()
	totals := sess.snapshot()
	final := &FinalStats{Totals: totals, EndTime: end}
	if totals.StartTime != nil {
		final.Runtime = end.Sub(*totals.StartTime).Milliseconds()
	}

	s.logger.WithFields(logrus.Fields{
		"cycles":    totals.Cycles,
		"processed": totals.GamesProcessed,
		"new":       totals.NewGames,
		"updated":   totals.UpdatedGames,
		"results":   totals.ResultsProcessed,
		"errors":    totals.Errors,
	}).Info("auto-sync stopped")
	return final, nil
}

// release ends the session when the context it was started under is done,
// so a later Start is not refused
func (s *Scheduler) release(ctx context.Context, sess *session, ended chan struct{}) {
	select {
	case <-ended:
		return
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.session != sess {
		return
	}
	s.disarm()
	s.logger.WithError(ctx.Err()).Info("auto-sync context ended")
}

// disarm deactivates the session and signals every loop; callers hold s.mu
func (s *Scheduler) disarm() {
	s.active = false
	if s.ended != nil {
		close(s.ended)
		s.ended = nil
	}
	for name, st := range s.states {
		if st.stop != nil {
			close(st.stop)
			st.stop = nil
			s.logger.WithField("game", name).Info("stopped auto-sync")
		}
		st.hasTimer = false
	}
}

// Wait blocks until every game loop has exited
func (s *Scheduler) Wait() {
	s.loops.Wait()
}

// RunManual runs one cycle for a configured, enabled game
func (s *Scheduler) RunManual(ctx context.Context, gameType string) (models.CycleReport, error) {
	game, ok := s.games.Get(gameType)
	if !ok {
		return models.CycleReport{}, fmt.Errorf("%w: %s", ErrUnknownGame, gameType)
	}
	if !game.Enabled {
		return models.CycleReport{}, fmt.Errorf("%w: %s", ErrGameDisabled, gameType)
	}

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	s.logger.WithField("game", gameType).Info("manual sync requested")
	return s.runCycle(ctx, sess, game), nil
}

// Active reports whether auto-sync is running
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// runGame is the per-game loop: first cycle, arm ticker, then one cycle per tick
func (s *Scheduler) runGame(ctx context.Context, sess *session, game models.GameConfig, stop chan struct{}, armed *sync.WaitGroup) {
	defer s.loops.Done()

	// Initial cycle immediately
	s.runCycle(ctx, sess, game)

	ticker := time.NewTicker(s.interval(game))
	defer ticker.Stop()

	s.mu.Lock()
	if st := s.states[game.TypeName]; st.stop == stop {
		st.hasTimer = true
	}
	s.mu.Unlock()
	armed.Done()

	for {
		select {
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			s.runCycle(ctx, sess, game)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// state returns the record for a game, creating it; callers hold s.mu
func (s *Scheduler) state(game string) *gameState {
	st, ok := s.states[game]
	if !ok {
		st = &gameState{}
		s.states[game] = st
	}
	return st
}

func (s *Scheduler) recordCycle(report models.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(report.Game)
	at := report.Timestamp
	st.lastSync = &at
	st.lastReport = &report
}
