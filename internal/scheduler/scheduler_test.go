package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retaildemo/feedsync/internal/closer"
	"github.com/retaildemo/feedsync/internal/registry"
	"github.com/retaildemo/feedsync/pkg/models"
	"github.com/retaildemo/feedsync/pkg/testutil"
)

type memStore struct {
	mu       sync.Mutex
	events   map[string]models.Event
	results  map[string]models.GameResult
	upserted int
	failOn   string
}

func newMemStore() *memStore {
	return &memStore{
		events:  make(map[string]models.Event),
		results: make(map[string]models.GameResult),
	}
}

func (m *memStore) EventExists(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *memStore) UpsertEvent(ctx context.Context, ev models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.EventID == m.failOn {
		return errors.New("write failed")
	}
	m.events[ev.EventID] = ev
	return nil
}

func (m *memStore) HasWinningValues(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[eventID]
	return ok && r.WinningValues != nil, nil
}

func (m *memStore) UpsertResult(ctx context.Context, r models.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.EventID] = r
	m.upserted++
	return nil
}

func (m *memStore) result(id string) (models.GameResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	return r, ok
}

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(ctx context.Context) closer.Report {
	c.calls.Add(1)
	return closer.Report{}
}

type fixture struct {
	sched   *Scheduler
	store   *memStore
	feed    *testutil.MockFeedAdapter
	sweeper *countingSweeper
	pub     *testutil.MockPublisher
}

func newFixture(t *testing.T, gameList ...models.GameConfig) *fixture {
	t.Helper()
	reg := registry.NewGameRegistry()
	for _, g := range gameList {
		require.NoError(t, reg.Register(g))
	}

	logger, _ := test.NewNullLogger()
	f := &fixture{
		store:   newMemStore(),
		feed:    &testutil.MockFeedAdapter{},
		sweeper: &countingSweeper{},
		pub:     &testutil.MockPublisher{},
	}
	f.sched = NewScheduler(Config{
		Store:     f.store,
		Feed:      f.feed,
		Sweeper:   f.sweeper,
		Publisher: f.pub,
		Games:     reg,
		Logger:    logger,
	})
	return f
}

func TestRunCycle_NewThenUpdated(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	f := newFixture(t, game)

	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{
			testutil.NewListItem("90-6-1", "MotorRacing", 1, false),
			{"TypeName": "MotorRacing"},
		}, nil
	}

	first := f.sched.RunCycle(context.Background(), game)
	assert.True(t, first.Success)
	assert.Equal(t, 1, first.New)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 1, first.Skipped)
	assert.Equal(t, 2, first.Total)
	assert.Equal(t, 0, first.Errors)

	second := f.sched.RunCycle(context.Background(), game)
	assert.Equal(t, 0, second.New)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, second.CycleID, first.CycleID+1)

	assert.Equal(t, int32(2), f.sweeper.calls.Load())
	cycles, _ := f.pub.Published()
	assert.Len(t, cycles, 2)
}

func TestRunCycle_StoresResultOnce(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	f := newFixture(t, game)

	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{
			testutil.NewRaceEvent("90-6-1", "MotorRacing", "3", "3", "7", "1"),
		}, nil
	}

	first := f.sched.RunCycle(context.Background(), game)
	assert.Equal(t, 1, first.Results)

	r, ok := f.store.result("90-6-1")
	require.True(t, ok)
	assert.Equal(t, models.ResultWinner, r.ResultType)
	assert.Contains(t, string(r.WinningValues), `"winner":"3"`)

	second := f.sched.RunCycle(context.Background(), game)
	assert.Equal(t, 0, second.Results, "stored winning values are not overwritten")
	assert.Equal(t, 1, f.store.upserted)

	_, published := f.pub.Published()
	assert.Len(t, published, 1)
}

func TestRunCycle_WinnerFlagWithoutFinishedFlag(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	f := newFixture(t, game)

	item := testutil.NewRaceEvent("90-6-2", "MotorRacing", "5")
	item["IsFinished"] = false
	notActionable := testutil.NewListItem("90-6-3", "MotorRacing", 3, false)

	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{item, notActionable}, nil
	}

	report := f.sched.RunCycle(context.Background(), game)
	assert.Equal(t, 1, report.Results)

	_, ok := f.store.result("90-6-2")
	assert.True(t, ok)
	_, ok = f.store.result("90-6-3")
	assert.False(t, ok)
}

func TestRunCycle_KenoUsesDetail(t *testing.T) {
	game := testutil.NewTestGame("SmartPlayKeno", 180)
	f := newFixture(t, game)

	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{
			testutil.NewListItem("k-detail", "SmartPlayKeno", 1, true),
			testutil.NewKenoEvent("k-fallback", 2, "9"),
			testutil.NewListItem("k-empty", "SmartPlayKeno", 3, true),
		}, nil
	}
	f.feed.FetchEventDetailFunc = func(id string) (map[string]any, error) {
		switch id {
		case "k-detail":
			return testutil.Wrap(testutil.NewKenoEvent(id, 1, "4", "8")), nil
		case "k-empty":
			return map[string]any{"Message": "not found"}, nil
		default:
			return nil, errors.New("upstream down")
		}
	}

	report := f.sched.RunCycle(context.Background(), game)

	assert.Equal(t, 3, report.New)
	assert.Equal(t, 2, report.Results)
	assert.Equal(t, 1, report.Errors)

	detail, ok := f.store.result("k-detail")
	require.True(t, ok)
	assert.JSONEq(t, `{"winningNumbers":["4","8"],"totalWinningNumbers":2}`, string(detail.WinningValues))

	fallback, ok := f.store.result("k-fallback")
	require.True(t, ok)
	assert.JSONEq(t, `{"winningNumbers":["9"],"totalWinningNumbers":1}`, string(fallback.WinningValues))

	_, ok = f.store.result("k-empty")
	assert.False(t, ok)

	_, details := f.feed.Calls()
	assert.ElementsMatch(t, []string{"k-detail", "k-fallback", "k-empty"}, details)
}

func TestRunCycle_KenoDetailWithoutEventObject(t *testing.T) {
	game := testutil.NewTestGame("SmartPlayKeno", 180)
	f := newFixture(t, game)

	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{
			testutil.NewListItem("k-null", "SmartPlayKeno", 1, true),
			testutil.NewListItem("k-string", "SmartPlayKeno", 2, true),
		}, nil
	}
	f.feed.FetchEventDetailFunc = func(id string) (map[string]any, error) {
		detail := testutil.NewKenoEvent(id, 1, "4")
		if id == "k-null" {
			detail["Event"] = nil
		} else {
			detail["Event"] = "unavailable"
		}
		return detail, nil
	}

	report := f.sched.RunCycle(context.Background(), game)

	assert.Equal(t, 0, report.Results)
	assert.Equal(t, 2, report.Errors)
	assert.Zero(t, f.store.upserted)
}

func TestRunCycle_FetchFailure(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	f := newFixture(t, game)
	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return nil, errors.New("connection refused")
	}

	report := f.sched.RunCycle(context.Background(), game)

	assert.False(t, report.Success)
	assert.Equal(t, "connection refused", report.Error)
	assert.Equal(t, int32(0), f.sweeper.calls.Load())
	assert.Equal(t, int64(1), f.sched.Stats().Errors)
}

func TestRunCycle_ItemFailureDoesNotAbortCycle(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	f := newFixture(t, game)
	f.store.failOn = "bad"

	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{
			testutil.NewListItem("bad", "MotorRacing", 1, false),
			testutil.NewListItem("good", "MotorRacing", 2, false),
		}, nil
	}

	report := f.sched.RunCycle(context.Background(), game)

	assert.True(t, report.Success)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.New)
	assert.Equal(t, int32(1), f.sweeper.calls.Load())
}

func TestScheduler_StartStop(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 3600)
	f := newFixture(t, game)
	f.feed.FetchEventsByTypeFunc = func(models.GameConfig) ([]map[string]any, error) {
		return []map[string]any{testutil.NewListItem("90-6-1", "MotorRacing", 1, false)}, nil
	}

	summary, err := f.sched.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Games, 1)
	assert.Equal(t, ArmedGame{Type: "MotorRacing", Duration: 3600, SyncInterval: 3600}, summary.Games[0])

	listCalls, _ := f.feed.Calls()
	assert.Equal(t, 1, listCalls, "first cycle runs before Start returns")

	status := f.sched.Status()
	assert.True(t, status.Active)
	require.Len(t, status.Games, 1)
	assert.True(t, status.Games[0].HasTimer)
	require.NotNil(t, status.Games[0].NextSyncTime)
	require.NotNil(t, status.Games[0].SyncStatus)
	assert.Equal(t, 1, status.Games[0].SyncStatus.New)

	_, err = f.sched.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyActive)

	final, err := f.sched.Stop()
	require.NoError(t, err)
	assert.Equal(t, int64(1), final.Cycles)
	assert.Equal(t, int64(1), final.NewGames)
	assert.GreaterOrEqual(t, final.Runtime, int64(0))

	_, err = f.sched.Stop()
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, int64(1), f.sched.Stats().Cycles, "second stop leaves totals untouched")

	f.sched.Wait()
	assert.False(t, f.sched.Status().Games[0].HasTimer)
}

func TestScheduler_StartResetsTotals(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 3600)
	f := newFixture(t, game)

	_, err := f.sched.Start(context.Background())
	require.NoError(t, err)
	_, err = f.sched.Stop()
	require.NoError(t, err)

	_, err = f.sched.Start(context.Background())
	require.NoError(t, err)
	defer f.sched.Stop()

	assert.Equal(t, int64(1), f.sched.Stats().Cycles)
}

func TestScheduler_ContextEndReleasesSession(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 3600)
	f := newFixture(t, game)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.sched.Start(ctx)
	require.NoError(t, err)
	require.True(t, f.sched.Active())

	cancel()
	require.Eventually(t, func() bool { return !f.sched.Active() }, time.Second, 5*time.Millisecond)
	f.sched.Wait()
	assert.False(t, f.sched.Status().Games[0].HasTimer)

	_, err = f.sched.Stop()
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = f.sched.Start(context.Background())
	require.NoError(t, err, "a new session starts after the old context ended")
	_, err = f.sched.Stop()
	require.NoError(t, err)
	f.sched.Wait()
}

func TestScheduler_NoGamesEnabled(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	game.Enabled = false
	f := newFixture(t, game)

	_, err := f.sched.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoGamesEnabled)
	assert.False(t, f.sched.Active())
}

func TestScheduler_TickerRunsCycles(t *testing.T) {
	game := testutil.NewTestGame("MotorRacing", 240)
	f := newFixture(t, game)
	f.sched.interval = func(models.GameConfig) time.Duration { return 10 * time.Millisecond }

	_, err := f.sched.Start(context.Background())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		calls, _ := f.feed.Calls()
		return calls >= 3
	}, time.Second, 5*time.Millisecond)

	_, err = f.sched.Stop()
	require.NoError(t, err)
	f.sched.Wait()

	after, _ := f.feed.Calls()
	time.Sleep(30 * time.Millisecond)
	final, _ := f.feed.Calls()
	assert.Equal(t, after, final, "no cycles run after stop")
}

func TestScheduler_RunManual(t *testing.T) {
	disabled := testutil.NewTestGame("SmartPlayKeno", 180)
	disabled.Enabled = false
	f := newFixture(t, testutil.NewTestGame("MotorRacing", 240), disabled)

	_, err := f.sched.RunManual(context.Background(), "SpinAndWin")
	assert.ErrorIs(t, err, ErrUnknownGame)

	_, err = f.sched.RunManual(context.Background(), "SmartPlayKeno")
	assert.ErrorIs(t, err, ErrGameDisabled)

	report, err := f.sched.RunManual(context.Background(), "MotorRacing")
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, "MotorRacing", report.Game)
}

func TestScheduler_Stats(t *testing.T) {
	f := newFixture(t, testutil.NewTestGame("MotorRacing", 240))
	f.sched.session.add(delta{processed: 9, errors: 1})
	f.sched.session.nextCycle()
	f.sched.session.nextCycle()

	stats := f.sched.Stats()
	assert.Equal(t, int64(5), stats.AverageGamesPerCycle)
	assert.Equal(t, int64(89), stats.SuccessRate)
	assert.Zero(t, stats.Runtime)
}
