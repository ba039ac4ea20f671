package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

// DotNetDate renders t in the upstream "/Date(<ms>)/" encoding
func DotNetDate(t time.Time) string {
	return fmt.Sprintf("/Date(%d)/", t.UnixMilli())
}

// NewTestGame creates an enabled game configuration
func NewTestGame(typeName string, durationSeconds int) models.GameConfig {
	return models.GameConfig{
		TypeName:        typeName,
		FeedID:          90,
		DurationSeconds: durationSeconds,
		Description:     typeName,
		Enabled:         true,
	}
}

// NewListItem creates a bare upstream list item
func NewListItem(id, typeName string, number int, finished bool) map[string]any {
	return map[string]any{
		"ID":                 id,
		"TypeName":           typeName,
		"Number":             float64(number),
		"IsFinished":         finished,
		"AdjustedStartTime":  DotNetDate(time.Now().Add(-4 * time.Minute)),
		"AdjustedFinishTime": DotNetDate(time.Now().Add(-1 * time.Minute)),
	}
}

// Selection creates a market selection
func Selection(feedID string, winner bool) map[string]any {
	return map[string]any{
		"FeedId":             feedID,
		"DisplayDescription": "Runner " + feedID,
		"IsWinner":           winner,
	}
}

// Market creates a named market whose selections sit under listKey
func Market(name, listKey string, selections ...map[string]any) map[string]any {
	items := make([]any, len(selections))
	for i, s := range selections {
		items[i] = s
	}
	return map[string]any{
		"Name":  name,
		listKey: items,
	}
}

// WithMarkets attaches markets to an item under the given container key
func WithMarkets(item map[string]any, key string, markets ...map[string]any) map[string]any {
	items := make([]any, len(markets))
	for i, m := range markets {
		items[i] = m
	}
	item[key] = items
	return item
}

// NewKenoEvent creates a finished keno round whose KenoWin market flags the
// given numbers as drawn
func NewKenoEvent(id string, number int, drawn ...string) map[string]any {
	selections := make([]map[string]any, 0, len(drawn)+1)
	for _, n := range drawn {
		selections = append(selections, Selection(n, true))
	}
	selections = append(selections, Selection("80", false))

	item := NewListItem(id, "SmartPlayKeno", number, true)
	return WithMarkets(item, "Markets", Market("KenoWin", "KenoSelections", selections...))
}

// NewRaceEvent creates a finished race with a Win market for winner and a
// Place market for placed, in order
func NewRaceEvent(id, typeName, winner string, placed ...string) map[string]any {
	place := make([]map[string]any, 0, len(placed))
	for _, p := range placed {
		place = append(place, Selection(p, true))
	}

	item := NewListItem(id, typeName, 1, true)
	return WithMarkets(item, "Markets",
		Market("Win", "RaceSelections", Selection(winner, true), Selection("99", false)),
		Market("Place", "RaceSelections", place...),
	)
}

// Wrap puts an item inside an {"Event": ...} detail envelope
func Wrap(item map[string]any) map[string]any {
	return map[string]any{"Event": item}
}

// MockFeedAdapter is a test adapter that returns predetermined rounds
type MockFeedAdapter struct {
	FetchEventsByTypeFunc func(game models.GameConfig) ([]map[string]any, error)
	FetchEventDetailFunc  func(eventID string) (map[string]any, error)
	PingFunc              func() error

	mu          sync.Mutex
	ListCalls   int
	DetailCalls []string
}

var _ contracts.FeedAdapter = (*MockFeedAdapter)(nil)

func (m *MockFeedAdapter) FetchEventsByType(ctx context.Context, game models.GameConfig) ([]map[string]any, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()

	if m.FetchEventsByTypeFunc != nil {
		return m.FetchEventsByTypeFunc(game)
	}
	return []map[string]any{}, nil
}

func (m *MockFeedAdapter) FetchEventDetail(ctx context.Context, eventID string) (map[string]any, error) {
	m.mu.Lock()
	m.DetailCalls = append(m.DetailCalls, eventID)
	m.mu.Unlock()

	if m.FetchEventDetailFunc != nil {
		return m.FetchEventDetailFunc(eventID)
	}
	return nil, fmt.Errorf("no detail for %s", eventID)
}

func (m *MockFeedAdapter) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc()
	}
	return nil
}

// Calls returns the list and detail call counts
func (m *MockFeedAdapter) Calls() (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls, append([]string(nil), m.DetailCalls...)
}

// MockPublisher records published cycle reports and results
type MockPublisher struct {
	Err error

	mu      sync.Mutex
	Cycles  []models.CycleReport
	Results []models.GameResult
}

var _ contracts.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) PublishCycle(ctx context.Context, report models.CycleReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cycles = append(m.Cycles, report)
	return m.Err
}

func (m *MockPublisher) PublishResult(ctx context.Context, result models.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, result)
	return m.Err
}

// Published returns copies of everything published so far
func (m *MockPublisher) Published() ([]models.CycleReport, []models.GameResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CycleReport(nil), m.Cycles...), append([]models.GameResult(nil), m.Results...)
}
