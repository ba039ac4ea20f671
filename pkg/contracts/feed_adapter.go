package contracts

import (
	"context"

	"github.com/retaildemo/feedsync/pkg/models"
)

// FeedAdapter defines the interface for reading rounds from the upstream feed.
// Items are decoded JSON objects; their shape varies by game and endpoint.
type FeedAdapter interface {
	// FetchEventsByType lists the current rounds of one game
	FetchEventsByType(ctx context.Context, game models.GameConfig) ([]map[string]any, error)

	// FetchEventDetail returns the full detail object of one round
	FetchEventDetail(ctx context.Context, eventID string) (map[string]any, error)

	// Ping checks that the upstream is reachable
	Ping(ctx context.Context) error
}
