package contracts

import (
	"context"

	"github.com/retaildemo/feedsync/pkg/models"
)

// Publisher fans sync activity out to downstream consumers.
// Callers treat failures as non-fatal.
type Publisher interface {
	PublishCycle(ctx context.Context, report models.CycleReport) error
	PublishResult(ctx context.Context, result models.GameResult) error
}
