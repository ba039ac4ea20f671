package closer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/internal/normalize"
	"github.com/retaildemo/feedsync/internal/results"
	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	defaultMarkLimit    = 20
	defaultProcessLimit = 10
	defaultDetailPause  = 100 * time.Millisecond
)

// FinishingStore is the persistence the sweep needs
type FinishingStore interface {
	ListOverdueUnfinished(ctx context.Context, game string, limit int) ([]models.Event, error)
	MarkFinished(ctx context.Context, eventID string) error
	ListFinishedWithoutResult(ctx context.Context, game string, limit int) ([]models.Event, error)
	UpsertResult(ctx context.Context, r models.GameResult) error
}

// Report summarizes one sweep
type Report struct {
	Marked    int `json:"marked"`
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Closer finishes overdue numbers-draw rounds and backfills their results
// from the upstream detail endpoint
type Closer struct {
	store     FinishingStore
	feed      contracts.FeedAdapter
	publisher contracts.Publisher
	logger    logrus.FieldLogger

	game         string
	markLimit    int
	processLimit int
	pause        time.Duration
}

// NewCloser creates a sweep over the SmartPlayKeno rounds. publisher may be nil.
func NewCloser(store FinishingStore, feed contracts.FeedAdapter, publisher contracts.Publisher, logger logrus.FieldLogger) *Closer {
	return &Closer{
		store:        store,
		feed:         feed,
		publisher:    publisher,
		logger:       logger.WithField("component", "closer"),
		game:         games.SmartPlayKeno,
		markLimit:    defaultMarkLimit,
		processLimit: defaultProcessLimit,
		pause:        defaultDetailPause,
	}
}

// Sweep runs both steps. Failures are counted per item and never returned.
func (c *Closer) Sweep(ctx context.Context) Report {
	var report Report

	marked, markErrs := c.markOverdue(ctx)
	report.Marked = marked
	report.Errors += markErrs

	processed, procErrs := c.processFinished(ctx)
	report.Processed = processed
	report.Errors += procErrs

	if report.Marked > 0 || report.Processed > 0 || report.Errors > 0 {
		c.logger.WithFields(logrus.Fields{
			"marked":    report.Marked,
			"processed": report.Processed,
			"errors":    report.Errors,
		}).Info("finishing sweep completed")
	}
	return report
}

// markOverdue flags stored rounds whose finish time has passed
func (c *Closer) markOverdue(ctx context.Context) (marked, errs int) {
	events, err := c.store.ListOverdueUnfinished(ctx, c.game, c.markLimit)
	if err != nil {
		c.logger.WithError(err).Error("query overdue events")
		return 0, 1
	}

	for _, ev := range events {
		if err := c.store.MarkFinished(ctx, ev.EventID); err != nil {
			c.logger.WithError(err).WithField("event_id", ev.EventID).Error("mark event finished")
			errs++
			continue
		}
		c.logger.WithField("event_id", ev.EventID).Debug("marked event finished")
		marked++
	}
	return marked, errs
}

// processFinished fetches detail for finished rounds lacking a result and
// stores those that carry winning numbers
func (c *Closer) processFinished(ctx context.Context) (processed, errs int) {
	events, err := c.store.ListFinishedWithoutResult(ctx, c.game, c.processLimit)
	if err != nil {
		c.logger.WithError(err).Error("query finished events without result")
		return 0, 1
	}

	for i, ev := range events {
		if i > 0 && !c.wait(ctx) {
			break
		}
		if err := c.processOne(ctx, ev.EventID); err != nil {
			c.logger.WithError(err).WithField("event_id", ev.EventID).Warn("process finished event")
			errs++
			continue
		}
		processed++
	}
	return processed, errs
}

func (c *Closer) processOne(ctx context.Context, eventID string) error {
	detail, err := c.feed.FetchEventDetail(ctx, eventID)
	if err != nil {
		return err
	}
	if _, ok := normalize.Map(detail["Event"]); !ok {
		return fmt.Errorf("no event in detail response")
	}

	out, ok := results.Process(detail)
	if !ok {
		return fmt.Errorf("detail has no identity")
	}
	keno, ok := out.Values.(models.KenoValues)
	if !ok || len(keno.WinningNumbers) == 0 {
		return fmt.Errorf("no winning numbers")
	}

	result, err := out.GameResult()
	if err != nil {
		return err
	}
	if err := c.store.UpsertResult(ctx, result); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"event_id":        eventID,
		"winning_numbers": keno.WinningNumbers,
	}).Info("stored winning numbers")

	if c.publisher != nil {
		if err := c.publisher.PublishResult(ctx, result); err != nil {
			// Log but don't fail - the result is stored
			c.logger.WithError(err).WithField("event_id", eventID).Warn("publish result")
		}
	}
	return nil
}

// wait pauses between detail calls; it reports false if ctx ends first
func (c *Closer) wait(ctx context.Context) bool {
	if c.pause <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
