package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/internal/normalize"
	"github.com/retaildemo/feedsync/internal/results"
	"github.com/retaildemo/feedsync/pkg/models"
)

// itemOutcome is what syncing one upstream item contributed to a cycle
type itemOutcome struct {
	skipped   bool
	isNew     bool
	updated   bool
	result    bool
	processed bool
	errors    int
}

// RunCycle runs one sync cycle for a game outside of the auto-sync loop
func (s *Scheduler) RunCycle(ctx context.Context, game models.GameConfig) models.CycleReport {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	return s.runCycle(ctx, sess, game)
}

// runCycle fetches the game's current rounds, reconciles each one with the
// store, extracts results of actionable rounds and finally runs the sweep
func (s *Scheduler) runCycle(ctx context.Context, sess *session, game models.GameConfig) models.CycleReport {
	start := s.now()
	report := models.CycleReport{
		CycleID: sess.nextCycle(),
		Game:    game.TypeName,
	}
	log := s.logger.WithFields(logrus.Fields{
		"game":  game.TypeName,
		"cycle": report.CycleID,
	})

	items, err := s.feed.FetchEventsByType(ctx, game)
	if err != nil {
		log.WithError(err).Error("sync cycle failed")
		sess.add(delta{errors: 1})
		report.Errors = 1
		report.Error = err.Error()
		return s.finishCycle(ctx, log, report, start)
	}
	report.Total = len(items)
	log.WithField("items", len(items)).Debug("fetched rounds")

	for _, item := range items {
		out := s.syncItem(ctx, log, game, item)
		switch {
		case out.skipped:
			report.Skipped++
		case out.isNew:
			report.New++
		case out.updated:
			report.Updated++
		}
		if out.result {
			report.Results++
		}
		report.Errors += out.errors

		d := delta{errors: out.errors}
		if out.isNew {
			d.newGames = 1
		}
		if out.updated {
			d.updatedGames = 1
		}
		if out.result {
			d.results = 1
		}
		if out.processed {
			d.processed = 1
		}
		sess.add(d)
	}

	if s.sweeper != nil {
		sweep := s.sweeper.Sweep(ctx)
		log.WithFields(logrus.Fields{
			"marked":    sweep.Marked,
			"processed": sweep.Processed,
			"errors":    sweep.Errors,
		}).Debug("finishing sweep")
	}

	report.Success = true
	return s.finishCycle(ctx, log, report, start)
}

// finishCycle stamps the report, records it as the game's last sync and
// publishes it
func (s *Scheduler) finishCycle(ctx context.Context, log logrus.FieldLogger, report models.CycleReport, start time.Time) models.CycleReport {
	report.Timestamp = s.now()
	report.DurationMs = report.Timestamp.Sub(start).Milliseconds()
	s.recordCycle(report)

	if report.Success {
		log.WithFields(logrus.Fields{
			"new":         report.New,
			"updated":     report.Updated,
			"results":     report.Results,
			"errors":      report.Errors,
			"skipped":     report.Skipped,
			"duration_ms": report.DurationMs,
		}).Info("sync cycle completed")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCycle(ctx, report); err != nil {
			// Log but don't fail - the cycle is already stored
			log.WithError(err).Warn("publish cycle report")
		}
	}
	return report
}

// syncItem upserts one upstream round and, when it is actionable, extracts
// and stores its result
func (s *Scheduler) syncItem(ctx context.Context, log logrus.FieldLogger, game models.GameConfig, item map[string]any) itemOutcome {
	var out itemOutcome

	ev := normalize.Event(item, s.now())
	if ev.EventID == "" {
		log.Warn("round missing event id, skipping")
		out.skipped = true
		return out
	}
	log = log.WithField("event_id", ev.EventID)

	exists, err := s.store.EventExists(ctx, ev.EventID)
	if err != nil {
		log.WithError(err).Error("look up event")
		out.errors++
		return out
	}
	if err := s.store.UpsertEvent(ctx, ev); err != nil {
		log.WithError(err).Error("upsert event")
		out.errors++
		return out
	}
	if exists {
		out.updated = true
	} else {
		out.isNew = true
		log.Debug("inserted new round")
	}

	raw := normalize.Unwrap(item)
	if !normalize.IsTrue(raw["IsFinished"]) && !results.HasWinningSelection(raw) {
		out.processed = true
		return out
	}

	source := item
	if games.FamilyOf(game.TypeName) == models.FamilyNumbersDraw {
		detail, err := s.feed.FetchEventDetail(ctx, ev.EventID)
		switch {
		case err != nil:
			log.WithError(err).Warn("fetch round detail, using list item")
		case !isEventObject(detail["Event"]):
			log.Warn("round detail has no event")
			out.errors++
			return out
		default:
			source = detail
		}
	}

	out.processed = true
	outcome, ok := results.Process(source)
	if !ok {
		return out
	}

	has, err := s.store.HasWinningValues(ctx, ev.EventID)
	if err != nil {
		log.WithError(err).Warn("check stored result")
		out.errors++
		return out
	}
	if has {
		log.Debug("winning values already stored")
		return out
	}

	result, err := outcome.GameResult()
	if err != nil {
		log.WithError(err).Warn("encode result")
		out.errors++
		return out
	}
	if err := s.store.UpsertResult(ctx, result); err != nil {
		log.WithError(err).Warn("store result")
		out.errors++
		return out
	}
	out.result = true

	log.WithFields(logrus.Fields{
		"result_type": result.ResultType,
		"values":      string(result.WinningValues),
	}).Info("stored result")

	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, result); err != nil {
			log.WithError(err).Warn("publish result")
		}
	}
	return out
}

func isEventObject(v any) bool {
	_, ok := normalize.Map(v)
	return ok
}
