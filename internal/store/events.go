package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	defaultEventLimit = 100

	eventColumns = `event_id, game_name, game_type_value, game_number, start_time, finish_time,
		is_finished, status_value, created_at, updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// EventExists reports whether an event with the given external id is stored
func (s *Store) EventExists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE event_id = $1)`, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return exists, nil
}

// UpsertEvent inserts an event or overwrites every column of the stored one
func (s *Store) UpsertEvent(ctx context.Context, ev models.Event) error {
	query := `
		INSERT INTO events (
			event_id, game_name, game_type_value, game_number, start_time, finish_time,
			is_finished, status_value, raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO UPDATE SET
			game_name = EXCLUDED.game_name,
			game_type_value = EXCLUDED.game_type_value,
			game_number = EXCLUDED.game_number,
			start_time = EXCLUDED.start_time,
			finish_time = EXCLUDED.finish_time,
			is_finished = EXCLUDED.is_finished,
			status_value = EXCLUDED.status_value,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		ev.EventID,
		ev.GameName,
		ev.GameTypeValue,
		ev.GameNumber,
		ev.StartTime,
		ev.FinishTime,
		ev.IsFinished,
		ev.StatusValue,
		jsonArg(ev.RawPayload),
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.EventID, err)
	}
	return nil
}

// GetEvent returns one event including its raw payload
func (s *Store) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+`, raw_payload FROM events WHERE event_id = $1`, eventID)

	var raw []byte
	ev, err := scanEvent(row, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	ev.RawPayload = rawJSON(raw)
	return &ev, nil
}

// ListEvents returns events newest start first, without raw payloads
func (s *Store) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("start_time <= $%d", len(args)))
	}
	if filter.Finished != nil {
		args = append(args, *filter.Finished)
		conds = append(conds, fmt.Sprintf("is_finished = $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limitOr(filter.Limit, defaultEventLimit))
	query += fmt.Sprintf(` ORDER BY start_time DESC NULLS LAST LIMIT $%d`, len(args))

	return s.queryEvents(ctx, query, args...)
}

// ListOverdueUnfinished returns unfinished events of a game whose finish
// time has already passed, most recently due first
func (s *Store) ListOverdueUnfinished(ctx context.Context, game string, limit int) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE game_name = $1
		  AND is_finished = FALSE
		  AND finish_time IS NOT NULL
		  AND finish_time < NOW()
		ORDER BY finish_time DESC
		LIMIT $2
	`
	return s.queryEvents(ctx, query, game, limit)
}

// MarkFinished sets the finished flag of one event
func (s *Store) MarkFinished(ctx context.Context, eventID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET is_finished = TRUE, updated_at = NOW() WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark event %s finished: %w", eventID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFinishedWithoutResult returns finished events of a game that have no
// stored result, latest start first
func (s *Store) ListFinishedWithoutResult(ctx context.Context, game string, limit int) ([]models.Event, error) {
	query := `
		SELECT ` + prefixed("e.", eventColumns) + `
		FROM events e
		LEFT JOIN game_results r ON r.event_id = e.event_id
		WHERE e.game_name = $1
		  AND e.is_finished = TRUE
		  AND r.event_id IS NULL
		ORDER BY e.start_time DESC NULLS LAST
		LIMIT $2
	`
	return s.queryEvents(ctx, query, game, limit)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// scanEvent reads the eventColumns of one row plus any extra destinations
func scanEvent(row rowScanner, extra ...any) (models.Event, error) {
	var (
		ev          models.Event
		gameName    sql.NullString
		typeValue   sql.NullInt64
		gameNumber  sql.NullInt64
		startTime   sql.NullTime
		finishTime  sql.NullTime
		statusValue sql.NullInt64
	)

	dest := []any{
		&ev.EventID, &gameName, &typeValue, &gameNumber, &startTime, &finishTime,
		&ev.IsFinished, &statusValue, &ev.CreatedAt, &ev.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.Event{}, err
	}

	ev.GameName = stringPtr(gameName)
	ev.GameTypeValue = intPtr(typeValue)
	ev.GameNumber = int64Ptr(gameNumber)
	ev.StartTime = timePtr(startTime)
	ev.FinishTime = timePtr(finishTime)
	ev.StatusValue = intPtr(statusValue)
	return ev, nil
}

// prefixed qualifies every column of a comma-separated list
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
