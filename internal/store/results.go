package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/retaildemo/feedsync/pkg/models"
)

const defaultResultLimit = 50

// UpsertResult inserts a result or overwrites the stored one for the same event
func (s *Store) UpsertResult(ctx context.Context, r models.GameResult) error {
	query := `
		INSERT INTO game_results (
			event_id, game_name, result_type, winning_values, result_data, game_number
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO UPDATE SET
			game_name = EXCLUDED.game_name,
			result_type = EXCLUDED.result_type,
			winning_values = EXCLUDED.winning_values,
			result_data = EXCLUDED.result_data,
			game_number = EXCLUDED.game_number,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		r.EventID,
		r.GameName,
		string(r.ResultType),
		jsonArg(r.WinningValues),
		jsonArg(r.ResultData),
		r.GameNumber,
	)
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", r.EventID, err)
	}
	return nil
}

// HasWinningValues reports whether a stored result with non-null winning
// values exists for the event
func (s *Store) HasWinningValues(ctx context.Context, eventID string) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx,
		`SELECT winning_values IS NOT NULL FROM game_results WHERE event_id = $1`, eventID,
	).Scan(&has)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check result %s: %w", eventID, err)
	}
	return has, nil
}

// GetResult returns the stored result of one event
func (s *Store) GetResult(ctx context.Context, eventID string) (*models.GameResult, error) {
	query := `
		SELECT r.id, r.event_id, r.game_name, r.result_type, r.winning_values, r.game_number,
		       r.declared_at, r.updated_at, e.start_time, e.finish_time, r.result_data
		FROM game_results r
		LEFT JOIN events e ON e.event_id = r.event_id
		WHERE r.event_id = $1
	`

	var data []byte
	r, err := scanResult(s.db.QueryRowContext(ctx, query, eventID), &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", eventID, err)
	}
	r.ResultData = rawJSON(data)
	return &r, nil
}

// ListResults returns the most recent results, optionally for one game,
// joined with their event times
func (s *Store) ListResults(ctx context.Context, game string, limit int) ([]models.GameResult, error) {
	query := `
		SELECT r.id, r.event_id, r.game_name, r.result_type, r.winning_values, r.game_number,
		       r.declared_at, r.updated_at, e.start_time, e.finish_time
		FROM game_results r
		LEFT JOIN events e ON e.event_id = r.event_id
		WHERE ($1::text = '' OR r.game_name = $1)
		ORDER BY r.declared_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, game, limitOr(limit, defaultResultLimit))
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []models.GameResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func scanResult(row rowScanner, extra ...any) (models.GameResult, error) {
	var (
		r          models.GameResult
		resultType string
		values     []byte
		gameNumber sql.NullInt64
		startTime  sql.NullTime
		finishTime sql.NullTime
	)

	dest := []any{
		&r.ID, &r.EventID, &r.GameName, &resultType, &values, &gameNumber,
		&r.DeclaredAt, &r.UpdatedAt, &startTime, &finishTime,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.GameResult{}, err
	}

	r.ResultType = models.ResultType(resultType)
	r.WinningValues = rawJSON(values)
	r.GameNumber = int64Ptr(gameNumber)
	r.StartTime = timePtr(startTime)
	r.FinishTime = timePtr(finishTime)
	return r, nil
}
