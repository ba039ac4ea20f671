package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicateSlip is returned when a bet slip id is already stored
	ErrDuplicateSlip = errors.New("bet slip already exists")
)

// Store is the Postgres persistence gateway for events, results and bet slips
type Store struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// New creates a store over an open database handle
func New(db *sql.DB, logger logrus.FieldLogger) *Store {
	return &Store{
		db:     db,
		logger: logger.WithField("component", "store"),
	}
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("rollback failed: %v, original error: %w", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// logDriverError logs the Postgres diagnostic fields of err, if any
func (s *Store) logDriverError(err error, fields logrus.Fields) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		s.logger.WithFields(fields).WithError(err).Error("database error")
		return
	}
	s.logger.WithFields(fields).WithFields(logrus.Fields{
		"code":   string(pqErr.Code),
		"detail": pqErr.Detail,
		"hint":   pqErr.Hint,
		"where":  pqErr.Where,
	}).WithError(err).Error("database error")
}

// jsonArg converts raw JSON into a jsonb parameter; empty becomes NULL
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
