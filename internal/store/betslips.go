package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	defaultBetSlipLimit = 50

	initialChangedBy = "system"
	initialReason    = "Initial bet slip creation"
)

// CreateBetSlip stores a slip, all of its selections and the initial history
// row in one transaction. Nothing is written if any statement fails.
func (s *Store) CreateBetSlip(ctx context.Context, slip models.BetSlip, selections []models.Selection) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM bet_slips WHERE slip_id = $1)`, slip.SlipID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check bet slip: %w", err)
		}
		if exists {
			return ErrDuplicateSlip
		}

		if err := insertBetSlip(ctx, tx, slip); err != nil {
			return err
		}

		for i, sel := range selections {
			if err := insertSelection(ctx, tx, slip.SlipID, sel); err != nil {
				return fmt.Errorf("insert selection %d: %w", i, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bet_slip_history (slip_id, status_from, status_to, changed_by, reason)
			VALUES ($1, NULL, $2, $3, $4)`,
			slip.SlipID, slip.Status, initialChangedBy, initialReason,
		); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logDriverError(err, logrus.Fields{"slip_id": slip.SlipID, "op": "create_bet_slip"})
		return fmt.Errorf("create bet slip %s: %w", slip.SlipID, err)
	}
	return nil
}

func insertBetSlip(ctx context.Context, tx *sql.Tx, slip models.BetSlip) error {
	query := `
		INSERT INTO bet_slips (
			slip_id, session_guid, betslip_type_value, event_id, game_name, game_number,
			game_type_value, total_stake, total_potential_win, global_single_stake, status,
			customer_id, shop_id, redeem_code, raw_payload, placed_at, from_pending_bet,
			retailer_guid, is_ssbt_retailer
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := tx.ExecContext(ctx, query,
		slip.SlipID,
		slip.SessionGUID,
		slip.BetslipTypeValue,
		slip.EventID,
		slip.GameName,
		slip.GameNumber,
		slip.GameTypeValue,
		slip.TotalStake,
		slip.TotalPotentialWin,
		slip.GlobalSingleStake,
		slip.Status,
		slip.CustomerID,
		slip.ShopID,
		slip.RedeemCode,
		jsonArg(slip.RawPayload),
		slip.PlacedAt,
		slip.FromPendingBet,
		slip.RetailerGUID,
		slip.IsSSBTRetailer,
	)
	if err != nil {
		return fmt.Errorf("insert bet slip: %w", err)
	}
	return nil
}

func insertSelection(ctx context.Context, tx *sql.Tx, slipID string, sel models.Selection) error {
	query := `
		INSERT INTO bet_selections (
			slip_id, bet_id, selection_id, display_description, selection_ids,
			market_class_value, market_class_name, market_class_display,
			stake, odds, potential_win, bet_type_value, number_of_combinations,
			min_odds, max_odds, notation, element_id, extra_description,
			combo_selections, bet_combination, min_notation, max_notation,
			betting_layout_value, draw_count, executing_feed_id,
			event_start_date_time, event_start_time, event_type_value
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28
		)
	`

	ids := sel.SelectionIDs
	if ids == nil {
		ids = []string{}
	}

	_, err := tx.ExecContext(ctx, query,
		slipID,
		sel.BetID,
		sel.SelectionID,
		sel.DisplayDescription,
		pq.Array(ids),
		sel.MarketClassValue,
		sel.MarketClassName,
		sel.MarketClassDisplay,
		sel.Stake,
		sel.Odds,
		sel.PotentialWin,
		sel.BetTypeValue,
		sel.NumberOfCombinations,
		sel.MinOdds,
		sel.MaxOdds,
		sel.Notation,
		sel.ElementID,
		sel.ExtraDescription,
		jsonArg(sel.ComboSelections),
		jsonArg(sel.BetCombination),
		sel.MinNotation,
		sel.MaxNotation,
		sel.BettingLayoutValue,
		sel.DrawCount,
		sel.ExecutingFeedID,
		sel.EventStartDateTime,
		sel.EventStartTime,
		sel.EventTypeValue,
	)
	return err
}

const betSlipColumns = `s.id, s.slip_id, s.session_guid, s.betslip_type_value, s.event_id, s.game_name,
	s.game_number, s.game_type_value, s.total_stake, s.total_potential_win, s.global_single_stake,
	s.status, s.customer_id, s.shop_id, s.redeem_code, s.placed_at, s.from_pending_bet,
	s.retailer_guid, s.is_ssbt_retailer, s.created_at, s.updated_at`

// GetBetSlip returns a slip with its selections and status history
func (s *Store) GetBetSlip(ctx context.Context, slipID string) (*models.BetSlip, error) {
	var raw []byte
	row := s.db.QueryRowContext(ctx,
		`SELECT `+betSlipColumns+`, s.raw_payload FROM bet_slips s WHERE s.slip_id = $1`, slipID)

	slip, err := scanBetSlip(row, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bet slip %s: %w", slipID, err)
	}
	slip.RawPayload = rawJSON(raw)

	if slip.Selections, err = s.selections(ctx, slipID); err != nil {
		return nil, err
	}
	slip.SelectionCount = len(slip.Selections)

	if slip.History, err = s.history(ctx, slipID); err != nil {
		return nil, err
	}
	return &slip, nil
}

// UpdateBetSlipStatus changes a slip's status and appends a history row in
// one transaction
func (s *Store) UpdateBetSlipStatus(ctx context.Context, slipID, status, changedBy, reason string) (*models.StatusChange, error) {
	change := &models.StatusChange{
		SlipID:    slipID,
		StatusTo:  status,
		ChangedBy: changedBy,
		Reason:    reason,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM bet_slips WHERE slip_id = $1 FOR UPDATE`, slipID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}
		change.StatusFrom = &current

		if _, err := tx.ExecContext(ctx,
			`UPDATE bet_slips SET status = $2, updated_at = NOW() WHERE slip_id = $1`,
			slipID, status,
		); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO bet_slip_history (slip_id, status_from, status_to, changed_by, reason)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, changed_at`,
			slipID, current, status, changedBy, reason,
		).Scan(&change.ID, &change.ChangedAt)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.logDriverError(err, logrus.Fields{"slip_id": slipID, "op": "update_status"})
		return nil, fmt.Errorf("update bet slip %s status: %w", slipID, err)
	}
	return change, nil
}

// ListBetSlips returns recent slips with their selection counts
func (s *Store) ListBetSlips(ctx context.Context, filter models.BetSlipFilter) ([]models.BetSlip, error) {
	query := `
		SELECT ` + betSlipColumns + `,
		       (SELECT COUNT(*) FROM bet_selections b WHERE b.slip_id = s.slip_id) AS selection_count
		FROM bet_slips s
		WHERE ($1::text = '' OR s.status = $1)
		ORDER BY s.placed_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, filter.Status, limitOr(filter.Limit, defaultBetSlipLimit))
	if err != nil {
		return nil, fmt.Errorf("query bet slips: %w", err)
	}
	defer rows.Close()

	slips := []models.BetSlip{}
	for rows.Next() {
		var count int
		slip, err := scanBetSlip(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan bet slip: %w", err)
		}
		slip.SelectionCount = count
		slips = append(slips, slip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bet slips: %w", err)
	}
	return slips, nil
}

func (s *Store) selections(ctx context.Context, slipID string) ([]models.Selection, error) {
	query := `
		SELECT id, slip_id, bet_id, selection_id, display_description, selection_ids,
		       market_class_value, market_class_name, market_class_display,
		       stake, odds, potential_win, bet_type_value, number_of_combinations,
		       min_odds, max_odds, notation, element_id, extra_description,
		       combo_selections, bet_combination, min_notation, max_notation,
		       betting_layout_value, draw_count, executing_feed_id,
		       event_start_date_time, event_start_time, event_type_value
		FROM bet_selections
		WHERE slip_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, slipID)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	out := []models.Selection{}
	for rows.Next() {
		var (
			sel       models.Selection
			combo, bc []byte
			drawCount sql.NullInt64
			startAt   sql.NullTime
			eventType sql.NullInt64
		)
		if err := rows.Scan(
			&sel.ID, &sel.SlipID, &sel.BetID, &sel.SelectionID, &sel.DisplayDescription,
			pq.Array(&sel.SelectionIDs),
			&sel.MarketClassValue, &sel.MarketClassName, &sel.MarketClassDisplay,
			&sel.Stake, &sel.Odds, &sel.PotentialWin, &sel.BetTypeValue, &sel.NumberOfCombinations,
			&sel.MinOdds, &sel.MaxOdds, &sel.Notation, &sel.ElementID, &sel.ExtraDescription,
			&combo, &bc, &sel.MinNotation, &sel.MaxNotation,
			&sel.BettingLayoutValue, &drawCount, &sel.ExecutingFeedID,
			&startAt, &sel.EventStartTime, &eventType,
		); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.ComboSelections = rawJSON(combo)
		sel.BetCombination = rawJSON(bc)
		sel.DrawCount = intPtr(drawCount)
		sel.EventStartDateTime = timePtr(startAt)
		sel.EventTypeValue = intPtr(eventType)
		out = append(out, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return out, nil
}

func (s *Store) history(ctx context.Context, slipID string) ([]models.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slip_id, status_from, status_to, changed_by, reason, changed_at
		FROM bet_slip_history
		WHERE slip_id = $1
		ORDER BY changed_at, id`, slipID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []models.StatusChange{}
	for rows.Next() {
		var (
			c    models.StatusChange
			from sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.SlipID, &from, &c.StatusTo, &c.ChangedBy, &c.Reason, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		c.StatusFrom = stringPtr(from)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func scanBetSlip(row rowScanner, extra ...any) (models.BetSlip, error) {
	var (
		slip       models.BetSlip
		eventID    sql.NullString
		gameName   sql.NullString
		gameNumber sql.NullInt64
		typeValue  sql.NullInt64
		customerID sql.NullString
		shopID     sql.NullString
	)

	dest := []any{
		&slip.ID, &slip.SlipID, &slip.SessionGUID, &slip.BetslipTypeValue, &eventID, &gameName,
		&gameNumber, &typeValue, &slip.TotalStake, &slip.TotalPotentialWin, &slip.GlobalSingleStake,
		&slip.Status, &customerID, &shopID, &slip.RedeemCode, &slip.PlacedAt, &slip.FromPendingBet,
		&slip.RetailerGUID, &slip.IsSSBTRetailer, &slip.CreatedAt, &slip.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return models.BetSlip{}, err
	}

	slip.EventID = stringPtr(eventID)
	slip.GameName = gameName.String
	slip.GameNumber = int64Ptr(gameNumber)
	slip.GameTypeValue = intPtr(typeValue)
	slip.CustomerID = stringPtr(customerID)
	slip.ShopID = stringPtr(shopID)
	return slip, nil
}
