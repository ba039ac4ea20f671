package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Bet slip lifecycle states
const (
	BetSlipPending = "pending"
)

// BetSlip is one submitted wager
type BetSlip struct {
	ID                int64           `json:"id"`
	SlipID            string          `json:"slip_id"`
	SessionGUID       string          `json:"session_guid"`
	BetslipTypeValue  int             `json:"betslip_type_value"`
	EventID           *string         `json:"event_id"`
	GameName          string          `json:"game_name"`
	GameNumber        *int64          `json:"game_number"`
	GameTypeValue     *int            `json:"game_type_value"`
	TotalStake        decimal.Decimal `json:"total_stake"`
	TotalPotentialWin decimal.Decimal `json:"total_potential_win"`
	GlobalSingleStake decimal.Decimal `json:"global_single_stake"`
	Status            string          `json:"status"`
	CustomerID        *string         `json:"customer_id"`
	ShopID            *string         `json:"shop_id"`
	RedeemCode        string          `json:"redeem_code"`
	RawPayload        json.RawMessage `json:"raw_payload,omitempty"`
	PlacedAt          time.Time       `json:"placed_at"`
	FromPendingBet    bool            `json:"from_pending_bet"`
	RetailerGUID      string          `json:"retailer_guid"`
	IsSSBTRetailer    bool            `json:"is_ssbt_retailer"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	SelectionCount int            `json:"selection_count,omitempty"`
	Selections     []Selection    `json:"selections,omitempty"`
	History        []StatusChange `json:"history,omitempty"`
}

// Selection is one leg of a bet slip
type Selection struct {
	ID                   int64           `json:"id"`
	SlipID               string          `json:"slip_id"`
	BetID                string          `json:"bet_id"`
	SelectionID          string          `json:"selection_id"`
	DisplayDescription   string          `json:"display_description"`
	SelectionIDs         []string        `json:"selection_ids"`
	MarketClassValue     int             `json:"market_class_value"`
	MarketClassName      string          `json:"market_class_name"`
	MarketClassDisplay   string          `json:"market_class_display"`
	Stake                decimal.Decimal `json:"stake"`
	Odds                 decimal.Decimal `json:"odds"`
	PotentialWin         decimal.Decimal `json:"potential_win"`
	BetTypeValue         int             `json:"bet_type_value"`
	NumberOfCombinations int             `json:"number_of_combinations"`
	MinOdds              decimal.Decimal `json:"min_odds"`
	MaxOdds              decimal.Decimal `json:"max_odds"`
	Notation             string          `json:"notation"`
	MinNotation          string          `json:"min_notation"`
	MaxNotation          string          `json:"max_notation"`
	ElementID            string          `json:"element_id"`
	ExtraDescription     string          `json:"extra_description"`
	ComboSelections      json.RawMessage `json:"combo_selections,omitempty"`
	BetCombination       json.RawMessage `json:"bet_combination,omitempty"`
	BettingLayoutValue   string          `json:"betting_layout_value"`
	DrawCount            *int            `json:"draw_count"`
	ExecutingFeedID      string          `json:"executing_feed_id"`
	EventStartDateTime   *time.Time      `json:"event_start_date_time"`
	EventStartTime       string          `json:"event_start_time"`
	EventTypeValue       *int            `json:"event_type_value"`
}

// StatusChange is one append-only audit row for a bet slip
type StatusChange struct {
	ID         int64     `json:"id"`
	SlipID     string    `json:"slip_id"`
	StatusFrom *string   `json:"status_from"`
	StatusTo   string    `json:"status_to"`
	ChangedBy  string    `json:"changed_by"`
	Reason     string    `json:"reason"`
	ChangedAt  time.Time `json:"changed_at"`
}

// BetSlipFilter narrows bet slip listings
type BetSlipFilter struct {
	Status string
	Limit  int
}
