package models

import (
	"encoding/json"
	"time"
)

// Event is the normalized form of one upstream game round
type Event struct {
	EventID       string          `json:"event_id"`
	GameName      *string         `json:"game_name"`
	GameTypeValue *int            `json:"game_type_value,omitempty"`
	GameNumber    *int64          `json:"game_number"`
	StartTime     *time.Time      `json:"start_time"`
	FinishTime    *time.Time      `json:"finish_time"`
	IsFinished    bool            `json:"is_finished"`
	StatusValue   *int            `json:"status_value"`
	RawPayload    json.RawMessage `json:"raw_payload,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EventFilter narrows event listings
type EventFilter struct {
	From     *time.Time
	To       *time.Time
	Finished *bool
	Limit    int
}

// ResultType classifies the outcome of a round
type ResultType string

const (
	ResultWinner    ResultType = "winner"
	ResultFinished  ResultType = "finished"
	ResultCancelled ResultType = "cancelled"
	ResultSuspended ResultType = "suspended"
	ResultUnknown   ResultType = "unknown"
)

// GameResult is a stored result row, 1:1 with an Event
type GameResult struct {
	ID            int64           `json:"id"`
	EventID       string          `json:"event_id"`
	GameName      string          `json:"game_name"`
	ResultType    ResultType      `json:"result_type"`
	WinningValues json.RawMessage `json:"winning_values"`
	ResultData    json.RawMessage `json:"result_data,omitempty"`
	GameNumber    *int64          `json:"game_number"`
	DeclaredAt    time.Time       `json:"declared_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Populated by listings joined against events
	StartTime  *time.Time `json:"start_time,omitempty"`
	FinishTime *time.Time `json:"finish_time,omitempty"`
}
