package models

import "time"

// GameConfig describes one upstream game type the service can sync
type GameConfig struct {
	TypeName        string `json:"typeName" yaml:"type_name"`
	FeedID          int    `json:"feedId" yaml:"feed_id"`
	DurationSeconds int    `json:"duration" yaml:"duration_seconds"`
	Description     string `json:"description" yaml:"description"`
	Enabled         bool   `json:"enabled" yaml:"enabled"`
}

// Interval is the period between two sync cycles of this game
func (g GameConfig) Interval() time.Duration {
	return time.Duration(g.DurationSeconds) * time.Second
}
