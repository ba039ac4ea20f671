package models

// GameFamily groups game types that share a result shape
type GameFamily string

const (
	FamilyNumbersDraw GameFamily = "numbers_draw"
	FamilyRacing      GameFamily = "racing"
	FamilyRoulette    GameFamily = "roulette"
	FamilyGeneric     GameFamily = "generic"
)

// WinningValues is the family-specific payload stored with a result
type WinningValues interface {
	Family() GameFamily
}

// KenoValues holds drawn numbers for numbers-draw games
type KenoValues struct {
	WinningNumbers      []string `json:"winningNumbers"`
	TotalWinningNumbers int      `json:"totalWinningNumbers"`
}

func (KenoValues) Family() GameFamily { return FamilyNumbersDraw }

// RacePosition is one placed runner
type RacePosition struct {
	Position  int      `json:"position"`
	Selection string   `json:"selection"`
	Name      string   `json:"name"`
	Odds      *float64 `json:"odds"`
}

// RacingValues holds the finish of a race
type RacingValues struct {
	Winner         *string        `json:"winner"`
	WinningTime    *string        `json:"winningTime"`
	Positions      []RacePosition `json:"positions"`
	RaceResult     *string        `json:"raceResult"`
	TotalPositions int            `json:"totalPositions"`
	RaceName       *string        `json:"raceName"`
	Distance       *string        `json:"distance"`
	GameType       string         `json:"gameType"`
}

func (RacingValues) Family() GameFamily { return FamilyRacing }

// RouletteParticipant is one runner of a racing roulette round
type RouletteParticipant struct {
	Name            *string `json:"name"`
	Colour          *string `json:"colour"`
	FeedID          *string `json:"feedId"`
	Finish          *int    `json:"finish"`
	WinMarketColumn *int    `json:"winMarketColumn"`
	WinMarketOrder  *int    `json:"winMarketOrder"`
}

// RoulettePosition is a participant with a known finish
type RoulettePosition struct {
	Position int     `json:"position"`
	Name     *string `json:"name"`
	Colour   *string `json:"colour"`
	FeedID   *string `json:"feedId"`
}

// RouletteValues holds the finish of a racing roulette round
type RouletteValues struct {
	Winner            *string               `json:"winner"`
	Positions         []RoulettePosition    `json:"positions"`
	Participants      []RouletteParticipant `json:"participants"`
	TotalParticipants int                   `json:"totalParticipants"`
	TotalPositions    int                   `json:"totalPositions"`
	RaceName          *string               `json:"raceName"`
	Distance          *string               `json:"distance"`
	GameType          string                `json:"gameType"`
}

func (RouletteValues) Family() GameFamily { return FamilyRoulette }

// GenericValues covers every other game type
type GenericValues struct {
	Winner       *string  `json:"winner"`
	WinningValue *string  `json:"winningValue"`
	Result       *string  `json:"result"`
	Payout       *float64 `json:"payout"`
	GameType     string   `json:"gameType"`
}

func (GenericValues) Family() GameFamily { return FamilyGeneric }
