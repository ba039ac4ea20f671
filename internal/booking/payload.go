package booking

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/internal/normalize"
	"github.com/retaildemo/feedsync/pkg/models"
)

// FlexString accepts a JSON string, number or bool. The front end sends ids
// and round numbers in either form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("false")) {
		*f = FlexString(b)
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexInt accepts a JSON number or a numeric string. Strings that are not
// numbers decode as zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = 0
	v := strings.TrimSpace(string(s))
	if n, err := strconv.Atoi(v); err == nil {
		*f = FlexInt(n)
	} else if x, err := strconv.ParseFloat(v, 64); err == nil {
		*f = FlexInt(x)
	}
	return nil
}

// FlexBool accepts a JSON bool, "true"/"True"/"1" style strings or a number
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("false")) {
		*f = FlexBool(b[0] == 't')
		return nil
	}
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	v := strings.TrimSpace(string(s))
	if ok, err := strconv.ParseBool(v); err == nil {
		*f = FlexBool(ok)
		return nil
	}
	x, err := strconv.ParseFloat(v, 64)
	*f = FlexBool(err == nil && x != 0)
	return nil
}

// BetObject is the decoded booking submission
type BetObject struct {
	SessionGUID       FlexString      `json:"SessionGuid"`
	BetslipTypeValue  FlexInt         `json:"BetslipTypeValue"`
	SingleBets        []SingleBet     `json:"SingleBets"`
	MultiGroups       []any           `json:"MultiGroups"`
	GlobalSingleStake decimal.Decimal `json:"GlobalSingleStake"`
	CustomerID        FlexString      `json:"CustomerId"`
	ShopID            FlexString      `json:"ShopId"`
	FromPendingBet    FlexBool        `json:"FromPendingBet"`
	RetailerGUID      FlexString      `json:"RetailerGuid"`
	IsSSBTRetailer    FlexBool        `json:"IsSSBTRetailer"`
}

// SingleBet is one leg as submitted
type SingleBet struct {
	LegID                FlexString      `json:"_id"`
	ID                   FlexString      `json:"ID"`
	FeedEventID          FlexString      `json:"FeedEventId"`
	EventNumber          FlexString      `json:"EventNumber"`
	Event                *BetEvent       `json:"Event"`
	DisplayDescription   FlexString      `json:"DisplayDescription"`
	SelectionID          FlexString      `json:"SelectionId"`
	SelectionIDs         []FlexString    `json:"SelectionIds"`
	MarketClassValue     FlexInt         `json:"MarketClassValue"`
	MarketClass          *MarketClass    `json:"MarketClass"`
	Stake                decimal.Decimal `json:"Stake"`
	Odds                 decimal.Decimal `json:"Odds"`
	PotentialWin         decimal.Decimal `json:"PotentialWin"`
	BetTypeValue         FlexInt         `json:"BetTypeValue"`
	NumberOfCombinations FlexInt         `json:"NumberOfCombinations"`
	MinOdds              decimal.Decimal `json:"MinOdds"`
	MaxOdds              decimal.Decimal `json:"MaxOdds"`
	Notation             FlexString      `json:"Notation"`
	MinNotation          FlexString      `json:"MinNotation"`
	MaxNotation          FlexString      `json:"MaxNotation"`
	ElementID            FlexString      `json:"ElementId"`
	ExtraDescription     FlexString      `json:"ExtraDescription"`
	ComboSelections      json.RawMessage `json:"ComboSelections"`
	BetCombination       json.RawMessage `json:"BetCombination"`
	BettingLayoutValue   FlexString      `json:"BettingLayoutValue"`
	DrawCount            FlexInt         `json:"DrawCount"`
	ExecutingFeedID      FlexString      `json:"ExecutingFeedId"`
	EventStartDateTime   FlexString      `json:"EventStartDateTime"`
	EventStartTime       FlexString      `json:"EventStartTime"`
	EventTypeValue       FlexInt         `json:"EventTypeValue"`
}

// BetEvent is the round a leg was placed on. Keys match case-insensitively,
// so both the "Type" and "type" shapes decode here.
type BetEvent struct {
	Type *struct {
		Name                  FlexString `json:"Name"`
		Value                 FlexInt    `json:"Value"`
		EventTypeCategoryEnum FlexString `json:"eventTypeCategoryEnum"`
	} `json:"Type"`
}

// MarketClass describes the market a leg belongs to
type MarketClass struct {
	Value   FlexInt    `json:"Value"`
	Name    FlexString `json:"Name"`
	Display FlexString `json:"Display"`
}

// eventInfo is the round a slip is filed under, taken from its first leg
type eventInfo struct {
	eventID       *string
	gameName      string
	gameNumber    *int64
	gameTypeValue *int
}

// firstLegEvent reads "<feed>-<type>-<event>" ids and lets the nested event
// type override the name and type value
func firstLegEvent(bet SingleBet) eventInfo {
	info := eventInfo{gameName: "Unknown"}

	if bet.FeedEventID != "" {
		id := string(bet.FeedEventID)
		info.eventID = &id

		if parts := strings.Split(id, "-"); len(parts) >= 3 {
			if v, err := strconv.Atoi(parts[1]); err == nil {
				info.gameTypeValue = &v
				if name, ok := games.NameForTypeValue(v); ok {
					info.gameName = name
				}
			}
			if n, err := strconv.ParseInt(string(bet.EventNumber), 10, 64); err == nil {
				info.gameNumber = &n
			}
		}
	}

	if bet.Event != nil && bet.Event.Type != nil {
		t := bet.Event.Type
		switch {
		case t.Name != "":
			info.gameName = string(t.Name)
		case t.EventTypeCategoryEnum != "":
			info.gameName = string(t.EventTypeCategoryEnum)
		}
		if t.Value != 0 {
			v := int(t.Value)
			info.gameTypeValue = &v
		}
	}
	return info
}

// selection maps one submitted leg to its stored row, filling the defaults
// the front end leaves out
func selection(bet SingleBet) models.Selection {
	sel := models.Selection{
		BetID:                firstNonEmpty(string(bet.LegID), string(bet.ID), "0"),
		SelectionID:          string(bet.SelectionID),
		DisplayDescription:   string(bet.DisplayDescription),
		MarketClassValue:     int(bet.MarketClassValue),
		MarketClassName:      "Unknown",
		MarketClassDisplay:   "Unknown",
		Stake:                bet.Stake,
		Odds:                 bet.Odds,
		PotentialWin:         legPotentialWin(bet),
		BetTypeValue:         orOne(int(bet.BetTypeValue)),
		NumberOfCombinations: orOne(int(bet.NumberOfCombinations)),
		MinOdds:              orDecimal(bet.MinOdds, bet.Odds),
		MaxOdds:              orDecimal(bet.MaxOdds, bet.Odds),
		Notation:             string(bet.Notation),
		MinNotation:          string(bet.MinNotation),
		MaxNotation:          string(bet.MaxNotation),
		ElementID:            string(bet.ElementID),
		ExtraDescription:     string(bet.ExtraDescription),
		ComboSelections:      jsonOrNil(bet.ComboSelections),
		BetCombination:       jsonOrNil(bet.BetCombination),
		BettingLayoutValue:   string(bet.BettingLayoutValue),
		ExecutingFeedID:      string(bet.ExecutingFeedID),
		EventStartTime:       string(bet.EventStartTime),
	}

	if mc := bet.MarketClass; mc != nil {
		if mc.Value != 0 {
			sel.MarketClassValue = int(mc.Value)
		}
		sel.MarketClassName = firstNonEmpty(string(mc.Name), "Unknown")
		sel.MarketClassDisplay = firstNonEmpty(string(mc.Display), "Unknown")
	}

	sel.SelectionIDs = []string{}
	if bet.SelectionIDs != nil {
		for _, id := range bet.SelectionIDs {
			if id != "" {
				sel.SelectionIDs = append(sel.SelectionIDs, string(id))
			}
		}
	} else if bet.SelectionID != "" {
		sel.SelectionIDs = append(sel.SelectionIDs, string(bet.SelectionID))
	}

	if bet.DrawCount != 0 {
		n := int(bet.DrawCount)
		sel.DrawCount = &n
	}
	if bet.EventTypeValue != 0 {
		v := int(bet.EventTypeValue)
		sel.EventTypeValue = &v
	}
	if t, ok := parseStartTime(string(bet.EventStartDateTime)); ok {
		sel.EventStartDateTime = &t
	}
	return sel
}

// parseStartTime reads the leg start as the front end sends it
// ("2025/08/28 18:19:00"), or as RFC 3339 or "/Date(ms)/"
func parseStartTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := normalize.ParseSlashDate(s); ok {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return normalize.ParseDotNetDate(s)
}

// legPotentialWin is the submitted potential win, or stake times odds
func legPotentialWin(bet SingleBet) decimal.Decimal {
	if !bet.PotentialWin.IsZero() {
		return bet.PotentialWin
	}
	return bet.Stake.Mul(bet.Odds)
}

func orOne(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

func orDecimal(v, fallback decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return fallback
	}
	return v
}

func jsonOrNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
