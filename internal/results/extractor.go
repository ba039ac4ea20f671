package results

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/internal/normalize"
	"github.com/retaildemo/feedsync/pkg/models"
)

// selectionLists are the per-market keys that can hold winner-flagged selections
var selectionLists = []string{
	"KenoSelections",
	"RaceSelections",
	"BoxingSelections",
	"PlayerVsPlayerSelections",
}

// Outcome is the extracted result of one round
type Outcome struct {
	EventID    string
	GameName   string
	ResultType models.ResultType
	Values     models.WinningValues
	GameNumber *int64
	Raw        map[string]any
}

// GameResult converts the outcome into its stored form
func (o Outcome) GameResult() (models.GameResult, error) {
	values, err := json.Marshal(o.Values)
	if err != nil {
		return models.GameResult{}, fmt.Errorf("marshal winning values: %w", err)
	}

	var raw json.RawMessage
	if o.Raw != nil {
		if raw, err = json.Marshal(o.Raw); err != nil {
			return models.GameResult{}, fmt.Errorf("marshal result data: %w", err)
		}
	}

	return models.GameResult{
		EventID:       o.EventID,
		GameName:      o.GameName,
		ResultType:    o.ResultType,
		WinningValues: values,
		ResultData:    raw,
		GameNumber:    o.GameNumber,
	}, nil
}

// Process classifies an upstream item and extracts its winning values.
// It reports false when the item has no identifier or no game name.
func Process(item map[string]any) (Outcome, bool) {
	if item == nil {
		return Outcome{}, false
	}
	ev := normalize.Unwrap(item)

	id, ok := normalize.EventID(ev)
	if !ok {
		return Outcome{}, false
	}
	name, ok := normalize.GameName(ev)
	if !ok {
		return Outcome{}, false
	}

	out := Outcome{
		EventID:    id,
		GameName:   name,
		ResultType: DetermineResultType(item),
		Values:     ExtractWinningValues(item),
		Raw:        item,
	}
	if n, ok := normalize.GameNumber(ev); ok {
		out.GameNumber = &n
	}
	return out, true
}

// DetermineResultType classifies a round; the first matching rule wins
func DetermineResultType(item map[string]any) models.ResultType {
	if item == nil {
		return models.ResultUnknown
	}
	ev := normalize.Unwrap(item)

	switch {
	case statusIs(ev, 4):
		return models.ResultCancelled
	case statusIs(ev, 5):
		return models.ResultSuspended
	case normalize.IsTrue(ev["IsFinished"]) || normalize.IsTrue(ev["isFinished"]):
		if HasWinningSelection(ev) {
			return models.ResultWinner
		}
		if normalize.IsTrue(ev["IsWinner"]) || normalize.IsTrue(ev["isWinner"]) {
			return models.ResultWinner
		}
		return models.ResultFinished
	default:
		return models.ResultUnknown
	}
}

func statusIs(ev map[string]any, code float64) bool {
	return normalize.NumberIs(ev["StatusValue"], code) || normalize.NumberIs(ev["statusValue"], code)
}

// HasWinningSelection reports whether any market carries a winner-flagged
// selection in any of the known selection lists
func HasWinningSelection(ev map[string]any) bool {
	for _, market := range normalize.Maps(ev["Markets"]) {
		for _, key := range selectionLists {
			for _, sel := range normalize.Maps(market[key]) {
				if isWinner(sel) {
					return true
				}
			}
		}
	}
	return false
}

// ExtractWinningValues builds the family-specific winning values of a round
func ExtractWinningValues(item map[string]any) models.WinningValues {
	ev := normalize.Unwrap(item)
	typeName, _ := ev["TypeName"].(string)

	switch games.FamilyOf(typeName) {
	case models.FamilyNumbersDraw:
		return extractKeno(ev)
	case models.FamilyRacing:
		return extractRacing(ev, typeName)
	case models.FamilyRoulette:
		return extractRoulette(ev)
	default:
		return extractGeneric(ev, typeName)
	}
}

func isWinner(sel map[string]any) bool {
	return normalize.IsTrue(sel["IsWinner"])
}

func winners(selections []map[string]any) []map[string]any {
	var out []map[string]any
	for _, sel := range selections {
		if isWinner(sel) {
			out = append(out, sel)
		}
	}
	return out
}

// findMarket returns the first market with the given name
func findMarket(markets []map[string]any, name string) (map[string]any, bool) {
	for _, m := range markets {
		if n, _ := m["Name"].(string); n == name {
			return m, true
		}
	}
	return nil, false
}

// selectionRef identifies a selection by feed id, falling back to its description
func selectionRef(sel map[string]any) (string, bool) {
	if s, ok := normalize.String(sel["FeedId"]); ok {
		return s, true
	}
	return normalize.String(sel["DisplayDescription"])
}

func extractKeno(ev map[string]any) models.KenoValues {
	numbers := []string{}

	if market, ok := findMarket(normalize.Maps(ev["Markets"]), "KenoWin"); ok {
		for _, sel := range winners(normalize.Maps(market["KenoSelections"])) {
			if s, ok := normalize.String(sel["FeedId"]); ok {
				numbers = append(numbers, s)
			}
		}

		if len(numbers) == 0 {
			if raw, ok := market["WinningSelectionID"].(string); ok && raw != "" {
				for _, part := range strings.Split(raw, ",") {
					numbers = append(numbers, strings.TrimSpace(part))
				}
			}
		}
	}

	return models.KenoValues{
		WinningNumbers:      numbers,
		TotalWinningNumbers: len(numbers),
	}
}

func placePositions(selections []map[string]any) []models.RacePosition {
	placed := winners(selections)
	positions := make([]models.RacePosition, 0, len(placed))
	for i, sel := range placed {
		pos := models.RacePosition{Position: i + 1}
		pos.Selection, _ = selectionRef(sel)
		if name, ok := normalize.String(sel["DisplayDescription"]); ok {
			pos.Name = name
		} else {
			pos.Name, _ = normalize.String(sel["FeedDescription"])
		}
		if odds, ok := normalize.Float(sel["Odds"]); ok && odds != 0 {
			pos.Odds = &odds
		}
		positions = append(positions, pos)
	}
	return positions
}

// racePositions reads a Race.Positions array of position objects
func racePositions(v any) []models.RacePosition {
	var positions []models.RacePosition
	for _, p := range normalize.Maps(v) {
		pos := models.RacePosition{}
		if n, ok := normalize.Int(firstKey(p, "position", "Position")); ok {
			pos.Position = int(n)
		}
		pos.Selection, _ = normalize.String(firstKey(p, "selection", "Selection"))
		pos.Name, _ = normalize.String(firstKey(p, "name", "Name"))
		if odds, ok := normalize.Float(firstKey(p, "odds", "Odds")); ok {
			pos.Odds = &odds
		}
		positions = append(positions, pos)
	}
	return positions
}

func firstKey(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func extractRacing(ev map[string]any, typeName string) models.RacingValues {
	out := models.RacingValues{GameType: typeName}
	var positions []models.RacePosition

	if race, ok := normalize.Map(ev["Race"]); ok {
		out.RaceResult = normalize.StringPtr(race["Result"])
		out.Winner = normalize.StringPtr(firstKey(race, "Winner", "winner"))
		out.WinningTime = normalize.StringPtr(firstKey(race, "WinningTime", "winningTime"))
		positions = racePositions(firstKey(race, "Positions", "positions"))
		out.RaceName = normalize.StringPtr(race["Name"])
		out.Distance = normalize.StringPtr(race["Distance"])
	}

	markets := normalize.Maps(ev["Markets"])
	if win, ok := findMarket(markets, "Win"); ok {
		if w := winners(normalize.Maps(win["RaceSelections"])); len(w) > 0 {
			out.Winner = refPtr(w[0])
		}
	}
	if place, ok := findMarket(markets, "Place"); ok {
		if p := placePositions(normalize.Maps(place["RaceSelections"])); len(p) > 0 {
			positions = p
		}
	}

	primary := normalize.Maps(ev["PrimaryMarkets"])
	if win, ok := findMarket(primary, "Win"); ok && out.Winner == nil {
		if w := winners(normalize.Maps(win["RaceSelections"])); len(w) > 0 {
			out.Winner = refPtr(w[0])
		}
	}
	if place, ok := findMarket(primary, "Place"); ok && len(positions) == 0 {
		if p := placePositions(normalize.Maps(place["RaceSelections"])); len(p) > 0 {
			positions = p
		}
	}

	if out.Winner == nil && out.RaceResult != nil {
		first := strings.TrimSpace(strings.Split(*out.RaceResult, ",")[0])
		out.Winner = &first
	}

	if positions == nil {
		positions = []models.RacePosition{}
	}
	out.Positions = positions
	out.TotalPositions = len(positions)
	return out
}

func refPtr(sel map[string]any) *string {
	s, ok := selectionRef(sel)
	if !ok {
		return nil
	}
	return &s
}

func extractRoulette(ev map[string]any) models.RouletteValues {
	out := models.RouletteValues{
		GameType:     games.HorseRacingRouletteV2,
		Positions:    []models.RoulettePosition{},
		Participants: []models.RouletteParticipant{},
	}

	rr, ok := normalize.Map(ev["RacingRouletteV2"])
	if !ok {
		return out
	}
	out.RaceName = normalize.StringPtr(rr["Name"])
	out.Distance = normalize.StringPtr(rr["Distance"])

	for _, p := range normalize.Maps(rr["Participants"]) {
		out.Participants = append(out.Participants, models.RouletteParticipant{
			Name:            normalize.StringPtr(p["Name"]),
			Colour:          normalize.StringPtr(p["Colour"]),
			FeedID:          normalize.StringPtr(p["FeedId"]),
			Finish:          normalize.IntPtr(p["Finish"]),
			WinMarketColumn: normalize.IntPtr(p["WinMarketColumn"]),
			WinMarketOrder:  normalize.IntPtr(p["WinMarketOrder"]),
		})
	}

	for _, p := range out.Participants {
		if p.Finish != nil && *p.Finish == 1 {
			out.Winner = p.Name
			break
		}
	}

	for _, p := range out.Participants {
		if p.Finish == nil {
			continue
		}
		out.Positions = append(out.Positions, models.RoulettePosition{
			Position: *p.Finish,
			Name:     p.Name,
			Colour:   p.Colour,
			FeedID:   p.FeedID,
		})
	}
	sort.SliceStable(out.Positions, func(i, j int) bool {
		return out.Positions[i].Position < out.Positions[j].Position
	})

	out.TotalParticipants = len(out.Participants)
	out.TotalPositions = len(out.Positions)
	return out
}

func extractGeneric(ev map[string]any, typeName string) models.GenericValues {
	out := models.GenericValues{GameType: typeName}

	for _, market := range normalize.Maps(ev["Markets"]) {
		for _, key := range selectionLists {
			w := winners(normalize.Maps(market[key]))
			if len(w) == 0 {
				continue
			}
			out.Winner = refPtr(w[0])
			if v, ok := normalize.String(market["WinningSelectionID"]); ok {
				out.WinningValue = &v
			} else {
				out.WinningValue = normalize.StringPtr(market["WinningSelectionDescription"])
			}
			break
		}
		if out.Winner != nil {
			return out
		}
	}
	return out
}
