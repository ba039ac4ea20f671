package games

import "github.com/retaildemo/feedsync/pkg/models"

// Game type names with family-specific result handling
const (
	SmartPlayKeno         = "SmartPlayKeno"
	HorseRacingRouletteV2 = "HorseRacingRouletteV2"
)

// RacingGames returns the game types settled as races
func RacingGames() []string {
	return []string{
		"MotorRacing",
		"DashingDerby",
		"PlatinumHounds",
		"HarnessRacing",
		"CycleRacing",
		"SteepleChase",
		"SpeedSkating",
		"SingleSeaterMotorRacing",
	}
}

// IsRacingGame returns true if the game type is settled as a race
func IsRacingGame(typeName string) bool {
	for _, g := range RacingGames() {
		if g == typeName {
			return true
		}
	}
	return false
}

// FamilyOf maps a game type name to its result family
func FamilyOf(typeName string) models.GameFamily {
	switch {
	case typeName == SmartPlayKeno:
		return models.FamilyNumbersDraw
	case typeName == HorseRacingRouletteV2:
		return models.FamilyRoulette
	case IsRacingGame(typeName):
		return models.FamilyRacing
	default:
		return models.FamilyGeneric
	}
}

// typeValueNames maps the numeric type segment of a feed event id to its game
var typeValueNames = map[int]string{
	1:  "DashingDerby",
	3:  "HarnessRacing",
	5:  "CycleRacing",
	6:  "MotorRacing",
	16: "SteepleChase",
	17: "SpeedSkating",
	18: "SingleSeaterMotorRacing",
	19: "SmartPlayKeno",
	24: "SpinAndWin",
}

// NameForTypeValue returns the game type name for a numeric type value
func NameForTypeValue(v int) (string, bool) {
	name, ok := typeValueNames[v]
	return name, ok
}
