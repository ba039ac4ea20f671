package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retaildemo/feedsync/pkg/models"
	"github.com/retaildemo/feedsync/pkg/testutil"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestExtractWinningValues_KenoFlaggedSelections(t *testing.T) {
	item := testutil.NewKenoEvent("90-19-1", 1, "47", "57")

	values := ExtractWinningValues(item)

	keno, ok := values.(models.KenoValues)
	require.True(t, ok)
	assert.Equal(t, []string{"47", "57"}, keno.WinningNumbers)
	assert.Equal(t, 2, keno.TotalWinningNumbers)
}

func TestExtractWinningValues_KenoFallbackString(t *testing.T) {
	item := decode(t, `{"Event":{"ID":"k1","TypeName":"SmartPlayKeno","Markets":[
		{"Name":"KenoWin","WinningSelectionID":"47, 57","KenoSelections":[{"FeedId":"47","IsWinner":false}]}
	]}}`)

	keno := ExtractWinningValues(item).(models.KenoValues)

	assert.Equal(t, []string{"47", "57"}, keno.WinningNumbers)
	assert.Equal(t, 2, keno.TotalWinningNumbers)
}

func TestExtractWinningValues_KenoNoMarket(t *testing.T) {
	item := decode(t, `{"ID":"k1","TypeName":"SmartPlayKeno","Markets":[{"Name":"KenoHeadsTails"}]}`)

	keno := ExtractWinningValues(item).(models.KenoValues)

	assert.Empty(t, keno.WinningNumbers)
	assert.NotNil(t, keno.WinningNumbers)
	assert.Zero(t, keno.TotalWinningNumbers)

	raw, err := json.Marshal(keno)
	require.NoError(t, err)
	assert.JSONEq(t, `{"winningNumbers":[],"totalWinningNumbers":0}`, string(raw))
}

func TestExtractWinningValues_RacingWinAndPlace(t *testing.T) {
	item := testutil.NewRaceEvent("90-6-1", "MotorRacing", "3", "3", "7", "1")

	racing, ok := ExtractWinningValues(item).(models.RacingValues)
	require.True(t, ok)

	require.NotNil(t, racing.Winner)
	assert.Equal(t, "3", *racing.Winner)
	require.Len(t, racing.Positions, 3)
	assert.Equal(t, 1, racing.Positions[0].Position)
	assert.Equal(t, "3", racing.Positions[0].Selection)
	assert.Equal(t, 2, racing.Positions[1].Position)
	assert.Equal(t, "7", racing.Positions[1].Selection)
	assert.Equal(t, 3, racing.Positions[2].Position)
	assert.Equal(t, "1", racing.Positions[2].Selection)
	assert.Equal(t, "Runner 7", racing.Positions[1].Name)
	assert.Equal(t, 3, racing.TotalPositions)
	assert.Equal(t, "MotorRacing", racing.GameType)
}

func TestExtractWinningValues_RacingPrimaryMarketsOnlyFillGaps(t *testing.T) {
	item := decode(t, `{"ID":"r1","TypeName":"DashingDerby",
		"Markets":[{"Name":"Win","RaceSelections":[{"FeedId":"5","IsWinner":true}]}],
		"PrimaryMarkets":[
			{"Name":"Win","RaceSelections":[{"FeedId":"9","IsWinner":true}]},
			{"Name":"Place","RaceSelections":[{"FeedId":"5","IsWinner":true,"Odds":2.5},{"DisplayDescription":"Lucky","IsWinner":true}]}
		]}`)

	racing := ExtractWinningValues(item).(models.RacingValues)

	require.NotNil(t, racing.Winner)
	assert.Equal(t, "5", *racing.Winner)
	require.Len(t, racing.Positions, 2)
	require.NotNil(t, racing.Positions[0].Odds)
	assert.Equal(t, 2.5, *racing.Positions[0].Odds)
	assert.Equal(t, "Lucky", racing.Positions[1].Selection)
	assert.Equal(t, "Lucky", racing.Positions[1].Name)
	assert.Nil(t, racing.Positions[1].Odds)
}

func TestExtractWinningValues_RacingResultStringFallback(t *testing.T) {
	item := decode(t, `{"ID":"r1","TypeName":"PlatinumHounds",
		"Race":{"Result":"6,7,1,10","Name":"Hound Sprint","Distance":480,"WinningTime":"29.41"}}`)

	racing := ExtractWinningValues(item).(models.RacingValues)

	require.NotNil(t, racing.Winner)
	assert.Equal(t, "6", *racing.Winner)
	require.NotNil(t, racing.RaceResult)
	assert.Equal(t, "6,7,1,10", *racing.RaceResult)
	require.NotNil(t, racing.RaceName)
	assert.Equal(t, "Hound Sprint", *racing.RaceName)
	require.NotNil(t, racing.Distance)
	assert.Equal(t, "480", *racing.Distance)
	require.NotNil(t, racing.WinningTime)
	assert.Equal(t, "29.41", *racing.WinningTime)
	assert.Empty(t, racing.Positions)
	assert.Zero(t, racing.TotalPositions)
}

func TestExtractWinningValues_Roulette(t *testing.T) {
	item := decode(t, `{"ID":"rr1","TypeName":"HorseRacingRouletteV2","RacingRouletteV2":{
		"Name":"Roulette Dash","Distance":"1200m","Participants":[
			{"Name":"Red Rum","Colour":"Red","FeedId":"1","Finish":2},
			{"Name":"Blue Moon","Colour":"Blue","FeedId":"2","Finish":1},
			{"Name":"Green Day","Colour":"Green","FeedId":"3","Finish":null},
			{"Name":"Black Jack","Colour":"Black","FeedId":"4","Finish":3}
		]}}`)

	rr, ok := ExtractWinningValues(item).(models.RouletteValues)
	require.True(t, ok)

	require.NotNil(t, rr.Winner)
	assert.Equal(t, "Blue Moon", *rr.Winner)
	require.Len(t, rr.Positions, 3)
	assert.Equal(t, 1, rr.Positions[0].Position)
	assert.Equal(t, "Blue Moon", *rr.Positions[0].Name)
	assert.Equal(t, 2, rr.Positions[1].Position)
	assert.Equal(t, 3, rr.Positions[2].Position)
	assert.Equal(t, 4, rr.TotalParticipants)
	assert.Equal(t, 3, rr.TotalPositions)
	assert.Equal(t, "Roulette Dash", *rr.RaceName)
	assert.Equal(t, "HorseRacingRouletteV2", rr.GameType)
}

func TestExtractWinningValues_Generic(t *testing.T) {
	item := decode(t, `{"ID":"g1","TypeName":"SpinAndWin","Markets":[
		{"Name":"Colour","BoxingSelections":[{"FeedId":"A","IsWinner":false}]},
		{"Name":"Number","WinningSelectionDescription":"Seventeen","PlayerVsPlayerSelections":[{"FeedId":"17","IsWinner":true}]}
	]}`)

	generic, ok := ExtractWinningValues(item).(models.GenericValues)
	require.True(t, ok)

	require.NotNil(t, generic.Winner)
	assert.Equal(t, "17", *generic.Winner)
	require.NotNil(t, generic.WinningValue)
	assert.Equal(t, "Seventeen", *generic.WinningValue)
	assert.Nil(t, generic.Payout)
	assert.Equal(t, "SpinAndWin", generic.GameType)
}

func TestDetermineResultType(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.ResultType
	}{
		{"cancelled wins over finished", `{"StatusValue":4,"IsFinished":true}`, models.ResultCancelled},
		{"lower statusValue suspended", `{"statusValue":5}`, models.ResultSuspended},
		{"finished with winner selection", `{"IsFinished":true,"Markets":[{"RaceSelections":[{"IsWinner":true}]}]}`, models.ResultWinner},
		{"finished with event winner", `{"isFinished":true,"IsWinner":true}`, models.ResultWinner},
		{"finished without winners", `{"IsFinished":true,"Markets":[{"RaceSelections":[{"IsWinner":false}]}]}`, models.ResultFinished},
		{"string status ignored", `{"StatusValue":"4"}`, models.ResultUnknown},
		{"in progress", `{"IsFinished":false,"StatusValue":2}`, models.ResultUnknown},
		{"wrapped", `{"Event":{"StatusValue":4}}`, models.ResultCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineResultType(decode(t, tt.raw)))
		})
	}

	assert.Equal(t, models.ResultUnknown, DetermineResultType(nil))
}

func TestProcess(t *testing.T) {
	item := testutil.Wrap(testutil.NewKenoEvent("90-19-77", 1201, "3", "9"))

	out, ok := Process(item)
	require.True(t, ok)

	assert.Equal(t, "90-19-77", out.EventID)
	assert.Equal(t, "SmartPlayKeno", out.GameName)
	assert.Equal(t, models.ResultWinner, out.ResultType)
	require.NotNil(t, out.GameNumber)
	assert.Equal(t, int64(1201), *out.GameNumber)

	gr, err := out.GameResult()
	require.NoError(t, err)
	assert.JSONEq(t, `{"winningNumbers":["3","9"],"totalWinningNumbers":2}`, string(gr.WinningValues))
	assert.NotEmpty(t, gr.ResultData)
}

func TestProcess_MissingIdentity(t *testing.T) {
	_, ok := Process(decode(t, `{"TypeName":"MotorRacing"}`))
	assert.False(t, ok)

	_, ok = Process(decode(t, `{"ID":"x"}`))
	assert.False(t, ok)

	_, ok = Process(nil)
	assert.False(t, ok)
}

func TestHasWinningSelection(t *testing.T) {
	assert.True(t, HasWinningSelection(decode(t, `{"Markets":[{"KenoSelections":[{"IsWinner":true}]}]}`)))
	assert.False(t, HasWinningSelection(decode(t, `{"Markets":[{"KenoSelections":[{"IsWinner":"true"}]}]}`)))
	assert.False(t, HasWinningSelection(decode(t, `{"Markets":"none"}`)))
}
