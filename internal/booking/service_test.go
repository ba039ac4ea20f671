package booking

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retaildemo/feedsync/internal/store"
	"github.com/retaildemo/feedsync/pkg/models"
)

type fakeSlipStore struct {
	createErr  error
	slip       models.BetSlip
	selections []models.Selection

	getErr    error
	updateErr error
	updated   []string
}

func (f *fakeSlipStore) CreateBetSlip(ctx context.Context, slip models.BetSlip, selections []models.Selection) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.slip = slip
	f.selections = selections
	return nil
}

func (f *fakeSlipStore) GetBetSlip(ctx context.Context, slipID string) (*models.BetSlip, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.BetSlip{SlipID: slipID}, nil
}

func (f *fakeSlipStore) UpdateBetSlipStatus(ctx context.Context, slipID, status, changedBy, reason string) (*models.StatusChange, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, status+"/"+changedBy)
	return &models.StatusChange{SlipID: slipID, StatusTo: status, ChangedBy: changedBy, Reason: reason}, nil
}

func (f *fakeSlipStore) ListBetSlips(ctx context.Context, filter models.BetSlipFilter) ([]models.BetSlip, error) {
	return []models.BetSlip{{SlipID: "a", Status: filter.Status}}, nil
}

const kenoBet = `{
	"SessionGuid": "chbera",
	"BetslipTypeValue": 1,
	"SingleBets": [
		{
			"_id": 2,
			"ID": "leg-1",
			"FeedEventId": "90-19-1629319",
			"DisplayDescription": "1,2",
			"SelectionId": "1,2",
			"EventNumber": "63138",
			"Event": {"Type": {"Value": 19, "Name": "SmartPlayKeno"}},
			"MarketClass": {"Value": 119, "Name": "KenoWin", "Display": "Win"},
			"Stake": 10,
			"Odds": 15,
			"PotentialWin": 150,
			"EventStartDateTime": "2025-01-28T15:30:00Z"
		},
		{
			"_id": 3,
			"FeedEventId": "90-19-1629319",
			"SelectionIds": ["4", 5, ""],
			"Stake": 0,
			"Odds": 2.5
		}
	],
	"MultiGroups": [{}, {}],
	"CustomerId": "test_customer_123"
}`

func newTestService(st SlipStore) *Service {
	logger, _ := test.NewNullLogger()
	svc := NewService(st, logger)
	svc.newID = func() string { return "c0a8012e-0000-4000-8000-000000000001" }
	svc.redeemCode = func() string { return "ABCD1234" }
	svc.now = func() time.Time { return time.Date(2025, 1, 28, 15, 29, 0, 0, time.UTC) }
	return svc
}

func TestBook_StoresThenValidates(t *testing.T) {
	st := &fakeSlipStore{}
	svc := newTestService(st)

	env, err := svc.Book(context.Background(), kenoBet)
	require.NoError(t, err)

	assert.Equal(t, 1, env.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Some bets failed", *env.Error)
	assert.Nil(t, env.Warning)
	assert.Equal(t, "c0a8012e-0000-4000-8000-000000000001", *env.Content.ID)
	assert.Equal(t, "ABCD1234", *env.Content.RedeemCode)

	failed := BetOutcome{ID: "bet_1", HasErrorOccured: true, ErrorMessage: "Invalid stake amount"}
	assert.Equal(t, []BetOutcome{failed}, env.Content.FailedBets)
	assert.Equal(t, []BetOutcome{{ID: "leg-1"}, failed}, env.Content.ValidBets)
	assert.Empty(t, env.Content.ExpiredBets)
	assert.Equal(t, []MultiOutcome{{Level: 1}, {Level: 2}}, env.Content.Multiples)
	assert.Equal(t, 30, env.Content.PendingRefreshPeriod)

	// both legs were stored, including the one that failed validation
	require.Len(t, st.selections, 2)
	slip := st.slip
	assert.Equal(t, models.BetSlipPending, slip.Status)
	assert.Equal(t, "chbera", slip.SessionGUID)
	assert.Equal(t, "SmartPlayKeno", slip.GameName)
	require.NotNil(t, slip.EventID)
	assert.Equal(t, "90-19-1629319", *slip.EventID)
	require.NotNil(t, slip.GameNumber)
	assert.Equal(t, int64(63138), *slip.GameNumber)
	require.NotNil(t, slip.GameTypeValue)
	assert.Equal(t, 19, *slip.GameTypeValue)
	assert.True(t, decimal.NewFromInt(10).Equal(slip.TotalStake))
	assert.True(t, decimal.NewFromInt(150).Equal(slip.TotalPotentialWin))
	assert.True(t, slip.TotalStake.Equal(slip.GlobalSingleStake))
	require.NotNil(t, slip.CustomerID)
	assert.Nil(t, slip.ShopID)
	assert.JSONEq(t, kenoBet, string(slip.RawPayload))
}

func TestBook_SelectionDefaults(t *testing.T) {
	st := &fakeSlipStore{}
	svc := newTestService(st)

	_, err := svc.Book(context.Background(), kenoBet)
	require.NoError(t, err)

	first := st.selections[0]
	assert.Equal(t, "2", first.BetID)
	assert.Equal(t, []string{"1,2"}, first.SelectionIDs)
	assert.Equal(t, 119, first.MarketClassValue)
	assert.Equal(t, "KenoWin", first.MarketClassName)
	assert.Equal(t, "Win", first.MarketClassDisplay)
	assert.True(t, decimal.NewFromInt(15).Equal(first.MinOdds))
	assert.Equal(t, 1, first.BetTypeValue)
	assert.Equal(t, 1, first.NumberOfCombinations)
	require.NotNil(t, first.EventStartDateTime)
	assert.Equal(t, 2025, first.EventStartDateTime.Year())

	second := st.selections[1]
	assert.Equal(t, "3", second.BetID)
	assert.Equal(t, []string{"4", "5"}, second.SelectionIDs)
	assert.Equal(t, "Unknown", second.MarketClassName)
	assert.True(t, second.PotentialWin.IsZero())
	assert.Nil(t, second.ComboSelections)
	assert.Equal(t, "c0a8012e-0000-4000-8000-000000000001", second.SlipID)
}

func TestBook_AllLegsValid(t *testing.T) {
	svc := newTestService(&fakeSlipStore{})

	env, err := svc.Book(context.Background(),
		`{"SingleBets":[{"ID":"a","FeedEventId":"90-6-1","EventNumber":7,"Stake":"2.50","Odds":3}]}`)
	require.NoError(t, err)

	assert.Equal(t, 0, env.StatusCode)
	assert.Nil(t, env.Error)
	assert.Empty(t, env.Content.FailedBets)
	assert.Equal(t, []BetOutcome{{ID: "a"}}, env.Content.ValidBets)
	assert.Empty(t, env.Content.Multiples)
}

func TestBook_MalformedInput(t *testing.T) {
	st := &fakeSlipStore{}
	svc := newTestService(st)

	for _, raw := range []string{"", "not json", `{"SingleBets": "x"}`, `{"SingleBets": []}`} {
		_, err := svc.Book(context.Background(), raw)
		assert.ErrorIs(t, err, ErrMalformedInput, raw)
	}
	assert.Empty(t, st.selections)
}

func TestBook_StorageFailure(t *testing.T) {
	svc := newTestService(&fakeSlipStore{createErr: store.ErrDuplicateSlip})

	env, err := svc.Book(context.Background(), kenoBet)
	assert.Nil(t, env)
	assert.ErrorIs(t, err, store.ErrDuplicateSlip)
	assert.NotErrorIs(t, err, ErrMalformedInput)
}

func TestFirstLegEvent(t *testing.T) {
	tests := []struct {
		name      string
		bet       string
		wantName  string
		wantType  *int
		wantRound *int64
	}{
		{"mapped type value", `{"FeedEventId":"90-6-100","EventNumber":"12"}`, "MotorRacing", intp(6), int64p(12)},
		{"unmapped type value", `{"FeedEventId":"90-2-100"}`, "Unknown", intp(2), nil},
		{"short id", `{"FeedEventId":"100"}`, "Unknown", nil, nil},
		{"lowercase nested type wins", `{"FeedEventId":"90-6-1","Event":{"type":{"name":"Custom","value":42}}}`, "Custom", intp(42), nil},
		{"category enum fallback", `{"Event":{"type":{"eventTypeCategoryEnum":"Keno"}}}`, "Keno", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bet SingleBet
			require.NoError(t, json.Unmarshal([]byte(tt.bet), &bet))

			info := firstLegEvent(bet)
			assert.Equal(t, tt.wantName, info.gameName)
			assert.Equal(t, tt.wantType, info.gameTypeValue)
			assert.Equal(t, tt.wantRound, info.gameNumber)
		})
	}
}

func TestGenerateRedeemCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, generateRedeemCode())
	}
}

func TestUpdateStatus(t *testing.T) {
	st := &fakeSlipStore{}
	svc := newTestService(st)

	_, err := svc.UpdateStatus(context.Background(), "a", "", "", "")
	assert.ErrorIs(t, err, ErrStatusRequired)

	change, err := svc.UpdateStatus(context.Background(), "a", "won", "", "settled")
	require.NoError(t, err)
	assert.Equal(t, "system", change.ChangedBy)
	assert.Equal(t, []string{"won/system"}, st.updated)

	st.updateErr = store.ErrNotFound
	_, err = svc.UpdateStatus(context.Background(), "missing", "won", "operator", "")
	assert.ErrorIs(t, err, ErrBetSlipNotFound)
}

func TestGet(t *testing.T) {
	st := &fakeSlipStore{}
	svc := newTestService(st)

	slip, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", slip.SlipID)

	st.getErr = store.ErrNotFound
	_, err = svc.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrBetSlipNotFound)

	st.getErr = errors.New("connection reset")
	_, err = svc.Get(context.Background(), "a")
	assert.EqualError(t, err, "connection reset")
}

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }
