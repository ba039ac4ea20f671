package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/internal/store"
	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	redeemCodeLength   = 8
	redeemCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	invalidStakeMessage = "Invalid stake amount"
	someFailedMessage   = "Some bets failed"
)

var (
	// ErrMalformedInput is returned when the submission cannot be decoded
	ErrMalformedInput = errors.New("invalid bet object format")
	// ErrBetSlipNotFound is returned for an unknown slip id
	ErrBetSlipNotFound = errors.New("bet slip not found")
	// ErrStatusRequired is returned when a status update names no status
	ErrStatusRequired = errors.New("status is required")
)

// SlipStore is the persistence the booking service needs
type SlipStore interface {
	CreateBetSlip(ctx context.Context, slip models.BetSlip, selections []models.Selection) error
	GetBetSlip(ctx context.Context, slipID string) (*models.BetSlip, error)
	UpdateBetSlipStatus(ctx context.Context, slipID, status, changedBy, reason string) (*models.StatusChange, error)
	ListBetSlips(ctx context.Context, filter models.BetSlipFilter) ([]models.BetSlip, error)
}

// Service books bet slips and serves them back
type Service struct {
	store  SlipStore
	logger logrus.FieldLogger

	newID      func() string
	redeemCode func() string
	now        func() time.Time
}

// NewService creates a booking service
func NewService(store SlipStore, logger logrus.FieldLogger) *Service {
	return &Service{
		store:      store,
		logger:     logger.WithField("component", "booking"),
		newID:      uuid.NewString,
		redeemCode: generateRedeemCode,
		now:        time.Now,
	}
}

func generateRedeemCode() string {
	var b strings.Builder
	b.Grow(redeemCodeLength)
	for i := 0; i < redeemCodeLength; i++ {
		b.WriteByte(redeemCodeAlphabet[rand.Intn(len(redeemCodeAlphabet))])
	}
	return b.String()
}

// Book decodes a submitted bet object, stores the slip with all of its legs
// and then validates each leg. Legs that fail validation are still stored.
func (s *Service) Book(ctx context.Context, betObject string) (*Envelope, error) {
	var obj BetObject
	if err := json.Unmarshal([]byte(betObject), &obj); err != nil {
		s.logger.WithError(err).WithField("length", len(betObject)).Warn("failed to parse bet object")
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(obj.SingleBets) == 0 {
		return nil, fmt.Errorf("%w: no single bets", ErrMalformedInput)
	}

	slipID := s.newID()
	code := s.redeemCode()
	log := s.logger.WithFields(logrus.Fields{
		"slip_id":     slipID,
		"redeem_code": code,
	})

	slip, selections := s.buildSlip(obj, slipID, code, json.RawMessage(betObject))
	if err := s.store.CreateBetSlip(ctx, slip, selections); err != nil {
		log.WithError(err).Error("failed to store bet slip")
		return nil, fmt.Errorf("store bet slip: %w", err)
	}

	env := &Envelope{Content: emptyContent()}
	env.Content.ID = &slipID
	env.Content.RedeemCode = &code

	for i, bet := range obj.SingleBets {
		id := firstNonEmpty(string(bet.ID), fmt.Sprintf("bet_%d", i))
		if bet.Stake.IsPositive() {
			env.Content.ValidBets = append(env.Content.ValidBets, BetOutcome{ID: id})
			continue
		}
		failed := BetOutcome{ID: id, HasErrorOccured: true, ErrorMessage: invalidStakeMessage}
		env.Content.FailedBets = append(env.Content.FailedBets, failed)
		env.Content.ValidBets = append(env.Content.ValidBets, failed)
	}
	for i := range obj.MultiGroups {
		env.Content.Multiples = append(env.Content.Multiples, MultiOutcome{Level: i + 1})
	}
	if len(env.Content.FailedBets) > 0 {
		msg := someFailedMessage
		env.StatusCode = 1
		env.Error = &msg
	}

	log.WithFields(logrus.Fields{
		"legs":   len(obj.SingleBets),
		"failed": len(env.Content.FailedBets),
	}).Info("bet slip booked")
	return env, nil
}

func (s *Service) buildSlip(obj BetObject, slipID, code string, raw json.RawMessage) (models.BetSlip, []models.Selection) {
	info := firstLegEvent(obj.SingleBets[0])

	selections := make([]models.Selection, len(obj.SingleBets))
	totalStake := decimal.Zero
	totalWin := decimal.Zero
	for i, bet := range obj.SingleBets {
		selections[i] = selection(bet)
		selections[i].SlipID = slipID
		totalStake = totalStake.Add(bet.Stake)
		totalWin = totalWin.Add(selections[i].PotentialWin)
	}

	slip := models.BetSlip{
		SlipID:            slipID,
		SessionGUID:       string(obj.SessionGUID),
		BetslipTypeValue:  orOne(int(obj.BetslipTypeValue)),
		EventID:           info.eventID,
		GameName:          info.gameName,
		GameNumber:        info.gameNumber,
		GameTypeValue:     info.gameTypeValue,
		TotalStake:        totalStake,
		TotalPotentialWin: totalWin,
		GlobalSingleStake: orDecimal(obj.GlobalSingleStake, totalStake),
		Status:            models.BetSlipPending,
		RedeemCode:        code,
		RawPayload:        raw,
		PlacedAt:          s.now(),
		FromPendingBet:    bool(obj.FromPendingBet),
		RetailerGUID:      string(obj.RetailerGUID),
		IsSSBTRetailer:    bool(obj.IsSSBTRetailer),
	}
	if obj.CustomerID != "" {
		id := string(obj.CustomerID)
		slip.CustomerID = &id
	}
	if obj.ShopID != "" {
		id := string(obj.ShopID)
		slip.ShopID = &id
	}
	return slip, selections
}

// Get returns a slip with its selections and history
func (s *Service) Get(ctx context.Context, slipID string) (*models.BetSlip, error) {
	slip, err := s.store.GetBetSlip(ctx, slipID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBetSlipNotFound
	}
	return slip, err
}

// UpdateStatus moves a slip to a new status and records the change.
// changedBy defaults to "system".
func (s *Service) UpdateStatus(ctx context.Context, slipID, status, changedBy, reason string) (*models.StatusChange, error) {
	if status == "" {
		return nil, ErrStatusRequired
	}
	if changedBy == "" {
		changedBy = "system"
	}

	change, err := s.store.UpdateBetSlipStatus(ctx, slipID, status, changedBy, reason)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBetSlipNotFound
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"slip_id":    slipID,
		"status":     status,
		"changed_by": changedBy,
	}).Info("bet slip status updated")
	return change, nil
}

// List returns recent slips, optionally narrowed to one status
func (s *Service) List(ctx context.Context, filter models.BetSlipFilter) ([]models.BetSlip, error) {
	return s.store.ListBetSlips(ctx, filter)
}
