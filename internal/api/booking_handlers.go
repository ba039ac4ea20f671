package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/retaildemo/feedsync/internal/booking"
	"github.com/retaildemo/feedsync/pkg/models"
)

const maxBookingBody = 10 << 20

type bookingRequest struct {
	BetObject string `json:"BetObject"`
}

// handleBooking answers in the front end's envelope format on every path
func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookingBody)).Decode(&req); err != nil {
		s.logger.WithError(err).Warn("decode booking request")
		writeJSON(w, http.StatusBadRequest, booking.FailureEnvelope("Invalid bet object format"))
		return
	}

	env, err := s.booking.Book(r.Context(), req.BetObject)
	switch {
	case errors.Is(err, booking.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, booking.FailureEnvelope("Invalid bet object format"))
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, booking.FailureEnvelope("Internal server error"))
	default:
		writeJSON(w, http.StatusOK, env)
	}
}

func (s *Server) handleGetBetSlip(w http.ResponseWriter, r *http.Request) {
	slipID := mux.Vars(r)["slipId"]

	slip, err := s.booking.Get(r.Context(), slipID)
	if errors.Is(err, booking.ErrBetSlipNotFound) {
		writeError(w, http.StatusNotFound, "Bet slip not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("slip_id", slipID).Error("get bet slip")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"betSlip": slip,
	})
}

type statusUpdateRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changedBy"`
	Reason    string `json:"reason"`
}

func (s *Server) handleUpdateBetSlipStatus(w http.ResponseWriter, r *http.Request) {
	slipID := mux.Vars(r)["slipId"]

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	change, err := s.booking.UpdateStatus(r.Context(), slipID, req.Status, req.ChangedBy, req.Reason)
	switch {
	case errors.Is(err, booking.ErrStatusRequired):
		writeError(w, http.StatusBadRequest, "Status is required")
	case errors.Is(err, booking.ErrBetSlipNotFound):
		writeError(w, http.StatusNotFound, "Bet slip not found")
	case err != nil:
		s.logger.WithError(err).WithField("slip_id", slipID).Error("update bet slip status")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"result":  change,
		})
	}
}

func (s *Server) handleListBetSlips(w http.ResponseWriter, r *http.Request) {
	filter := models.BetSlipFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 0),
	}

	slips, err := s.booking.List(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("list bet slips")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(slips),
		"betSlips": slips,
	})
}
