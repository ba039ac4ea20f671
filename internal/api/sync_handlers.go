package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/retaildemo/feedsync/internal/scheduler"
)

func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	// Start returns after every game's first cycle, which can take longer
	// than the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.WithError(err).Warn("clear write deadline")
	}

	// Loops must outlive this request
	summary, err := s.sync.Start(s.syncCtx)
	switch {
	case errors.Is(err, scheduler.ErrAlreadyActive), errors.Is(err, scheduler.ErrNoGamesEnabled):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*scheduler.StartSummary
	}{true, summary})
}

func (s *Server) handleSyncStop(w http.ResponseWriter, r *http.Request) {
	final, err := s.sync.Stop()
	if errors.Is(err, scheduler.ErrNotActive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "auto-sync stopped",
		"finalStats": final,
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		scheduler.Status
	}{true, s.sync.Status()})
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   s.sync.Stats(),
	})
}

func (s *Server) handleSyncManual(w http.ResponseWriter, r *http.Request) {
	gameType := mux.Vars(r)["gameType"]

	report, err := s.sync.RunManual(r.Context(), gameType)
	switch {
	case errors.Is(err, scheduler.ErrUnknownGame):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrGameDisabled):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, report)
	}
}
