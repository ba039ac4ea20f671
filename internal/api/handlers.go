package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/retaildemo/feedsync/internal/normalize"
	"github.com/retaildemo/feedsync/internal/store"
	"github.com/retaildemo/feedsync/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": s.now().UTC(),
	})
}

// handleTest checks the database and the upstream feed
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	status := func(err error, dep string) string {
		if err != nil {
			s.logger.WithError(err).WithField("dependency", dep).Warn("connection test failed")
			return "error"
		}
		return "connected"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"database":  status(s.store.Ping(r.Context()), "database"),
		"api":       status(s.feed.Ping(r.Context()), "upstream"),
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter models.EventFilter

	if v := q.Get("from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		filter.To = &t
	}
	if v := q.Get("finished"); v != "" {
		finished := v == "true" || v == "1"
		filter.Finished = &finished
	}
	filter.Limit = queryInt(r, "limit", 0)

	events, err := s.store.ListEvents(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("list events")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(events),
		"events":  events,
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	ev, err := s.store.GetEvent(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Error("get event")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"event":   ev,
		"raw":     ev.RawPayload,
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	enabled := s.games.Enabled()

	var current *models.GameConfig
	if len(enabled) > 0 {
		current = &enabled[0]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"games":       enabled,
		"currentGame": current,
		"defaults":    s.upstream,
	})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")

	results, err := s.store.ListResults(r.Context(), game, queryInt(r, "limit", 0))
	if err != nil {
		s.logger.WithError(err).Error("list results")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	result, err := s.store.GetResult(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Result not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Error("get result")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"result":  result,
	})
}

// parseTime accepts RFC 3339, zone-less timestamps and dates (read as UTC)
// and the feed's "YYYY/MM/DD HH:mm:ss"
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, ok := normalize.ParseSlashDate(v); ok {
		return t, nil
	}
	for _, layout := range []string{time.DateTime, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
