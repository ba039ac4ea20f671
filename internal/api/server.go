package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/internal/booking"
	"github.com/retaildemo/feedsync/internal/registry"
	"github.com/retaildemo/feedsync/internal/scheduler"
	"github.com/retaildemo/feedsync/pkg/models"
)

// DataStore is the read side of persistence served over HTTP
type DataStore interface {
	Ping(ctx context.Context) error
	ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListResults(ctx context.Context, game string, limit int) ([]models.GameResult, error)
	GetResult(ctx context.Context, eventID string) (*models.GameResult, error)
}

// Booker books and serves bet slips
type Booker interface {
	Book(ctx context.Context, betObject string) (*booking.Envelope, error)
	Get(ctx context.Context, slipID string) (*models.BetSlip, error)
	UpdateStatus(ctx context.Context, slipID, status, changedBy, reason string) (*models.StatusChange, error)
	List(ctx context.Context, filter models.BetSlipFilter) ([]models.BetSlip, error)
}

// SyncController drives auto-sync
type SyncController interface {
	Start(ctx context.Context) (*scheduler.StartSummary, error)
	Stop() (*scheduler.FinalStats, error)
	Status() scheduler.Status
	Stats() scheduler.Stats
	RunManual(ctx context.Context, gameType string) (models.CycleReport, error)
}

// Pinger checks an upstream dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamInfo is the feed configuration handed to the front end
type UpstreamInfo struct {
	SessionGUID           string   `json:"SESSION_GUID"`
	OperatorGUID          string   `json:"OPERATOR_GUID"`
	APIBase               string   `json:"API_BASE"`
	OffsetSeconds         int      `json:"OFFSET_SECONDS"`
	PrimaryMarketClassIDs []string `json:"PRIMARY_MARKET_CLASS_IDS"`
	LanguageCode          string   `json:"LANGUAGE_CODE"`
	BettingLayout         string   `json:"BETTING_LAYOUT_ENUM_VALUE"`
}

// Config groups the server's collaborators
type Config struct {
	Addr     string
	Store    DataStore
	Booking  Booker
	Sync     SyncController
	Feed     Pinger
	Games    *registry.GameRegistry
	Upstream UpstreamInfo
	Hub      *Hub
	Logger   logrus.FieldLogger

	// SyncContext outlives requests; auto-sync loops started over HTTP run under it
	SyncContext context.Context
}

// Server is the feedsync HTTP API
type Server struct {
	store    DataStore
	booking  Booker
	sync     SyncController
	feed     Pinger
	games    *registry.GameRegistry
	upstream UpstreamInfo
	hub      *Hub
	logger   logrus.FieldLogger
	syncCtx  context.Context

	upgrader   websocket.Upgrader
	handler    http.Handler
	httpServer *http.Server
	now        func() time.Time
}

// NewServer builds the router
func NewServer(cfg Config) *Server {
	s := &Server{
		store:    cfg.Store,
		booking:  cfg.Booking,
		sync:     cfg.Sync,
		feed:     cfg.Feed,
		games:    cfg.Games,
		upstream: cfg.Upstream,
		hub:      cfg.Hub,
		logger:   cfg.Logger.WithField("component", "api"),
		syncCtx:  cfg.SyncContext,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		now: time.Now,
	}
	if s.syncCtx == nil {
		s.syncCtx = context.Background()
	}

	router := mux.NewRouter()
	router.Use(s.recoverer, s.requestLogger)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/test", s.handleTest).Methods(http.MethodGet)

	router.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	router.HandleFunc("/events/{eventId}", s.handleGetEvent).Methods(http.MethodGet)

	router.HandleFunc("/booking", s.handleBooking).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.handleGames).Methods(http.MethodGet)
	api.HandleFunc("/results", s.handleListResults).Methods(http.MethodGet)
	api.HandleFunc("/results/{eventId}", s.handleGetResult).Methods(http.MethodGet)

	api.HandleFunc("/betslips", s.handleListBetSlips).Methods(http.MethodGet)
	api.HandleFunc("/betslips/{slipId}", s.handleGetBetSlip).Methods(http.MethodGet)
	api.HandleFunc("/betslips/{slipId}/status", s.handleUpdateBetSlipStatus).Methods(http.MethodPut)

	api.HandleFunc("/auto-sync/start", s.handleSyncStart).Methods(http.MethodPost)
	api.HandleFunc("/auto-sync/stop", s.handleSyncStop).Methods(http.MethodPost)
	api.HandleFunc("/auto-sync/status", s.handleSyncStatus).Methods(http.MethodGet)
	api.HandleFunc("/auto-sync/stats", s.handleSyncStats).Methods(http.MethodGet)
	api.HandleFunc("/auto-sync/manual/{gameType}", s.handleSyncManual).Methods(http.MethodPost)

	if s.hub != nil {
		router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			s.hub.serveWS(&s.upgrader, w, r)
		})
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown; it returns nil after a clean shutdown
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote":     r.RemoteAddr,
			"user_agent": r.UserAgent(),
		}).Info("request")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithFields(logrus.Fields{
					"panic": rec,
					"path":  r.URL.Path,
				}).Error("unhandled panic")
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
