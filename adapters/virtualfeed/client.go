package virtualfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retaildemo/feedsync/internal/normalize"
	"github.com/retaildemo/feedsync/pkg/contracts"
	"github.com/retaildemo/feedsync/pkg/models"
)

const (
	userAgent      = "feedsync/1.0"
	defaultTimeout = 30 * time.Second

	eventsByTypePath = "/Home/GetEventsByType"
	eventDetailPath  = "/Home/GetEventDetail"
)

// Config holds the upstream connection settings
type Config struct {
	BaseURL               string
	SessionGUID           string
	OperatorGUID          string
	OffsetSeconds         int
	LanguageCode          string
	BettingLayout         string
	PrimaryMarketClassIDs []string
	ExtraHeaders          map[string]string
	Timeout               time.Duration
}

// Client implements the FeedAdapter interface for the virtual sports feed
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Ensure Client implements FeedAdapter
var _ contracts.FeedAdapter = (*Client)(nil)

// NewClient creates a new upstream feed client
func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en"
	}
	if cfg.BettingLayout == "" {
		cfg.BettingLayout = "1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.WithField("component", "virtualfeed"),
	}
}

// FetchEventsByType lists the current rounds of one game
func (c *Client) FetchEventsByType(ctx context.Context, game models.GameConfig) ([]map[string]any, error) {
	req := eventsByTypeRequest{
		SessionGUID:            c.cfg.SessionGUID,
		OperatorGUID:           c.cfg.OperatorGUID,
		Name:                   game.TypeName,
		FeedID:                 game.FeedID,
		UserInitiated:          true,
		Offset:                 c.cfg.OffsetSeconds,
		LanguageCode:           c.cfg.LanguageCode,
		BettingLayoutEnumValue: c.cfg.BettingLayout,
		PrimaryMarketClassIDs:  c.marketClassIDs(),
		NextEventCount:         "",
	}

	body, err := c.post(ctx, eventsByTypePath, req)
	if err != nil {
		return nil, fmt.Errorf("fetch events by type %s: %w", game.TypeName, err)
	}

	decoded, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("parse events response: %w", err)
	}

	items := normalize.Items(decoded)
	c.logger.WithFields(logrus.Fields{
		"game":  game.TypeName,
		"items": len(items),
	}).Debug("fetched events by type")

	return items, nil
}

// FetchEventDetail returns the full detail object of one round
func (c *Client) FetchEventDetail(ctx context.Context, eventID string) (map[string]any, error) {
	req := eventDetailRequest{
		ID:                     eventID,
		UserInitiated:          false,
		Offset:                 c.cfg.OffsetSeconds,
		LanguageCode:           c.cfg.LanguageCode,
		ExcludePlayerDetails:   true,
		BettingLayoutEnumValue: c.cfg.BettingLayout,
		PrimaryMarketClassIDs:  c.marketClassIDs(),
	}

	body, err := c.post(ctx, eventDetailPath, req)
	if err != nil {
		return nil, fmt.Errorf("fetch event detail %s: %w", eventID, err)
	}

	decoded, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("parse event detail: %w", err)
	}

	detail, ok := normalize.Map(decoded)
	if !ok {
		return nil, fmt.Errorf("event detail %s: unexpected response shape", eventID)
	}
	return detail, nil
}

// Ping checks that the upstream base URL answers
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func (c *Client) marketClassIDs() []string {
	if c.cfg.PrimaryMarketClassIDs == nil {
		return []string{}
	}
	return c.cfg.PrimaryMarketClassIDs
}

// post performs a single JSON POST; there are no retries
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(logrus.Fields{
		"path": path,
		"body": redact(payload),
	}).Debug("upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}
}

// decode parses a response body keeping numbers as json.Number
func decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// redact returns a loggable copy of a request body with credentials masked
func redact(payload any) any {
	switch p := payload.(type) {
	case eventsByTypeRequest:
		p.SessionGUID = mask(p.SessionGUID)
		p.OperatorGUID = mask(p.OperatorGUID)
		return p
	default:
		return payload
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// HTTPError represents a non-2xx upstream response
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Request bodies matching the upstream JSON format

type eventsByTypeRequest struct {
	SessionGUID            string   `json:"sessionGuid"`
	OperatorGUID           string   `json:"operatorGuid"`
	Name                   string   `json:"name"`
	FeedID                 int      `json:"feedId"`
	UserInitiated          bool     `json:"userInitiated"`
	Offset                 int      `json:"offset"`
	LanguageCode           string   `json:"languageCode"`
	BettingLayoutEnumValue string   `json:"bettingLayoutEnumValue"`
	PrimaryMarketClassIDs  []string `json:"primaryMarketClassIds"`
	NextEventCount         string   `json:"nextEventCount"`
}

type eventDetailRequest struct {
	ID                     string   `json:"id"`
	UserInitiated          bool     `json:"userInitiated"`
	Offset                 int      `json:"offset"`
	LanguageCode           string   `json:"languageCode"`
	ExcludePlayerDetails   bool     `json:"excludePlayerDetails"`
	BettingLayoutEnumValue string   `json:"bettingLayoutEnumValue"`
	PrimaryMarketClassIDs  []string `json:"primaryMarketClassIds"`
}
