// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local HTTP API for the growth planner.
//
// Endpoints:
//   - POST /api/chat           - Coach completion + quest suggestions
//   - POST /api/validate-key   - Upstream API key check
//   - GET  /health             - Health check
//   - /api/state, /api/plan, /api/quests/... - Plan state CRUD
//   - GET  /api/progress       - Points, rank, weekly completion
//   - /api/histories/...       - Per-session chat history CRUD + export
//   - /api/prefs/...           - Small user preferences
//   - /api/session/...         - Session identity
//
// The server binds to localhost only; it is the backend for the local web
// view and the CLI, not a multi-user service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/questrun/internal/config"
	"github.com/jeranaias/questrun/internal/export"
	"github.com/jeranaias/questrun/internal/history"
	"github.com/jeranaias/questrun/internal/llm"
	"github.com/jeranaias/questrun/internal/quest"
	"github.com/jeranaias/questrun/internal/session"
	"github.com/jeranaias/questrun/internal/state"
	"github.com/jeranaias/questrun/internal/suggest"
	"github.com/jeranaias/questrun/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8787

	// MaxRequestBodySize is the maximum size for request body to prevent DoS (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength is the maximum length for a chat message.
	MaxMessageLength = 100000

	// MaxTitleLength is the maximum rune count for a history title.
	MaxTitleLength = 200

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the local HTTP API server.
type Server struct {
	cfg    *config.Config
	router chi.Router
	server *http.Server

	// llmCfg is read per request and swapped on config hot-reload,
	// so it gets its own lock instead of sharing cfg.
	llmMu  sync.RWMutex
	llmCfg config.LLMConfig

	states    *state.Store
	histories *history.Store
	sessions  *session.Provider
	prefs     *state.PrefsStore

	limiter *RateLimiter
	cron    *housekeeper
}

// NewServer creates a server wired to stores under the configured data
// directory.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	states, err := state.NewStoreWithDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	histories, err := history.NewStoreWithDir(filepath.Join(dataDir, "histories"))
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	histories.MaxPerNamespace = cfg.Storage.MaxHistories

	sessions, err := session.NewProviderWithDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open session provider: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		llmCfg:    cfg.LLM,
		router:    chi.NewRouter(),
		states:    states,
		histories: histories,
		sessions:  sessions,
		prefs:     state.NewPrefsStoreWithDir(dataDir),
		limiter:   NewRateLimiter(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst),
	}

	s.setupRoutes()
	return s, nil
}

// WithStateStore sets a custom state store.
func (s *Server) WithStateStore(store *state.Store) *Server {
	s.states = store
	return s
}

// WithHistoryStore sets a custom history store.
func (s *Server) WithHistoryStore(store *history.Store) *Server {
	s.histories = store
	return s
}

// WithSessionProvider sets a custom session provider.
func (s *Server) WithSessionProvider(p *session.Provider) *Server {
	s.sessions = p
	return s
}

// WithRateLimiter sets a custom rate limiter.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.limiter = rl
	return s
}

// UpdateLLMConfig swaps the upstream gateway settings. Safe to call while
// requests are in flight; the config watcher calls this on hot-reload.
func (s *Server) UpdateLLMConfig(llmCfg config.LLMConfig) {
	s.llmMu.Lock()
	s.llmCfg = llmCfg
	s.llmMu.Unlock()
	log.Printf("LLM_CONFIG_UPDATED | model=%s base_url=%s", llmCfg.Model, llmCfg.BaseURL)
}

// llmConfig returns a snapshot of the upstream gateway settings.
func (s *Server) llmConfig() config.LLMConfig {
	s.llmMu.RLock()
	defer s.llmMu.RUnlock()
	return s.llmCfg
}

// Handler returns the routed handler without the outer middleware chain.
// Used by tests to hit routes directly.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	if s.cfg.Server.Port != 0 {
		return s.cfg.Server.Port
	}
	return DefaultPort
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/validate-key", s.handleValidateKey)

		r.Get("/state", s.handleGetState)
		r.Delete("/state", s.handleResetState)
		r.Post("/plan", s.handleInitPlan)
		r.Post("/quests", s.handleAddQuest)
		r.Post("/quests/done", s.handleToggleDone)
		r.Post("/quests/enabled", s.handleToggleEnabled)
		r.Post("/days/{day}/enabled", s.handleSetDayEnabled)
		r.Put("/theme", s.handleSetTheme)
		r.Get("/progress", s.handleProgress)

		r.Get("/histories", s.handleListHistories)
		r.Post("/histories", s.handleCreateHistory)
		r.Get("/histories/recent", s.handleRecentHistories)
		r.Get("/histories/export", s.handleExportAll)
		r.Get("/histories/{id}", s.handleGetHistory)
		r.Delete("/histories/{id}", s.handleDeleteHistory)
		r.Put("/histories/{id}/title", s.handleRenameHistory)
		r.Get("/histories/{id}/export", s.handleExportHistory)

		r.Get("/prefs/response-format", s.handleGetResponseFormat)
		r.Put("/prefs/response-format", s.handleSetResponseFormat)

		r.Get("/session", s.handleGetSession)
		r.Post("/session/reset", s.handleResetSession)
	})
}

// ============================================================================
// CHAT HANDLERS
// ============================================================================

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
	APIKey  string `json:"apiKey,omitempty"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}

// resolveKey picks the API key for an upstream call. A server-configured
// key always wins over a key supplied in the request body.
func (s *Server) resolveKey(requestKey string) string {
	if k := strings.TrimSpace(s.llmConfig().APIKey); k != "" {
		return k
	}
	return strings.TrimSpace(requestKey)
}

// newLLMClient builds a gateway client for the given key from the server
// configuration.
func (s *Server) newLLMClient(apiKey string) *llm.Client {
	llmCfg := s.llmConfig()
	return llm.NewClient(apiKey).
		WithBaseURL(llmCfg.BaseURL).
		WithModel(llmCfg.Model).
		WithTimeout(time.Duration(llmCfg.TimeoutSecs) * time.Second)
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if len(req.Message) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest, "Message too long")
		return
	}

	key := s.resolveKey(req.APIKey)
	if key == "" {
		s.writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	client := s.newLLMClient(key)
	reply, err := client.Complete(r.Context(), req.Message)
	if err != nil {
		log.Printf("CHAT_FAILED | ip=%s error=%v", GetClientIP(r), err)
		if errors.Is(err, llm.ErrKeyRejected) {
			s.writeError(w, http.StatusUnauthorized, "API key rejected")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{
		Response:    reply,
		Suggestions: suggest.Extract(reply),
	})
}

// ValidateKeyRequest is the request body for POST /api/validate-key.
type ValidateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// handleValidateKey handles POST /api/validate-key.
func (s *Server) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ValidateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		s.writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	client := s.newLLMClient(req.APIKey)
	err := client.ValidateKey(r.Context())
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	case errors.Is(err, llm.ErrKeyRejected):
		s.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"valid": false,
			"error": "API key rejected",
		})
	default:
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			// Surface the upstream status so the client can tell a bad
			// key apart from a flaky upstream.
			s.writeJSON(w, apiErr.Status, map[string]interface{}{
				"valid": false,
				"error": apiErr.Message,
			})
			return
		}
		s.writeError(w, http.StatusBadGateway, "Key validation failed")
	}
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"version":       Version,
		"llmConfigured": strings.TrimSpace(s.llmConfig().APIKey) != "",
	})
}

// ============================================================================
// STATE HANDLERS
// ============================================================================

// handleGetState handles GET /api/state.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	st, err := s.states.Load()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load state")
		return
	}
	if st == nil {
		s.writeError(w, http.StatusNotFound, "No plan exists")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// handleResetState handles DELETE /api/state.
func (s *Server) handleResetState(w http.ResponseWriter, r *http.Request) {
	if err := s.states.Reset(); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to reset state")
		return
	}
	log.Printf("STATE_RESET | ip=%s", GetClientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

// InitPlanRequest is the request body for POST /api/plan.
type InitPlanRequest struct {
	Categories []quest.CategoryKey `json:"categories"`
}

// handleInitPlan handles POST /api/plan.
func (s *Server) handleInitPlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req InitPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	st, err := s.states.InitPlan(req.Categories, time.Now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("PLAN_CREATED | categories=%d", len(req.Categories))
	s.writeJSON(w, http.StatusCreated, st)
}

// QuestToggleRequest is the request body for the quest toggle endpoints.
type QuestToggleRequest struct {
	Day     int    `json:"day"`
	QuestID string `json:"questId"`
}

// handleToggleDone handles POST /api/quests/done.
func (s *Server) handleToggleDone(w http.ResponseWriter, r *http.Request) {
	s.mutateQuest(w, r, s.states.ToggleDone)
}

// handleToggleEnabled handles POST /api/quests/enabled.
func (s *Server) handleToggleEnabled(w http.ResponseWriter, r *http.Request) {
	s.mutateQuest(w, r, s.states.ToggleEnabled)
}

// mutateQuest runs a day+questID state mutation shared by the toggle endpoints.
func (s *Server) mutateQuest(w http.ResponseWriter, r *http.Request, fn func(int, string) (*quest.AppState, error)) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req QuestToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.QuestID == "" {
		s.writeError(w, http.StatusBadRequest, "questId is required")
		return
	}

	st, err := fn(req.Day, req.QuestID)
	if err != nil {
		s.writeStateError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// SetDayEnabledRequest is the request body for POST /api/days/{day}/enabled.
type SetDayEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// handleSetDayEnabled handles POST /api/days/{day}/enabled.
func (s *Server) handleSetDayEnabled(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid day")
		return
	}

	var req SetDayEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	st, err := s.states.SetDayEnabledAll(day, req.Enabled)
	if err != nil {
		s.writeStateError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// AddQuestRequest is the request body for POST /api/quests.
type AddQuestRequest struct {
	Day      int               `json:"day"`
	Title    string            `json:"title"`
	Category quest.CategoryKey `json:"category"`
}

// handleAddQuest handles POST /api/quests.
func (s *Server) handleAddQuest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req AddQuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if !req.Category.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown category %q", req.Category))
		return
	}

	st, err := s.states.AddQuest(req.Day, strings.TrimSpace(req.Title), req.Category)
	if err != nil {
		s.writeStateError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, st)
}

// handleSetTheme handles PUT /api/theme.
func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var theme quest.Theme
	if err := json.NewDecoder(r.Body).Decode(&theme); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	st, err := s.states.SetTheme(theme)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to save theme")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// ProgressResponse is the response body for GET /api/progress.
type ProgressResponse struct {
	quest.Progress
	TodayIndex int `json:"todayIndex"`
}

// handleProgress handles GET /api/progress.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	st, err := s.states.Load()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load state")
		return
	}
	if st == nil {
		s.writeError(w, http.StatusNotFound, "No plan exists")
		return
	}

	s.writeJSON(w, http.StatusOK, ProgressResponse{
		Progress:   quest.CalculateProgress(st.Plans),
		TodayIndex: quest.TodayIndex(st.CreatedAt, time.Now()),
	})
}

// writeStateError maps state store errors onto HTTP statuses.
func (s *Server) writeStateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrNoPlan):
		s.writeError(w, http.StatusNotFound, "No plan exists")
	case errors.Is(err, state.ErrDayOutOfRange):
		s.writeError(w, http.StatusBadRequest, "Day out of range")
	default:
		s.writeError(w, http.StatusInternalServerError, "State update failed")
	}
}

// ============================================================================
// HISTORY HANDLERS
// ============================================================================

// namespace resolves the history namespace for a request: the X-Session-Id
// header when present, the server's own session otherwise.
func (s *Server) namespace(r *http.Request) (string, error) {
	if ns := strings.TrimSpace(r.Header.Get("X-Session-Id")); ns != "" {
		return ns, nil
	}
	return s.sessions.Current()
}

// handleListHistories handles GET /api/histories.
func (s *Server) handleListHistories(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	list, err := s.histories.List(ns)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list histories")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleRecentHistories handles GET /api/histories/recent?limit=.
func (s *Server) handleRecentHistories(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := s.histories.Recent(ns, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list histories")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// CreateHistoryRequest is the request body for POST /api/histories.
type CreateHistoryRequest struct {
	Messages []history.Message `json:"messages"`
}

// handleCreateHistory handles POST /api/histories.
func (s *Server) handleCreateHistory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	var req CreateHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	h, err := s.histories.Create(ns, req.Messages)
	if err != nil {
		if errors.Is(err, history.ErrTooFewMessages) {
			s.writeError(w, http.StatusBadRequest, "Conversation too short to save")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to save history")
		return
	}
	s.writeJSON(w, http.StatusCreated, h)
}

// handleGetHistory handles GET /api/histories/{id}.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	h, err := s.histories.Get(ns, chi.URLParam(r, "id"))
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

// handleDeleteHistory handles DELETE /api/histories/{id}.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	if err := s.histories.Remove(ns, chi.URLParam(r, "id")); err != nil {
		s.writeHistoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameHistoryRequest is the request body for PUT /api/histories/{id}/title.
type RenameHistoryRequest struct {
	Title string `json:"title"`
}

// handleRenameHistory handles PUT /api/histories/{id}/title.
func (s *Server) handleRenameHistory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	var req RenameHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if util.RuneLen(req.Title) > MaxTitleLength {
		s.writeError(w, http.StatusBadRequest, "Title too long")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.histories.RenameTitle(ns, id, req.Title); err != nil {
		if errors.Is(err, history.ErrEmptyTitle) {
			s.writeError(w, http.StatusBadRequest, "Title must not be empty")
			return
		}
		s.writeHistoryError(w, err)
		return
	}

	h, err := s.histories.Get(ns, id)
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

// ExportedHistory is a single exported conversation as a downloadable
// attachment: the client writes Content to a file named Filename.
type ExportedHistory struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

// exporterFor picks the exporter for an export request. Defaults to markdown.
func exporterFor(format string) (export.Exporter, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return export.NewMarkdownExporter(nil), nil
	case "json":
		return export.NewJSONExporter(nil), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// handleExportHistory handles GET /api/histories/{id}/export?format=.
func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	exporter, err := exporterFor(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h, err := s.histories.Get(ns, chi.URLParam(r, "id"))
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}

	data, err := exporter.Export(h)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	s.writeJSON(w, http.StatusOK, ExportedHistory{
		Filename: export.Filename(h, exporter.FileExtension()),
		MimeType: exporter.MimeType(),
		Content:  string(data),
	})
}

// handleExportAll handles GET /api/histories/export?format=.
func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	ns, err := s.namespace(r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}

	exporter, err := exporterFor(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.histories.List(ns)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list histories")
		return
	}

	out := make([]ExportedHistory, 0, len(list))
	for i := range list {
		h := &list[i]
		data, err := exporter.Export(h)
		if err != nil {
			continue // skip unexportable entries, keep the rest
		}
		out = append(out, ExportedHistory{
			Filename: export.Filename(h, exporter.FileExtension()),
			MimeType: exporter.MimeType(),
			Content:  string(data),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// writeHistoryError maps history store errors onto HTTP statuses.
func (s *Server) writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrHistoryNotFound) {
		s.writeError(w, http.StatusNotFound, "History not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, "History operation failed")
}

// ============================================================================
// PREFS HANDLERS
// ============================================================================

// handleGetResponseFormat handles GET /api/prefs/response-format.
func (s *Server) handleGetResponseFormat(w http.ResponseWriter, r *http.Request) {
	p, err := s.prefs.Load()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load preferences")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"format": p.ResponseFormat})
}

// SetResponseFormatRequest is the request body for PUT /api/prefs/response-format.
type SetResponseFormatRequest struct {
	Format string `json:"format"`
}

// handleSetResponseFormat handles PUT /api/prefs/response-format.
func (s *Server) handleSetResponseFormat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req SetResponseFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if !state.ValidResponseFormat(req.Format) {
		s.writeError(w, http.StatusBadRequest, "Format must be 'bullets' or 'freeform'")
		return
	}

	if err := s.prefs.Save(&state.Prefs{ResponseFormat: req.Format}); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"format": req.Format})
}

// ============================================================================
// SESSION HANDLERS
// ============================================================================

// handleGetSession handles GET /api/session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Current()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to resolve session")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

// handleResetSession handles POST /api/session/reset.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.Reset()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}
	log.Printf("SESSION_RESET | ip=%s", GetClientIP(r))
	s.writeJSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and the housekeeping scheduler. Blocks until
// the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.Port())

	cors := DefaultCORSConfig()
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		cors.AllowedOrigins = s.cfg.Server.AllowedOrigins
	}

	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(s.limiter),
		CORSMiddleware(cors),
	)(s.router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.cron = newHousekeeper(s)
	s.cron.start()

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and the scheduler.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cron != nil {
		s.cron.stop()
	}
	if s.server == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    status,
		},
	})
}
