// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/questrun/internal/config"
	"github.com/jeranaias/questrun/internal/history"
	"github.com/jeranaias/questrun/internal/quest"
	"github.com/jeranaias/questrun/internal/state"
)

// newTestServer builds a server backed by a temp data directory. The
// upstream base URL points at upstreamURL when given.
func newTestServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	if upstreamURL != "" {
		cfg.LLM.BaseURL = upstreamURL
	}

	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

// ============================================================================
// HEALTH
// ============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")

	w := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["llmConfigured"])
}

// ============================================================================
// CHAT + KEY VALIDATION
// ============================================================================

func fakeUpstream(t *testing.T, wantKey string, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/models":
			fmt.Fprint(w, `{"object":"list","data":[]}`)
		case "/chat/completions":
			resp := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": reply}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestChat_WithRequestKey(t *testing.T) {
	upstream := fakeUpstream(t, "sk-req", "Try this:\n- Walk daily\n- Read more")
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat",
		map[string]string{"message": "help", "apiKey": "sk-req"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[ChatResponse](t, w)
	assert.Contains(t, body.Response, "Walk daily")
	assert.Equal(t, []string{"Walk daily", "Read more"}, body.Suggestions)
}

func TestChat_ServerKeyWins(t *testing.T) {
	// Upstream only accepts the server key; request key would 401.
	upstream := fakeUpstream(t, "sk-server", "ok")
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	llmCfg := s.llmConfig()
	llmCfg.APIKey = "sk-server"
	s.UpdateLLMConfig(llmCfg)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat",
		map[string]string{"message": "help", "apiKey": "sk-wrong"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// Hot-reload swaps the LLM settings while requests are in flight; both
// sides must go through the server's lock.
func TestUpdateLLMConfig_ConcurrentWithChat(t *testing.T) {
	upstream := fakeUpstream(t, "sk-server", "ok")
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	base := s.llmConfig()
	base.APIKey = "sk-server"
	s.UpdateLLMConfig(base)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			next := base
			next.Model = fmt.Sprintf("model-%d", i)
			s.UpdateLLMConfig(next)
		}
	}()

	for i := 0; i < 50; i++ {
		w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat",
			map[string]string{"message": "help"})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	<-done

	assert.Equal(t, "model-199", s.llmConfig().Model)
}

func TestChat_MissingMessage(t *testing.T) {
	s := newTestServer(t, "")
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"apiKey": "sk-x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_MissingKey(t *testing.T) {
	s := newTestServer(t, "")
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/chat", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateKey(t *testing.T) {
	upstream := fakeUpstream(t, "sk-good", "")
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/validate-key", map[string]string{"apiKey": "sk-good"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]interface{}](t, w)["valid"])

	w = doJSON(t, s.Handler(), http.MethodPost, "/api/validate-key", map[string]string{"apiKey": "sk-bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s.Handler(), http.MethodPost, "/api/validate-key", map[string]string{"apiKey": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateKey_UpstreamStatusPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error":{"message":"down"}}`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/validate-key", map[string]string{"apiKey": "sk-x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ============================================================================
// STATE
// ============================================================================

func TestStateLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	// No plan yet.
	w := doJSON(t, h, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Create a plan.
	w = doJSON(t, h, http.MethodPost, "/api/plan",
		map[string][]string{"categories": {"exercise", "learning"}})
	require.Equal(t, http.StatusCreated, w.Code)

	st := decode[quest.AppState](t, w)
	require.Len(t, st.Plans, 7)
	require.NotEmpty(t, st.Plans[0].Quests)

	// Toggle the first quest done.
	first := st.Plans[0].Quests[0]
	w = doJSON(t, h, http.MethodPost, "/api/quests/done",
		map[string]interface{}{"day": 1, "questId": first.ID})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[quest.AppState](t, w)
	assert.True(t, updated.Plans[0].Quests[0].Done)

	// Progress now reflects 10 points.
	w = doJSON(t, h, http.MethodGet, "/api/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	prog := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(10), prog["basePoints"])

	// Reset removes everything.
	w = doJSON(t, h, http.MethodDelete, "/api/state", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitPlan_BadCategories(t *testing.T) {
	s := newTestServer(t, "")

	w := doJSON(t, s.Handler(), http.MethodPost, "/api/plan",
		map[string][]string{"categories": {}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s.Handler(), http.MethodPost, "/api/plan",
		map[string][]string{"categories": {"yodeling"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggle_WithoutPlan(t *testing.T) {
	s := newTestServer(t, "")
	w := doJSON(t, s.Handler(), http.MethodPost, "/api/quests/done",
		map[string]interface{}{"day": 1, "questId": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetDayEnabled(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/api/plan", map[string][]string{"categories": {"habit"}})

	w := doJSON(t, h, http.MethodPost, "/api/days/3/enabled", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[quest.AppState](t, w)
	for _, q := range st.Plans[2].Quests {
		assert.False(t, q.Enabled)
		assert.False(t, q.Done)
	}

	// Day out of range.
	w = doJSON(t, h, http.MethodPost, "/api/days/9/enabled", map[string]bool{"enabled": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddQuest(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	doJSON(t, h, http.MethodPost, "/api/plan", map[string][]string{"categories": {"habit"}})

	w := doJSON(t, h, http.MethodPost, "/api/quests",
		map[string]interface{}{"day": 2, "title": "Call a friend", "category": "character"})
	require.Equal(t, http.StatusCreated, w.Code)

	st := decode[quest.AppState](t, w)
	last := st.Plans[1].Quests[len(st.Plans[1].Quests)-1]
	assert.Equal(t, "Call a friend", last.Title)

	// Empty title and unknown category rejected.
	w = doJSON(t, h, http.MethodPost, "/api/quests",
		map[string]interface{}{"day": 2, "title": "  ", "category": "character"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/quests",
		map[string]interface{}{"day": 2, "title": "x", "category": "yodeling"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetTheme(t *testing.T) {
	s := newTestServer(t, "")

	w := doJSON(t, s.Handler(), http.MethodPut, "/api/theme",
		map[string]string{"backgroundColor": "#000000", "textColor": "#ffffff"})
	require.Equal(t, http.StatusOK, w.Code)

	st := decode[quest.AppState](t, w)
	assert.Equal(t, "#000000", st.Theme.BackgroundColor)
}

// ============================================================================
// HISTORIES
// ============================================================================

func threeMessages() []history.Message {
	return []history.Message{
		{Role: "user", Content: "plan my week"},
		{Role: "assistant", Content: "- Sleep more"},
		{Role: "user", Content: "thanks"},
	}
}

func TestHistoryLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	// Too few messages rejected.
	w := doJSON(t, h, http.MethodPost, "/api/histories",
		map[string]interface{}{"messages": threeMessages()[:2]})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Create.
	w = doJSON(t, h, http.MethodPost, "/api/histories",
		map[string]interface{}{"messages": threeMessages()})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[history.History](t, w)
	assert.Equal(t, "plan my week", created.Title)

	// List.
	w = doJSON(t, h, http.MethodGet, "/api/histories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]history.History](t, w)
	require.Len(t, list, 1)

	// Get.
	w = doJSON(t, h, http.MethodGet, "/api/histories/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Rename.
	w = doJSON(t, h, http.MethodPut, "/api/histories/"+created.ID+"/title",
		map[string]string{"title": "  Week planning  "})
	require.Equal(t, http.StatusOK, w.Code)
	renamed := decode[history.History](t, w)
	assert.Equal(t, "Week planning", renamed.Title)

	// Whitespace-only title rejected.
	w = doJSON(t, h, http.MethodPut, "/api/histories/"+created.ID+"/title",
		map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Oversized title rejected.
	w = doJSON(t, h, http.MethodPut, "/api/histories/"+created.ID+"/title",
		map[string]string{"title": strings.Repeat("x", MaxTitleLength+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Delete.
	w = doJSON(t, h, http.MethodDelete, "/api/histories/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/histories/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistory_SessionHeaderNamespacing(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]interface{}{"messages": threeMessages()}))
	req := httptest.NewRequest(http.MethodPost, "/api/histories", &buf)
	req.Header.Set("X-Session-Id", "user_1_other")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	// The default namespace sees nothing.
	lw := doJSON(t, h, http.MethodGet, "/api/histories", nil)
	assert.Equal(t, "[]", string(bytes.TrimSpace(lw.Body.Bytes())))

	// The header namespace sees the record.
	req = httptest.NewRequest(http.MethodGet, "/api/histories", nil)
	req.Header.Set("X-Session-Id", "user_1_other")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	list := decode[[]history.History](t, w)
	assert.Len(t, list, 1)
}

func TestExportHistory(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	w := doJSON(t, h, http.MethodPost, "/api/histories",
		map[string]interface{}{"messages": threeMessages()})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[history.History](t, w)

	// Markdown by default.
	w = doJSON(t, h, http.MethodGet, "/api/histories/"+created.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exp := decode[ExportedHistory](t, w)
	assert.Equal(t, "text/markdown", exp.MimeType)
	assert.Contains(t, exp.Content, "plan my week")

	// JSON on request.
	w = doJSON(t, h, http.MethodGet, "/api/histories/"+created.ID+"/export?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", decode[ExportedHistory](t, w).MimeType)

	// Unknown format and missing id.
	w = doJSON(t, h, http.MethodGet, "/api/histories/"+created.ID+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/histories/nope/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Export all.
	w = doJSON(t, h, http.MethodGet, "/api/histories/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]ExportedHistory](t, w)
	assert.Len(t, all, 1)
}

// ============================================================================
// PREFS + SESSION
// ============================================================================

func TestPrefsRoundTrip(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	w := doJSON(t, h, http.MethodGet, "/api/prefs/response-format", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bullets", decode[map[string]string](t, w)["format"])

	w = doJSON(t, h, http.MethodPut, "/api/prefs/response-format",
		map[string]string{"format": "freeform"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/prefs/response-format", nil)
	assert.Equal(t, "freeform", decode[map[string]string](t, w)["format"])

	w = doJSON(t, h, http.MethodPut, "/api/prefs/response-format",
		map[string]string{"format": "haiku"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	h := s.Handler()

	w := doJSON(t, h, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode[map[string]string](t, w)["sessionId"]
	assert.Contains(t, first, "user_")

	w = doJSON(t, h, http.MethodPost, "/api/session/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[map[string]string](t, w)["sessionId"]
	assert.NotEqual(t, first, second)
}

// ============================================================================
// MIDDLEWARE
// ============================================================================

func TestRateLimit429(t *testing.T) {
	s := newTestServer(t, "")
	handler := RateLimitMiddleware(NewRateLimiter(60, 2))(s.Handler())

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, "")
	handler := SecurityHeadersMiddleware()(s.Handler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, "")
	handler := CORSMiddleware(DefaultCORSConfig())(s.Handler())

	req := httptest.NewRequest(http.MethodOptions, "/api/state", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	// Unknown origin gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetClientIP(t *testing.T) {
	// Direct connection from untrusted address ignores forwarded headers.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "203.0.113.9", GetClientIP(req))

	// Trusted proxy honors X-Forwarded-For.
	req.RemoteAddr = "127.0.0.1:1234"
	assert.Equal(t, "1.2.3.4", GetClientIP(req))
}

// ============================================================================
// WIRING
// ============================================================================

func TestNewServer_DataDirLayout(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = dir

	s, err := NewServer(cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, state.StateFileName), s.states.Path())
	assert.Equal(t, filepath.Join(dir, "histories"), s.histories.BaseDir)
}
