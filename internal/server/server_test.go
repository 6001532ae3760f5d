// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/cloud"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/quota"
	"github.com/jeranaias/folio/internal/storage"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeUpstream struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]cloud.ChatMessage
	panic bool
}

func (f *fakeUpstream) Chat(_ context.Context, msgs []cloud.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("boom")
	}
	f.calls = append(f.calls, append([]cloud.ChatMessage(nil), msgs...))
	return f.reply, f.err
}

func (f *fakeUpstream) Model() string { return "test-model" }

func (f *fakeUpstream) lastCall(t *testing.T) []cloud.ChatMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("upstream was not called")
	}
	return f.calls[len(f.calls)-1]
}

func newTestStore(t *testing.T) *storage.HistoryStore {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestServer(t *testing.T, up *fakeUpstream, opts Options) (*Server, *storage.HistoryStore) {
	t.Helper()
	store := newTestStore(t)
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = "You are a test assistant."
	}
	s := New(up, store, opts)
	t.Cleanup(s.limiter.Stop)
	return s, store
}

func postChat(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body backend.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Detail
}

// =============================================================================
// CHAT HANDLER TESTS
// =============================================================================

func TestHandleChat_Success(t *testing.T) {
	up := &fakeUpstream{reply: "Hi there"}
	s, store := newTestServer(t, up, Options{})

	rec := postChat(t, s.Handler(), `{"message": "  Hello  "}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var resp backend.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "Hi there" {
		t.Errorf("response = %q, want %q", resp.Response, "Hi there")
	}

	msgs := up.lastCall(t)
	if len(msgs) != 2 {
		t.Fatalf("upstream got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != cloud.RoleSystem || msgs[0].Content != "You are a test assistant." {
		t.Errorf("first message = %+v, want system prompt", msgs[0])
	}
	if msgs[1].Role != cloud.RoleUser || msgs[1].Content != "Hello" {
		t.Errorf("second message = %+v, want trimmed user message", msgs[1])
	}

	n, err := store.Count(context.Background(), "ip:192.0.2.1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("stored rows = %d, want 2", n)
	}
}

func TestHandleChat_HistoryWindow(t *testing.T) {
	up := &fakeUpstream{reply: "ok"}
	s, _ := newTestServer(t, up, Options{HistoryLimit: 3})
	headers := map[string]string{SessionHeader: "abc-123"}

	for i := 0; i < 3; i++ {
		rec := postChat(t, s.Handler(), fmt.Sprintf(`{"message": "q%d"}`, i), headers)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	msgs := up.lastCall(t)
	if len(msgs) != 4 {
		t.Fatalf("upstream got %d messages, want 4", len(msgs))
	}
	want := []string{"q1", "ok", "q2"}
	for i, w := range want {
		if got := msgs[i+1].Content; got != w {
			t.Errorf("context[%d] = %q, want %q", i, got, w)
		}
	}
	if msgs[3].Role != cloud.RoleUser {
		t.Errorf("newest context role = %q, want user", msgs[3].Role)
	}
}

func TestHandleChat_SessionsAreIsolated(t *testing.T) {
	up := &fakeUpstream{reply: "ok"}
	s, _ := newTestServer(t, up, Options{})

	postChat(t, s.Handler(), `{"message": "from a"}`, map[string]string{SessionHeader: "a"})
	postChat(t, s.Handler(), `{"message": "from b"}`, map[string]string{SessionHeader: "b"})

	msgs := up.lastCall(t)
	for _, m := range msgs {
		if m.Content == "from a" {
			t.Error("session b saw history from session a")
		}
	}
}

func TestHandleChat_BadRequests(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"empty", `{"message": ""}`, http.StatusBadRequest, DetailEmptyMessage},
		{"whitespace", `{"message": " \t\n "}`, http.StatusBadRequest, DetailEmptyMessage},
		{"missing field", `{}`, http.StatusBadRequest, DetailEmptyMessage},
		{"not json", `hello`, http.StatusBadRequest, DetailInvalidBody},
		{"wrong type", `{"message": 42}`, http.StatusBadRequest, DetailInvalidBody},
		{"too long", `{"message": "` + strings.Repeat("x", MaxMessageRunes+1) + `"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{reply: "unused"}
			s, _ := newTestServer(t, up, Options{})

			rec := postChat(t, s.Handler(), tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			detail := decodeDetail(t, rec)
			if tt.wantDetail != "" && detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", detail, tt.wantDetail)
			}
			if detail == "" {
				t.Error("detail should not be empty")
			}
			if len(up.calls) != 0 {
				t.Error("upstream should not be called for a bad request")
			}
		})
	}
}

func TestHandleChat_BodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t, &fakeUpstream{}, Options{})
	body := `{"message": "` + strings.Repeat("a", MaxRequestBodySize) + `"}`

	rec := postChat(t, s.Handler(), body, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestHandleChat_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"auth", fmt.Errorf("wrapped: %w", cloud.ErrAuthFailed), http.StatusUnauthorized, DetailUpstreamAuth},
		{"not configured", cloud.ErrNotConfigured, http.StatusUnauthorized, DetailUpstreamAuth},
		{"rate limited", cloud.ErrRateLimited, http.StatusTooManyRequests, DetailUpstreamRateLimit},
		{"other", errors.New("connection reset"), http.StatusInternalServerError, "Server error: connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &fakeUpstream{err: tt.err}, Options{})

			rec := postChat(t, s.Handler(), `{"message": "hi"}`, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeDetail(t, rec); got != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestHandleChat_DailyQuota(t *testing.T) {
	up := &fakeUpstream{reply: "ok"}
	s, _ := newTestServer(t, up, Options{
		Quota:        quota.NewMemory(2, nil),
		ContactEmail: "owner@example.com",
	})

	for i := 0; i < 2; i++ {
		if rec := postChat(t, s.Handler(), `{"message": "hi"}`, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := postChat(t, s.Handler(), `{"message": "hi"}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if detail := decodeDetail(t, rec); !strings.Contains(detail, "owner@example.com") {
		t.Errorf("detail = %q, want contact email", detail)
	}
	if len(up.calls) != 2 {
		t.Errorf("upstream calls = %d, want 2", len(up.calls))
	}
}

func TestHandleChat_PanicRecovered(t *testing.T) {
	s, _ := newTestServer(t, &fakeUpstream{panic: true}, Options{})

	rec := postChat(t, s.Handler(), `{"message": "hi"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if detail := decodeDetail(t, rec); !strings.HasPrefix(detail, "Server error") {
		t.Errorf("detail = %q", detail)
	}
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, &fakeUpstream{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

// =============================================================================
// HEALTH / METRICS TESTS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeUpstream{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Model != "test-model" {
		t.Errorf("model = %q, want test-model", resp.Model)
	}
	if resp.Quota != "memory" {
		t.Errorf("quota = %q, want memory", resp.Quota)
	}
}

func TestHandleHealth_StoreDown(t *testing.T) {
	s, store := newTestServer(t, &fakeUpstream{}, Options{})
	store.Close()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeUpstream{reply: "ok"}, Options{MetricsEnabled: true})
	postChat(t, s.Handler(), `{"message": "hi"}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "folio_chat_requests_total") {
		t.Error("metrics output missing chat counter")
	}
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	s, _ := newTestServer(t, &fakeUpstream{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// =============================================================================
// CONFIG / RELOAD TESTS
// =============================================================================

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 9100
	cfg.Server.HistoryLimit = 4

	opts := OptionsFromConfig(cfg)
	if opts.Addr != "127.0.0.1:9100" {
		t.Errorf("Addr = %q", opts.Addr)
	}
	if opts.HistoryLimit != 4 {
		t.Errorf("HistoryLimit = %d, want 4", opts.HistoryLimit)
	}
	if len(opts.AllowedOrigins) != len(config.DefaultAllowedOrigins) {
		t.Errorf("AllowedOrigins = %v", opts.AllowedOrigins)
	}
}

func TestReload(t *testing.T) {
	q := quota.NewMemory(1, nil)
	s, _ := newTestServer(t, &fakeUpstream{reply: "ok"}, Options{Quota: q})

	cfg := config.Default()
	cfg.Server.AllowedOrigins = []string{"https://folio.example"}
	cfg.Server.DailyQuota = 0
	s.Reload(cfg)

	if got := s.cors.Origins(); len(got) != 1 || got[0] != "https://folio.example" {
		t.Errorf("origins = %v", got)
	}
	for i := 0; i < 3; i++ {
		if rec := postChat(t, s.Handler(), `{"message": "hi"}`, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d after disabling quota: status = %d", i, rec.Code)
		}
	}
}

func TestSessionKey(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "ip:10.0.0.1"},
		{"abc_DEF-123", "s:abc_DEF-123"},
		{"has space", "ip:10.0.0.1"},
		{"../etc", "ip:10.0.0.1"},
		{strings.Repeat("a", 65), "ip:10.0.0.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		if tt.header != "" {
			req.Header.Set(SessionHeader, tt.header)
		}
		if got := sessionKey(req, "10.0.0.1"); got != tt.want {
			t.Errorf("sessionKey(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
