package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cryptoedu/tutor/internal/platform/config"
)

const lessonYAML = `
id: intro
title: "Intro"
language: en
topics:
  - id: t1
    title: "Topic"
    order: 1
    subtopics:
      - id: s1
        title: "Subtopic"
        objective: "Learn"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "intro.yaml"), []byte(lessonYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Quiz:        config.QuizConfig{QuestionCount: 3, DailyTokenBudget: 1000},
		Tutor:       config.TutorConfig{CompactThreshold: 10, KeepRecent: 2},
		Log:         config.LogConfig{Level: "info", Format: "json"},
		ContentPath: dir,
	}
}

func TestNewApp_InMemory(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.close)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"healthz", http.MethodGet, "/healthz", "", http.StatusOK, `"ok"`},
		{"readyz without dependencies", http.MethodGet, "/readyz", "", http.StatusOK, `"ready"`},
		{"lessons", http.MethodGet, "/v1/lessons", "", http.StatusOK, `"intro"`},
		{"start session", http.MethodPost, "/v1/sessions", `{"lesson_id":"intro","user_id":"u1"}`, http.StatusCreated, `"learning"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNewApp_ChallengeWithoutProviderUsesFallback(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.close)

	post := func(path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec
	}

	rec := post("/v1/sessions", `{"lesson_id":"intro","user_id":"u1"}`)
	var view struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}

	rec = post("/v1/sessions/"+view.ID+"/events", `{"type":"open-chat"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("open-chat status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = post("/v1/sessions/"+view.ID+"/events", `{"type":"request-quiz"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("request-quiz status = %d: %s", rec.Code, rec.Body.String())
	}
	var quizView struct {
		Mode string `json:"mode"`
		Quiz struct {
			Questions   []json.RawMessage `json:"questions"`
			Substituted bool              `json:"substituted"`
			Notice      string            `json:"notice"`
		} `json:"quiz"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&quizView); err != nil {
		t.Fatal(err)
	}
	if quizView.Mode != "quiz" || len(quizView.Quiz.Questions) != 1 || quizView.Quiz.Notice == "" {
		t.Errorf("quiz view = %+v", quizView)
	}
}

func TestNewApp_SweepsIdleSessions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.IdleTimeout = time.Millisecond
	a, err := newApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(a.close)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"lesson_id":"intro","user_id":"u1"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.sessions.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if n := a.sessions.Len(); n != 0 {
		t.Errorf("live sessions = %d, want the idle one swept", n)
	}
}

func TestNewApp_MissingContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.ContentPath = filepath.Join(t.TempDir(), "missing")
	if _, err := newApp(t.Context(), cfg); err == nil {
		t.Fatal("newApp() should fail when the lesson directory is missing")
	}
}

func TestNewAIRouter(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AIConfig
		want bool
	}{
		{"none", config.AIConfig{}, false},
		{"openai", config.AIConfig{OpenAI: config.OpenAIConfig{APIKey: "sk-test"}}, true},
		{"anthropic", config.AIConfig{Anthropic: config.AnthropicConfig{APIKey: "sk-ant"}}, true},
		{"openrouter", config.AIConfig{OpenRouter: config.OpenRouterConfig{APIKey: "sk-or"}}, true},
		{"ollama", config.AIConfig{Ollama: config.OllamaConfig{Enabled: true, URL: "http://localhost:11434"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newAIRouter(tt.cfg).HasProvider(); got != tt.want {
				t.Errorf("HasProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}
