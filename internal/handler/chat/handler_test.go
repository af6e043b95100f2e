package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/aidiary/backend/internal/config"
	chatservice "github.com/aidiary/backend/internal/service/chat"
	"github.com/aidiary/backend/internal/service/llm"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(context.Context, llm.Credentials, llm.Request) (string, error) {
	return f.response, f.err
}

func setupRouter(apiKey string, completer llm.Completer) *chi.Mux {
	resolver := llm.NewResolver(config.OpenAIConfig{APIKey: apiKey, Model: "gpt-4o-mini"})
	responder := chatservice.NewResponder(resolver, completer, config.OpenAIConfig{})
	handler := New(responder, resolver)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func postChat(t *testing.T, r *chi.Mux, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatSuccess(t *testing.T) {
	r := setupRouter("sk-abc", &fakeCompleter{response: "楽しそうですね！"})

	resp := postChat(t, r, map[string]any{"message": "今日は公園に行った"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Success  bool   `json:"success"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !body.Success || body.Response == "" {
		t.Fatalf("expected non-empty response, got %+v", body)
	}
}

func TestChatMissingMessage(t *testing.T) {
	r := setupRouter("sk-abc", &fakeCompleter{})

	resp := postChat(t, r, map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatMessageTooLong(t *testing.T) {
	r := setupRouter("sk-abc", &fakeCompleter{})

	resp := postChat(t, r, map[string]any{"message": strings.Repeat("あ", 2001)})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "2000文字以下") {
		t.Fatalf("expected length error, got %s", resp.Body.String())
	}
}

func TestChatDemoModeAlwaysResponds(t *testing.T) {
	r := setupRouter("", &fakeCompleter{})

	resp := postChat(t, r, map[string]any{"message": "おはよう"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 in demo mode, got %d", resp.Code)
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Response == "" {
		t.Fatal("chat response must never be empty")
	}
}

func TestChatProviderFailureStillResponds(t *testing.T) {
	r := setupRouter("sk-abc", &fakeCompleter{err: context.DeadlineExceeded})

	resp := postChat(t, r, map[string]any{"message": "こんにちは"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "エラーが発生しました") {
		t.Fatalf("expected degraded error string, got %s", resp.Body.String())
	}
}

func TestChatStatus(t *testing.T) {
	r := setupRouter("sk-abc", &fakeCompleter{})

	req := httptest.NewRequest(http.MethodGet, "/chat/status", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "gpt-4o-mini") {
		t.Fatalf("status should report the model, got %s", resp.Body.String())
	}
}
