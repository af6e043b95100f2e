package diary_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aidiary/backend/internal/config"
	chatmodel "github.com/aidiary/backend/internal/model/chat"
	diarymodel "github.com/aidiary/backend/internal/model/diary"
	"github.com/aidiary/backend/internal/service/diary"
	"github.com/aidiary/backend/internal/service/llm"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	lastReq  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.Credentials, req llm.Request) (string, error) {
	f.calls++
	f.lastReq = req
	return f.response, f.err
}

func availableResolver() *llm.Resolver {
	return llm.NewResolver(config.OpenAIConfig{APIKey: "sk-test-abc", Model: "gpt-4o-mini"})
}

func demoResolver() *llm.Resolver {
	return llm.NewResolver(config.OpenAIConfig{})
}

var happyMessages = []chatmodel.Message{
	{Text: "今日は公園に行った", IsUser: true, Timestamp: "2024-05-01T10:00:00Z"},
	{Text: "楽しそうですね", IsUser: false, Timestamp: "2024-05-01T10:00:05Z"},
}

func TestGenerateHappyPath(t *testing.T) {
	completer := &fakeCompleter{response: `{"title":"公園の一日","content":"今日は公園に行った。","mood":"良い","weather":"晴れ","tags":["公園"]}`}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	entry, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", "")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if entry.Date != "2024-05-01" {
		t.Fatalf("unexpected date: %s", entry.Date)
	}
	if entry.Content == "" {
		t.Fatal("expected non-empty content")
	}
	if entry.Mood != diarymodel.MoodGood {
		t.Fatalf("unexpected mood: %s", entry.Mood)
	}
	if entry.Weather == nil || *entry.Weather != "晴れ" {
		t.Fatalf("unexpected weather: %v", entry.Weather)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatal("id and createdAt must be stamped by the synthesizer")
	}
	if !entry.Generated {
		t.Fatal("expected generated flag")
	}
}

func TestGeneratePromptIsolatesDay(t *testing.T) {
	completer := &fakeCompleter{response: `{}`}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	if _, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", ""); err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if !completer.lastReq.JSONObject {
		t.Fatal("expected JSON-object response format")
	}
	if !strings.Contains(completer.lastReq.System, "2024-05-01") {
		t.Fatal("prompt must name the target date")
	}
	if !strings.Contains(completer.lastReq.System, "[10:00:00] ユーザー: 今日は公園に行った") {
		t.Fatalf("transcript line missing from prompt:\n%s", completer.lastReq.System)
	}
	if !strings.Contains(completer.lastReq.System, "[10:00:05] AI: 楽しそうですね") {
		t.Fatalf("assistant transcript line missing from prompt:\n%s", completer.lastReq.System)
	}
}

func TestGenerateUsesConfiguredTuning(t *testing.T) {
	temp := 0.1
	tokens := 42
	completer := &fakeCompleter{response: `{}`}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{Temperature: &temp, MaxTokens: &tokens})

	if _, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", ""); err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if completer.lastReq.Temperature != 0.1 {
		t.Fatalf("configured temperature not applied, got %v", completer.lastReq.Temperature)
	}
	if completer.lastReq.MaxTokens != 42 {
		t.Fatalf("configured max tokens not applied, got %v", completer.lastReq.MaxTokens)
	}
}

func TestGenerateDefaultTuning(t *testing.T) {
	completer := &fakeCompleter{response: `{}`}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	if _, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", ""); err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if completer.lastReq.Temperature != 0.6 {
		t.Fatalf("unexpected default temperature: %v", completer.lastReq.Temperature)
	}
	if completer.lastReq.MaxTokens != 1500 {
		t.Fatalf("unexpected default max tokens: %v", completer.lastReq.MaxTokens)
	}
}

func TestGenerateNoMessagesForDate(t *testing.T) {
	completer := &fakeCompleter{}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	_, err := s.Generate(context.Background(), happyMessages, "2024-05-02", "", "")
	var noMsgs *diary.NoMessagesError
	if !errors.As(err, &noMsgs) {
		t.Fatalf("expected NoMessagesError, got %v", err)
	}
	if noMsgs.Date != "2024-05-02" {
		t.Fatalf("error should carry the requested date, got %s", noMsgs.Date)
	}
	if !strings.Contains(err.Error(), "2024-05-02") {
		t.Fatalf("error message should mention the date: %s", err.Error())
	}
	if completer.calls != 0 {
		t.Fatal("no provider call expected for an empty day")
	}
}

func TestGenerateMalformedDate(t *testing.T) {
	s := diary.NewSynthesizer(availableResolver(), &fakeCompleter{}, time.UTC, config.OpenAIConfig{})

	_, err := s.Generate(context.Background(), happyMessages, "05-01-2024", "", "")
	if !errors.Is(err, diary.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestGenerateBlankContent(t *testing.T) {
	messages := []chatmodel.Message{
		{Text: "   ", IsUser: true, Timestamp: "2024-05-01T09:00:00Z"},
		{Text: "\t", IsUser: false, Timestamp: "2024-05-01T09:00:05Z"},
	}
	s := diary.NewSynthesizer(availableResolver(), &fakeCompleter{}, time.UTC, config.OpenAIConfig{})

	_, err := s.Generate(context.Background(), messages, "2024-05-01", "", "")
	if !errors.Is(err, diary.ErrEmptyChatContent) {
		t.Fatalf("expected ErrEmptyChatContent, got %v", err)
	}
}

func TestGenerateDemoMode(t *testing.T) {
	completer := &fakeCompleter{}
	s := diary.NewSynthesizer(demoResolver(), completer, time.UTC, config.OpenAIConfig{})

	entry, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", "")
	if err != nil {
		t.Fatalf("demo mode must succeed, got %v", err)
	}
	if entry.Date != "2024-05-01" {
		t.Fatalf("demo entry date mismatch: %s", entry.Date)
	}
	if entry.Mood != diarymodel.MoodNeutral {
		t.Fatalf("unexpected demo mood: %s", entry.Mood)
	}
	if len(entry.Tags) == 0 {
		t.Fatal("demo entry should carry tags")
	}
	if completer.calls != 0 {
		t.Fatal("demo mode must not call the provider")
	}
}

func TestGenerateDefaults(t *testing.T) {
	completer := &fakeCompleter{response: `{"content":"本文だけ","mood":"うきうき"}`}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	entry, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", "")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if entry.Title != "2024-05-01の日記" {
		t.Fatalf("expected date-derived title, got %s", entry.Title)
	}
	if entry.Mood != diarymodel.MoodNeutral {
		t.Fatalf("unrecognized mood must default to まあまあ, got %s", entry.Mood)
	}
	if entry.Weather != nil {
		t.Fatalf("expected nil weather, got %v", *entry.Weather)
	}
	if entry.Tags == nil || len(entry.Tags) != 0 {
		t.Fatalf("expected empty tags, got %v", entry.Tags)
	}
}

func TestGenerateUnparseableOutput(t *testing.T) {
	completer := &fakeCompleter{response: "今日はいい天気でした"}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	entry, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", "")
	if err != nil {
		t.Fatalf("parse failure must not surface as error, got %v", err)
	}
	if entry.Title != "2024-05-01の日記" {
		t.Fatalf("expected default title, got %s", entry.Title)
	}
	if entry.Content == "" {
		t.Fatal("expected fallback content")
	}
}

func TestGenerateWrappedJSONOutput(t *testing.T) {
	completer := &fakeCompleter{response: "```json\n{\"title\":\"散歩\",\"content\":\"散歩した。\"}\n```"}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	entry, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", "")
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if entry.Title != "散歩" {
		t.Fatalf("expected title from fenced json, got %s", entry.Title)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection reset")}
	s := diary.NewSynthesizer(availableResolver(), completer, time.UTC, config.OpenAIConfig{})

	_, err := s.Generate(context.Background(), happyMessages, "2024-05-01", "", "")
	var genErr *diary.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !genErr.Transient() {
		t.Fatal("statusless failures should be transient")
	}
	if !strings.Contains(genErr.Error(), "日記生成中にエラーが発生しました") {
		t.Fatalf("unexpected user-facing message: %s", genErr.Error())
	}
}
