package chat

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/aidiary/backend/internal/analysis/reply"
	"github.com/aidiary/backend/internal/config"
	chatmodel "github.com/aidiary/backend/internal/model/chat"
	"github.com/aidiary/backend/internal/service/llm"
)

// User-facing fallback strings. Raw provider errors never cross this
// boundary.
const (
	emptyResponseText = "すみません、応答を生成できませんでした。"
	rateLimitText     = "API利用制限に達しました。少し時間をおいてから再試行してください。"
	authFailureText   = "API認証に失敗しました。設定を確認してください。"
	genericErrorText  = "AI応答の生成中にエラーが発生しました。後ほど再試行してください。"
)

const (
	chatTemperature = 0.7
	chatMaxTokens   = 1000
)

// Responder turns the trailing window of a conversation into a single
// assistant reply. It never returns an error: unavailable credentials
// degrade to the keyword demo responder, provider failures degrade to
// fixed Japanese strings.
type Responder struct {
	resolver  *llm.Resolver
	completer llm.Completer
	cfg       config.OpenAIConfig
}

// NewResponder creates the two-tier (live and demo) reply service.
func NewResponder(resolver *llm.Resolver, completer llm.Completer, cfg config.OpenAIConfig) *Responder {
	return &Responder{resolver: resolver, completer: completer, cfg: cfg}
}

// Respond generates one assistant reply for the given history. The
// last entry of history is the user turn being answered.
func (r *Responder) Respond(ctx context.Context, history []chatmodel.Message, profile chatmodel.UserProfile, explicitKey, explicitModel string) string {
	if !r.resolver.Available(explicitKey) {
		log.Printf("[chat] credentials unavailable, demo responder engaged")
		return reply.Pick(lastUserText(history))
	}

	req := llm.Request{
		System:      buildSystemPrompt(profile),
		Turns:       mapHistory(history),
		Temperature: r.temperature(),
		MaxTokens:   r.maxTokens(),
	}

	creds := r.resolver.Resolve(explicitKey, explicitModel)
	text, err := r.completer.Complete(ctx, creds, req)
	if err != nil {
		status := llm.StatusCode(err)
		log.Printf("[chat] completion failed (status=%d): %v", status, err)
		switch status {
		case http.StatusTooManyRequests:
			return rateLimitText
		case http.StatusUnauthorized:
			return authFailureText
		default:
			return genericErrorText
		}
	}

	if strings.TrimSpace(text) == "" {
		return emptyResponseText
	}
	return text
}

func (r *Responder) temperature() float64 {
	if r.cfg.Temperature != nil {
		return *r.cfg.Temperature
	}
	return chatTemperature
}

func (r *Responder) maxTokens() int64 {
	if r.cfg.MaxTokens != nil {
		return int64(*r.cfg.MaxTokens)
	}
	return chatMaxTokens
}

// buildSystemPrompt fixes the assistant persona and injects profile
// hints when present.
func buildSystemPrompt(profile chatmodel.UserProfile) string {
	var b strings.Builder
	b.WriteString("あなたは親しみやすく、理解力があり、建設的なAIアシスタントです。")

	if name := strings.TrimSpace(profile.Name); name != "" {
		b.WriteString("ユーザーの名前は" + name + "です。")
	}
	if personality := strings.TrimSpace(profile.Personality); personality != "" {
		b.WriteString("ユーザーの好みに合わせて、" + personality + "な対応を心がけてください。")
	}

	b.WriteString(`
日常会話を通じて、ユーザーの一日の出来事や気持ちを聞き出してください。
回答は日本語で、自然で親しみやすい口調で行ってください。
ユーザーが困っていることがあれば、優しくサポートしてください。
日記を作成するのに役立つような質問も適度に織り交ぜてください。`)

	return b.String()
}

func mapHistory(history []chatmodel.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		role := llm.RoleAssistant
		if msg.IsUser {
			role = llm.RoleUser
		}
		turns = append(turns, llm.Turn{Role: role, Content: msg.Text})
	}
	return turns
}

func lastUserText(history []chatmodel.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].IsUser {
			return history[i].Text
		}
	}
	return ""
}
