package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/aidiary/backend/internal/model/chat"
	chatservice "github.com/aidiary/backend/internal/service/chat"
	"github.com/aidiary/backend/internal/service/llm"
	"github.com/aidiary/backend/pkg/utils"
)

const (
	maxMessageLength = 2000
	historyWindow    = 10
	requestTimeout   = 10 * time.Second
)

// Handler はチャットAPIのHTTPハンドラー。
type Handler struct {
	responder *chatservice.Responder
	resolver  *llm.Resolver
}

// New はチャットハンドラーを作る。
func New(responder *chatservice.Responder, resolver *llm.Resolver) *Handler {
	return &Handler{responder: responder, resolver: resolver}
}

// RegisterRoutes はチャット関連のルートを登録する。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/status", h.handleStatus)
}

// handleChat は会話の末尾ウィンドウからアシスタント応答を1件生成する。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message     string                `json:"message"`
		Messages    []chatmodel.Message   `json:"messages"`
		UserProfile chatmodel.UserProfile `json:"userProfile"`
		APIKey      string                `json:"apiKey"`
		Model       string                `json:"model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "メッセージが必要です。")
		return
	}

	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "メッセージが必要です。")
		return
	}

	if len([]rune(payload.Message)) > maxMessageLength {
		utils.RespondError(w, http.StatusBadRequest, "メッセージが長すぎます。2000文字以下にしてください。")
		return
	}

	// 今回の発言を追加し、末尾ウィンドウだけを残す。
	history := append(payload.Messages, chatmodel.Message{
		Text:      payload.Message,
		IsUser:    true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// Responder は失敗しない。縮退時もそのまま表示できる日本語文字列を返す。
	response := h.responder.Respond(ctx, history, payload.UserProfile, payload.APIKey, payload.Model)

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"response":  response,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus はチャットの利用可否を返す。
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"available":         true,
		"openai_configured": h.resolver.Available(""),
		"model":             h.resolver.Model(),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
