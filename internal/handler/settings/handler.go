package settings

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidiary/backend/internal/service/llm"
	"github.com/aidiary/backend/pkg/utils"
)

const probeTimeout = 15 * time.Second

// Handler は設定画面から渡されるセッション共通のAPI資格情報を保持する。
// 上書きは単一のアトミックスワップで、後勝ちになる。
type Handler struct {
	resolver *llm.Resolver
	prober   llm.KeyProber
}

// New は設定ハンドラーを作る。
func New(resolver *llm.Resolver, prober llm.KeyProber) *Handler {
	return &Handler{resolver: resolver, prober: prober}
}

// RegisterRoutes は設定関連のルートを登録する。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/config", h.handleSaveConfig)
	r.Post("/test-key", h.handleTestKey)
}

func (h *Handler) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		APIKey string `json:"openai_api_key"`
		Model  string `json:"openai_model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "有効なOpenAI APIキーを入力してください（sk-で始まる）")
		return
	}

	key := strings.TrimSpace(payload.APIKey)
	if !strings.HasPrefix(key, "sk-") {
		utils.RespondError(w, http.StatusBadRequest, "有効なOpenAI APIキーを入力してください（sk-で始まる）")
		return
	}

	h.resolver.SetOverride(key, payload.Model)
	log.Printf("[settings] session credentials updated")

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "設定を保存しました",
		"model":   h.resolver.Model(),
	})
}

// handleTestKey はモデル一覧の取得でAPIキーの有効性を実際に確認する。
// プローブの失敗は 200 で valid=false として返し、ステータス別の
// 日本語メッセージに変換する。
func (h *Handler) handleTestKey(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		APIKey string `json:"openai_api_key"`
		Model  string `json:"openai_model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "無効なAPIキー形式です",
		})
		return
	}

	key := strings.TrimSpace(payload.APIKey)
	if !strings.HasPrefix(key, "sk-") {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "無効なAPIキー形式です",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	ids, err := h.prober.ListModels(ctx, key)
	if err != nil {
		status := llm.StatusCode(err)
		log.Printf("[settings] key probe failed (status=%d): %v", status, err)
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": keyTestMessage(status),
		})
		return
	}

	model := strings.TrimSpace(payload.Model)
	if model == "" {
		model = h.resolver.Model()
	}

	log.Printf("[settings] key probe succeeded (%d models)", len(ids))
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"valid":           true,
		"message":         "APIキーは有効です",
		"model":           model,
		"modelAvailable":  containsModel(ids, model),
		"availableModels": chatModelIDs(ids),
	})
}

func keyTestMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "無効なAPIキーです"
	case http.StatusTooManyRequests:
		return "API利用制限に達しています"
	case http.StatusForbidden:
		return "APIキーにアクセス権限がありません"
	default:
		return "APIキーのテストに失敗しました"
	}
}

func containsModel(ids []string, model string) bool {
	for _, id := range ids {
		if id == model {
			return true
		}
	}
	return false
}

// chatModelIDs はチャット向けモデルの ID を最大10件まで返す。
func chatModelIDs(ids []string) []string {
	picked := make([]string, 0, 10)
	for _, id := range ids {
		if !strings.Contains(id, "gpt") || strings.Contains(id, "instruct") {
			continue
		}
		picked = append(picked, id)
		if len(picked) == 10 {
			break
		}
	}
	return picked
}
