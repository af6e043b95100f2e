package diary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"

	chatmodel "github.com/aidiary/backend/internal/model/chat"
	diarymodel "github.com/aidiary/backend/internal/model/diary"
	diaryservice "github.com/aidiary/backend/internal/service/diary"
	"github.com/aidiary/backend/internal/service/llm"
	"github.com/aidiary/backend/pkg/utils"
)

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const (
	requestTimeout = 30 * time.Second
	maxRetries     = 2
)

// Handler は日記生成APIのHTTPハンドラー。
type Handler struct {
	synthesizer *diaryservice.Synthesizer
	resolver    *llm.Resolver
}

// New は日記ハンドラーを作る。
func New(synthesizer *diaryservice.Synthesizer, resolver *llm.Resolver) *Handler {
	return &Handler{synthesizer: synthesizer, resolver: resolver}
}

// RegisterRoutes は日記関連のルートを登録する。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/diary/generate", h.handleGenerate)
	r.Get("/diary/status", h.handleStatus)
	r.Post("/diary/validate", h.handleValidate)
}

// handleGenerate は送信された会話ログから指定日の日記を生成する。
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Messages []chatmodel.Message `json:"messages"`
		Date     string              `json:"date"`
		APIKey   string              `json:"apiKey"`
		Model    string              `json:"model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Messages == nil {
		utils.RespondError(w, http.StatusBadRequest, "チャット履歴が必要です。")
		return
	}

	if payload.Date == "" {
		utils.RespondError(w, http.StatusBadRequest, "日付が必要です。")
		return
	}

	// 形式チェックはフィルタリングより先に行う。不正な日付を
	// 「その日のメッセージがない」と混同させないため。
	if !dateFormat.MatchString(payload.Date) {
		utils.RespondError(w, http.StatusBadRequest, diaryservice.ErrInvalidDate.Error())
		return
	}

	if len(payload.Messages) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "日記を生成するためのチャット履歴がありません。")
		return
	}

	cleaned := cleanMessages(payload.Messages)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// バックオフ付きリトライはこの呼び出し境界に置き、Synthesizer の
	// 中には入れない。リトライ対象は一時的なプロバイダー障害のみ。
	entry, err := h.generateWithRetry(ctx, cleaned, payload.Date, payload.APIKey, payload.Model)
	if err != nil {
		var genErr *diaryservice.GenerationError
		if errors.As(err, &genErr) {
			utils.RespondError(w, http.StatusInternalServerError, genErr.Error())
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"diary":     entry,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) generateWithRetry(ctx context.Context, messages []chatmodel.Message, date, apiKey, model string) (diarymodel.Entry, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 8 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)

	return backoff.RetryWithData(func() (diarymodel.Entry, error) {
		entry, err := h.synthesizer.Generate(ctx, messages, date, apiKey, model)
		if err != nil {
			var genErr *diaryservice.GenerationError
			if errors.As(err, &genErr) && genErr.Transient() {
				return diarymodel.Entry{}, err
			}
			return diarymodel.Entry{}, backoff.Permanent(err)
		}
		return entry, nil
	}, policy)
}

// handleStatus は日記生成の利用可否を返す。
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"available":         true,
		"openai_configured": h.resolver.Available(""),
		"model":             h.resolver.Model(),
		"features": map[string]bool{
			"chat_to_diary": true,
			"json_response": true,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleValidate はクライアントで編集された日記を保存前に検証する。
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Diary *struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			Date    string `json:"date"`
		} `json:"diary"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Diary == nil {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "日記データが必要です。",
		})
		return
	}

	var missing []string
	if payload.Diary.Title == "" {
		missing = append(missing, "title")
	}
	if payload.Diary.Content == "" {
		missing = append(missing, "content")
	}
	if payload.Diary.Date == "" {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "必須フィールドが不足しています: " + strings.Join(missing, ", "),
		})
		return
	}

	if !dateFormat.MatchString(payload.Diary.Date) {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": diaryservice.ErrInvalidDate.Error(),
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"message": "日記データは有効です。",
	})
}

// cleanMessages はマルチバイト破損の原因になる制御文字を取り除く。
// 空メッセージは残す。「その日の発言がない」と「すべて空」の区別は
// Synthesizer 側で行う。
func cleanMessages(messages []chatmodel.Message) []chatmodel.Message {
	cleaned := make([]chatmodel.Message, 0, len(messages))
	for _, msg := range messages {
		msg.Text = strings.Map(func(r rune) rune {
			if r < 0x20 || (r >= 0x7F && r <= 0x9F) {
				return -1
			}
			return r
		}, msg.Text)
		cleaned = append(cleaned, msg)
	}
	return cleaned
}
