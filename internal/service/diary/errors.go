package diary

import (
	"errors"
	"fmt"
	"net/http"
)

// User-correctable failures. Messages are Japanese and suitable for
// direct display.
var (
	ErrInvalidDate      = errors.New("日付はYYYY-MM-DD形式で入力してください。")
	ErrEmptyChatContent = errors.New("チャット履歴が空です。")
)

// NoMessagesError is returned when the conversation log holds nothing
// for the requested day. A diary must reflect that day's real content
// or nothing, so there is no demo fallback at this stage.
type NoMessagesError struct {
	Date string
}

func (e *NoMessagesError) Error() string {
	return fmt.Sprintf("%s のチャット履歴が見つかりません。まずはその日にAIとチャットしてから日記を生成してください。", e.Date)
}

// GenerationError wraps any provider-side failure. The message is
// generic unless the 401/429 sub-case is known.
type GenerationError struct {
	Status int
	Err    error
}

func (e *GenerationError) Error() string {
	switch e.Status {
	case http.StatusTooManyRequests:
		return "API利用制限に達しました。少し時間をおいてから再試行してください。"
	case http.StatusUnauthorized:
		return "API認証に失敗しました。設定を確認してください。"
	default:
		return "日記生成中にエラーが発生しました。後ほど再試行してください。"
	}
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Transient reports whether retrying the generation might succeed.
func (e *GenerationError) Transient() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}
