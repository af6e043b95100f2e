package diary

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aidiary/backend/internal/config"
	chatmodel "github.com/aidiary/backend/internal/model/chat"
	diarymodel "github.com/aidiary/backend/internal/model/diary"
	"github.com/aidiary/backend/internal/service/llm"
)

const (
	diaryTemperature = 0.6
	diaryMaxTokens   = 1500

	fallbackContent = "チャット履歴から日記を生成できませんでした。"
	demoContent     = "今日はAI日記アプリのテストを行った。チャット機能とカレンダー機能が正常に動作することを確認できた。OpenAI APIキーを設定すれば、実際のAI機能を使用できるようになる。アプリのデザインも美しく、使いやすいインターフェースが完成している。"
)

var demoTags = []string{"テスト", "AI日記", "アプリ開発"}

// diarySystemPrompt demands isolation to the target day. The log may
// span many days, so the model is forbidden from bleeding adjacent-day
// content into the entry.
const diarySystemPrompt = `あなたは日記作成のエキスパートです。以下のチャット履歴を基に、ユーザーが実際に話した内容や体験をそのまま活用して日記を作成してください。

**重要な指示：**
- 対象日は%sです。この日のチャット内容だけを使用すること
- 他の日の出来事を混ぜたり、創作や想像で内容を補わないこと
- チャット履歴の内容を正確に反映する
- ユーザーが話した具体的な出来事、感情、体験をそのまま使用する

**要件:**
1. 日記は一人称で書く
2. チャット履歴に出てきた具体的な出来事をそのまま記載
3. ユーザーの言葉や感情表現をできる限り保持
4. 300-500文字程度の自然な日記の形式に整理する
5. JSON形式で返す: {"title": "日記タイトル", "content": "日記本文", "mood": "気分(最高/良い/まあまあ/悪い/最悪)", "weather": "天気(明記されていればそのまま、不明な場合はnull)", "tags": ["タグ"]}

**日付:** %s

**チャット履歴:**
%s`

// Synthesizer turns a date-filtered transcript into a structured diary
// entry via one constrained generation call. Every path returns a
// value; nothing is fatal to the process.
type Synthesizer struct {
	resolver  *llm.Resolver
	completer llm.Completer
	cfg       config.OpenAIConfig
	loc       *time.Location
	now       func() time.Time
}

// NewSynthesizer creates the diary generation service. A nil loc
// computes day boundaries in UTC.
func NewSynthesizer(resolver *llm.Resolver, completer llm.Completer, loc *time.Location, cfg config.OpenAIConfig) *Synthesizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Synthesizer{
		resolver:  resolver,
		completer: completer,
		cfg:       cfg,
		loc:       loc,
		now:       time.Now,
	}
}

// Generate synthesizes a diary entry for the given calendar date from
// the full conversation log. date must be YYYY-MM-DD.
func (s *Synthesizer) Generate(ctx context.Context, messages []chatmodel.Message, date, explicitKey, explicitModel string) (diarymodel.Entry, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return diarymodel.Entry{}, ErrInvalidDate
	}

	selected := FilterByDate(messages, day)
	if len(selected) == 0 {
		return diarymodel.Entry{}, &NoMessagesError{Date: date}
	}

	if !s.resolver.Available(explicitKey) {
		log.Printf("[diary] credentials unavailable, returning demo entry for %s", date)
		return s.demoEntry(date), nil
	}

	transcript := s.renderTranscript(selected)
	if strings.TrimSpace(transcript) == "" {
		return diarymodel.Entry{}, ErrEmptyChatContent
	}

	req := llm.Request{
		System:      fmt.Sprintf(diarySystemPrompt, date, date, transcript),
		Temperature: s.temperature(),
		MaxTokens:   s.maxTokens(),
		JSONObject:  true,
	}

	creds := s.resolver.Resolve(explicitKey, explicitModel)
	raw, err := s.completer.Complete(ctx, creds, req)
	if err != nil {
		status := llm.StatusCode(err)
		log.Printf("[diary] generation failed for %s (status=%d): %v", date, status, err)
		return diarymodel.Entry{}, &GenerationError{Status: status, Err: err}
	}

	payload := parsePayload(raw)
	return s.assemble(date, payload), nil
}

func (s *Synthesizer) temperature() float64 {
	if s.cfg.Temperature != nil {
		return *s.cfg.Temperature
	}
	return diaryTemperature
}

func (s *Synthesizer) maxTokens() int64 {
	if s.cfg.MaxTokens != nil {
		return int64(*s.cfg.MaxTokens)
	}
	return diaryMaxTokens
}

// renderTranscript drops blank messages and renders the rest as
// timestamped speaker-labelled lines in chronological order.
func (s *Synthesizer) renderTranscript(messages []chatmodel.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}

		speaker := "AI"
		if msg.IsUser {
			speaker = "ユーザー"
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if ts, ok := msg.Time(); ok {
			b.WriteString("[" + ts.In(s.loc).Format("15:04:05") + "] ")
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

// payload is the untrusted, partially-specified document the model
// returns. Fields are optional; defaults are applied on assembly.
type payload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Mood    string   `json:"mood"`
	Weather *string  `json:"weather"`
	Tags    []string `json:"tags"`
}

// parsePayload extracts the outermost JSON object from the model
// output. Parse failures yield an empty payload, never an error.
func parsePayload(raw string) payload {
	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		log.Printf("[diary] model output missing json object")
		return payload{}
	}

	var p payload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &p); err != nil {
		log.Printf("[diary] model output parse failed: %v", err)
		return payload{}
	}
	return p
}

// assemble populates the entry with documented defaults. Date, ID and
// CreatedAt always come from the call context, never from the model.
func (s *Synthesizer) assemble(date string, p payload) diarymodel.Entry {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = date + "の日記"
	}

	content := strings.TrimSpace(p.Content)
	if content == "" {
		content = fallbackContent
	}

	weather := p.Weather
	if weather != nil && strings.TrimSpace(*weather) == "" {
		weather = nil
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return diarymodel.Entry{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Mood:      diarymodel.NormalizeMood(strings.TrimSpace(p.Mood)),
		Weather:   weather,
		Tags:      tags,
		Date:      date,
		Generated: true,
		CreatedAt: s.now(),
	}
}

func (s *Synthesizer) demoEntry(date string) diarymodel.Entry {
	tags := make([]string, len(demoTags))
	copy(tags, demoTags)

	return diarymodel.Entry{
		ID:        uuid.NewString(),
		Title:     date + "の日記（デモ）",
		Content:   demoContent,
		Mood:      diarymodel.MoodNeutral,
		Weather:   nil,
		Tags:      tags,
		Date:      date,
		Generated: true,
		CreatedAt: s.now(),
	}
}
