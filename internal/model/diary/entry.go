package diary

import "time"

// Mood values form a closed vocabulary. The model is instructed to pick
// one of these; anything else is normalized to MoodNeutral on parse.
const (
	MoodBest    = "最高"
	MoodGood    = "良い"
	MoodNeutral = "まあまあ"
	MoodBad     = "悪い"
	MoodWorst   = "最悪"
)

var moods = map[string]struct{}{
	MoodBest:    {},
	MoodGood:    {},
	MoodNeutral: {},
	MoodBad:     {},
	MoodWorst:   {},
}

// NormalizeMood maps an arbitrary model-supplied mood onto the closed
// vocabulary, defaulting to まあまあ.
func NormalizeMood(mood string) string {
	if _, ok := moods[mood]; ok {
		return mood
	}
	return MoodNeutral
}

// Entry is one synthesized diary record. Date is the target calendar
// day in YYYY-MM-DD form; CreatedAt is stamped at synthesis completion.
// Entries are immutable once returned, ownership passes to the caller.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood"`
	Weather   *string   `json:"weather"`
	Tags      []string  `json:"tags"`
	Date      string    `json:"date"`
	Generated bool      `json:"generated"`
	CreatedAt time.Time `json:"createdAt"`
}
