package diary

import (
	"time"

	chatmodel "github.com/aidiary/backend/internal/model/chat"
)

// FilterByDate selects the subsequence of messages whose timestamps
// fall on the calendar day of `day` (interpreted in day's location),
// preserving the original order. Messages without a parseable
// timestamp cannot be proven to belong to the day and are excluded.
// An empty result is a valid outcome, not an error.
func FilterByDate(messages []chatmodel.Message, day time.Time) []chatmodel.Message {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var selected []chatmodel.Message
	for _, msg := range messages {
		ts, ok := msg.Time()
		if !ok {
			continue
		}
		if !ts.Before(start) && ts.Before(end) {
			selected = append(selected, msg)
		}
	}
	return selected
}
