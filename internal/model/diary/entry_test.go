package diary

import "testing"

func TestNormalizeMood(t *testing.T) {
	for _, mood := range []string{MoodBest, MoodGood, MoodNeutral, MoodBad, MoodWorst} {
		if got := NormalizeMood(mood); got != mood {
			t.Fatalf("vocabulary mood %s changed to %s", mood, got)
		}
	}

	for _, mood := range []string{"", "普通", "happy", "最高！"} {
		if got := NormalizeMood(mood); got != MoodNeutral {
			t.Fatalf("out-of-vocabulary mood %q should default to %s, got %s", mood, MoodNeutral, got)
		}
	}
}
