package domain

import "time"

// TimeLayout is the fixed-width UTC layout used for persisted timestamps and order keys.
// Fixed width keeps lexical order equal to chronological order in SQL comparisons.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
