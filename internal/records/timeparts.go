package records

import "time"

// FromEpochMillis converts an epoch-millisecond timestamp to a UTC instant.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NewTimeRow decomposes an instant into the time dimension columns.
// Week is the ISO-8601 week number; Weekday counts Monday as 0.
func NewTimeRow(ts time.Time) TimeRow {
	_, week := ts.ISOWeek()
	return TimeRow{
		StartTime: ts,
		Hour:      ts.Hour(),
		Day:       ts.Day(),
		Week:      week,
		Month:     int(ts.Month()),
		Year:      ts.Year(),
		Weekday:   (int(ts.Weekday()) + 6) % 7,
	}
}
