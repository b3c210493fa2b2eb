package engine

import "time"

const (
	historyMaxAge     = 30 * time.Minute
	historyMaxEntries = 3000
)

// Sample is one smoothed reading in a slot's history.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Grams     float64   `json:"grams"`
	Stable    bool      `json:"stable"`
}

// appendSample appends in chronological order and applies retention: first
// drop leading entries older than now minus the age bound, then drop the
// oldest entries over the count bound. Both are hard caps, checked after
// every append so the history can never grow unbounded.
func appendSample(history []Sample, s Sample, now time.Time) []Sample {
	history = append(history, s)

	cutoff := now.Add(-historyMaxAge)
	firstKept := 0
	for firstKept < len(history) && history[firstKept].Timestamp.Before(cutoff) {
		firstKept++
	}
	if excess := len(history) - firstKept - historyMaxEntries; excess > 0 {
		firstKept += excess
	}
	if firstKept > 0 {
		history = append(history[:0], history[firstKept:]...)
	}
	return history
}
