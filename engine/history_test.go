package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistoryCountBound(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var history []Sample
	n := historyMaxEntries + 500
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Millisecond)
		history = appendSample(history, Sample{Timestamp: ts, Grams: float64(i)}, ts)
	}

	assert.Len(t, history, historyMaxEntries)
	// The most recent entries survive, in order.
	assert.Equal(t, float64(n-historyMaxEntries), history[0].Grams)
	assert.Equal(t, float64(n-1), history[len(history)-1].Grams)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Timestamp.After(history[i-1].Timestamp))
	}
}

func TestHistoryAgeBound(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var history []Sample
	history = appendSample(history, Sample{Timestamp: start, Grams: 1}, start)

	// Still within the age bound.
	mid := start.Add(historyMaxAge - time.Second)
	history = appendSample(history, Sample{Timestamp: mid, Grams: 2}, mid)
	assert.Len(t, history, 2)

	// The first entry is now older than the age bound relative to this append.
	late := start.Add(historyMaxAge + time.Second)
	history = appendSample(history, Sample{Timestamp: late, Grams: 3}, late)
	assert.Len(t, history, 2)
	assert.Equal(t, 2.0, history[0].Grams)
	assert.Equal(t, 3.0, history[1].Grams)
}

func TestHistoryAgeBoundAppliedBeforeCountBound(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var history []Sample
	for i := 0; i < 10; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		history = appendSample(history, Sample{Timestamp: ts, Grams: float64(i)}, ts)
	}
	// An append 31 minutes after the first sample evicts just that sample.
	ts := start.Add(31 * time.Minute)
	history = appendSample(history, Sample{Timestamp: ts, Grams: 99}, ts)
	assert.Equal(t, 1.0, history[0].Grams)
	assert.Equal(t, 99.0, history[len(history)-1].Grams)
}
