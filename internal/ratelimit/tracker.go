package ratelimit

import (
	"time"

	"github.com/ppiankov/agentgate/internal/model"
)

// Count returns how many history entries fall inside (now-within, now].
// When tool is non-empty only entries for that tool are counted.
// Entries stamped in the future are counted as current.
func Count(history []model.HistoryEntry, tool string, within time.Duration, now time.Time) int {
	cutoff := now.Add(-within)
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		if !e.Timestamp.After(cutoff) {
			continue
		}
		if tool != "" && e.Tool != tool {
			continue
		}
		n++
	}
	return n
}
