package ratelimit

import (
	"fmt"
	"time"

	"github.com/ppiankov/agentgate/internal/model"
)

// Result is the outcome of a velocity check.
type Result struct {
	Triggered bool
	Type      string
	Detail    string
	Boost     int
	Current   int
	Limit     int
}

// PolicyID returns the policy identifier for a triggered result.
func (r Result) PolicyID() string {
	if !r.Triggered {
		return ""
	}
	return "velocity-" + r.Type
}

// Check runs the windows in order against the caller's history and returns
// the first one whose count reached its threshold. The current call is not
// part of history and is not counted.
func Check(cfg Config, tool string, history []model.HistoryEntry, now time.Time) Result {
	for _, w := range cfg {
		if !w.Enabled() {
			continue
		}
		scope := ""
		if w.SameTool {
			scope = tool
		}
		count := Count(history, scope, w.Within, now)
		if count < w.MaxCalls {
			continue
		}
		detail := fmt.Sprintf("%s: %d calls in %s (limit %d)", w.Type, count, w.Within, w.MaxCalls)
		if w.SameTool {
			detail = fmt.Sprintf("%s: %d calls of %s in %s (limit %d)", w.Type, count, tool, w.Within, w.MaxCalls)
		}
		return Result{
			Triggered: true,
			Type:      w.Type,
			Detail:    detail,
			Boost:     w.Boost,
			Current:   count,
			Limit:     w.MaxCalls,
		}
	}
	return Result{}
}
