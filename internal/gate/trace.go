package gate

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/agentgate/internal/model"
)

// recorder accumulates trace steps and explanation fragments for one
// evaluation. It exists before any layer runs.
type recorder struct {
	trace []model.TraceStep
	expls []string
	last  time.Time
}

func newRecorder() *recorder {
	return &recorder{last: time.Now()}
}

func (r *recorder) step(layer int, key string, outcome model.Outcome, risk int, matched []string, detail string) {
	now := time.Now()
	elapsed := float64(now.Sub(r.last).Microseconds()) / 1000.0
	r.last = now
	r.trace = append(r.trace, model.TraceStep{
		Layer:     layer,
		Key:       key,
		Outcome:   outcome,
		Risk:      risk,
		Matched:   matched,
		Detail:    detail,
		ElapsedMs: elapsed,
	})
}

func (r *recorder) explain(format string, args ...any) {
	r.expls = append(r.expls, fmt.Sprintf(format, args...))
}

func (r *recorder) explanation(fallback string) string {
	if len(r.expls) == 0 {
		return fallback
	}
	return strings.Join(r.expls, "; ")
}
