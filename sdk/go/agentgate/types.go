package agentgate

import (
	"fmt"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/service"
)

// Decision is the enforcement outcome.
type Decision = model.Verdict

const (
	Allow  Decision = model.Allow
	Review Decision = model.Review
	Block  Decision = model.Block
)

// Call describes one tool invocation.
type Call struct {
	Tool string
	Args map[string]any
}

// Receipt is the recorded decision for one call.
type Receipt = service.Receipt

// OutputReceipt is the recorded screening of one tool result.
type OutputReceipt = service.OutputReceipt

// BlockedError is returned when a call is blocked or held for review.
// NeedsReview distinguishes the two.
type BlockedError = service.BlockedError

// OutputBlockedError is returned when a tool ran but its result failed
// output screening. The result is withheld.
type OutputBlockedError struct {
	Call    Call
	Receipt *OutputReceipt
}

func (e *OutputBlockedError) Error() string {
	if e.Receipt == nil {
		return fmt.Sprintf("agentgate: output of %s withheld", e.Call.Tool)
	}
	return fmt.Sprintf("agentgate: output of %s withheld (risk %d): %s",
		e.Call.Tool, e.Receipt.Risk, e.Receipt.Explanation)
}
