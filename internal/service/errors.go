package service

import (
	"errors"
	"fmt"

	"github.com/ppiankov/agentgate/internal/model"
)

// ErrNoReviewQueue is returned by review operations when no queue is
// configured.
var ErrNoReviewQueue = errors.New("review queue not configured")

// BlockedError reports that a tool call was not allowed to run. It is
// returned by guards that wrap tool execution; inspect it with errors.As.
type BlockedError struct {
	Receipt *Receipt
}

func (e *BlockedError) Error() string {
	r := e.Receipt
	if r == nil {
		return "agentgate: call blocked"
	}
	return fmt.Sprintf("agentgate: %s %s by %s (risk %d): %s",
		r.Tool, verb(r.Verdict()), r.Policy, r.Risk, r.Explanation)
}

// NeedsReview reports whether the call is waiting on a human rather than
// refused outright.
func (e *BlockedError) NeedsReview() bool {
	return e.Receipt != nil && e.Receipt.Verdict() == model.Review
}

func verb(v model.Verdict) string {
	if v == model.Review {
		return "held for review"
	}
	return "blocked"
}
