package agentgate

import (
	"context"
)

// ToolFunc is the function signature that Wrap guards.
type ToolFunc func(ctx context.Context, call Call) (any, error)

// Wrap returns a new ToolFunc that asks the gate before calling fn.
// Blocked and held calls return a *BlockedError without calling fn.
func (c *Client) Wrap(fn ToolFunc, opts ...WrapOption) ToolFunc {
	var w wrapConfig
	for _, o := range opts {
		o(&w)
	}

	return func(ctx context.Context, call Call) (any, error) {
		r, err := c.check(ctx, call, w)
		if err != nil {
			return nil, err
		}
		if r.Verdict() != Allow {
			return nil, &BlockedError{Receipt: r}
		}

		out, err := fn(ctx, call)
		if err != nil || !w.screen {
			return out, err
		}
		text, ok := out.(string)
		if !ok {
			return out, nil
		}
		or, err := c.Screen(ctx, text, r)
		if err != nil {
			return nil, err
		}
		if or.Decision == Block {
			return nil, &OutputBlockedError{Call: call, Receipt: or}
		}
		return out, nil
	}
}
