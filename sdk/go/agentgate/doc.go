// Package agentgate guards Go agent tool calls with the agentgate decision
// pipeline. It wraps tool functions, asks the gate before each call, and
// refuses to run calls that are blocked or held for review.
//
// Usage:
//
//	gate, err := agentgate.New(agentgate.WithAgent("ops-assistant", token))
//	fetch := gate.Wrap(fetchURL)
//	out, err := fetch(ctx, agentgate.Call{
//	    Tool: "http_request",
//	    Args: map[string]any{"url": "https://example.com"},
//	})
//	var blocked *agentgate.BlockedError
//	if errors.As(err, &blocked) { ... }
//
// By default the pipeline runs in-process against the files under
// ~/.agentgate. WithRemote sends every call to an agentgate server instead;
// an unreachable server blocks.
package agentgate
