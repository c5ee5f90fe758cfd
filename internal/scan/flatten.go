package scan

import (
	"strings"

	"github.com/ppiankov/agentgate/internal/model"
)

// Flatten renders tool + args + context as one searchable string.
// The agent token is never included. Case is preserved; phrase matching
// lower-cases on its own.
func Flatten(req model.ActionRequest) string {
	var sb strings.Builder
	sb.WriteString(req.Tool)
	if args := req.Args.Text(); args != "" {
		sb.WriteByte(' ')
		sb.WriteString(args)
	}

	c := req.Context
	for _, s := range []string{c.AgentID, c.TrustLevel, c.SessionID} {
		if s != "" {
			sb.WriteByte(' ')
			sb.WriteString(s)
		}
	}
	if len(c.AllowedTools) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(c.AllowedTools, ","))
	}
	if len(c.Extra) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(model.Map(c.Extra).Text())
	}
	return sb.String()
}
