package identity

import "strings"

// Risk boosts applied for each verification failure.
const (
	BoostMissingID    = 30
	BoostUnregistered = 25
	BoostMismatch     = 40
	BoostSpoofing     = 55
)

// Result is the outcome of verifying one caller's declared identity.
// It is a severity-scaled signal, not a decision.
type Result struct {
	Verified     bool
	Reason       string
	RiskBoost    int
	Capabilities []string
	Owner        string
	TrustLevel   string
}

// Verify checks agentID against the registry and an optional token of the
// form "<agent_id>[:<fingerprint>[:...]]".
func Verify(r *Registry, agentID, token string) Result {
	if agentID == "" {
		return Result{Reason: "no agent id provided", RiskBoost: BoostMissingID}
	}

	agent := r.Lookup(agentID)
	if agent == nil {
		return Result{Reason: "agent not registered", RiskBoost: BoostUnregistered}
	}

	if token != "" {
		parts := strings.Split(token, ":")
		if parts[0] != agentID {
			return Result{Reason: "token does not match agent id", RiskBoost: BoostMismatch}
		}
		if len(parts) > 1 && parts[1] != agent.Fingerprint {
			return Result{Reason: "token fingerprint mismatch (possible spoofing)", RiskBoost: BoostSpoofing}
		}
	}

	return Result{
		Verified:     true,
		Capabilities: append([]string(nil), agent.Capabilities...),
		Owner:        agent.Owner,
		TrustLevel:   agent.TrustLevel,
	}
}
