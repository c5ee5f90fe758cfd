package identity

import "testing"

func TestVerify(t *testing.T) {
	r := testRegistry()
	tests := []struct {
		name     string
		agentID  string
		token    string
		verified bool
		boost    int
	}{
		{"missing id", "", "", false, BoostMissingID},
		{"unregistered", "ghost", "", false, BoostUnregistered},
		{"registered no token", "billing-bot", "", true, 0},
		{"token id only", "billing-bot", "billing-bot", true, 0},
		{"token with fingerprint", "billing-bot", "billing-bot:fp-123", true, 0},
		{"token extra segments", "billing-bot", "billing-bot:fp-123:nonce", true, 0},
		{"token id mismatch", "billing-bot", "other-bot:fp-123", false, BoostMismatch},
		{"token fingerprint spoof", "billing-bot", "billing-bot:fp-999", false, BoostSpoofing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Verify(r, tt.agentID, tt.token)
			if res.Verified != tt.verified {
				t.Errorf("verified = %v, want %v (%s)", res.Verified, tt.verified, res.Reason)
			}
			if res.RiskBoost != tt.boost {
				t.Errorf("boost = %d, want %d", res.RiskBoost, tt.boost)
			}
			if !res.Verified && res.Reason == "" {
				t.Error("expected a reason for unverified identity")
			}
		})
	}
}

func TestVerifyReturnsRegisteredInfo(t *testing.T) {
	res := Verify(testRegistry(), "billing-bot", "")
	if res.Owner != "finance" || res.TrustLevel != "internal" {
		t.Errorf("unexpected info %+v", res)
	}
	if len(res.Capabilities) != 2 {
		t.Errorf("expected 2 capabilities, got %v", res.Capabilities)
	}
}

func TestVerifyNilRegistry(t *testing.T) {
	res := Verify(nil, "billing-bot", "")
	if res.Verified || res.RiskBoost != BoostUnregistered {
		t.Errorf("expected unregistered result, got %+v", res)
	}
}
