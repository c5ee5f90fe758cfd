package audit

import "time"

// Kind distinguishes action receipts from output screenings.
type Kind string

const (
	KindAction Kind = "action"
	KindOutput Kind = "output"
)

// TimestampFormat is the layout used in the ts field.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one receipt line in the hash-chained JSONL log. Only fixed struct
// fields are used so json.Marshal output, and therefore the hash, is stable.
type Entry struct {
	Timestamp  string   `json:"ts"`
	Kind       Kind     `json:"kind"`
	ReceiptID  string   `json:"receipt_id"`
	AgentID    string   `json:"agent_id,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	Tool       string   `json:"tool,omitempty"`
	Decision   string   `json:"decision"`
	Risk       int      `json:"risk"`
	Policy     string   `json:"policy,omitempty"`
	TrustTier  string   `json:"trust_tier,omitempty"`
	Flags      []string `json:"flags,omitempty"`
	PolicyHash string   `json:"policy_hash"`
	PrevHash   string   `json:"prev_hash"`
}

// Time parses the entry timestamp. The zero time is returned for malformed
// values.
func (e Entry) Time() time.Time {
	t, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
