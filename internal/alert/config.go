package alert

// Config is one webhook destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // decisions or kinds: "block", "review", "degraded", "kill-switch"
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event kinds beyond plain decisions.
const (
	KindAction     = "action"
	KindOutput     = "output"
	KindDegraded   = "degraded"
	KindKillSwitch = "kill-switch"
)

// Event is the payload delivered to webhooks.
type Event struct {
	Timestamp   string `json:"timestamp"`
	Kind        string `json:"kind"`
	ReceiptID   string `json:"receipt_id,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Tool        string `json:"tool,omitempty"`
	Decision    string `json:"decision"`
	Risk        int    `json:"risk"`
	Policy      string `json:"policy,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}
