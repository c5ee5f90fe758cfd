package ratelimit

import "time"

// Window is one sliding-window velocity rule.
// Zero MaxCalls or zero Within disables the rule.
type Window struct {
	Type     string        `yaml:"type"`
	MaxCalls int           `yaml:"max_calls"`
	Within   time.Duration `yaml:"within"`
	Boost    int           `yaml:"boost"`
	SameTool bool          `yaml:"same_tool,omitempty"`
}

// Enabled reports whether the window has a usable threshold.
func (w Window) Enabled() bool {
	return w.MaxCalls > 0 && w.Within > 0
}

// Config is the ordered velocity table. Order is priority: first match wins.
type Config []Window

// Rule type identifiers. They double as policy id suffixes.
const (
	TypeBurst      = "burst"
	TypeSustained  = "sustained"
	TypeToolRepeat = "tool-repeat"
)

// DefaultConfig returns the stock burst / sustained / tool-repeat table.
func DefaultConfig() Config {
	return Config{
		{Type: TypeBurst, MaxCalls: 8, Within: 10 * time.Second, Boost: 40},
		{Type: TypeSustained, MaxCalls: 30, Within: 60 * time.Second, Boost: 25},
		{Type: TypeToolRepeat, MaxCalls: 5, Within: 30 * time.Second, Boost: 30, SameTool: true},
	}
}

// HasLimits returns true if any window has a configured threshold.
func (c Config) HasLimits() bool {
	for _, w := range c {
		if w.Enabled() {
			return true
		}
	}
	return false
}
