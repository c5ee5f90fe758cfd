package trust

import (
	"math"
	"strings"
)

// Trust tier names. Higher distrust = higher floor and multiplier.
const (
	Trusted   = "trusted"
	Internal  = "internal"
	External  = "external"
	Untrusted = "untrusted"
)

// Tier is a caller-declared trust classification.
type Tier struct {
	Name       string  `yaml:"name" json:"name"`
	Floor      int     `yaml:"floor" json:"floor"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Tiers lists the four tiers in order of increasing distrust.
var Tiers = []Tier{
	{Name: Trusted, Floor: 0, Multiplier: 1.0},
	{Name: Internal, Floor: 10, Multiplier: 1.0},
	{Name: External, Floor: 25, Multiplier: 1.3},
	{Name: Untrusted, Floor: 40, Multiplier: 1.6},
}

// Resolve maps a trust-level string to its tier.
// Empty or unrecognized levels resolve to the internal tier.
func Resolve(level string) Tier {
	level = strings.ToLower(strings.TrimSpace(level))
	for _, t := range Tiers {
		if t.Name == level {
			return t
		}
	}
	return Tiers[1]
}

// Scale multiplies a severity by the tier multiplier, rounded and capped at 100.
func (t Tier) Scale(severity int) int {
	s := int(math.Round(float64(severity) * t.Multiplier))
	if s > 100 {
		return 100
	}
	if s < 0 {
		return 0
	}
	return s
}

// Distrusted reports whether the tier is external or untrusted.
func (t Tier) Distrusted() bool {
	return t.Name == External || t.Name == Untrusted
}
