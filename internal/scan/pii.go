package scan

import (
	"regexp"
	"sort"

	"github.com/ppiankov/agentgate/internal/model"
)

// PII detector names.
const (
	PIIEmail      = "email"
	PIIPhone      = "phone"
	PIISSN        = "ssn"
	PIICreditCard = "credit_card"
	PIIIPv4       = "ipv4"
	PIINationalID = "national_id"
)

type piiDetector struct {
	name string
	re   *regexp.Regexp
}

// Detectors run independently; one string may count toward several.
var piiDetectors = []piiDetector{
	{PIIEmail, regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{PIIPhone, regexp.MustCompile(`(?:\+?\d{1,2}[\s.\-])?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}\b`)},
	{PIISSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{PIICreditCard, regexp.MustCompile(`\b(?:4\d{3}|5[1-5]\d{2}|3[47]\d{2}|6011)[ \-]?\d{4}[ \-]?\d{4}[ \-]?\d{1,4}\b`)},
	{PIIIPv4, regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{PIINationalID, regexp.MustCompile(`\b[A-CEGHJ-PR-TW-Z]{2} ?\d{2} ?\d{2} ?\d{2} ?[A-D]\b`)},
}

// highRiskPII are the types that force a block when found in output.
var highRiskPII = map[string]bool{
	PIISSN:        true,
	PIICreditCard: true,
	PIINationalID: true,
}

// IsHighRiskPII reports whether the PII type is SSN/credit-card/national-ID shaped.
func IsHighRiskPII(typ string) bool {
	return highRiskPII[typ]
}

// PII counts matches of every detector in text. Only types and counts are
// returned, sorted by type; matched values are discarded.
func PII(text string) []model.PIIHit {
	if text == "" {
		return nil
	}
	var hits []model.PIIHit
	for _, d := range piiDetectors {
		if n := len(d.re.FindAllStringIndex(text, -1)); n > 0 {
			hits = append(hits, model.PIIHit{Type: d.name, Count: n})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Type < hits[j].Type })
	return hits
}
