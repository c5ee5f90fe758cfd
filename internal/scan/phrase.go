package scan

import "strings"

// PhraseSet is a case-insensitive substring matcher over a fixed list.
type PhraseSet struct {
	phrases []string
}

// NewPhraseSet builds a PhraseSet. Empty entries are dropped.
func NewPhraseSet(phrases []string) *PhraseSet {
	ps := &PhraseSet{}
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			ps.phrases = append(ps.phrases, p)
		}
	}
	return ps
}

// Match returns the distinct phrases found in text, in table order.
func (ps *PhraseSet) Match(text string) []string {
	if ps == nil || len(ps.phrases) == 0 || text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var hits []string
	seen := make(map[string]bool)
	for _, p := range ps.phrases {
		if !seen[p] && strings.Contains(lower, p) {
			seen[p] = true
			hits = append(hits, p)
		}
	}
	return hits
}

// Any reports whether at least one phrase occurs in text.
func (ps *PhraseSet) Any(text string) bool {
	if ps == nil || text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range ps.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Len returns the number of phrases.
func (ps *PhraseSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.phrases)
}
