package scan

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/ppiankov/agentgate/internal/model"
)

// base64Shape matches a whole token drawn from the base64 alphabet,
// at least 16 characters, with optional padding.
var base64Shape = regexp.MustCompile(`^[A-Za-z0-9+/]{16,}={0,2}$`)

// SweepResult collects what a base64 sweep found in decoded payloads.
type SweepResult struct {
	Decoded    int
	Injection  []string
	Credential []string
}

// Hit reports whether any decoded payload matched.
func (r SweepResult) Hit() bool {
	return len(r.Injection) > 0 || len(r.Credential) > 0
}

// Sweeper decodes base64-shaped strings and re-scans the plaintext.
type Sweeper struct {
	Injection   *PhraseSet
	Credentials *PhraseSet
}

// Value walks v recursively and sweeps every string it contains.
func (s *Sweeper) Value(v model.Value) SweepResult {
	var res SweepResult
	v.Walk(func(str string) {
		s.sweepString(str, &res)
	})
	return res
}

// Text sweeps a single string.
func (s *Sweeper) Text(text string) SweepResult {
	var res SweepResult
	s.sweepString(text, &res)
	return res
}

func (s *Sweeper) sweepString(str string, res *SweepResult) {
	for _, tok := range strings.Fields(str) {
		plain, ok := DecodeBase64(tok)
		if !ok {
			continue
		}
		res.Decoded++
		res.Injection = appendUnique(res.Injection, s.Injection.Match(plain)...)
		res.Credential = appendUnique(res.Credential, s.Credentials.Match(plain)...)
	}
}

// DecodeBase64 speculatively decodes tok. It succeeds only when tok has a
// base64 shape and decodes to printable ASCII. Failures are "no match".
func DecodeBase64(tok string) (string, bool) {
	tok = strings.Trim(tok, `"'.,;()[]{}`)
	if !base64Shape.MatchString(tok) {
		return "", false
	}
	b, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(tok, "="))
		if err != nil {
			return "", false
		}
	}
	s := string(b)
	if !isPrintableASCII(s) {
		return "", false
	}
	return s, true
}

func isPrintableASCII(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\r' || c == '\t' {
			continue
		}
		if c < 32 || c > 126 {
			return false
		}
	}
	return true
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		found := false
		for _, d := range dst {
			if d == it {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, it)
		}
	}
	return dst
}
