package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Filter selects receipts for Replay. Zero fields match everything.
type Filter struct {
	AgentID   string
	SessionID string
	Kind      Kind
	From      time.Time
	To        time.Time
}

func (f Filter) match(e Entry) bool {
	if f.AgentID != "" && e.AgentID != f.AgentID {
		return false
	}
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts := e.Time()
	if ts.IsZero() {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

// PolicyCount is how often one policy id appeared in matching receipts.
type PolicyCount struct {
	Policy string `json:"policy"`
	Count  int    `json:"count"`
}

// Summary aggregates matching receipts.
type Summary struct {
	Total          int           `json:"total"`
	Actions        int           `json:"actions"`
	Outputs        int           `json:"outputs"`
	AllowCount     int           `json:"allow_count"`
	ReviewCount    int           `json:"review_count"`
	BlockCount     int           `json:"block_count"`
	MaxRisk        int           `json:"max_risk"`
	TopPolicies    []PolicyCount `json:"top_policies,omitempty"`
	FirstTimestamp string        `json:"first_timestamp,omitempty"`
	LastTimestamp  string        `json:"last_timestamp,omitempty"`
}

// ReplayResult holds the matching receipts in log order and their summary.
type ReplayResult struct {
	Filter  Filter  `json:"-"`
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Replay reads the log and returns receipts matching filter. Malformed lines
// are skipped; use Verify to detect them.
func Replay(path string, filter Filter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	res := &ReplayResult{Filter: filter}
	policies := map[string]int{}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if !filter.match(e) {
			continue
		}
		res.Entries = append(res.Entries, e)
		res.Summary.add(e, policies)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	res.Summary.TopPolicies = topPolicies(policies, 5)
	return res, nil
}

func (s *Summary) add(e Entry, policies map[string]int) {
	s.Total++
	if e.Kind == KindOutput {
		s.Outputs++
	} else {
		s.Actions++
	}
	switch e.Decision {
	case "allow":
		s.AllowCount++
	case "review":
		s.ReviewCount++
	default:
		s.BlockCount++
	}
	if e.Risk > s.MaxRisk {
		s.MaxRisk = e.Risk
	}
	for _, id := range strings.Split(e.Policy, ",") {
		if id = strings.TrimSpace(id); id != "" && id != "none" {
			policies[id]++
		}
	}
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}

func topPolicies(m map[string]int, n int) []PolicyCount {
	out := make([]PolicyCount, 0, len(m))
	for p, c := range m {
		out = append(out, PolicyCount{Policy: p, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Policy < out[j].Policy
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
