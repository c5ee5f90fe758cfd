// Package policydiff compares two policy files by their effective rule sets.
package policydiff

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/ppiankov/agentgate/internal/model"
	"github.com/ppiankov/agentgate/internal/policy"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// RuleChange represents a policy addition, removal, or modification.
type RuleChange struct {
	Type   string   `json:"type"` // "added", "removed", "changed"
	ID     string   `json:"id"`
	Rule   string   `json:"rule"`
	Fields []Change `json:"fields,omitempty"`
}

// DiffResult holds the comparison of two policy files.
type DiffResult struct {
	OldPath     string       `json:"old_path"`
	NewPath     string       `json:"new_path"`
	Changes     []Change     `json:"changes"`
	RuleChanges []RuleChange `json:"rule_changes"`
	HasChanges  bool         `json:"has_changes"`
}

// Diff compares the effective policy sets of two files. Policies are
// matched by id; built-in defaults take part unless a file disables them.
func Diff(old, new *policy.Config) *DiffResult {
	r := &DiffResult{}

	if old.DisableDefaults != new.DisableDefaults {
		comment := "defaults enabled"
		if new.DisableDefaults {
			comment = "defaults disabled"
		}
		r.Changes = append(r.Changes, Change{
			Field:   "disable_defaults",
			Old:     strconv.FormatBool(old.DisableDefaults),
			New:     strconv.FormatBool(new.DisableDefaults),
			Comment: comment,
		})
	}

	diffPolicies(r, old.Effective(), new.Effective())

	r.HasChanges = len(r.Changes) > 0 || len(r.RuleChanges) > 0
	return r
}

func ruleLabel(p policy.Policy) string {
	status := p.Status
	if status == "" {
		status = policy.StatusActive
	}
	return fmt.Sprintf("%s → %s severity=%d (%s)", p.ID, p.Verdict(), p.Severity, status)
}

func diffPolicies(r *DiffResult, oldSet, newSet []policy.Policy) {
	oldMap := make(map[string]policy.Policy, len(oldSet))
	for _, p := range oldSet {
		oldMap[p.ID] = p
	}
	newMap := make(map[string]policy.Policy, len(newSet))
	for _, p := range newSet {
		newMap[p.ID] = p
	}

	// Added and changed, in new-file order.
	for _, p := range newSet {
		prev, exists := oldMap[p.ID]
		if !exists {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "added", ID: p.ID, Rule: ruleLabel(p)})
			continue
		}
		if fields := policyFields(prev, p); len(fields) > 0 {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "changed", ID: p.ID, Rule: ruleLabel(p), Fields: fields})
		}
	}

	for _, p := range oldSet {
		if _, exists := newMap[p.ID]; !exists {
			r.RuleChanges = append(r.RuleChanges, RuleChange{Type: "removed", ID: p.ID, Rule: ruleLabel(p)})
		}
	}
}

func policyFields(old, new policy.Policy) []Change {
	var out []Change
	if old.Verdict() != new.Verdict() {
		out = append(out, Change{
			Field:   "action",
			Old:     string(old.Verdict()),
			New:     string(new.Verdict()),
			Comment: rankComment(old.Verdict(), new.Verdict()),
		})
	}
	if old.Severity != new.Severity {
		out = append(out, Change{
			Field:   "severity",
			Old:     strconv.Itoa(old.Severity),
			New:     strconv.Itoa(new.Severity),
			Comment: intComment(old.Severity, new.Severity),
		})
	}
	if old.Active() != new.Active() || old.Status != new.Status {
		comment := ""
		switch {
		case new.Active() && !old.Active():
			comment = "enabled"
		case old.Active() && !new.Active():
			comment = "disabled"
		}
		out = append(out, Change{
			Field:   "status",
			Old:     string(old.Status),
			New:     string(new.Status),
			Comment: comment,
		})
	}
	if old.Version != new.Version {
		out = append(out, Change{
			Field: "version",
			Old:   strconv.Itoa(old.Version),
			New:   strconv.Itoa(new.Version),
		})
	}
	if old.Desc != new.Desc {
		out = append(out, Change{Field: "desc", Old: old.Desc, New: new.Desc})
	}
	if !reflect.DeepEqual(old.Match, new.Match) {
		out = append(out, Change{Field: "match", Comment: "matcher changed"})
	}
	return out
}

func intComment(old, new int) string {
	if new > old {
		return "stricter"
	}
	return "looser"
}

func rankComment(old, new model.Verdict) string {
	if new.Rank() > old.Rank() {
		return "stricter"
	}
	return "looser"
}
