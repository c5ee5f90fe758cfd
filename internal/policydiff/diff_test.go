package policydiff

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentgate/internal/policy"
)

func parse(t *testing.T, src string) *policy.Config {
	t.Helper()
	cfg := &policy.Config{}
	if err := yaml.Unmarshal([]byte(src), cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func findRule(r *DiffResult, id string) *RuleChange {
	for i := range r.RuleChanges {
		if r.RuleChanges[i].ID == id {
			return &r.RuleChanges[i]
		}
	}
	return nil
}

func findField(rc *RuleChange, field string) *Change {
	for i := range rc.Fields {
		if rc.Fields[i].Field == field {
			return &rc.Fields[i]
		}
	}
	return nil
}

func TestIdenticalPoliciesNoChanges(t *testing.T) {
	r := Diff(&policy.Config{}, &policy.Config{})
	if r.HasChanges {
		t.Errorf("expected no changes, got %d changes + %d rule changes",
			len(r.Changes), len(r.RuleChanges))
	}
}

func TestDefaultFileAgainstBuiltins(t *testing.T) {
	r := Diff(&policy.Config{}, parse(t, policy.DefaultConfigYAML()))
	if !r.HasChanges {
		t.Fatal("expected changes")
	}

	rc := findRule(r, "external-http-review")
	if rc == nil || rc.Type != "changed" {
		t.Fatalf("expected external-http-review changed, got %+v", rc)
	}
	sev := findField(rc, "severity")
	if sev == nil || sev.Old != "40" || sev.New != "30" || sev.Comment != "looser" {
		t.Errorf("expected severity 40→30 looser, got %+v", sev)
	}
	if v := findField(rc, "version"); v == nil || v.New != "2" {
		t.Errorf("expected version bump, got %+v", v)
	}

	added := findRule(r, "prod-db-block")
	if added == nil || added.Type != "added" {
		t.Errorf("expected prod-db-block added, got %+v", added)
	}
}

func TestActionEscalationIsStricter(t *testing.T) {
	old := parse(t, `
policies:
  - id: payment-review
    severity: 70
    action: review
    match: {tool_prefix: payment}
`)
	new := parse(t, `
policies:
  - id: payment-review
    severity: 70
    action: block
    match: {tool_prefix: payment}
`)
	r := Diff(old, new)
	rc := findRule(r, "payment-review")
	if rc == nil {
		t.Fatal("expected payment-review change")
	}
	a := findField(rc, "action")
	if a == nil || a.Old != "review" || a.New != "block" || a.Comment != "stricter" {
		t.Errorf("expected review→block stricter, got %+v", a)
	}
	if findField(rc, "match") != nil {
		t.Error("matcher did not change but was reported")
	}
}

func TestStatusAndMatchChanges(t *testing.T) {
	old := parse(t, `
policies:
  - id: data-export-review
    severity: 50
    action: review
    status: draft
    match: {tools: [export_table, dump_database]}
`)
	new := parse(t, `
policies:
  - id: data-export-review
    severity: 50
    action: review
    status: active
    match: {tools: [export_table]}
`)
	rc := findRule(Diff(old, new), "data-export-review")
	if rc == nil {
		t.Fatal("expected data-export-review change")
	}
	if s := findField(rc, "status"); s == nil || s.Comment != "enabled" {
		t.Errorf("expected status enabled, got %+v", s)
	}
	if findField(rc, "match") == nil {
		t.Error("expected matcher change")
	}
}

func TestDisableDefaultsRemovesBuiltins(t *testing.T) {
	r := Diff(&policy.Config{}, parse(t, "disable_defaults: true\npolicies: []\n"))

	if len(r.Changes) != 1 || r.Changes[0].Field != "disable_defaults" {
		t.Fatalf("expected disable_defaults change, got %+v", r.Changes)
	}
	removed := 0
	for _, rc := range r.RuleChanges {
		if rc.Type == "removed" {
			removed++
		}
	}
	if removed != len(policy.DefaultPolicies()) {
		t.Errorf("expected %d removed, got %d", len(policy.DefaultPolicies()), removed)
	}
}

func TestFormatText(t *testing.T) {
	r := Diff(&policy.Config{}, parse(t, policy.DefaultConfigYAML()))
	r.OldPath, r.NewPath = "builtin", "policies.yaml"

	out := FormatText(r)
	for _, want := range []string{
		"Policy diff: builtin → policies.yaml",
		"~ external-http-review",
		"severity:",
		"(looser)",
		"+ prod-db-block",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatTextNoChanges(t *testing.T) {
	out := FormatText(&DiffResult{OldPath: "a", NewPath: "b"})
	if !strings.Contains(out, "No changes detected") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFormatJSON(t *testing.T) {
	r := Diff(&policy.Config{}, parse(t, policy.DefaultConfigYAML()))
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"has_changes": true`) {
		t.Errorf("expected has_changes true in %s", out)
	}
}
