package gate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/agentgate/internal/model"
)

func TestDefaultTablesValid(t *testing.T) {
	if errs := DefaultTables().Validate(); len(errs) != 0 {
		t.Fatalf("default tables invalid: %v", errs)
	}
}

func TestInjectionPhrasesSpareDestructiveShell(t *testing.T) {
	// Destructive shell belongs to the policy layer, not the firewall.
	p := compileTables(DefaultTables())
	if hits := p.injection.Match("shell cmd=rm -rf / && dd if=/dev/zero of=/dev/sda"); len(hits) != 0 {
		t.Errorf("unexpected injection hits %v", hits)
	}
}

func TestLoadTablesMissingFile(t *testing.T) {
	tables, err := LoadTables("/nonexistent/tables.yaml")
	if err != nil {
		t.Fatalf("expected defaults, got %v", err)
	}
	if len(tables.HighRiskTools) != 3 {
		t.Errorf("expected default high-risk tools, got %v", tables.HighRiskTools)
	}
}

func TestLoadTablesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	content := `
medium_risk_tools: [deploy]
velocity:
  - type: burst
    max_calls: 3
    within: 5s
    boost: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	tables, err := LoadTables(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tables.MediumRiskTools) != 1 || tables.MediumRiskTools[0] != "deploy" {
		t.Errorf("override not applied: %v", tables.MediumRiskTools)
	}
	if len(tables.Velocity) != 1 || tables.Velocity[0].Within != 5*time.Second {
		t.Errorf("velocity override not applied: %+v", tables.Velocity)
	}
	if len(tables.InjectionPhrases) == 0 {
		t.Error("unspecified fields must keep defaults")
	}

	e := NewEvaluator(NewSnapshot(nil, nil, tables, ""), Config{Now: func() time.Time { return testNow }})
	history := []model.HistoryEntry{
		{Tool: "a", Timestamp: testNow.Add(-time.Second)},
		{Tool: "b", Timestamp: testNow.Add(-2 * time.Second)},
		{Tool: "c", Timestamp: testNow.Add(-3 * time.Second)},
	}
	d := e.Evaluate(req("d", nil, verified), nil, false, history)
	if d.Policy != "velocity-burst" || d.Risk != 60 {
		t.Errorf("expected tuned burst 10+50, got %s/%d", d.Policy, d.Risk)
	}
}

func TestLoadTablesInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	os.WriteFile(path, []byte("velocity: {{{"), 0o600)
	if _, err := LoadTables(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func FuzzTablesYAML(f *testing.F) {
	out, _ := yaml.Marshal(DefaultTables())
	f.Add(out)
	f.Add([]byte("chains:\n  rules:\n    - pattern: x\n      kind: sequence\n"))
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		tables := DefaultTables()
		if yaml.Unmarshal(data, tables) != nil {
			return
		}
		tables.Validate()
		compileTables(tables)
	})
}
