package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func testRegistry() *Registry {
	return NewRegistry(map[string]*Agent{
		"billing-bot": {
			Capabilities: []string{"http_request", "payment_refund"},
			Owner:        "finance",
			Fingerprint:  "fp-123",
			TrustLevel:   "internal",
		},
		"wildcard-agent": {
			Capabilities: []string{"*"},
		},
	})
}

func TestRegistryLookupKnown(t *testing.T) {
	r := testRegistry()
	a := r.Lookup("billing-bot")
	if a == nil {
		t.Fatal("expected agent for billing-bot")
	}
	if a.Owner != "finance" {
		t.Errorf("expected owner finance, got %q", a.Owner)
	}
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := testRegistry()
	if r.Lookup("unknown-bot") != nil {
		t.Error("expected nil for unknown agent")
	}
	var nilReg *Registry
	if nilReg.Lookup("billing-bot") != nil {
		t.Error("expected nil registry lookup to return nil")
	}
}

func TestHasCapability(t *testing.T) {
	r := testRegistry()
	if !r.Lookup("billing-bot").HasCapability("HTTP_REQUEST") {
		t.Error("expected case-insensitive capability match")
	}
	if r.Lookup("billing-bot").HasCapability("shell") {
		t.Error("billing-bot must not have shell")
	}
	if !r.Lookup("wildcard-agent").HasCapability("shell") {
		t.Error("wildcard agent should have every capability")
	}
}

func TestIDsSorted(t *testing.T) {
	ids := testRegistry().IDs()
	if len(ids) != 2 || ids[0] != "billing-bot" || ids[1] != "wildcard-agent" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestLoadRegistryMissingFileUsesDefault(t *testing.T) {
	r, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.IsRegistered("ops-assistant") {
		t.Error("expected default registry")
	}
}

func TestLoadRegistryFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `agents:
  research-bot:
    capabilities: [http_request, file_read]
    owner: research
    fingerprint: fp-abc
    trust_level: external
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	a := r.Lookup("research-bot")
	if a == nil {
		t.Fatal("expected research-bot")
	}
	if a.Fingerprint != "fp-abc" || a.TrustLevel != "external" {
		t.Errorf("unexpected agent %+v", a)
	}
}

func TestLoadRegistryInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	os.WriteFile(path, []byte("agents: [not: a map"), 0644)
	if _, err := LoadRegistry(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
