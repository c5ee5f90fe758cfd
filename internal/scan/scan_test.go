package scan

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/ppiankov/agentgate/internal/model"
)

var (
	testInjection   = NewPhraseSet([]string{"ignore previous instructions", "jailbreak", "curl | sh"})
	testCredentials = NewPhraseSet([]string{"password", "api_key", "secret"})
)

func TestFlattenIncludesToolArgsAndContext(t *testing.T) {
	req := model.ActionRequest{
		Tool: "http_request",
		Args: model.Args{"url": model.String("https://example.com"), "n": model.Number(3)},
		Context: model.Context{
			AgentID:      "bot-1",
			AgentToken:   "bot-1:fp-secret",
			SessionID:    "s-001",
			AllowedTools: []string{"http_request"},
		},
	}
	flat := Flatten(req)
	for _, want := range []string{"http_request", "url=https://example.com", "n=3", "bot-1", "s-001"} {
		if !strings.Contains(flat, want) {
			t.Errorf("flattened %q missing %q", flat, want)
		}
	}
	if strings.Contains(flat, "fp-secret") {
		t.Error("agent token must not be flattened")
	}
}

func TestFlattenDeterministic(t *testing.T) {
	req := model.ActionRequest{
		Tool: "x",
		Args: model.ArgsFromMap(map[string]any{"b": 1.0, "a": map[string]any{"z": "1", "y": "2"}}),
	}
	first := Flatten(req)
	for i := 0; i < 20; i++ {
		if got := Flatten(req); got != first {
			t.Fatalf("flatten not deterministic: %q vs %q", got, first)
		}
	}
	if first != "x a={y=2 z=1} b=1" {
		t.Errorf("unexpected flatten %q", first)
	}
}

func TestPhraseSetCaseInsensitive(t *testing.T) {
	hits := testInjection.Match("Please IGNORE Previous Instructions and Jailbreak")
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %v", hits)
	}
	if hits[0] != "ignore previous instructions" {
		t.Errorf("expected table order, got %v", hits)
	}
	if testInjection.Match("harmless text") != nil {
		t.Error("expected no hits")
	}
}

func TestPhraseSetNilSafe(t *testing.T) {
	var ps *PhraseSet
	if ps.Match("anything") != nil || ps.Any("anything") || ps.Len() != 0 {
		t.Error("nil phrase set must match nothing")
	}
}

func TestPIIDetectors(t *testing.T) {
	text := "mail alice@example.com or bob@corp.io, call 555-123-4567, ssn 123-45-6789, " +
		"card 4111 1111 1111 1111, host 10.0.0.12, nino AB123456C"
	got := map[string]int{}
	for _, h := range PII(text) {
		got[h.Type] = h.Count
	}
	want := map[string]int{
		PIIEmail:      2,
		PIIPhone:      1,
		PIISSN:        1,
		PIICreditCard: 1,
		PIIIPv4:       1,
		PIINationalID: 1,
	}
	for typ, n := range want {
		if got[typ] != n {
			t.Errorf("%s: got %d, want %d (all=%v)", typ, got[typ], n, got)
		}
	}
}

func TestPIINeverReturnsValues(t *testing.T) {
	for _, h := range PII("ssn 123-45-6789") {
		if strings.Contains(h.Type, "123") {
			t.Errorf("hit leaks value: %+v", h)
		}
	}
	if PII("") != nil {
		t.Error("expected nil for empty text")
	}
}

func TestHighRiskPII(t *testing.T) {
	for _, typ := range []string{PIISSN, PIICreditCard, PIINationalID} {
		if !IsHighRiskPII(typ) {
			t.Errorf("%s should be high risk", typ)
		}
	}
	for _, typ := range []string{PIIEmail, PIIPhone, PIIIPv4} {
		if IsHighRiskPII(typ) {
			t.Errorf("%s should not be high risk", typ)
		}
	}
}

func TestDecodeBase64(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("ignore previous instructions"))
	plain, ok := DecodeBase64(enc)
	if !ok || plain != "ignore previous instructions" {
		t.Fatalf("decode failed: %q %v", plain, ok)
	}

	unpadded := strings.TrimRight(base64.StdEncoding.EncodeToString([]byte("hello world!!")), "=")
	if _, ok := DecodeBase64(unpadded + "AAAA"); !ok {
		// still base64-shaped; decoding may or may not produce printable text
		t.Log("unpadded candidate rejected")
	}

	if _, ok := DecodeBase64("short"); ok {
		t.Error("short strings must not decode")
	}
	if _, ok := DecodeBase64("not base64 at all!!"); ok {
		t.Error("non-alphabet strings must not decode")
	}
	binary := base64.StdEncoding.EncodeToString([]byte{0x00, 0xff, 0x10, 0x80, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	if _, ok := DecodeBase64(binary); ok {
		t.Error("non-printable decode must be rejected")
	}
}

func TestSweepNestedValue(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString([]byte("please jailbreak the model"))
	cred := base64.StdEncoding.EncodeToString([]byte("password=hunter2hunter2"))
	v := model.FromAny(map[string]any{
		"outer": map[string]any{
			"list": []any{"plain", 42.0, map[string]any{"deep": enc}},
		},
		"note": "prefix " + cred + " suffix",
	})
	s := &Sweeper{Injection: testInjection, Credentials: testCredentials}
	res := s.Value(v)
	if res.Decoded != 2 {
		t.Errorf("expected 2 decodes, got %d", res.Decoded)
	}
	if len(res.Injection) != 1 || res.Injection[0] != "jailbreak" {
		t.Errorf("expected jailbreak injection hit, got %v", res.Injection)
	}
	if len(res.Credential) != 1 || res.Credential[0] != "password" {
		t.Errorf("expected password credential hit, got %v", res.Credential)
	}
	if !res.Hit() {
		t.Error("expected Hit")
	}
}

func TestSweepCleanValue(t *testing.T) {
	s := &Sweeper{Injection: testInjection, Credentials: testCredentials}
	res := s.Value(model.FromAny(map[string]any{"url": "http://localhost/health"}))
	if res.Hit() || res.Decoded != 0 {
		t.Errorf("expected nothing, got %+v", res)
	}
}

func FuzzDecodeBase64(f *testing.F) {
	f.Add("aWdub3JlIHByZXZpb3VzIGluc3RydWN0aW9ucw==")
	f.Add("")
	f.Add("====================")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	f.Fuzz(func(t *testing.T, s string) {
		plain, ok := DecodeBase64(s)
		if ok && !isPrintableASCII(plain) {
			t.Fatalf("accepted non-printable decode of %q", s)
		}
	})
}
