package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func sampleEntry(i int) Entry {
	return Entry{
		ReceiptID:  fmt.Sprintf("r-%04d", i),
		AgentID:    "ops-assistant",
		SessionID:  "s-001",
		Tool:       "http_request",
		Decision:   "allow",
		Policy:     "none",
		TrustTier:  "internal",
		PolicyHash: "sha256:test",
	}
}

func writeEntries(t *testing.T, path string, n int) {
	t.Helper()
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	for i := 0; i < n; i++ {
		if err := l.Record(sampleEntry(i)); err != nil {
			t.Fatal(err)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 5)

	res := Verify(path)
	if !res.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", res.ErrorLine, res.Error)
	}
	if res.Lines != 5 {
		t.Errorf("expected 5 lines, got %d", res.Lines)
	}
	lines := readLines(t, path)
	if res.Head != HashLine([]byte(lines[4])) {
		t.Error("head should be the hash of the last line")
	}
}

func TestFirstEntryReferencesGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 1)
	lines := readLines(t, path)
	if !strings.Contains(lines[0], GenesisHash) {
		t.Errorf("first entry should carry genesis hash: %s", lines[0])
	}
	if !strings.Contains(lines[0], `"kind":"action"`) {
		t.Errorf("kind should default to action: %s", lines[0])
	}
}

func TestTamperDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 5)

	lines := readLines(t, path)
	lines[2] = strings.Replace(lines[2], `"decision":"allow"`, `"decision":"block"`, 1)
	writeLines(t, path, lines)

	res := Verify(path)
	if res.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if res.ErrorLine != 4 {
		t.Errorf("expected break at line 4, got %d", res.ErrorLine)
	}
}

func TestDeletionDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 5)

	lines := readLines(t, path)
	writeLines(t, path, append(lines[:2:2], lines[3:]...))

	res := Verify(path)
	if res.Valid {
		t.Fatal("expected chain with deleted line to be invalid")
	}
	if res.ErrorLine != 3 {
		t.Errorf("expected break at line 3, got %d", res.ErrorLine)
	}
}

func TestInsertionDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 3)

	lines := readLines(t, path)
	forged := `{"ts":"2026-01-01T00:00:00.000Z","kind":"action","receipt_id":"forged","decision":"allow","risk":0,"policy_hash":"x","prev_hash":"sha256:bad"}`
	out := []string{lines[0], forged, lines[1], lines[2]}
	writeLines(t, path, out)

	if res := Verify(path); res.Valid || res.ErrorLine != 2 {
		t.Errorf("expected break at line 2, got valid=%v line=%d", res.Valid, res.ErrorLine)
	}
}

func TestGarbageLineDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 2)
	lines := readLines(t, path)
	writeLines(t, path, append(lines, "not json"))

	res := Verify(path)
	if res.Valid || res.ErrorLine != 3 {
		t.Errorf("expected parse error at line 3, got valid=%v line=%d", res.Valid, res.ErrorLine)
	}
	if !strings.Contains(res.Error, "parse error") {
		t.Errorf("unexpected error: %s", res.Error)
	}
}

func TestEmptyLogIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if l.Head() != GenesisHash {
		t.Errorf("empty log head should be genesis, got %s", l.Head())
	}
	l.Close()

	res := Verify(path)
	if !res.Valid || res.Lines != 0 {
		t.Errorf("expected valid empty log, got %+v", res)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	res := Verify(filepath.Join(t.TempDir(), "missing.jsonl"))
	if res.Valid || res.Error == "" {
		t.Errorf("expected open error, got %+v", res)
	}
}

func TestReopenContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 3)

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, path)
	if l.Head() != HashLine([]byte(lines[2])) {
		t.Error("reopened log should resume from the last line hash")
	}
	if err := l.Record(sampleEntry(99)); err != nil {
		t.Fatal(err)
	}
	l.Close()

	if res := Verify(path); !res.Valid || res.Lines != 4 {
		t.Errorf("expected valid 4-line chain after reopen, got %+v", res)
	}
}

func TestConcurrentRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := l.Record(sampleEntry(g*100 + i)); err != nil {
					t.Error(err)
				}
			}
		}(g)
	}
	wg.Wait()
	l.Close()

	if res := Verify(path); !res.Valid || res.Lines != 200 {
		t.Errorf("expected valid 200-line chain, got %+v", res)
	}
}

func TestTimestampPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	e := sampleEntry(1)
	e.Timestamp = "2026-03-01T10:00:00.000Z"
	l.Record(e)

	l.now = func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) }
	l.Record(sampleEntry(2))
	l.Close()

	lines := readLines(t, path)
	if !strings.Contains(lines[0], `"ts":"2026-03-01T10:00:00.000Z"`) {
		t.Errorf("explicit ts should be kept: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"ts":"2026-03-02T08:30:00.000Z"`) {
		t.Errorf("missing ts should be stamped: %s", lines[1])
	}
}

func TestHashLineFormat(t *testing.T) {
	h := HashLine([]byte("x"))
	if !strings.HasPrefix(h, "sha256:") || len(h) != len("sha256:")+64 {
		t.Errorf("unexpected hash format %q", h)
	}
}

func TestVerifyLargeLog(t *testing.T) {
	if testing.Short() {
		t.Skip("large log")
	}
	path := filepath.Join(t.TempDir(), "receipts.jsonl")
	writeEntries(t, path, 10000)

	start := time.Now()
	res := Verify(path)
	if !res.Valid || res.Lines != 10000 {
		t.Fatalf("expected valid 10000-line chain, got %+v", res)
	}
	if el := time.Since(start); el > 2*time.Second {
		t.Errorf("verify took %v", el)
	}
}
