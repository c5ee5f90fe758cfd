package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func FuzzVerify(f *testing.F) {
	valid := filepath.Join(f.TempDir(), "valid.jsonl")
	l, err := Open(valid)
	if err != nil {
		f.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		l.Record(sampleEntry(i))
	}
	l.Close()
	data, _ := os.ReadFile(valid)
	f.Add(data)
	f.Add([]byte{})
	f.Add([]byte(`{"receipt_id":"x"}` + "\n"))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		path := filepath.Join(t.TempDir(), "fuzz.jsonl")
		os.WriteFile(path, data, 0600)
		Verify(path)
		Replay(path, Filter{})
	})
}
