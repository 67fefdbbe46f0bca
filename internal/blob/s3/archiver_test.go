package s3blob

import (
	"bytes"
	"testing"
	"time"
)

func TestScanPathIsDatePartitioned(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 29, 57, 0, time.UTC)
	got := scanPath(ts)
	want := "scans/2026-08-30/142957.jsonl"
	if got != want {
		t.Fatalf("scanPath = %q, want %q", got, want)
	}
}

func TestMarshalJSONLOneLinePerRecord(t *testing.T) {
	type rec struct {
		Pair string `json:"pair"`
	}
	buf, err := marshalJSONL([]rec{{Pair: "ADA/USD"}, {Pair: "MIN/ADA"}})
	if err != nil {
		t.Fatalf("marshalJSONL returned error: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(buf, "\n"), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf)
	}
	if !bytes.Contains(lines[0], []byte(`"pair":"ADA/USD"`)) {
		t.Errorf("unexpected first line: %s", lines[0])
	}
}
