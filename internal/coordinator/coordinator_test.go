package coordinator

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestSplitCmdline(t *testing.T) {
	raw := bytes.Join([][]byte{[]byte("radarsim"), []byte("eyJuYW1lIjoieCJ9")}, []byte{0})
	raw = append(raw, 0) // trailing NUL, as /proc/<pid>/cmdline always carries
	got := splitCmdline(raw)
	want := []string{"radarsim", "eyJuYW1lIjoieCJ9"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("splitCmdline() = %v, want %v", got, want)
	}
}

func TestParseStartCommandAcceptsMatchingBinary(t *testing.T) {
	sc := startCommand{Name: "history-01", WorkerType: "history-trawler", Enabled: true}
	data, _ := json.Marshal(sc)
	encoded := base64.StdEncoding.EncodeToString(data)

	got, ok := parseStartCommand("radarsim", []string{"/usr/local/bin/radarsim", encoded})
	if !ok {
		t.Fatal("expected parseStartCommand to accept a matching binary + encoded payload")
	}
	if got.Name != "history-01" {
		t.Fatalf("decoded name = %q, want history-01", got.Name)
	}
}

func TestParseStartCommandRejectsUnrelatedProcess(t *testing.T) {
	if _, ok := parseStartCommand("radarsim", []string{"/usr/bin/bash", "-c", "echo hi"}); ok {
		t.Fatal("expected parseStartCommand to reject an unrelated process")
	}
}

func TestParseStartCommandRejectsWrongBinary(t *testing.T) {
	if _, ok := parseStartCommand("radarsim", []string{"/usr/bin/other", "eyJuYW1lIjoieCJ9"}); ok {
		t.Fatal("expected parseStartCommand to reject a mismatched binary name")
	}
}

func TestParseStartCommandRejectsMalformedPayload(t *testing.T) {
	if _, ok := parseStartCommand("radarsim", []string{"radarsim", "not-valid-base64!!"}); ok {
		t.Fatal("expected parseStartCommand to reject malformed base64")
	}
}
