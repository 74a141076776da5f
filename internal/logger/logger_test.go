package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{"Error", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != FormatJSON {
		t.Error("json not recognized")
	}
	if ParseFormat("JSON") != FormatJSON {
		t.Error("JSON not recognized")
	}
	if ParseFormat("text") != FormatText {
		t.Error("text not recognized")
	}
	if ParseFormat("") != FormatText {
		t.Error("empty format should default to text")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: WARN, Output: &buf})
	cl := log.WithComponent(ComponentServer)

	cl.Debug("dropped")
	cl.Info("dropped too")
	cl.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level entries written: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: INFO, Format: FormatJSON, Output: &buf})
	log.WithComponent(ComponentResolve).Info("chose format", map[string]any{"itag": 18})

	var entry Entry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Component != ComponentResolve || entry.Level != "INFO" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Message != "chose format" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Fields["itag"] != float64(18) {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: INFO, Output: &buf, Timestamp: false})
	log.WithComponent(ComponentCipher).Info("descrambled", map[string]any{"len": 10})

	out := buf.String()
	for _, want := range []string{"[INFO]", "[cipher]", "descrambled", "len=10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
