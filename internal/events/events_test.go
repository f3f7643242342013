package events

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEventWithData(t *testing.T) {
	e := New(RadioCommanded, "01J0000000000000000000000").
		WithData("state", "off").
		WithData("transition", "suspend_requested")

	data, err := e.JSON()
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "radio.commanded" {
		t.Errorf("type = %v, want radio.commanded", decoded["type"])
	}
	fields, _ := decoded["data"].(map[string]interface{})
	if fields["state"] != "off" {
		t.Errorf("data.state = %v, want off", fields["state"])
	}
}

func TestCollectorEmitter(t *testing.T) {
	var c CollectorEmitter
	c.Emit(New(PowerTransition, "a"))
	c.Emit(New(RadioCommanded, "a"))
	c.Emit(New(RadioCommanded, "b"))

	if got := len(c.Events()); got != 3 {
		t.Errorf("len(Events()) = %d, want 3", got)
	}
	if got := len(c.OfType(RadioCommanded)); got != 2 {
		t.Errorf("len(OfType(radio.commanded)) = %d, want 2", got)
	}
}

func TestLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	LogEmitter{Logger: logger, Level: slog.LevelInfo}.Emit(New(RadioCommandFailed, "x").WithData("error", "busy"))

	out := buf.String()
	for _, want := range []string{`"event":"radio.command_failed"`, `"correlation_id":"x"`, `"error":"busy"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}

func TestMulti(t *testing.T) {
	var a, b CollectorEmitter
	Multi{&a, nil, &b, NoopEmitter{}}.Emit(New(AgentStarted, ""))
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("fan-out counts = %d, %d, want 1, 1", len(a.Events()), len(b.Events()))
	}
}

func TestExportLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	evs := []*Event{New(RadioCommanded, "1").WithData("state", "on")}
	if err := ExportLog(evs, path); err != nil {
		t.Fatalf("ExportLog() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded []Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Type != RadioCommanded {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestExportLogLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	evs := []*Event{
		New(PowerTransition, "1").WithData("transition", "suspend_requested"),
		New(RadioCommanded, "1").WithData("state", "off"),
	}
	if err := ExportLog(evs, path); err != nil {
		t.Fatalf("ExportLog() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if second.Type != RadioCommanded {
		t.Errorf("second event type = %q, want %q", second.Type, RadioCommanded)
	}
}
