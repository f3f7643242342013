package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/szaher/radiosnooze/internal/control"
	"github.com/szaher/radiosnooze/internal/events"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{"DRIVER", "ADAPTER", "SOURCE", "LISTEN", "PREFERENCES_FILE", "AUTOSTART_DIR", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE"} {
		t.Setenv("RADIOSNOOZE_"+key, "")
	}
	return dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, "radiosnooze version "+version) || !strings.Contains(out, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version --short error: %v", err)
	}
	if out != version+"\n" {
		t.Errorf("version --short = %q, want %q", out, version+"\n")
	}
}

func TestSimulate(t *testing.T) {
	isolate(t)
	eventsPath := filepath.Join(t.TempDir(), "events.json")

	out, err := execute(t, "simulate", "resume", "resume", "suspend", "--fail-call", "3", "--events-out", eventsPath)
	if err != nil {
		t.Fatalf("simulate error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var rows []string
	for _, l := range lines {
		if len(l) > 0 && l[0] >= '1' && l[0] <= '9' {
			rows = append(rows, strings.Join(strings.Fields(l), " "))
		}
	}
	want := []string{
		"1 startup on ok",
		"2 resume_completed on ok",
		"3 resume_completed on failed",
		"4 suspend_requested off ok",
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %q, want %q\nfull output:\n%s", rows, want, out)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i+1, rows[i], want[i])
		}
	}
	if !strings.Contains(out, "Final commanded state: off") {
		t.Errorf("output missing final state:\n%s", out)
	}

	data, err := os.ReadFile(eventsPath)
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	var evs []events.Event
	if err := json.Unmarshal(data, &evs); err != nil {
		t.Fatalf("decoding events: %v", err)
	}
	if len(evs) != 7 {
		t.Errorf("exported %d events, want 7 (3 transitions, 4 commands)", len(evs))
	}
}

func TestSimulateRejectsUnknownTransition(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "simulate", "hibernate-ish"); err == nil {
		t.Error("simulate with unknown transition expected error")
	}
}

func TestPrefs(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "prefs", "get", "hide-indicator")
	if err != nil || strings.TrimSpace(out) != "false" {
		t.Fatalf("prefs get = (%q, %v), want false", out, err)
	}

	if _, err := execute(t, "prefs", "set", "hide-indicator", "true"); err != nil {
		t.Fatalf("prefs set error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "radiosnooze", "preferences.yaml"))
	if err != nil {
		t.Fatalf("reading preference file: %v", err)
	}
	if !strings.Contains(string(data), "hide_indicator: true") {
		t.Errorf("preference file = %q", data)
	}

	out, err = execute(t, "prefs", "get", "hide-indicator")
	if err != nil || strings.TrimSpace(out) != "true" {
		t.Errorf("prefs get = (%q, %v), want true", out, err)
	}

	if _, err := execute(t, "prefs", "set", "hide-indicator", "perhaps"); err == nil {
		t.Error("prefs set with invalid bool expected error")
	}
	if _, err := execute(t, "prefs", "set", "colour", "blue"); err == nil {
		t.Error("prefs set with unknown key expected error")
	}
}

func TestAutostart(t *testing.T) {
	dir := isolate(t)
	t.Setenv("RADIOSNOOZE_AUTOSTART_DIR", filepath.Join(dir, "autostart"))
	// Nothing listens here, so every change falls back to the entry itself.
	t.Setenv("RADIOSNOOZE_LISTEN", "127.0.0.1:1")

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"autostart", "status"}, "disabled"},
		{[]string{"autostart", "enable"}, "enabled"},
		{[]string{"autostart", "status"}, "enabled"},
		{[]string{"autostart", "toggle"}, "disabled"},
		{[]string{"autostart", "toggle"}, "enabled"},
		{[]string{"autostart", "disable"}, "disabled"},
	}
	for _, step := range steps {
		out, err := execute(t, step.args...)
		if err != nil {
			t.Fatalf("%v error: %v", step.args, err)
		}
		if !strings.Contains(out, "Launch at login "+step.want) {
			t.Errorf("%v output = %q, want %s", step.args, out, step.want)
		}
	}
}

func TestAutostartGoesThroughRunningAgent(t *testing.T) {
	dir := isolate(t)
	autostartDir := filepath.Join(dir, "autostart")
	t.Setenv("RADIOSNOOZE_AUTOSTART_DIR", autostartDir)

	var (
		mu    sync.Mutex
		calls []string
	)
	recorded := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/autostart/toggle":
			_ = json.NewEncoder(w).Encode(control.AutostartRequest{LaunchAtLogin: true})
		case r.Method == http.MethodPut && r.URL.Path == "/v1/autostart":
			var req control.AutostartRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(req)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()
	t.Setenv("RADIOSNOOZE_LISTEN", ts.URL)

	out, err := execute(t, "autostart", "toggle")
	if err != nil || !strings.Contains(out, "Launch at login enabled") {
		t.Fatalf("autostart toggle = (%q, %v)", out, err)
	}
	if _, err := execute(t, "autostart", "disable"); err != nil {
		t.Fatalf("autostart disable error: %v", err)
	}

	want := []string{"POST /v1/autostart/toggle", "PUT /v1/autostart"}
	if got := recorded(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("agent calls = %v, want %v", got, want)
	}
	if _, err := os.Stat(filepath.Join(autostartDir, "radiosnooze.desktop")); !os.IsNotExist(err) {
		t.Errorf("CLI wrote the entry itself while an agent was listening (stat err = %v)", err)
	}

	// --local bypasses the agent.
	if _, err := execute(t, "autostart", "enable", "--local"); err != nil {
		t.Fatalf("autostart enable --local error: %v", err)
	}
	if got := recorded(); len(got) != len(want) {
		t.Errorf("--local contacted the agent: %v", got)
	}
	if _, err := os.Stat(filepath.Join(autostartDir, "radiosnooze.desktop")); err != nil {
		t.Errorf("--local did not write the entry: %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")

	if _, err := execute(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init error: %v", err)
	}
	if _, err := execute(t, "config", "init", "--config", path); err == nil {
		t.Error("second config init without --force expected error")
	}
	out, err := execute(t, "config", "validate", "--config", path)
	if err != nil || !strings.Contains(out, "valid") {
		t.Errorf("config validate = (%q, %v)", out, err)
	}

	if err := os.WriteFile(path, []byte("driver: zigbee\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "validate", "--config", path); err == nil {
		t.Error("config validate with bad driver expected error")
	}

	if _, err := execute(t, "config", "show", "--config", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing --config expected error")
	}
}

func TestStatusCommand(t *testing.T) {
	isolate(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(control.Status{RadioState: "off", LaunchAtLogin: true, UptimeSeconds: 42})
	}))
	defer ts.Close()

	out, err := execute(t, "status", "--addr", ts.URL)
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	for _, want := range []string{"RADIO", "off", "hidden", "42s"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	t.Setenv("RADIOSNOOZE_LISTEN", "")
	if _, err := execute(t, "status", "--addr", "127.0.0.1:1"); err == nil {
		t.Error("status against closed port expected error")
	}
}
