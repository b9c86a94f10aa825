package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		expectError bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "debug", config: DebugConfig()},
		{name: "bad level", config: &Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, expectError: true},
		{name: "bad format", config: &Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, expectError: true},
		{name: "file without path", config: &Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}, expectError: true},
		{name: "writer overrides output", config: &Config{Level: InfoLevel, Format: TextFormat, Output: "nowhere", Writer: &bytes.Buffer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestDerivedLoggerKeepsFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: DebugLevel, Format: JSONFormat, Writer: &buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.WithComponent("ledger").
		WithFields(Fields{"partition": "local"}).
		WithError(errors.New("disk full")).
		Warn("save failed")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}

	if line["component"] != "ledger" {
		t.Errorf("expected component field, got %v", line["component"])
	}
	if line["partition"] != "local" {
		t.Errorf("expected partition field, got %v", line["partition"])
	}
	if line["error"] != "disk full" {
		t.Errorf("expected error field, got %v", line["error"])
	}
	if line["level"] != "warning" {
		t.Errorf("expected warning level, got %v", line["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: WarnLevel, Format: TextFormat, Writer: &buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.Debug("hidden")
	log.Info("hidden too")
	log.Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected error line, got %q", out)
	}
}

func TestOperationLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: DebugLevel, Format: JSONFormat, Writer: &buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	op := NewOperationLogger("refresh", log).WithField("local", 2)
	op.Failure(errors.New("remote down"), "refreshed with diagnostics", true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start and failure lines, got %d: %s", len(lines), buf.String())
	}

	var last map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if last["level"] != "warning" {
		t.Errorf("degraded failure should log a warning, got %v", last["level"])
	}
	if last["operation"] != "refresh" || last["status"] != "error" {
		t.Errorf("unexpected fields: %v", last)
	}
	if last["local"] != float64(2) {
		t.Errorf("expected operation field to be carried, got %v", last["local"])
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: InfoLevel, Format: JSONFormat, Writer: &buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	want := errors.New("boom")
	if got := TimedOperation("import", log, func() error { return want }); got != want {
		t.Errorf("TimedOperation() = %v, want %v", got, want)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected an error line, got %s", buf.String())
	}
}
