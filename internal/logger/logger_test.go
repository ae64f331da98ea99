package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetJSON(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	if got := buf.String(); got != "[DEBUG] test message arg\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")
	Info("info message")
	Warn("warn message")

	if buf.Len() != 0 {
		t.Errorf("expected no output when not verbose, got %q", buf.String())
	}
}

func TestLevels_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Info("info %d", 1)
	Warn("warn %d", 2)
	Section("Search Execution")

	out := buf.String()
	for _, want := range []string{"[INFO] info 1\n", "[WARN] warn 2\n", "=== Search Execution ==="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestError_AlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Error("boom: %v", "disk full")

	if got := buf.String(); got != "[ERROR] boom: disk full\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestSetJSON(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)
	SetJSON(true)

	Info("started")

	out := buf.String()
	if !strings.Contains(out, `"msg":"started"`) || !strings.Contains(out, `"level":"info"`) {
		t.Errorf("expected JSON log line, got %q", out)
	}
}

func TestWith_RedactsSecrets(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	With("api_key", "sk-123", "index", "kidney").Infow("configured")

	out := buf.String()
	if strings.Contains(out, "sk-123") {
		t.Errorf("secret leaked into output: %q", out)
	}
	if !strings.Contains(out, "kidney") {
		t.Errorf("expected non-secret field in output: %q", out)
	}
}

func TestIsSecretKey(t *testing.T) {
	tests := map[string]bool{
		"embedding.api_key":   true,
		"server.admin_secret": true,
		"auth_token":          true,
		"corpus.dir":          false,
		"retrieval.top_k":     false,
	}
	for key, want := range tests {
		if got := IsSecretKey(key); got != want {
			t.Errorf("IsSecretKey(%q) = %v, want %v", key, got, want)
		}
	}
}
