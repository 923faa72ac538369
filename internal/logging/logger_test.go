package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestControllerHelperWritesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true, "debug"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer func() {
		Close()
		enabled = false
	}()

	Controller("phase transition %d", 42)
	Close()

	data, err := os.ReadFile(filepath.Join(dir, "logs", "controller.log"))
	if err != nil {
		t.Fatalf("controller log not written: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "phase transition 42") {
		t.Errorf("log line missing message: %q", line)
	}
	if !strings.Contains(line, "[controller]") {
		t.Errorf("log line missing category tag: %q", line)
	}
}

func TestDisabledLoggingIsNoOp(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, false, "info"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer Close()

	Controller("should not appear")
	Close()

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created while logging disabled")
	}
}
