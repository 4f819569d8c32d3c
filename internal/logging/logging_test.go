package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func TestLevelRouting(t *testing.T) {
	dir := t.TempDir()
	set, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	set.Log.Info("placed file", "source", "/in/a.jpg")
	set.Log.Warn("name collision")
	set.Log.Error("unreadable source")
	if err := set.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info := readLog(t, dir, "info.log")
	warning := readLog(t, dir, "warning.log")
	errlog := readLog(t, dir, "error.log")

	for _, msg := range []string{"placed file", "name collision", "unreadable source"} {
		if !strings.Contains(info, msg) {
			t.Errorf("info.log missing %q", msg)
		}
	}
	if strings.Contains(warning, "placed file") {
		t.Error("warning.log should not contain info records")
	}
	if !strings.Contains(warning, "name collision") || !strings.Contains(warning, "unreadable source") {
		t.Error("warning.log missing warn/error records")
	}
	if strings.Contains(errlog, "name collision") {
		t.Error("error.log should not contain warn records")
	}
	if !strings.Contains(errlog, "unreadable source") {
		t.Error("error.log missing error record")
	}
}

func TestAuditStreamFields(t *testing.T) {
	dir := t.TempDir()
	set, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	set.Audit.Warn("collision",
		"source", "/in/a.jpg",
		"destination", "/out/a_1.jpg",
		"decision", "rename",
		"reason", "content differs")
	set.Audit.Info("duplicate",
		"source", "/in/b.jpg",
		"destination", "/out/b.jpg",
		"decision", "skip",
		"reason", "identical content")
	if err := set.Close(); err != nil {
		t.Fatal(err)
	}

	audit := readLog(t, dir, "audit.log")
	lines := strings.Split(strings.TrimSpace(audit), "\n")
	if len(lines) != 2 {
		t.Fatalf("audit.log has %d lines, want 2", len(lines))
	}
	for _, want := range []string{"collision", "source=/in/a.jpg", "destination=/out/a_1.jpg", "decision=rename", "reason=content differs"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("audit line missing %q: %s", want, lines[0])
		}
	}
	if !strings.Contains(lines[1], "decision=skip") {
		t.Errorf("second audit line missing skip decision: %s", lines[1])
	}

	// Audit events do not leak into the general streams.
	if got := readLog(t, dir, "warning.log"); strings.Contains(got, "decision=rename") {
		t.Error("audit record leaked into warning.log")
	}
}

func TestDebugSuppressed(t *testing.T) {
	dir := t.TempDir()
	set, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	set.Log.Debug("noise")
	if err := set.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readLog(t, dir, "info.log"); strings.Contains(got, "noise") {
		t.Error("debug records should not reach info.log")
	}
}

func TestLineFormat(t *testing.T) {
	dir := t.TempDir()
	set, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	set.Log.Info("hello", "k", "v")
	if err := set.Close(); err != nil {
		t.Fatal(err)
	}

	line := strings.TrimSpace(readLog(t, dir, "info.log"))
	parts := strings.Split(line, "\t")
	if len(parts) != 4 {
		t.Fatalf("line has %d tab-separated fields, want 4: %q", len(parts), line)
	}
	if parts[1] != "INFO" {
		t.Errorf("level field = %q, want INFO", parts[1])
	}
	if parts[2] != "hello" {
		t.Errorf("message field = %q, want hello", parts[2])
	}
	if parts[3] != "k=v" {
		t.Errorf("attr field = %q, want k=v", parts[3])
	}
}

func TestNopLogger(t *testing.T) {
	var l Logger = Nop{}
	l.Debug("a")
	l.Info("b", "k", 1)
	l.Warn("c")
	l.Error("d")
}
