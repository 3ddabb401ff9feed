package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(Scope{}, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Design Studio Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportIncludesScope(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := writeReport(Scope{ReportDir: dir, Command: "render", Fields: map[string]string{"surface": "back", "design": "d1"}}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected crash report under %s, got %s", dir, path)
	}
	b, _ := os.ReadFile(path)
	s := string(b)
	if !strings.Contains(s, "Command: render\ndesign: d1\nsurface: back\n") {
		t.Fatalf("scope lines missing or unordered: %s", s)
	}
}

// silenceStderr redirects stderr for the duration of a test.
func silenceStderr(t *testing.T) {
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestRecoverWritesReportFlushesAndExits(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	flushed := false
	func() {
		defer Recover(Scope{ReportDir: dir, Command: "worker", Flush: func() error { flushed = true; return nil }})
		panic("boom")
	}()

	files, _ := os.ReadDir(dir)
	if len(files) != 1 || !strings.HasPrefix(files[0].Name(), "crash-") {
		t.Fatalf("expected one crash report, got %v", files)
	}
	b, _ := os.ReadFile(filepath.Join(dir, files[0].Name()))
	if !strings.Contains(string(b), "Panic: boom") {
		t.Fatalf("report does not contain panic: %s", b)
	}
	if !flushed {
		t.Fatalf("flush hook not run")
	}
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRecoverSurvivesFailingFlush(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(Scope{ReportDir: t.TempDir(), Flush: func() error { panic("again") }})
		panic("boom")
	}()
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if err := safeFlush(func() error { return errors.New("disk full") }); err == nil {
		t.Fatalf("flush error swallowed")
	}
}

func TestRecoverWithoutPanicIsNoOp(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(Scope{})
	}()
	if called {
		t.Fatalf("exit called without panic")
	}
}
