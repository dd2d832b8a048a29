package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLevel_String(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, c := range cases {
		if got := c.level.String(); got != c.want {
			t.Errorf("Level(%d).String() = %q, want %q", c.level, got, c.want)
		}
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	if logger == nil {
		t.Fatal("New(Config{}) returned nil")
	}
	logger.Info("hello")
}

func TestNew_QuietMode(t *testing.T) {
	logger := New(Config{Quiet: true})
	logger.Info("should not panic even though stderr is disabled")
}

func TestNew_WithLogDir(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Service: "testsvc", Quiet: true})
	defer logger.Close()

	logger.Info("file log test", "k", "v")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading log dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "testsvc_") {
		t.Errorf("log file name %q does not carry the service prefix", entries[0].Name())
	}
}

func TestNew_WithLogDir_NoService(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	defer logger.Close()
	logger.Info("no service configured")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading log dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "histcheck_") {
		t.Errorf("expected a default histcheck_ prefixed file, got %v", entries)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil")
	}
	logger.Info("default logger works")
}

func TestLogger_With(t *testing.T) {
	logger := New(Config{Quiet: true})
	child := logger.With("request_id", "abc123")
	if child == logger {
		t.Fatal("With() must return a new Logger, not mutate the receiver")
	}
	child.Info("scoped message")
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Quiet: true})
	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
}

func TestLogger_Close_NoResources(t *testing.T) {
	logger := New(Config{Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on a fileless logger should be a no-op, got %v", err)
	}
}

func TestLogger_Close_WithFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	logger.Info("before close")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() returned %v", err)
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger := New(Config{Quiet: true})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Info("concurrent", "n", n)
		}(i)
	}
	wg.Wait()
}

func TestMultiHandler_FansOutToEveryHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	}}
	logger := New(Config{Quiet: true})
	logger.slog = slog.New(h)
	logger.Info("fan out")

	if buf1.Len() == 0 {
		t.Error("text handler received nothing")
	}
	if buf2.Len() == 0 {
		t.Error("json handler received nothing")
	}
}

func TestMultiHandler_WithAttrsAppliesToEveryHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	}}
	withAttrs := h.WithAttrs([]slog.Attr{slog.String("service", "x")})
	logger := New(Config{Quiet: true})
	logger.slog = slog.New(withAttrs)
	logger.Info("tagged")

	if !strings.Contains(buf1.String(), "service=x") {
		t.Errorf("text output missing service attr: %s", buf1.String())
	}
	if !strings.Contains(buf2.String(), `"service":"x"`) {
		t.Errorf("json output missing service attr: %s", buf2.String())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := expandPath("~/logs")
	want := filepath.Join(home, "logs")
	if got != want {
		t.Errorf("expandPath(%q) = %q, want %q", "~/logs", got, want)
	}

	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath on an absolute path should be unchanged, got %q", got)
	}
}
