package rtlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesLevelFilteredEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, LevelWarn, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Info("sampler", "below threshold, should not appear", nil)
	l.Error("sampler", "device overrun", map[string]any{"slot": 3})
	l.Close()

	data, err := os.ReadFile(filepath.Join(dir, "soto.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "below threshold") {
		t.Fatalf("expected INFO entry to be filtered out by LevelWarn minimum")
	}
	if !strings.Contains(string(data), "device overrun") {
		t.Fatalf("expected ERROR entry to be logged, got: %s", data)
	}

	errData, err := os.ReadFile(filepath.Join(dir, "errors.log"))
	if err != nil {
		t.Fatalf("read errors.log: %v", err)
	}
	if !strings.Contains(string(errData), "device overrun") {
		t.Fatalf("expected ERROR entry mirrored into errors.log")
	}
}

func TestErrorGroupCollectsNonFatalErrors(t *testing.T) {
	g, ctx := NewErrorGroup(context.Background(), nil)
	_ = ctx

	g.Go("task-1", func() error { return nil })
	g.Go("task-2", func() error { return errTest })
	g.Wait()

	errs := g.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(errs))
	}
}

var errTest = &simpleErr{"boom"}

type simpleErr struct{ msg string }

func (e *simpleErr) Error() string { return e.msg }
