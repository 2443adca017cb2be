package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledLoggingIsNoOp(t *testing.T) {
	if err := Initialize("", false, "info"); err != nil {
		t.Fatalf("Initialize with logging disabled should not fail: %v", err)
	}
	defer CloseAll()

	if Enabled() {
		t.Error("logging should be disabled")
	}
	if Get(CategoryRouter) != nil {
		t.Error("Get should return nil when disabled")
	}
	// Must not panic on the nil logger.
	Router("routed to %s", "analysis")
}

func TestCategoryFilesCreated(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true, "debug"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Scheduler("dispatching %s", "transaction")
	Store("opened database")

	for _, cat := range []Category{CategoryScheduler, CategoryStore} {
		path := filepath.Join(dir, "logs", string(cat)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected log file for %s: %v", cat, err)
		}
		if len(data) == 0 {
			t.Errorf("log file for %s is empty", cat)
		}
	}
}

func TestLevelGating(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true, "warn"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryAPI)
	l.Debug("should be dropped")
	l.Info("should be dropped too")
	l.Warn("kept")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "api.log"))
	if err != nil {
		t.Fatalf("reading api log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Errorf("level gating failed, got: %s", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing, got: %s", out)
	}
}
