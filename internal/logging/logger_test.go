package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reqdesk/internal/config"

	"go.uber.org/zap/zapcore"
)

// lockedBuffer is a WriteSyncer safe for concurrent writers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Sync() error { return nil }

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ zapcore.WriteSyncer = (*lockedBuffer)(nil)

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(CloseAll)

	err := Initialize(config.LoggingConfig{Level: "debug", Dir: dir, DebugMode: true})
	if err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot, CategoryAPI, CategoryActions, CategoryStore,
		CategoryPersist, CategoryUpload, CategoryUI,
	}
	for _, cat := range categories {
		Get(cat).Info("test message for %s", cat)
	}
	CloseAll()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	found := make(map[string]bool)
	for _, f := range files {
		for _, cat := range categories {
			if strings.HasSuffix(f.Name(), "_"+string(cat)+".log") {
				found[string(cat)] = true
			}
		}
	}
	for _, cat := range categories {
		if !found[string(cat)] {
			t.Errorf("Missing log file for category: %s", cat)
		}
	}

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, date+"_api.log"))
	if err != nil {
		t.Fatalf("read api log: %v", err)
	}
	if !strings.Contains(string(data), "test message for api") {
		t.Errorf("api log missing message, got %q", data)
	}
}

// TestDebugModeOff verifies nothing is written in production mode
func TestDebugModeOff(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(CloseAll)

	if err := Initialize(config.LoggingConfig{Level: "debug", Dir: dir}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	l := Get(CategoryStore)
	if l.Enabled() {
		t.Error("expected no-op logger when debug mode is off")
	}
	l.Info("should not be written")

	files, _ := os.ReadDir(dir)
	if len(files) != 0 {
		t.Errorf("expected no log files, found %d", len(files))
	}
}

func TestCategoryToggle(t *testing.T) {
	buf := &lockedBuffer{}
	t.Cleanup(CloseAll)
	InitializeWriter(config.LoggingConfig{
		Level:      "info",
		DebugMode:  true,
		Categories: map[string]bool{"ui": false},
	}, buf)

	Get(CategoryUI).Info("hidden")
	Get(CategoryPersist).Info("visible")
	Get(CategoryPersist).Debug("below level")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("disabled category wrote output")
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("enabled category missing output: %q", out)
	}
	if strings.Contains(out, "below level") {
		t.Error("debug line written at info level")
	}
}

func TestWithRequestIDJSON(t *testing.T) {
	buf := &lockedBuffer{}
	t.Cleanup(CloseAll)
	InitializeWriter(config.LoggingConfig{Level: "debug", Format: "json", DebugMode: true}, buf)

	WithRequestID(CategoryActions, "abc-123").Info("createCategory fulfilled")

	out := buf.String()
	if !strings.Contains(out, `"req":"abc-123"`) {
		t.Errorf("expected request id field, got %q", out)
	}
	if !strings.Contains(out, `"logger":"actions"`) {
		t.Errorf("expected category name, got %q", out)
	}
}

func TestTimer(t *testing.T) {
	buf := &lockedBuffer{}
	t.Cleanup(CloseAll)
	InitializeWriter(config.LoggingConfig{Level: "debug", DebugMode: true}, buf)

	timer := StartTimer(CategoryPersist, "flush")
	time.Sleep(5 * time.Millisecond)
	if d := timer.StopWithThreshold(time.Millisecond); d < time.Millisecond {
		t.Errorf("elapsed too small: %v", d)
	}
	if !strings.Contains(buf.String(), "flush took") {
		t.Errorf("expected threshold warning, got %q", buf.String())
	}
}

// TestConcurrentGet verifies the logger cache under concurrent first use
func TestConcurrentGet(t *testing.T) {
	buf := &lockedBuffer{}
	t.Cleanup(CloseAll)
	InitializeWriter(config.LoggingConfig{Level: "info", DebugMode: true}, buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Get(CategoryStore).Info("line %d", i)
		}(i)
	}
	wg.Wait()

	if n := strings.Count(buf.String(), "line "); n != 20 {
		t.Errorf("expected 20 lines, got %d", n)
	}
}
