// Package logging provides config-driven categorized logging for reqdesk.
// Each category writes to its own file under the configured log directory.
// Logging is controlled by logging.debug_mode - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"reqdesk/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, wiring
	CategoryAPI     Category = "api"     // HTTP calls to the backend
	CategoryActions Category = "actions" // Action lifecycle (pending/fulfilled/rejected)
	CategoryStore   Category = "store"   // Reducer application
	CategoryPersist Category = "persist" // Slice persistence and rehydration
	CategoryUpload  Category = "upload"  // File re-encoding
	CategoryUI      Category = "ui"      // Dashboard
)

// Logger wraps a zap logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	sink     zapcore.WriteSyncer
	closer   func() error
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	cfg       config.LoggingConfig
	cfgMu     sync.RWMutex
	sinkFor   func(Category) (zapcore.WriteSyncer, func() error, error)
)

var nop = zap.NewNop().Sugar()

// Initialize sets up the logging directory from cfg.
// Should be called once at startup.
func Initialize(c config.LoggingConfig) error {
	CloseAll()

	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()

	if !c.DebugMode {
		return nil // Silent no-op in production mode
	}
	if c.Dir == "" {
		return fmt.Errorf("logging directory required in debug mode")
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	loggersMu.Lock()
	sinkFor = func(category Category) (zapcore.WriteSyncer, func() error, error) {
		date := time.Now().Format("2006-01-02")
		path := filepath.Join(c.Dir, fmt.Sprintf("%s_%s.log", date, category))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		return zapcore.AddSync(f), f.Close, nil
	}
	loggersMu.Unlock()

	boot := Get(CategoryBoot)
	boot.Info("=== reqdesk logging initialized ===")
	boot.Info("Logs directory: %s", c.Dir)
	boot.Info("Log level: %s", c.Level)
	return nil
}

// InitializeWriter routes every enabled category to w.
func InitializeWriter(c config.LoggingConfig, w zapcore.WriteSyncer) {
	CloseAll()

	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()

	loggersMu.Lock()
	sinkFor = func(Category) (zapcore.WriteSyncer, func() error, error) {
		return w, nil, nil
	}
	loggersMu.Unlock()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

func level() zapcore.Level {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	var lvl zapcore.Level
	if err := lvl.Set(cfg.Level); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoder() zapcore.Encoder {
	cfgMu.RLock()
	asJSON := cfg.IsJSON()
	cfgMu.RUnlock()

	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if asJSON {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: nop}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}
	if sinkFor == nil {
		return &Logger{category: category, sugar: nop}
	}

	sink, closer, err := sinkFor(category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log sink for %s: %v\n", category, err)
		return &Logger{category: category, sugar: nop}
	}

	core := zapcore.NewCore(encoder(), sink, level())
	l := &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
		sink:     sink,
		closer:   closer,
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		category: l.category,
		sugar:    l.sugar.With(keysAndValues...),
		sink:     l.sink,
	}
}

// Enabled reports whether this logger writes anywhere.
func (l *Logger) Enabled() bool {
	return l.sugar != nop
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		_ = l.sugar.Sync()
		if l.closer != nil {
			_ = l.closer()
		}
	}
	loggers = make(map[Category]*Logger)
	sinkFor = nil
}

// =============================================================================
// REQUEST ID TRACING - correlates an action's pending and settled events
// =============================================================================

// WithRequestID creates a request-scoped logger
func WithRequestID(category Category, requestID string) *Logger {
	return Get(category).With("req", requestID)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
