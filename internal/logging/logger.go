// Package logging provides categorized file-based logging for FinGuard.
// Logs are written under <data dir>/logs with one file per category. Debug
// output is gated by configuration so production runs stay quiet.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup and initialization
	CategoryRouter    Category = "router"    // Classification decisions
	CategoryScheduler Category = "scheduler" // Dispatch loop, state transitions
	CategoryAgents    Category = "agents"    // Capability handler activity
	CategorySynth     Category = "synth"     // Response synthesis
	CategoryTools     Category = "tools"     // Sub-tool execution
	CategoryAPI       Category = "api"       // LLM API calls
	CategoryStore     Category = "store"     // SQLite operations
	CategoryKnowledge Category = "knowledge" // Knowledge base, embeddings
	CategoryServer    Category = "server"    // HTTP boundary
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger wraps a standard logger bound to one category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	logsDir  string
	enabled  bool
	logLevel = LevelInfo
)

// Initialize sets up the logging directory. Until called (or when debug is
// false) all logging calls are no-ops.
func Initialize(dataDir string, debug bool, level string) error {
	mu.Lock()
	defer mu.Unlock()

	enabled = debug
	logLevel = parseLevel(level)
	if !enabled {
		return nil
	}
	if dataDir == "" {
		return fmt.Errorf("data dir required")
	}
	logsDir = filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Enabled reports whether logging is active.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Get returns the logger for a category, creating its file on first use.
// Returns nil when logging is disabled; all Logger methods tolerate nil.
func Get(category Category) *Logger {
	mu.RLock()
	if !enabled {
		mu.RUnlock()
		return nil
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	path := filepath.Join(logsDir, string(category)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		// Fall back to stderr rather than dropping messages.
		l := &Logger{category: category, logger: log.New(os.Stderr, "["+string(category)+"] ", 0)}
		loggers[category] = l
		return l
	}
	l := &Logger{category: category, logger: log.New(f, "", 0), file: f}
	loggers[category] = l
	return l
}

func (l *Logger) write(level int, label, format string, args ...interface{}) {
	if l == nil {
		return
	}
	mu.RLock()
	min := logLevel
	mu.RUnlock()
	if level < min {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("%s [%s] %s", ts, label, fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// CloseAll closes all open log files. Call on shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience helpers, one pair per category.

func Boot(format string, args ...interface{})   { Get(CategoryBoot).Info(format, args...) }
func Router(format string, args ...interface{}) { Get(CategoryRouter).Info(format, args...) }
func RouterDebug(format string, args ...interface{}) {
	Get(CategoryRouter).Debug(format, args...)
}
func Scheduler(format string, args ...interface{}) { Get(CategoryScheduler).Info(format, args...) }
func SchedulerDebug(format string, args ...interface{}) {
	Get(CategoryScheduler).Debug(format, args...)
}
func Agents(format string, args ...interface{})      { Get(CategoryAgents).Info(format, args...) }
func AgentsDebug(format string, args ...interface{}) { Get(CategoryAgents).Debug(format, args...) }
func Synth(format string, args ...interface{})       { Get(CategorySynth).Info(format, args...) }
func Tools(format string, args ...interface{})       { Get(CategoryTools).Info(format, args...) }
func ToolsDebug(format string, args ...interface{})  { Get(CategoryTools).Debug(format, args...) }
func API(format string, args ...interface{})         { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{})    { Get(CategoryAPI).Debug(format, args...) }
func Store(format string, args ...interface{})       { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{})  { Get(CategoryStore).Debug(format, args...) }
func Knowledge(format string, args ...interface{})   { Get(CategoryKnowledge).Info(format, args...) }
func KnowledgeDebug(format string, args ...interface{}) {
	Get(CategoryKnowledge).Debug(format, args...)
}
func Server(format string, args ...interface{}) { Get(CategoryServer).Info(format, args...) }
