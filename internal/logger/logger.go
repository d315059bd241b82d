package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelSuccess
	LevelError
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarn:    "WARN",
	LevelSuccess: "SUCCESS",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

var levelColors = map[LogLevel]string{
	LevelDebug:   "\033[36m",   // Cyan
	LevelInfo:    "\033[32m",   // Green
	LevelWarn:    "\033[33m",   // Yellow
	LevelSuccess: "\033[32;1m", // Bright Green
	LevelError:   "\033[31m",   // Red
	LevelFatal:   "\033[31;1m", // Bright Red
}

// Logger is the main logger struct
type Logger struct {
	mu         sync.Mutex
	minLevel   LogLevel
	logger     *log.Logger
	display    string
	showCaller bool
}

// New creates a new Logger instance
func New(out io.Writer, display string, flag int, minLevel LogLevel) *Logger {
	return &Logger{
		minLevel: minLevel,
		logger:   log.New(out, "", flag),
		display:  display,
	}
}

// DefaultLogger creates a logger with default settings
func DefaultLogger() *Logger {
	return New(os.Stdout, "", log.Ldate|log.Ltime, LevelInfo)
}

// PackageLogger creates a logger tagged with a package display name
func PackageLogger(display string) *Logger {
	l := DefaultLogger()
	l.display = display
	return l
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetOutput sets the output destination
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// EnableCallerInfo enables/disables caller information
func (l *Logger) EnableCallerInfo(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showCaller = enable
}

// Log logs a message at a specific level
func (l *Logger) Log(level LogLevel, msg string, args ...interface{}) {
	if level < l.minLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var callerInfo string
	if l.showCaller {
		_, file, line, ok := runtime.Caller(2)
		if ok {
			parts := strings.Split(file, "/")
			if len(parts) > 2 {
				file = strings.Join(parts[len(parts)-2:], "/")
			}
			callerInfo = fmt.Sprintf("%s:%d", file, line)
		}
	}

	var pkgDisplay string
	if l.display != "" {
		pkgDisplay = l.display + " "
	}

	resetColor := "\033[0m"
	logLine := fmt.Sprintf("%s%s%s %s%s",
		levelColors[level], levelNames[level], resetColor,
		pkgDisplay,
		fmt.Sprintf(msg, args...))

	if callerInfo != "" {
		logLine += fmt.Sprintf(" \033[90m(%s)\033[0m", callerInfo)
	}

	l.logger.Println(logLine)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.Log(LevelDebug, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.Log(LevelInfo, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.Log(LevelWarn, msg, args...)
}

// Success logs a success message
func (l *Logger) Success(msg string, args ...interface{}) {
	l.Log(LevelSuccess, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.Log(LevelError, msg, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.Log(LevelFatal, msg, args...)
	os.Exit(1)
}
