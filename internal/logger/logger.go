// Package logger provides centralized logging for the blocker
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"
)

var (
	logFile   *os.File
	logMutex  sync.Mutex
	logPath   string
	console   bool
	verbose   bool
	listeners = map[int]func(string){}
	nextID    int
	listMutex sync.RWMutex
)

// Init opens blackhole.log in dir, or in the platform log dir when dir is
// empty, and redirects stderr into it so panics are captured.
func Init(dir string) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if dir == "" {
		dir = getLogDir()
	}
	logPath = filepath.Join(dir, "blackhole.log")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = f

	redirectStderr(f)

	return nil
}

// Close closes the log file
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// SetConsole mirrors every line to stdout.
func SetConsole(enabled bool) {
	logMutex.Lock()
	defer logMutex.Unlock()
	console = enabled
}

// SetVerbose enables DEBUG lines.
func SetVerbose(enabled bool) {
	logMutex.Lock()
	defer logMutex.Unlock()
	verbose = enabled
}

// AddListener registers a callback that receives every log line. It runs
// synchronously on the logging goroutine and must not block. The returned
// func removes the listener.
func AddListener(fn func(string)) (remove func()) {
	listMutex.Lock()
	defer listMutex.Unlock()
	id := nextID
	nextID++
	listeners[id] = fn
	return func() {
		listMutex.Lock()
		defer listMutex.Unlock()
		delete(listeners, id)
	}
}

// Log writes a log message
func Log(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %s", timestamp, message)

	logMutex.Lock()
	if logFile != nil {
		logFile.WriteString(line + "\n")
		logFile.Sync()
	}
	if console {
		fmt.Fprintln(os.Stdout, line)
	}
	logMutex.Unlock()

	listMutex.RLock()
	for _, fn := range listeners {
		fn(line)
	}
	listMutex.RUnlock()
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	Log("INFO: "+format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	Log("ERROR: "+format, args...)
}

// Debug logs a debug message when verbose logging is on
func Debug(format string, args ...interface{}) {
	logMutex.Lock()
	enabled := verbose
	logMutex.Unlock()
	if !enabled {
		return
	}
	Log("DEBUG: "+format, args...)
}

// Warning logs a warning message
func Warning(format string, args ...interface{}) {
	Log("WARN: "+format, args...)
}

// Tunnel logs an interface lifecycle event
func Tunnel(format string, args ...interface{}) {
	Log("TUNNEL: "+format, args...)
}

// GetLogPath returns the path to the log file
func GetLogPath() string {
	return logPath
}

// SetDir points ReadLogs and ClearLogs at dir without opening the file.
// An empty dir selects the platform log dir.
func SetDir(dir string) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if dir == "" {
		dir = getLogDir()
	}
	logPath = filepath.Join(dir, "blackhole.log")
}

// Recover should be deferred at the top of every goroutine to catch panics.
// Usage: go func() { defer logger.Recover("myGoroutine"); ... }()
func Recover(name string) {
	if r := recover(); r != nil {
		stack := string(debug.Stack())
		Error("PANIC in %s: %v\n%s", name, r, stack)
	}
}

// SafeGo launches a goroutine with panic recovery.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// ReadLogs reads the log file contents
func ReadLogs() (string, error) {
	if logPath == "" {
		logPath = filepath.Join(getLogDir(), "blackhole.log")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ClearLogs truncates the log file
func ClearLogs() error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logPath == "" {
		logPath = filepath.Join(getLogDir(), "blackhole.log")
	}

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if err := os.WriteFile(logPath, []byte{}, 0644); err != nil {
		return err
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = f
	return nil
}
