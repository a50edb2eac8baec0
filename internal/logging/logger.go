package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ActionLog represents a single dispatched storage-orchestrator action.
type ActionLog struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Action        string    `json:"action"`
	Database      string    `json:"database"`
	Collection    string    `json:"collection"`
	Application   string    `json:"application,omitempty"`
	DurationMs    int64     `json:"duration_ms"`
	Outcome       string    `json:"outcome"` // success, pool_failure, command_failure, data_error
	Error         string    `json:"error,omitempty"`
	SkipVersion   bool      `json:"skip_version,omitempty"`
	HistoryWrites int       `json:"history_writes,omitempty"`
}

// Logger handles action logging for the storage orchestrator.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	file    *os.File
	console bool
}

var defaultLogger = &Logger{enabled: true, console: true}

// Default returns the default logger
func Default() *Logger {
	return defaultLogger
}

// SetOutput sets the log output file
func (l *Logger) SetOutput(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

// SetConsole enables/disables console output
func (l *Logger) SetConsole(enabled bool) {
	l.mu.Lock()
	l.console = enabled
	l.mu.Unlock()
}

// Log writes an action log entry.
func (l *Logger) Log(entry *ActionLog) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	entry.Timestamp = time.Now()

	if l.console {
		status := "ok"
		if entry.Outcome != "success" {
			status = entry.Outcome
		}
		history := ""
		if entry.HistoryWrites > 0 {
			history = fmt.Sprintf(" [history:%d]", entry.HistoryWrites)
		}
		fmt.Printf("[action] %s %s.%s %s %dms%s\n",
			status, entry.Database, entry.Collection, entry.Action, entry.DurationMs, history)
		if entry.Error != "" {
			fmt.Printf("[action]   error: %s\n", entry.Error)
		}
	}

	if l.file != nil {
		data, _ := json.Marshal(entry)
		l.file.Write(append(data, '\n'))
	}
}

// Close closes the log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
