// Package logger provides a dual-output logger that writes to the console
// and to a timestamped log file inside the workspace state directory.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Logger writes leveled records and raw progress lines to both the console
// and a log file.
type Logger struct {
	*log.Logger
	w    io.Writer
	file *os.File
}

// LogsDir is where launch logs live for a workspace.
func LogsDir(workspaceDir string) string {
	return filepath.Join(workspaceDir, ".equo", "logs")
}

// New creates a logger that writes to console and to
// <workspaceDir>/.equo/logs/launch-<ts>.log. A nil console writes to the
// file only.
func New(workspaceDir string, console io.Writer) (*Logger, error) {
	logsDir := LogsDir(workspaceDir)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	ts := time.Now().Format("20060102-150405")
	logPath := filepath.Join(logsDir, fmt.Sprintf("launch-%s.log", ts))

	f, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(console, f)
	}
	return &Logger{Logger: newCharm(w), w: w, file: f}, nil
}

// NewWriter returns a logger writing only to w. Used by tests and before a
// workspace is known.
func NewWriter(w io.Writer) *Logger {
	return &Logger{Logger: newCharm(w), w: w}
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *Logger {
	return NewWriter(io.Discard)
}

func newCharm(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          "equo-ide",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           log.DebugLevel,
	})
}

// LogPath returns the path of the current log file, or empty string if discarded.
func (l *Logger) LogPath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Write implements io.Writer so child process output can be copied in.
func (l *Logger) Write(p []byte) (n int, err error) {
	return l.w.Write(p)
}

// Printf writes a formatted progress line without level or timestamp.
func (l *Logger) Printf(format string, args ...any) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LatestLogPath returns the path to the most recent launch log of
// workspaceDir, or "" if there is none.
func LatestLogPath(workspaceDir string) string {
	logsDir := LogsDir(workspaceDir)
	entries, err := os.ReadDir(logsDir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	// ReadDir returns sorted by name; launch-<ts> logs sort chronologically.
	latest := ""
	for _, e := range entries {
		if !e.IsDir() {
			latest = filepath.Join(logsDir, e.Name())
		}
	}
	return latest
}
