// Package logbook provides the provisioning log: line-oriented entries with
// a timestamp and severity, mirrored to the terminal and appended to a file
// so a failed run can be reconstructed afterwards.
package logbook

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atomikpanda/rig/internal/color"
)

// Level is the severity of a log line.
type Level string

const (
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// Logger appends timestamped lines to a file and mirrors them to Out.
// File-sink errors are silently ignored so that logging never halts a
// provisioning run; the terminal mirror is the authoritative surface.
type Logger struct {
	Out  io.Writer
	file *os.File
	now  func() time.Time
}

// New returns a terminal-only Logger writing to out.
func New(out io.Writer) *Logger {
	return &Logger{Out: out, now: time.Now}
}

// Open creates a Logger appending to path, creating parent directories as
// needed. A path that cannot be opened degrades to terminal-only logging.
func Open(path string) *Logger {
	l := New(os.Stdout)
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return l
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return l
	}
	l.file = f
	return l
}

// Close releases the file sink, if any.
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

func (l *Logger) Infof(format string, args ...any)  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, format, args...) }

func (l *Logger) log(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ts := l.now().Format(time.DateTime)

	if l.Out != nil {
		fmt.Fprintf(l.Out, "%s %s %s\n", color.Dim(ts), paint(level), msg)
	}
	if l.file != nil {
		fmt.Fprintf(l.file, "%s %-5s %s\n", ts, level, msg)
	}
}

func paint(level Level) string {
	padded := fmt.Sprintf("%-5s", level)
	switch level {
	case Warn:
		return color.BoldYellow(padded)
	case Error:
		return color.BoldRed(padded)
	default:
		return color.Green(padded)
	}
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// Read loads entries from path, optionally filtered by level, returning the
// last limit entries (all if limit <= 0). Malformed lines are skipped.
func Read(path string, level Level, limit int) ([]Entry, error) {
	if path == "" {
		path = DefaultPath()
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		e, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		if level != "" && e.Level != level {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func parseLine(line string) (Entry, bool) {
	// "2006-01-02 15:04:05 LEVEL message"
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 4 {
		return Entry{}, false
	}
	ts, err := time.ParseInLocation(time.DateTime, parts[0]+" "+parts[1], time.Local)
	if err != nil {
		return Entry{}, false
	}
	switch Level(parts[2]) {
	case Info, Warn, Error:
	default:
		return Entry{}, false
	}
	return Entry{Time: ts, Level: Level(parts[2]), Message: strings.TrimLeft(parts[3], " ")}, true
}

// DefaultPath returns the default log file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rig.log"
	}
	return filepath.Join(home, ".local", "share", "rig", "rig.log")
}
