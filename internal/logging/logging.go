// Package logging builds the process logger. It is configured once at
// process entry and passed explicitly to every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config describes the logger. It is never mutated after New.
type Config struct {
	Level  string
	Format string
	Color  bool
	// Files are opened in append mode and receive a copy of every record.
	Files []string
}

// Logger wraps a logrus logger together with the files it appends to.
type Logger struct {
	*logrus.Logger
	files []*os.File
}

// New creates a logger writing to out and every file in cfg.Files.
func New(cfg Config, out io.Writer) (*Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		level = parsed
	}

	formatter, err := newFormatter(cfg)
	if err != nil {
		return nil, err
	}

	l := &Logger{Logger: logrus.New()}
	l.SetLevel(level)
	l.SetFormatter(formatter)

	writers := []io.Writer{out}
	for _, path := range cfg.Files {
		f, err := openAppend(path)
		if err != nil {
			l.Close()
			return nil, err
		}
		l.files = append(l.files, f)
		writers = append(writers, f)
	}
	l.SetOutput(io.MultiWriter(writers...))

	return l, nil
}

// Close closes every log file.
func (l *Logger) Close() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}

func newFormatter(cfg Config) (logrus.Formatter, error) {
	switch cfg.Format {
	case "", FormatText:
		return &LineFormatter{Colors: cfg.Color && len(cfg.Files) == 0}, nil
	case FormatJSON:
		return &logrus.JSONFormatter{TimestampFormat: TimestampFormat}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q, expected one of: %v", cfg.Format, []string{FormatText, FormatJSON})
	}
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Section logs the "==== title ====" header that precedes a block of output.
func Section(log logrus.FieldLogger, title string) {
	log.Infof("==== %s ====", title)
}

// Block logs multi-line output as a single INFO record. Empty output is dropped.
func Block(log logrus.FieldLogger, text string) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	log.Info("\n" + text)
}

// Discard returns a logger that drops everything; used where a caller does
// not care about log output.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
