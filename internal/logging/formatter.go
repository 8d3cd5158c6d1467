package logging

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// TimestampFormat matches the "2006-01-02 15:04:05,000" layout used by the
// admin log files this tool appends to.
const TimestampFormat = "2006-01-02 15:04:05,000"

// LineFormatter renders one record per line as "<time> [LEVEL] message k=v".
type LineFormatter struct {
	// Colors enables ANSI level colors. Only set when stdout is a terminal.
	Colors bool

	TimestampFormat string
}

func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = new(bytes.Buffer)
	}

	layout := f.TimestampFormat
	if layout == "" {
		layout = TimestampFormat
	}

	fmt.Fprintf(b, "%s [%s] %s", entry.Time.Format(layout), f.level(entry.Level), entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')

	return b.Bytes(), nil
}

func (f *LineFormatter) level(level logrus.Level) string {
	name := LevelName(level)
	if !f.Colors {
		return name
	}

	c, ok := levelColors[level]
	if !ok {
		return name
	}
	return c.Sprint(name)
}

// LevelName returns the upper-case level label written into log lines.
func LevelName(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.TraceLevel, logrus.DebugLevel:
		return "DEBUG"
	case logrus.ErrorLevel:
		return "ERROR"
	case logrus.FatalLevel, logrus.PanicLevel:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

var levelColors = map[logrus.Level]*color.Color{
	logrus.DebugLevel: enabled(color.New(color.FgHiBlack)),
	logrus.WarnLevel:  enabled(color.New(color.FgYellow)),
	logrus.ErrorLevel: enabled(color.New(color.FgRed, color.Bold)),
	logrus.FatalLevel: enabled(color.New(color.FgRed, color.Bold)),
}

// enabled forces colors on; the decision is made by LineFormatter.Colors
// rather than by fatih/color's own terminal detection.
func enabled(c *color.Color) *color.Color {
	c.EnableColor()
	return c
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
