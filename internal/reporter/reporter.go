package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a user supplied format name. An empty name is text.
func ParseFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(name); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// Reporter writes machine-readable reports
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Enabled reports whether a machine-readable format was selected
func (r *Reporter) Enabled() bool {
	return r.format == FormatJSON || r.format == FormatYAML
}

// Report encodes v in the reporter's format. Text output is produced through
// the logger, so FormatText writes nothing here.
func (r *Reporter) Report(v any) error {
	switch r.format {
	case "", FormatText:
		return nil
	case FormatJSON:
		encoder := json.NewEncoder(r.writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(r.writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// FileRecord is the serialized form of one scanned entry
type FileRecord struct {
	Path     string `json:"path" yaml:"path"`
	Size     uint64 `json:"size" yaml:"size"`
	Mode     string `json:"mode" yaml:"mode"`
	Owner    string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Group    string `json:"group,omitempty" yaml:"group,omitempty"`
	Modified string `json:"modified" yaml:"modified"`
	Outcome  string `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewFileRecord converts a scanned entry, resolving owner names through names
func NewFileRecord(e scanner.FileEntry, names *OwnerNames) FileRecord {
	rec := FileRecord{
		Path:     e.Path,
		Size:     e.Size,
		Mode:     scanner.ModeString(e.Mode),
		Modified: e.ModTime.Format(time.RFC3339),
	}
	if names != nil {
		rec.Owner = names.User(e.UID)
		rec.Group = names.Group(e.GID)
	}
	return rec
}

// Summary is the serialized form of a ScanResult
type Summary struct {
	Timestamp string       `json:"timestamp" yaml:"timestamp"`
	Matched   int          `json:"matched" yaml:"matched"`
	Acted     int          `json:"acted_on" yaml:"acted_on"`
	Failed    int          `json:"failed" yaml:"failed"`
	Skipped   int          `json:"skipped" yaml:"skipped"`
	Freed     string       `json:"freed" yaml:"freed"`
	Files     []FileRecord `json:"files" yaml:"files"`
}

// Summarize converts a ScanResult into its serialized form
func Summarize(result *scanner.ScanResult, now time.Time) Summary {
	s := Summary{
		Timestamp: now.Format(time.RFC3339),
		Matched:   result.Count(scanner.OutcomeMatched),
		Acted:     result.Count(scanner.OutcomeActed),
		Failed:    result.Count(scanner.OutcomeFailed),
		Skipped:   len(result.Skipped),
		Freed:     utils.FormatBytes(result.Size(scanner.OutcomeActed)),
		Files:     make([]FileRecord, 0, len(result.Records)),
	}
	for _, rec := range result.Records {
		fr := NewFileRecord(rec.Entry, nil)
		fr.Outcome = rec.Outcome.String()
		if rec.Err != nil {
			fr.Error = rec.Err.Error()
		}
		s.Files = append(s.Files, fr)
	}
	return s
}
