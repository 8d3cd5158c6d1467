// Package logscan searches and tails log files. Compressed rotations are
// decoded transparently.
package logscan

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fenilsonani/adminkit/internal/cleaner"
	"github.com/fenilsonani/adminkit/internal/scanner"
)

// maxLineSize bounds a single log line; longer lines end the read of that file
const maxLineSize = 1024 * 1024

// Match is one matching line
type Match struct {
	Path   string
	LineNo int
	Line   string
}

func (m Match) String() string {
	return fmt.Sprintf("%s: %s", m.Path, m.Line)
}

// Open opens path for reading, decompressing .gz and .zst files
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	codec, ok := cleaner.CodecForPath(path)
	if !ok {
		return f, nil
	}

	r, err := codec.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &decoded{ReadCloser: r, file: f}, nil
}

type decoded struct {
	io.ReadCloser
	file *os.File
}

func (d *decoded) Close() error {
	d.ReadCloser.Close()
	return d.file.Close()
}

// Searcher finds lines containing a literal pattern, ignoring case
type Searcher struct {
	Log    logrus.FieldLogger
	Walker *scanner.Walker
}

// NewSearcher creates a Searcher walking outside exclude
func NewSearcher(log logrus.FieldLogger, exclude *scanner.ExclusionSet) *Searcher {
	return &Searcher{Log: log, Walker: scanner.NewWalker(exclude)}
}

// Search yields every matching line of every file beneath root, in walk
// order. Unreadable files are skipped.
func (s *Searcher) Search(root, pattern string) iter.Seq[Match] {
	needle := strings.ToLower(pattern)
	return func(yield func(Match) bool) {
		files := scanner.Files(s.Walker.Walk(root), func(skip scanner.Skip) {
			s.Log.WithError(skip.Err).Debugf("Skipping %s", skip.Path)
		})
		for f := range files {
			if !s.searchFile(f.Path, needle, yield) {
				return
			}
		}
	}
}

func (s *Searcher) searchFile(path, needle string, yield func(Match) bool) bool {
	r, err := Open(path)
	if err != nil {
		s.Log.WithError(err).Debugf("Skipping %s", path)
		return true
	}
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		if !yield(Match{Path: path, LineNo: lineNo, Line: strings.TrimSpace(line)}) {
			return false
		}
	}
	if err := sc.Err(); err != nil {
		s.Log.WithError(err).Debugf("Stopped reading %s", path)
	}
	return true
}

// Tail returns the last n lines of path
func Tail(path string, n int) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("log file '%s' not found", path)
	}

	r, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not read log file '%s': %w", path, err)
	}
	defer r.Close()

	if n <= 0 {
		return nil, nil
	}

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read log file '%s': %w", path, err)
	}

	if count < n {
		return ring[:count], nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), nil
}

// FirstExisting returns the first path that is a regular file
func FirstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
