// Package cleaner applies actions to scanned entries: report, compress the
// file and remove the original, remove, or remove an empty directory.
package cleaner

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"

	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/internal/security"
)

// Action is what the executor does with a matched entry
type Action int

const (
	ActionReport Action = iota
	ActionCompress
	ActionRemove
	ActionRemoveIfEmpty
)

func (a Action) String() string {
	switch a {
	case ActionCompress:
		return "compress"
	case ActionRemove:
		return "remove"
	case ActionRemoveIfEmpty:
		return "remove-if-empty"
	default:
		return "report"
	}
}

func (a Action) verb() string {
	switch a {
	case ActionCompress:
		return "compress"
	case ActionRemove:
		return "remove"
	case ActionRemoveIfEmpty:
		return "remove directory"
	default:
		return "report"
	}
}

// ErrNotEmpty means remove-if-empty found the directory in use. The entry is
// kept and recorded as matched only.
var ErrNotEmpty = errors.New("directory not empty")

// Options configures a Cleaner
type Options struct {
	DryRun bool
	// Codec used by ActionCompress; gzip when nil
	Codec Codec
	// Validator guards removals; nil allows any path
	Validator *security.PathValidator

	// Attempts for retryable failures such as a busy file
	MaxAttempts int
	RetryMin    time.Duration
	RetryMax    time.Duration
}

// Cleaner executes actions and records their outcomes. A failure on one
// entry is logged and recorded; it never stops the caller.
type Cleaner struct {
	log       logrus.FieldLogger
	dryRun    bool
	codec     Codec
	validator *security.PathValidator

	maxAttempts int
	retryMin    time.Duration
	retryMax    time.Duration
	sleep       func(time.Duration)
}

// New creates a new Cleaner
func New(log logrus.FieldLogger, opts Options) *Cleaner {
	c := &Cleaner{
		log:         log,
		dryRun:      opts.DryRun,
		codec:       opts.Codec,
		validator:   opts.Validator,
		maxAttempts: opts.MaxAttempts,
		retryMin:    opts.RetryMin,
		retryMax:    opts.RetryMax,
		sleep:       time.Sleep,
	}
	if c.codec == nil {
		c.codec = gzipCodec{}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.retryMin <= 0 {
		c.retryMin = 100 * time.Millisecond
	}
	if c.retryMax <= 0 {
		c.retryMax = 2 * time.Second
	}
	return c
}

// Process applies action to every walked entry matching match, in walk order.
// Skipped entries are recorded and logged at debug level.
func (c *Cleaner) Process(entries iter.Seq[scanner.Entry], match scanner.Predicate, action Action) *scanner.ScanResult {
	result := &scanner.ScanResult{}
	for e := range entries {
		if e.Skipped() {
			c.log.WithError(e.Skip.Err).Debugf("Skipping %s", e.Skip.Path)
			result.Skip(*e.Skip)
			continue
		}
		if match != nil && !match(e.File) {
			continue
		}
		c.record(result, e.File, action)
	}
	return result
}

// ApplyAll applies action to files in the given order
func (c *Cleaner) ApplyAll(files []scanner.FileEntry, action Action) *scanner.ScanResult {
	result := &scanner.ScanResult{}
	for _, f := range files {
		c.record(result, f, action)
	}
	return result
}

func (c *Cleaner) record(result *scanner.ScanResult, entry scanner.FileEntry, action Action) {
	if action == ActionReport {
		result.Add(entry, scanner.OutcomeMatched, nil)
		return
	}

	if c.dryRun {
		c.log.Infof("[dry-run] Would %s %s", action.verb(), entry.Path)
		result.Add(entry, scanner.OutcomeMatched, nil)
		return
	}

	err := c.Apply(entry, action)
	switch {
	case err == nil:
		result.Add(entry, scanner.OutcomeActed, nil)
	case errors.Is(err, ErrNotEmpty):
		result.Add(entry, scanner.OutcomeMatched, nil)
	default:
		actErr := CategorizeError(entry.Path, action, err)
		c.log.Warn(actErr.UserMessage())
		result.Add(entry, scanner.OutcomeFailed, actErr)
	}
}

// Apply performs action on one entry, ignoring dry-run
func (c *Cleaner) Apply(entry scanner.FileEntry, action Action) error {
	switch action {
	case ActionReport:
		return nil
	case ActionCompress:
		return c.compress(entry)
	case ActionRemove:
		return c.withRetry(entry.Path, action, func() error { return c.remove(entry) })
	case ActionRemoveIfEmpty:
		return c.withRetry(entry.Path, action, func() error { return c.removeIfEmpty(entry) })
	default:
		return fmt.Errorf("unknown action %d", action)
	}
}

func (c *Cleaner) withRetry(path string, action Action, op func() error) error {
	b := &backoff.Backoff{Min: c.retryMin, Max: c.retryMax, Factor: 2}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil || errors.Is(err, ErrNotEmpty) {
			return err
		}

		actErr := CategorizeError(path, action, err)
		if !actErr.Retryable || attempt >= c.maxAttempts {
			return actErr
		}

		delay := b.Duration()
		c.log.WithField("attempt", attempt).Debugf("Retrying %s of %s in %s", action, path, delay)
		c.sleep(delay)
	}
}

func (c *Cleaner) validate(path string, action Action) error {
	if c.validator != nil {
		if err := c.validator.ValidatePathForRemoval(path); err != nil {
			return invalidPath(path, action, err)
		}
	}
	if err := IsSafeToRemove(path); err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return invalidPath(path, action, err)
	}
	return nil
}

func (c *Cleaner) remove(entry scanner.FileEntry) error {
	if err := c.validate(entry.Path, ActionRemove); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	info, err := os.Lstat(entry.Path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &ActionError{Path: entry.Path, Action: ActionRemove, Reason: ErrorIsDirectory,
			Original: errors.New("directories are only removed when empty")}
	}

	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	c.log.Infof("Removed %s", entry.Path)
	return nil
}

func (c *Cleaner) removeIfEmpty(entry scanner.FileEntry) error {
	if err := c.validate(entry.Path, ActionRemoveIfEmpty); err != nil {
		return err
	}

	info, err := os.Lstat(entry.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &ActionError{Path: entry.Path, Action: ActionRemoveIfEmpty, Reason: ErrorNotDirectory,
			Original: errors.New("only directories can be removed when empty")}
	}

	empty, err := isEmptyDir(entry.Path)
	if err != nil {
		return err
	}
	if !empty {
		return ErrNotEmpty
	}

	// rmdir refuses a directory that gained entries since the check
	if err := syscall.Rmdir(entry.Path); err != nil {
		if errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
			return ErrNotEmpty
		}
		return &os.PathError{Op: "rmdir", Path: entry.Path, Err: err}
	}
	c.log.Infof("Removed empty directory %s", entry.Path)
	return nil
}

// compress writes <path><ext> through a temporary file and removes the
// original only once the compressed copy is complete and in place.
func (c *Cleaner) compress(entry scanner.FileEntry) error {
	path := entry.Path
	dst := path + c.codec.Ext()

	if err := c.validate(path, ActionCompress); err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return &ActionError{Path: path, Action: ActionCompress, Reason: ErrorAlreadyExists,
			Original: fmt.Errorf("%s already exists", dst)}
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(dst)+".*.partial")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := c.writeCompressed(tmp, src, filepath.Base(path), info.ModTime()); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	// Ownership is best effort; only root can hand files to other users.
	_ = os.Lchown(tmp.Name(), int(entry.UID), int(entry.GID))

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	committed = true

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("compressed copy %s written but original kept: %w", dst, err)
	}

	c.log.Infof("Compressed %s -> %s", path, filepath.Base(dst))
	return nil
}

func (c *Cleaner) writeCompressed(dst io.Writer, src io.Reader, name string, modTime time.Time) error {
	w, err := c.codec.NewWriter(dst, name, modTime)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
