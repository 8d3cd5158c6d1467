package cleaner

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	gzip "github.com/klauspost/pgzip"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/internal/security"
	"github.com/fenilsonani/adminkit/internal/testutil"
)

func newTestCleaner(t *testing.T, opts Options) (*Cleaner, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	c := New(log, opts)
	c.sleep = func(time.Duration) {}
	return c, hook
}

func decompress(t *testing.T, codec Codec, path string) []byte {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := codec.NewReader(f)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func warnings(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestRotationScenario(t *testing.T) {
	fx := testutil.NewFixture(t)
	fresh := fx.CreateFileWithAge("log/fresh.log", []byte("fresh"), 1*testutil.Day)
	mid := fx.CreateFileWithAge("log/app/mid.log", []byte("ten days"), 10*testutil.Day)
	old := fx.CreateFileWithAge("log/old.log", []byte("a hundred days"), 100*testutil.Day)
	other := fx.CreateFileWithAge("log/old.txt", []byte("not a log"), 100*testutil.Day)

	c, hook := newTestCleaner(t, Options{})
	now := time.Now()
	match := scanner.All(scanner.HasSuffix(".log"), scanner.AgeExceeds(now, 7*testutil.Day))

	result := c.Process(scanner.NewWalker(nil).Walk(fx.LogsDir), match, ActionCompress)

	assert.Equal(t, 2, result.Count(scanner.OutcomeActed))
	assert.Zero(t, result.Count(scanner.OutcomeFailed))
	assert.Empty(t, warnings(hook))

	fx.AssertFileExists(fresh)
	fx.AssertFileNotExists(fresh + ".gz")
	fx.AssertFileExists(other)

	for path, content := range map[string]string{mid: "ten days", old: "a hundred days"} {
		fx.AssertFileNotExists(path)
		fx.AssertFileExists(path + ".gz")
		assert.Equal(t, content, string(decompress(t, gzipCodec{}, path+".gz")))
	}
}

func TestExpiryScenario(t *testing.T) {
	fx := testutil.NewFixture(t)
	kept := fx.CreateFileWithAge("log/kept.log.gz", []byte("x"), 89*testutil.Day)
	expired := fx.CreateFileWithAge("log/expired.log.gz", []byte("x"), 91*testutil.Day)

	c, _ := newTestCleaner(t, Options{})
	match := scanner.All(scanner.HasSuffix(".gz"), scanner.AgeExceeds(time.Now(), 90*testutil.Day))

	result := c.Process(scanner.NewWalker(nil).Walk(fx.LogsDir), match, ActionRemove)

	require.Equal(t, 1, result.Count(scanner.OutcomeActed))
	assert.Equal(t, expired, result.Files(scanner.OutcomeActed)[0].Path)
	fx.AssertFileExists(kept)
	fx.AssertFileNotExists(expired)
}

func TestCompressPreservesMetadata(t *testing.T) {
	fx := testutil.NewFixture(t)
	path := fx.CreateFileWithMode("log/secure.log", []byte("secret"), 0o640)
	fx.SetAge(path, 30*testutil.Day)
	info, err := os.Stat(path)
	require.NoError(t, err)

	c, _ := newTestCleaner(t, Options{})
	entry := scanner.FileEntry{Path: path, ModTime: info.ModTime(), Mode: info.Mode()}
	require.NoError(t, c.Apply(entry, ActionCompress))

	fx.AssertFileMode(path+".gz", 0o640)

	f, err := os.Open(path + ".gz")
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	assert.Equal(t, "secure.log", gz.Name)
	assert.Equal(t, info.ModTime().Unix(), gz.ModTime.Unix())
}

func TestCompressZstd(t *testing.T) {
	fx := testutil.NewFixture(t)
	content := bytes.Repeat([]byte("zstd log line\n"), 1000)
	path := fx.CreateFile("log/big.log", content)

	codec, err := CodecByName("zstd")
	require.NoError(t, err)
	c, _ := newTestCleaner(t, Options{Codec: codec})

	result := c.ApplyAll([]scanner.FileEntry{{Path: path}}, ActionCompress)
	require.Equal(t, 1, result.Count(scanner.OutcomeActed))

	fx.AssertFileNotExists(path)
	assert.Equal(t, content, decompress(t, codec, path+".zst"))
}

func TestCompressExistingArchiveKeepsOriginal(t *testing.T) {
	fx := testutil.NewFixture(t)
	path := fx.CreateFile("log/app.log", []byte("current"))
	fx.CreateFile("log/app.log.gz", []byte("previous archive"))

	c, hook := newTestCleaner(t, Options{})
	result := c.ApplyAll([]scanner.FileEntry{{Path: path}}, ActionCompress)

	require.Equal(t, 1, result.Count(scanner.OutcomeFailed))
	fx.AssertFileContent(path, []byte("current"))
	fx.AssertFileContent(path+".gz", []byte("previous archive"))
	assert.Len(t, warnings(hook), 1)

	var actErr *ActionError
	require.ErrorAs(t, result.Records[0].Err, &actErr)
	assert.Equal(t, ErrorAlreadyExists, actErr.Reason)
}

// Every rotation candidate ends in exactly one state: compressed with the
// original gone, or original intact with a warning.
func TestRotationOutcomesAreExclusive(t *testing.T) {
	fx := testutil.NewFixture(t)
	ok1 := fx.CreateFileWithAge("log/a.log", []byte("a"), 10*testutil.Day)
	ok2 := fx.CreateFileWithAge("log/c.log", []byte("c"), 10*testutil.Day)
	clash := fx.CreateFileWithAge("log/b.log", []byte("b"), 10*testutil.Day)
	fx.CreateFile("log/b.log.gz", []byte("existing"))

	locked := fx.CreateFileWithAge("log/ro/d.log", []byte("d"), 10*testutil.Day)
	roDir := filepath.Dir(locked)
	require.NoError(t, os.Chmod(roDir, 0o555))
	t.Cleanup(func() { os.Chmod(roDir, 0o755) })
	readOnly := os.WriteFile(filepath.Join(roDir, ".probe"), nil, 0o644) != nil

	c, hook := newTestCleaner(t, Options{})
	match := scanner.All(scanner.HasSuffix(".log"), scanner.AgeExceeds(time.Now(), 7*testutil.Day))
	result := c.Process(scanner.NewWalker(nil).Walk(fx.LogsDir), match, ActionCompress)

	failed := map[string]bool{}
	for _, rec := range result.Records {
		if rec.Outcome == scanner.OutcomeFailed {
			failed[rec.Entry.Path] = true
		}
	}

	for _, path := range []string{ok1, ok2, clash, locked} {
		origExists := fx.FileExists(path)
		if failed[path] {
			assert.True(t, origExists, "failed entry %s must keep its original", path)
			continue
		}
		assert.False(t, origExists, "%s should be removed", path)
		fx.AssertFileExists(path + ".gz")
	}

	assert.True(t, failed[clash])
	if readOnly {
		assert.True(t, failed[locked])
	}
	assert.Len(t, warnings(hook), len(failed))

	matches, err := filepath.Glob(filepath.Join(fx.LogsDir, "*", ".*.partial"))
	require.NoError(t, err)
	top, err := filepath.Glob(filepath.Join(fx.LogsDir, ".*.partial"))
	require.NoError(t, err)
	assert.Empty(t, append(matches, top...), "no temporary files may remain")
}

func TestDryRun(t *testing.T) {
	fx := testutil.NewFixture(t)
	path := fx.CreateFileWithAge("log/old.log", []byte("old"), 30*testutil.Day)

	c, hook := newTestCleaner(t, Options{DryRun: true})
	result := c.Process(scanner.NewWalker(nil).Walk(fx.LogsDir), scanner.HasSuffix(".log"), ActionCompress)

	assert.Equal(t, 1, result.Count(scanner.OutcomeMatched))
	fx.AssertFileExists(path)
	fx.AssertFileNotExists(path + ".gz")
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "Would compress")
}

func TestRemoveIfEmpty(t *testing.T) {
	fx := testutil.NewFixture(t)
	empty := fx.CreateDir("tmp/empty")
	full := fx.CreateDir("tmp/full")
	fx.CreateFile("tmp/full/keep.txt", []byte("keep"))

	c, hook := newTestCleaner(t, Options{})
	w := &scanner.Walker{IncludeDirs: true}
	result := c.Process(w.Walk(fx.TempDir), scanner.IsDir(), ActionRemoveIfEmpty)

	assert.Equal(t, 1, result.Count(scanner.OutcomeActed))
	assert.Equal(t, 1, result.Count(scanner.OutcomeMatched))
	assert.Empty(t, warnings(hook))
	fx.AssertFileNotExists(empty)
	fx.AssertFileExists(full)
}

func TestRemoveIfEmptyRejectsFiles(t *testing.T) {
	fx := testutil.NewFixture(t)
	path := fx.CreateFile("tmp/file.txt", []byte("x"))

	c, _ := newTestCleaner(t, Options{})
	err := c.Apply(scanner.FileEntry{Path: path}, ActionRemoveIfEmpty)

	var actErr *ActionError
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, ErrorNotDirectory, actErr.Reason)
	fx.AssertFileExists(path)
}

func TestRemove(t *testing.T) {
	t.Run("regular file", func(t *testing.T) {
		fx := testutil.NewFixture(t)
		path := fx.CreateFile("tmp/remove.txt", []byte("x"))
		c, _ := newTestCleaner(t, Options{})
		require.NoError(t, c.Apply(scanner.FileEntry{Path: path}, ActionRemove))
		fx.AssertFileNotExists(path)
	})

	t.Run("already gone", func(t *testing.T) {
		fx := testutil.NewFixture(t)
		c, _ := newTestCleaner(t, Options{})
		assert.NoError(t, c.Apply(scanner.FileEntry{Path: fx.Path("tmp/missing")}, ActionRemove))
	})

	t.Run("directory", func(t *testing.T) {
		fx := testutil.NewFixture(t)
		dir := fx.CreateDir("tmp/dir")
		c, _ := newTestCleaner(t, Options{})
		err := c.Apply(scanner.FileEntry{Path: dir}, ActionRemove)
		var actErr *ActionError
		require.ErrorAs(t, err, &actErr)
		assert.Equal(t, ErrorIsDirectory, actErr.Reason)
		fx.AssertFileExists(dir)
	})

	t.Run("symlink", func(t *testing.T) {
		fx := testutil.NewFixture(t)
		target := fx.CreateFile("data/target.txt", []byte("x"))
		link := fx.CreateSymlink(target, "tmp/link")
		c, _ := newTestCleaner(t, Options{})
		err := c.Apply(scanner.FileEntry{Path: link}, ActionRemove)
		var actErr *ActionError
		require.ErrorAs(t, err, &actErr)
		assert.Equal(t, ErrorInvalidPath, actErr.Reason)
		fx.AssertFileExists(link)
		fx.AssertFileExists(target)
	})

	t.Run("protected path", func(t *testing.T) {
		fx := testutil.NewFixture(t)
		path := fx.CreateFile("data/guarded.txt", []byte("x"))
		c, hook := newTestCleaner(t, Options{Validator: security.NewPathValidator(fx.DataDir)})
		result := c.ApplyAll([]scanner.FileEntry{{Path: path}}, ActionRemove)
		assert.Equal(t, 1, result.Count(scanner.OutcomeFailed))
		fx.AssertFileExists(path)
		require.Len(t, warnings(hook), 1)
		assert.True(t, strings.HasPrefix(warnings(hook)[0], "Refusing to remove"))
	})
}

func TestRetry(t *testing.T) {
	t.Run("transient error", func(t *testing.T) {
		c, _ := newTestCleaner(t, Options{MaxAttempts: 3})
		var slept []time.Duration
		c.sleep = func(d time.Duration) { slept = append(slept, d) }

		calls := 0
		err := c.withRetry("/tmp/busy", ActionRemove, func() error {
			calls++
			if calls < 3 {
				return &os.PathError{Op: "remove", Path: "/tmp/busy", Err: syscall.EBUSY}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		require.Len(t, slept, 2)
		assert.Less(t, slept[0], slept[1])
	})

	t.Run("gives up", func(t *testing.T) {
		c, _ := newTestCleaner(t, Options{MaxAttempts: 2})
		calls := 0
		err := c.withRetry("/tmp/busy", ActionRemove, func() error {
			calls++
			return syscall.ETXTBSY
		})
		var actErr *ActionError
		require.ErrorAs(t, err, &actErr)
		assert.Equal(t, ErrorFileInUse, actErr.Reason)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent error", func(t *testing.T) {
		c, _ := newTestCleaner(t, Options{})
		calls := 0
		err := c.withRetry("/tmp/x", ActionRemove, func() error {
			calls++
			return os.ErrPermission
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reason    ErrorReason
		retryable bool
		needsRoot bool
	}{
		{"not exist", os.ErrNotExist, ErrorFileNotFound, false, false},
		{"exist", os.ErrExist, ErrorAlreadyExists, false, false},
		{"permission", &os.PathError{Op: "remove", Path: "/x", Err: syscall.EACCES}, ErrorPermissionDenied, false, true},
		{"busy", syscall.EBUSY, ErrorFileInUse, true, false},
		{"text busy", syscall.ETXTBSY, ErrorFileInUse, true, false},
		{"is dir", syscall.EISDIR, ErrorIsDirectory, false, false},
		{"not dir", syscall.ENOTDIR, ErrorNotDirectory, false, false},
		{"other", errors.New("boom"), ErrorUnknown, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError("/x", ActionRemove, tt.err)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.needsRoot, got.NeedsRoot)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, CategorizeError("/x", ActionRemove, nil))

	existing := &ActionError{Path: "/y", Reason: ErrorInvalidPath}
	assert.Same(t, existing, CategorizeError("/x", ActionRemove, existing))
}

func TestFormatErrorSummary(t *testing.T) {
	assert.Empty(t, FormatErrorSummary(nil))

	summary := FormatErrorSummary([]*ActionError{
		{Reason: ErrorPermissionDenied},
		{Reason: ErrorPermissionDenied},
		{Reason: ErrorFileInUse},
	})
	assert.Equal(t, "3 action(s) failed:\n  Permission denied: 2 (run as root)\n  File is in use: 1", summary)
}

func TestFailures(t *testing.T) {
	busy := &ActionError{Path: "/var/log/b.log", Action: ActionRemove, Reason: ErrorFileInUse}
	first := &scanner.ScanResult{}
	first.Add(scanner.FileEntry{Path: "/var/log/a.log"}, scanner.OutcomeActed, nil)
	first.Add(scanner.FileEntry{Path: "/var/log/b.log"}, scanner.OutcomeFailed, busy)
	second := &scanner.ScanResult{}
	second.Add(scanner.FileEntry{Path: "/var/log/c.log"}, scanner.OutcomeFailed, os.ErrPermission)
	second.Add(scanner.FileEntry{Path: "/var/log/d.log"}, scanner.OutcomeMatched, nil)

	errs := Failures(first, second)
	require.Len(t, errs, 2)
	assert.Same(t, busy, errs[0])
	assert.Equal(t, "/var/log/c.log", errs[1].Path)
	assert.Equal(t, ErrorPermissionDenied, errs[1].Reason)

	assert.Empty(t, Failures(&scanner.ScanResult{}))
}

func TestCodecLookup(t *testing.T) {
	c, err := CodecByName("gzip")
	require.NoError(t, err)
	assert.Equal(t, ".gz", c.Ext())

	_, err = CodecByName("bzip2")
	assert.Error(t, err)

	c, ok := CodecForPath("/var/log/syslog.2.zst")
	require.True(t, ok)
	assert.Equal(t, "zstd", c.Name())

	_, ok = CodecForPath("/var/log/syslog")
	assert.False(t, ok)

	assert.Equal(t, []string{".gz", ".zst"}, Extensions())
}
