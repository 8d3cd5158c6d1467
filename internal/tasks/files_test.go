package tasks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gzip "github.com/klauspost/pgzip"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/adminkit/internal/archive"
	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/platform"
	"github.com/fenilsonani/adminkit/internal/reporter"
	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/internal/testutil"
	"github.com/fenilsonani/adminkit/pkg/utils"
)

func TestDiskReport(t *testing.T) {
	h := newHarness(t, "df")
	h.runner.On("df -h -x tmpfs -x devtmpfs", command.FakeResponse{Stdout: "Filesystem Size\n/dev/sda1 20G\n"})
	big := h.fx.CreateSizedFile("data/big.iso", 2*utils.MB)
	small := h.fx.CreateSizedFile("data/nested/small.txt", 10)

	require.NoError(t, Disk(t.Context(), h.env, DiskOptions{Output: reporter.FormatJSON}, nil))

	msgs := h.messages()
	assert.Contains(t, msgs, "==== Disk Usage Overview ====")
	assert.Contains(t, msgs, "\nFilesystem Size\n/dev/sda1 20G")
	assert.Contains(t, msgs, "==== Top 10 Largest Files ====")
	assert.Contains(t, msgs, fmt.Sprintf("\n2.0 MB - %s\n0.0 MB - %s", big, small))
	assert.True(t, h.logged(logrus.InfoLevel, "run: adminkit disk-cleanup --clean"))

	var doc largestReport
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	require.Len(t, doc.Largest, 2)
	assert.Equal(t, big, doc.Largest[0].Path)
	assert.Equal(t, uint64(2*utils.MB), doc.Largest[0].Size)
}

func TestDiskReportHonoursMinSize(t *testing.T) {
	h := newHarness(t)
	h.env.Config.Disk.MinReportSize = "1MB"
	big := h.fx.CreateSizedFile("data/big.iso", 2*utils.MB)
	h.fx.CreateSizedFile("data/small.txt", 10)

	require.NoError(t, Disk(t.Context(), h.env, DiskOptions{}, nil))
	assert.Contains(t, h.messages(), fmt.Sprintf("\n2.0 MB - %s", big))
	assert.True(t, h.logged(logrus.WarnLevel, "df not found"))
	assert.Empty(t, h.out.String())
}

func TestDiskRejectsArguments(t *testing.T) {
	h := newHarness(t)
	assertUsage(t, Disk(t.Context(), h.env, DiskOptions{}, []string{"--force"}), "disk-cleanup [--clean]")
}

func TestDiskCleanRequiresRoot(t *testing.T) {
	h := newHarness(t, "apt-get")
	h.env.Privilege = platform.StaticOracle(platform.PrivilegeUser)
	old := h.fx.CreateFileWithAge("tmp/old.txt", []byte("x"), 10*testutil.Day)

	err := Disk(t.Context(), h.env, DiskOptions{Clean: true}, nil)
	assert.Equal(t, 1, command.ExitCode(err))
	assert.EqualError(t, err, "Run as root to perform cleanup.")
	assert.Empty(t, h.runner.Calls())
	h.fx.AssertFileExists(old)
}

func TestDiskClean(t *testing.T) {
	h := newHarness(t, "apt-get")
	old := h.fx.CreateFileWithAge("tmp/old.txt", []byte("old"), 10*testutil.Day)
	fresh := h.fx.CreateFile("tmp/fresh.txt", []byte("new"))
	emptyOld := h.fx.CreateDirWithAge("tmp/empty", 9*testutil.Day)
	emptyNew := h.fx.CreateDir("tmp/empty-new")
	busy := h.fx.CreateDir("tmp/busy")
	h.fx.CreateFile("tmp/busy/keep.txt", []byte("keep"))
	h.fx.SetAge(busy, 30*testutil.Day)

	// Removing stale.log refreshes the mtime of its directory.
	stale := h.fx.CreateFileWithAge("tmp/rotated/stale.log", []byte("stale"), 8*testutil.Day)
	h.fx.SetAge(h.fx.Path("tmp/rotated"), 8*testutil.Day)

	require.NoError(t, Disk(t.Context(), h.env, DiskOptions{Clean: true, Output: reporter.FormatJSON}, nil))

	assert.Equal(t, []string{"apt-get clean"}, h.runner.Lines())
	h.fx.AssertFileNotExists(old)
	h.fx.AssertFileNotExists(stale)
	h.fx.AssertFileNotExists(emptyOld)
	h.fx.AssertFileExists(fresh)
	h.fx.AssertFileExists(emptyNew)
	h.fx.AssertFileExists(busy)
	h.fx.AssertFileExists(h.fx.Path("tmp/rotated"))
	h.fx.AssertFileExists(h.fx.TempDir)

	var summary reporter.Summary
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &summary))
	assert.Equal(t, 3, summary.Acted)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Matched)
	assert.True(t, h.logged(logrus.InfoLevel, "Disk cleanup completed."))
}

func TestDiskCleanDryRun(t *testing.T) {
	h := newHarness(t, "dnf")
	h.env.Config.DryRun = true
	old := h.fx.CreateFileWithAge("tmp/old.txt", []byte("old"), 10*testutil.Day)

	require.NoError(t, Disk(t.Context(), h.env, DiskOptions{Clean: true}, nil))

	h.fx.AssertFileExists(old)
	assert.Empty(t, h.runner.Calls())
	assert.True(t, h.logged(logrus.InfoLevel, "[dry-run] Would run dnf clean all"))
	assert.True(t, h.logged(logrus.InfoLevel, "[dry-run] Would remove "+old))
}

func TestDiskCleanPackageFailureIsWarning(t *testing.T) {
	h := newHarness(t, "pacman")
	h.runner.On("pacman -Scc --noconfirm", command.FakeResponse{Stderr: "locked", ExitCode: 1})

	require.NoError(t, Disk(t.Context(), h.env, DiskOptions{Clean: true}, nil))
	assert.True(t, h.logged(logrus.WarnLevel, "Package cache clean command failed"))
}

func TestLogRotate(t *testing.T) {
	h := newHarness(t)
	app := h.fx.CreateFileWithAge("log/app.log", []byte("app line\n"), 10*testutil.Day)
	current := h.fx.CreateFile("log/current.log", []byte("now\n"))
	expired := h.fx.CreateFileWithAge("log/old.log.gz", []byte("x"), 100*testutil.Day)
	recent := h.fx.CreateFileWithAge("log/recent.log.gz", []byte("x"), 10*testutil.Day)
	other := h.fx.CreateFileWithAge("log/notes.txt", []byte("x"), 100*testutil.Day)

	require.NoError(t, LogRotate(t.Context(), h.env, nil))

	h.fx.AssertFileNotExists(app)
	h.fx.AssertFileExists(app + ".gz")
	h.fx.AssertFileExists(current)
	h.fx.AssertFileNotExists(expired)
	h.fx.AssertFileExists(recent)
	h.fx.AssertFileExists(other)

	assert.True(t, h.logged(logrus.InfoLevel, "Compressed 1 logs older than 7 days."))
	assert.True(t, h.logged(logrus.InfoLevel, "Removed 1 log archives older than 90 days."))
}

func TestLogRotateDays(t *testing.T) {
	h := newHarness(t)
	app := h.fx.CreateFileWithAge("log/app.log", []byte("app\n"), 3*testutil.Day)

	require.NoError(t, LogRotate(t.Context(), h.env, []string{"2"}))
	h.fx.AssertFileExists(app + ".gz")
}

func TestLogRotateInvalidDaysFallsBack(t *testing.T) {
	for _, arg := range []string{"abc", "-3"} {
		t.Run(arg, func(t *testing.T) {
			h := newHarness(t)
			app := h.fx.CreateFileWithAge("log/app.log", []byte("app\n"), 3*testutil.Day)

			require.NoError(t, LogRotate(t.Context(), h.env, []string{arg}))
			assert.True(t, h.logged(logrus.WarnLevel, "using 7"))
			h.fx.AssertFileExists(app)
		})
	}
}

func TestLogRotateSummarizesFailures(t *testing.T) {
	h := newHarness(t)
	app := h.fx.CreateFileWithAge("log/app.log", []byte("app\n"), 10*testutil.Day)
	h.fx.CreateFileWithAge("log/app.log.gz", []byte("older archive"), testutil.Day)

	require.NoError(t, LogRotate(t.Context(), h.env, nil))

	h.fx.AssertFileExists(app)
	h.fx.AssertFileContent(app+".gz", []byte("older archive"))
	assert.True(t, h.logged(logrus.WarnLevel, "1 action(s) failed:\n  Target already exists: 1"))
}

func TestLogRotateRequiresRoot(t *testing.T) {
	h := newHarness(t)
	h.env.Privilege = platform.StaticOracle(platform.PrivilegeUser)
	err := LogRotate(t.Context(), h.env, nil)
	assert.EqualError(t, err, "Please run as root to rotate system logs.")

	assertUsage(t, LogRotate(t.Context(), h.env, []string{"1", "2"}), "log-rotate [days]")
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestLogInspectSearch(t *testing.T) {
	h := newHarness(t)
	plain := h.fx.CreateFile("log/app.log", []byte("ok\n  Error: disk full  \nfine\n"))
	packed := filepath.Join(h.fx.LogsDir, "app.log.1.gz")
	writeGzip(t, packed, "rotated\nAnother ERROR here\n")

	require.NoError(t, LogInspect(t.Context(), h.env, []string{"search", "error"}))

	msgs := h.messages()
	assert.Contains(t, msgs, fmt.Sprintf("Searching for 'error' in %s...", h.fx.LogsDir))
	assert.Contains(t, msgs, plain+": Error: disk full")
	assert.Contains(t, msgs, packed+": Another ERROR here")
	assert.NotContains(t, msgs, "No matches found.")
}

func TestLogInspectSearchNoMatches(t *testing.T) {
	h := newHarness(t)
	h.fx.CreateFile("log/app.log", []byte("all good\n"))

	require.NoError(t, LogInspect(t.Context(), h.env, []string{"search", "panic"}))
	assert.Contains(t, h.messages(), "No matches found.")
}

func TestLogInspectTail(t *testing.T) {
	h := newHarness(t)
	var lines []string
	for i := 1; i <= 150; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	path := h.fx.CreateFile("log/big.log", []byte(strings.Join(lines, "\n")+"\n"))

	require.NoError(t, LogInspect(t.Context(), h.env, []string{"tail", path}))
	want := fmt.Sprintf("== Last 100 lines of %s ==\n%s", path, strings.Join(lines[50:], "\n"))
	assert.Contains(t, h.messages(), want)
}

func TestLogInspectTailMissingFile(t *testing.T) {
	h := newHarness(t)
	err := LogInspect(t.Context(), h.env, []string{"tail", h.fx.Path("log/none.log")})
	require.Error(t, err)
	assert.Equal(t, 1, command.ExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestLogInspectDefault(t *testing.T) {
	h := newHarness(t)
	var lines []string
	for i := 1; i <= 60; i++ {
		lines = append(lines, fmt.Sprintf("msg %d", i))
	}
	messages := h.fx.CreateFile("log/messages", []byte(strings.Join(lines, "\n")+"\n"))

	// An unknown mode tails the system log as well.
	require.NoError(t, LogInspect(t.Context(), h.env, []string{"bogus"}))
	want := fmt.Sprintf("== Last 50 lines of %s ==\n%s", messages, strings.Join(lines[10:], "\n"))
	assert.Contains(t, h.messages(), want)
}

func TestLogInspectNoSystemLog(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, LogInspect(t.Context(), h.env, nil))
	assert.True(t, h.logged(logrus.WarnLevel, "No syslog or messages log found."))

	assertUsage(t, LogInspect(t.Context(), h.env, []string{"search"}), "log-inspect search <pattern>")
	assertUsage(t, LogInspect(t.Context(), h.env, []string{"tail"}), "log-inspect tail <log_file_path>")
}

func TestBackupAndRestore(t *testing.T) {
	h := newHarness(t)
	h.env.Now = func() time.Time { return fixedNow }
	h.fx.CreateFile("data/site/index.html", []byte("hello"))

	require.NoError(t, Backup(t.Context(), h.env, []string{h.fx.Path("data/site"), h.fx.Path("backups")}))
	archivePath := h.fx.Path("backups/site-backup-20250131.tar.gz")
	h.fx.AssertFileExists(archivePath)
	assert.Contains(t, h.messages(), "Backup successful: "+archivePath)

	target := h.fx.Path("restored")
	require.NoError(t, Restore(t.Context(), h.env, []string{archivePath, target}))
	h.fx.AssertFileContent(filepath.Join(target, "site/index.html"), []byte("hello"))
	assert.Contains(t, h.messages(), "Restore successful to directory: "+target)
}

func TestBackupDryRun(t *testing.T) {
	h := newHarness(t)
	h.env.Now = func() time.Time { return fixedNow }
	h.env.Config.DryRun = true
	h.fx.CreateFile("data/site/index.html", []byte("hello"))

	require.NoError(t, Backup(t.Context(), h.env, []string{h.fx.Path("data/site"), h.fx.Path("backups")}))
	h.fx.AssertFileNotExists(h.fx.Path("backups"))
	assert.True(t, h.logged(logrus.InfoLevel, archive.Name("site", fixedNow)))
}

func TestBackupErrors(t *testing.T) {
	h := newHarness(t)
	assertUsage(t, Backup(t.Context(), h.env, []string{"only-one"}), "backup <source_directory> <destination_directory>")
	assertUsage(t, Restore(t.Context(), h.env, nil), "restore <archive.tar.gz> [target_directory]")

	err := Backup(t.Context(), h.env, []string{h.fx.Path("missing"), h.fx.Path("backups")})
	assert.Equal(t, 1, command.ExitCode(err))

	err = Restore(t.Context(), h.env, []string{h.fx.Path("missing.tar.gz")})
	assert.Equal(t, 1, command.ExitCode(err))
}

func rsyncLine(src, dst string) string {
	return "rsync -a -v -z -h -u -P -c -x -A -X --delete --numeric-ids --inplace --backup " +
		"--backup-dir=" + dst + "/.backup-2025-01-31_10-00-00 " + src + "/ " + dst + "/"
}

func TestRsync(t *testing.T) {
	h := newHarness(t, "rsync")
	h.env.Now = func() time.Time { return fixedNow }
	src := h.fx.CreateDir("data/src")
	dst := h.fx.Path("mirror")
	h.runner.On(rsyncLine(src, dst), command.FakeResponse{Stdout: "sending incremental file list\n", Stderr: "warning: x\n"})

	require.NoError(t, Rsync(t.Context(), h.env, []string{src, dst}))

	assert.Equal(t, []string{rsyncLine(src, dst)}, h.runner.Lines())
	h.fx.AssertFileExists(dst)
	assert.Contains(t, h.messages(), "\nsending incremental file list\nwarning: x")
	assert.Contains(t, h.messages(), "Starting rsync at 2025-01-31_10-00-00")
	assert.Contains(t, h.messages(), "rsync completed at 2025-01-31_10-00-00")
}

func TestRsyncOptions(t *testing.T) {
	h := newHarness(t, "rsync")
	h.env.Now = func() time.Time { return fixedNow }
	h.env.Config.DryRun = true
	h.fx.CreateFile("excludes.txt", []byte("*.tmp\n"))
	src := h.fx.CreateDir("data/src") + "/"

	args := rsyncArgs(h.env, src, "/backup")
	assert.Equal(t, []string{
		"--dry-run",
		"--exclude-from=" + h.env.Config.Rsync.ExcludeFile,
		src,
		"/backup/",
	}, args[len(args)-4:])
}

func TestRsyncFailures(t *testing.T) {
	h := newHarness(t, "rsync")
	h.env.Now = func() time.Time { return fixedNow }

	err := Rsync(t.Context(), h.env, []string{h.fx.Path("nope"), h.fx.Path("mirror")})
	assert.Equal(t, 2, command.ExitCode(err))
	assert.EqualError(t, err, fmt.Sprintf("Error: Source directory '%s' not found!", h.fx.Path("nope")))

	src := h.fx.CreateDir("data/src")
	dst := h.fx.Path("mirror")
	h.runner.On(rsyncLine(src, dst), command.FakeResponse{Stderr: "partial transfer", ExitCode: 23})
	err = Rsync(t.Context(), h.env, []string{src, dst})
	assert.Equal(t, 23, command.ExitCode(err))

	assertUsage(t, Rsync(t.Context(), h.env, []string{src}), "rsync [--dry-run] <source> <destination>")
}

func TestSecurityAudit(t *testing.T) {
	h := newHarness(t, "ss")
	h.runner.On("ss -tulwn", command.FakeResponse{Stdout: "tcp LISTEN 0 128 *:22\n"})
	world := h.fx.CreateFileWithMode("data/shared.txt", []byte("x"), 0o666)
	suid := h.fx.CreateFileWithMode("data/bin/tool", []byte("x"), scanner.FileMode(0o4755))
	open := h.fx.CreateDirWithMode("data/drop", 0o777)
	h.fx.CreateDirWithMode("data/sticky", scanner.FileMode(0o1777))
	h.fx.CreateFileWithMode("data/private.txt", []byte("x"), 0o600)

	require.NoError(t, SecurityAudit(t.Context(), h.env, reporter.FormatJSON, nil))

	var doc auditFindings
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &doc))
	paths := func(recs []reporter.FileRecord) []string {
		var out []string
		for _, r := range recs {
			out = append(out, r.Path)
		}
		return out
	}
	assert.Equal(t, []string{world}, paths(doc.WorldWritableFiles))
	assert.Equal(t, []string{open}, paths(doc.WorldWritableDirs))
	assert.Equal(t, []string{suid}, paths(doc.PrivilegeEscalation))
	assert.Equal(t, "-rwsr-xr-x", doc.PrivilegeEscalation[0].Mode)

	msgs := h.messages()
	assert.Contains(t, msgs, "==== World-writable files ====")
	assert.Contains(t, msgs, "==== World-writable directories without sticky bit ====")
	assert.Contains(t, msgs, "==== SUID/SGID files ====")
	assert.Contains(t, msgs, "==== Listening ports ====")
	assert.Contains(t, msgs, "\ntcp LISTEN 0 128 *:22")
	assert.True(t, h.logged(logrus.InfoLevel, "-rw-rw-rw- "))
}

func TestSecurityAuditWithoutSocketTools(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, SecurityAudit(t.Context(), h.env, reporter.FormatText, nil))
	assert.True(t, h.logged(logrus.WarnLevel, "Neither ss nor netstat is available"))
	assert.Empty(t, h.out.String())

	assertUsage(t, SecurityAudit(t.Context(), h.env, reporter.FormatText, []string{"/"}), "security-audit")
}
