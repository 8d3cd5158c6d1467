package tasks

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/config"
	"github.com/fenilsonani/adminkit/internal/logging"
	"github.com/fenilsonani/adminkit/internal/platform"
	"github.com/fenilsonani/adminkit/internal/testutil"
	"github.com/fenilsonani/adminkit/internal/ui"
)

var fixedNow = time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

type harness struct {
	env    *Env
	runner *command.FakeRunner
	hook   *test.Hook
	out    *bytes.Buffer
	fx     *testutil.TestFixture
}

// newHarness builds an Env rooted in a fresh fixture. Only tools resolve
// through the fake runner's LookPath.
func newHarness(t *testing.T, tools ...string) *harness {
	t.Helper()
	fx := testutil.NewFixture(t)

	log, err := logging.New(logging.Config{Level: "debug"}, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	hook := test.NewLocal(log.Logger)

	cfg := config.GetDefault()
	cfg.ProtectedPaths = nil
	cfg.Exclude.Paths = nil
	cfg.Disk.ScanRoot = fx.DataDir
	cfg.Disk.TempDirs = []string{fx.TempDir}
	cfg.Logs.Dir = fx.LogsDir
	cfg.Logs.SystemLogs = []string{filepath.Join(fx.LogsDir, "syslog"), filepath.Join(fx.LogsDir, "messages")}
	cfg.Rsync.LogFile = filepath.Join(fx.RootDir, "rsync.log")
	cfg.Rsync.ExcludeFile = filepath.Join(fx.RootDir, "excludes.txt")
	cfg.Zimbra.BackupDir = filepath.Join(fx.RootDir, "zimbra")

	runner := command.NewFakeRunner(tools...)
	out := &bytes.Buffer{}
	return &harness{
		env: &Env{
			Config:    cfg,
			Log:       log,
			Runner:    runner,
			Privilege: platform.StaticOracle(platform.PrivilegeRoot),
			Prompter:  &ui.ScriptedPrompter{},
			Stdout:    out,
			Program:   "adminkit",
		},
		runner: runner,
		hook:   hook,
		out:    out,
		fx:     fx,
	}
}

func (h *harness) messages() []string {
	var out []string
	for _, e := range h.hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

// logged reports whether a record at level contains substr
func (h *harness) logged(level logrus.Level, substr string) bool {
	for _, e := range h.hook.AllEntries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func assertUsage(t *testing.T, err error, usage string) {
	t.Helper()
	var ue *command.UsageError
	require.True(t, errors.As(err, &ue), "expected a usage error, got %v", err)
	assert.Equal(t, "Usage: adminkit "+usage, ue.Error())
	assert.Equal(t, 1, command.ExitCode(err))
}

func TestEnvCapture(t *testing.T) {
	h := newHarness(t, "df")
	h.runner.On("df -h", command.FakeResponse{Stdout: "partial\n", Stderr: "df: /mnt: Permission denied", ExitCode: 1})

	out, err := h.env.capture(t.Context(), command.New("df", "-h"))
	require.NoError(t, err)
	assert.Equal(t, "partial", out)
	assert.True(t, h.logged(logrus.WarnLevel, "(Command error output: df: /mnt: Permission denied)"))
}

func TestEnvChecked(t *testing.T) {
	h := newHarness(t)
	h.runner.On("false", command.FakeResponse{Stderr: "boom", ExitCode: 4})

	_, err := h.env.checked(t.Context(), command.New("false"))
	require.Error(t, err)
	assert.Equal(t, 4, command.ExitCode(err))
	assert.Contains(t, err.Error(), "boom")

	h.runner.On("gone", command.FakeResponse{Err: errors.New("executable not found")})
	_, err = h.env.checked(t.Context(), command.New("gone"))
	assert.Equal(t, 1, command.ExitCode(err))
}

func TestToolSectionFallsBack(t *testing.T) {
	h := newHarness(t, "netstat")
	h.runner.On("netstat -tuln", command.FakeResponse{Stdout: "tcp LISTEN\n"})

	sec := h.env.toolSection("Ports", "nothing to run", command.New("ss", "-tulwn"), command.New("netstat", "-tuln"))
	out, err := sec.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "tcp LISTEN", out)
	assert.Equal(t, []string{"netstat -tuln"}, h.runner.Lines())

	none := h.env.toolSection("Firewall", "iptables not found", command.New("iptables", "-L"))
	out, err = none.Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.True(t, h.logged(logrus.WarnLevel, "iptables not found"))
}

func TestRequireRoot(t *testing.T) {
	h := newHarness(t)
	h.env.Privilege = platform.StaticOracle(platform.PrivilegeUser)
	err := h.env.requireRoot("Run as root.")
	assert.Equal(t, 1, command.ExitCode(err))
	assert.EqualError(t, err, "Run as root.")

	h.env.Privilege = platform.StaticOracle(platform.PrivilegeUnknown)
	assert.NoError(t, h.env.requireRoot("Run as root."))
}
