package tasks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/logging"
)

const rsyncStamp = "2006-01-02_15-04-05"

// Rsync mirrors a directory: rsync [--dry-run] <source> <destination>.
// The logger it is given also appends to the rsync log file.
func Rsync(ctx context.Context, env *Env, args []string) error {
	if len(args) != 2 {
		return env.usage("rsync [--dry-run] <source> <destination>")
	}
	src, dst := args[0], args[1]

	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return command.Exit(2, "Error: Source directory '%s' not found!", src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return command.Exit(1, "failed to create destination directory '%s': %w", dst, err)
	}

	env.Log.Infof("Starting rsync at %s", env.now().Format(rsyncStamp))

	spec := command.New("rsync", rsyncArgs(env, src, dst)...)
	var out bytes.Buffer
	spec.Stdout = &out
	spec.Stderr = &out

	res, err := env.Runner.Run(ctx, spec)
	if err != nil {
		return command.Exit(1, "Failed to run rsync: %w", err)
	}
	logging.Block(env.Log, out.String())

	end := env.now().Format(rsyncStamp)
	if !res.Success() {
		return command.Exit(res.ExitCode, "rsync exited with errors (exit code %d) at %s", res.ExitCode, end)
	}
	env.Log.Infof("rsync completed at %s", end)
	return nil
}

func rsyncArgs(env *Env, src, dst string) []string {
	args := []string{
		"-a", "-v", "-z", "-h", "-u", "-P", "-c", "-x", "-A", "-X",
		"--delete",
		"--numeric-ids",
		"--inplace",
		"--backup",
		"--backup-dir=" + filepath.Join(dst, ".backup-"+env.now().Format(rsyncStamp)),
	}
	if env.Config.DryRun {
		args = append(args, "--dry-run")
		env.Log.Info("Running in DRY RUN mode...")
	}
	if f := env.Config.Rsync.ExcludeFile; f != "" {
		if info, err := os.Stat(f); err == nil && info.Mode().IsRegular() {
			args = append(args, "--exclude-from="+f)
		}
	}
	return append(args, withSlash(src), withSlash(dst))
}

func withSlash(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
