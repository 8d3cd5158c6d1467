package tasks

import (
	"context"
	"path/filepath"

	"github.com/fenilsonani/adminkit/internal/archive"
	"github.com/fenilsonani/adminkit/internal/command"
)

// Backup archives a directory: backup <source_directory> <destination_directory>
func Backup(ctx context.Context, env *Env, args []string) error {
	if len(args) != 2 {
		return env.usage("backup <source_directory> <destination_directory>")
	}

	if env.Config.DryRun {
		env.Log.Infof("[dry-run] Would archive %s into %s", args[0], filepath.Join(args[1], archive.Name(args[0], env.now())))
		return nil
	}

	path, err := archive.New(env.Log, env.Now).Create(ctx, args[0], args[1])
	if err != nil {
		return command.Exit(1, "%w", err)
	}
	env.Log.Infof("Backup successful: %s", path)
	return nil
}

// Restore extracts a backup: restore <archive.tar.gz> [target_directory]
func Restore(ctx context.Context, env *Env, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return env.usage("restore <archive.tar.gz> [target_directory]")
	}
	target := "."
	if len(args) == 2 && args[1] != "" {
		target = args[1]
	}

	if err := archive.New(env.Log, env.Now).Extract(ctx, args[0], target); err != nil {
		return command.Exit(1, "%w", err)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	env.Log.Infof("Restore successful to directory: %s", abs)
	return nil
}
