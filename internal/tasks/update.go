package tasks

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/platform"
)

// Update refreshes the package index and upgrades every installed package
// with the host's package manager
func Update(ctx context.Context, env *Env, args []string) error {
	if len(args) != 0 {
		return env.usage("update")
	}
	platform.WarnIfNotRoot(env.Privilege, env.Log)

	pm, ok := platform.DetectPackageManager(env.Runner)
	if !ok {
		return command.Exit(1, "No supported package manager found on this system.")
	}

	for _, argv := range pm.Update {
		spec := command.New(argv[0], argv[1:]...)
		if env.Config.DryRun {
			env.Log.Infof("[dry-run] Would run %s", spec)
			continue
		}
		env.Log.Infof("Running %s...", spec)
		if err := env.stream(ctx, spec); err != nil {
			return err
		}
	}

	env.Log.Info("System update completed successfully.")
	return nil
}

// stream runs spec with its output relayed line by line into the log
func (e *Env) stream(ctx context.Context, spec command.Spec) error {
	stdout := e.Log.WriterLevel(logrus.InfoLevel)
	defer stdout.Close()
	stderr := e.Log.WriterLevel(logrus.WarnLevel)
	defer stderr.Close()

	spec.Stdout = stdout
	spec.Stderr = stderr
	res, err := e.Runner.Run(ctx, spec)
	if err != nil {
		return command.Exit(1, "Package update failed: %w", err)
	}
	if !res.Success() {
		return command.Exit(res.ExitCode, "Package update failed: %s exited with status %d", spec, res.ExitCode)
	}
	return nil
}
