package tasks

import (
	"context"
	"strconv"

	"github.com/fenilsonani/adminkit/internal/cleaner"
	"github.com/fenilsonani/adminkit/internal/config"
	"github.com/fenilsonani/adminkit/internal/scanner"
)

// LogRotate compresses old logs and expires old archives: log-rotate [days]
func LogRotate(ctx context.Context, env *Env, args []string) error {
	if len(args) > 1 {
		return env.usage("log-rotate [days]")
	}

	cfg := env.Config.Logs
	days := cfg.RotateAfterDays
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			env.Log.Warnf("Ignoring invalid day count %q, using %d", args[0], days)
		} else {
			days = n
		}
	}

	if err := env.requireRoot("Please run as root to rotate system logs."); err != nil {
		return err
	}

	c, err := env.cleaner()
	if err != nil {
		return err
	}
	exclude, err := env.exclusions()
	if err != nil {
		return err
	}
	walker := scanner.NewWalker(exclude)

	env.Log.Infof("Rotating logs older than %d days...", days)
	rotated := c.Process(walker.Walk(cfg.Dir),
		scanner.All(scanner.HasSuffix(cfg.Suffix), scanner.AgeExceeds(env.now(), config.Days(days))),
		cleaner.ActionCompress)
	if n := rotated.Count(scanner.OutcomeActed); n > 0 {
		env.Log.Infof("Compressed %d logs older than %d days.", n, days)
	}

	expired := c.Process(walker.Walk(cfg.Dir),
		scanner.All(scanner.HasSuffix(cleaner.Extensions()...), scanner.AgeExceeds(env.now(), config.Days(cfg.ExpireAfterDays))),
		cleaner.ActionRemove)
	if n := expired.Count(scanner.OutcomeActed); n > 0 {
		env.Log.Infof("Removed %d log archives older than %d days.", n, cfg.ExpireAfterDays)
	}

	if summary := cleaner.FormatErrorSummary(cleaner.Failures(rotated, expired)); summary != "" {
		env.Log.Warn(summary)
	}
	if env.Config.DryRun {
		env.Log.Infof("[dry-run] %d logs would be compressed, %d archives removed",
			rotated.Count(scanner.OutcomeMatched), expired.Count(scanner.OutcomeMatched))
	}
	return nil
}
