package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/logscan"
)

// LogInspect searches or tails logs:
//
//	log-inspect search <pattern>
//	log-inspect tail <log_file_path>
//	log-inspect            (tail the system log)
//
// An unknown mode falls back to tailing the system log.
func LogInspect(ctx context.Context, env *Env, args []string) error {
	if len(args) >= 1 {
		switch strings.ToLower(args[0]) {
		case "search":
			if len(args) < 2 {
				return env.usage("log-inspect search <pattern>")
			}
			return searchLogs(ctx, env, args[1])
		case "tail":
			if len(args) < 2 {
				return env.usage("log-inspect tail <log_file_path>")
			}
			return tailLog(env, args[1], env.Config.Logs.TailLines)
		}
	}

	path, ok := logscan.FirstExisting(env.Config.Logs.SystemLogs)
	if !ok {
		env.Log.Warn("No syslog or messages log found.")
		return nil
	}
	return tailLog(env, path, env.Config.Logs.DefaultTailLines)
}

func searchLogs(ctx context.Context, env *Env, pattern string) error {
	dir := env.Config.Logs.Dir
	exclude, err := env.exclusions()
	if err != nil {
		return err
	}

	env.Log.Infof("Searching for '%s' in %s...", pattern, dir)
	found := 0
	for m := range logscan.NewSearcher(env.Log, exclude).Search(dir, pattern) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		env.Log.Info(m.String())
		found++
	}
	if found == 0 {
		env.Log.Info("No matches found.")
	}
	return nil
}

func tailLog(env *Env, path string, n int) error {
	lines, err := logscan.Tail(path, n)
	if err != nil {
		return command.Exit(1, "%s", capitalize(err.Error()))
	}
	env.Log.Info(fmt.Sprintf("== Last %d lines of %s ==\n%s", n, path, strings.TrimSpace(strings.Join(lines, "\n"))))
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
