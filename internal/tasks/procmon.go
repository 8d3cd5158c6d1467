package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/procs"
	"github.com/fenilsonani/adminkit/internal/reporter"
)

// ProcessMonitor shows the busiest processes, or kills one:
//
//	process-monitor
//	process-monitor kill <process_name|pid>
func ProcessMonitor(ctx context.Context, env *Env, args []string) error {
	switch {
	case len(args) == 0:
		return reporter.RunSections(ctx, env.Log, []reporter.Section{
			env.topSection("CPU", procs.ByCPU),
			env.topSection("MEM", procs.ByMemory),
		})
	case len(args) == 2 && strings.EqualFold(args[0], "kill"):
		killer := procs.NewKiller(env.Log, env.Runner, env.Procs)
		if err := killer.Kill(ctx, args[1]); err != nil {
			if errors.Is(err, procs.ErrNoProcess) {
				return command.Exit(1, "No process '%s' found or kill failed.", args[1])
			}
			return command.Exit(1, "%w", err)
		}
		return nil
	default:
		return env.usage("process-monitor [kill <process_name|pid>]")
	}
}

// topSection renders the top processes ranked by key as a table
func (e *Env) topSection(metric string, key procs.Key) reporter.Section {
	n := e.Config.Processes.Top
	return reporter.Section{
		Title: fmt.Sprintf("Top %d Processes by %s", n, metric),
		Run: func(context.Context) (string, error) {
			if e.Procs == nil {
				return "", errors.New("process information is unavailable")
			}
			list, err := e.Procs.Processes()
			if err != nil {
				return "", err
			}
			top := procs.Top(list, n, key)
			return reporter.Table(procs.Header("%"+metric), procs.Rows(top, key)), nil
		},
	}
}
