package tasks

import (
	"context"
	"strings"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/procs"
	"github.com/fenilsonani/adminkit/internal/reporter"
)

// SysMonitor reports uptime, memory, disk and the busiest processes
func SysMonitor(ctx context.Context, env *Env, args []string) error {
	if len(args) != 0 {
		return env.usage("sys-monitor")
	}

	memory := env.toolSection("Memory Usage", "free not found", command.New("free", "-h"))
	memoryRun := memory.Run
	memory.Run = func(ctx context.Context) (string, error) {
		out, err := memoryRun(ctx)
		return firstLines(out, 2), err
	}

	return reporter.RunSections(ctx, env.Log, []reporter.Section{
		env.toolSection("Uptime and Load", "uptime not found", command.New("uptime")),
		memory,
		env.toolSection("Disk Usage", "df not found", command.New("df", "-h", "-x", "tmpfs", "-x", "devtmpfs")),
		env.topSection("CPU", procs.ByCPU),
		env.topSection("MEM", procs.ByMemory),
	})
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
