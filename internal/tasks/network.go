package tasks

import (
	"context"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/reporter"
)

// NetworkInfo reports interfaces, routes, sockets and firewall rules. A
// section whose tools are missing is reported and skipped.
func NetworkInfo(ctx context.Context, env *Env, args []string) error {
	if len(args) != 0 {
		return env.usage("network-info")
	}

	return reporter.RunSections(ctx, env.Log, []reporter.Section{
		env.toolSection("Network Interfaces", "Neither ip nor ifconfig is available",
			command.New("ip", "-brief", "addr", "show"),
			command.New("ifconfig", "-a")),
		env.toolSection("Routing Table", "Neither ip nor route is available",
			command.New("ip", "route", "show"),
			command.New("route", "-n")),
		env.toolSection("Open Ports / Listening Services", "Neither ss nor netstat is available",
			command.New("ss", "-tulwn"),
			command.New("netstat", "-tuln")),
		env.toolSection("Firewall Rules (iptables)", "iptables not found",
			command.New("iptables", "-L", "-n", "-v")),
	})
}
