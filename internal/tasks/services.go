package tasks

import (
	"context"
	"slices"
	"strings"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/logging"
	"github.com/fenilsonani/adminkit/internal/platform"
)

// ServiceActions are the verbs accepted by Service
var ServiceActions = []string{"start", "stop", "restart", "status", "enable", "disable"}

var pastTense = map[string]string{
	"start":   "started",
	"stop":    "stopped",
	"restart": "restarted",
	"enable":  "enabled",
	"disable": "disabled",
}

// Service controls a system service through systemctl or service(8):
// service <start|stop|restart|status|enable|disable> <name>
func Service(ctx context.Context, env *Env, args []string) error {
	if len(args) != 2 || !slices.Contains(ServiceActions, args[0]) {
		return env.usage("service <%s> <service_name>", strings.Join(ServiceActions, "|"))
	}
	action, name := args[0], args[1]

	if action != "status" {
		platform.WarnIfNotRoot(env.Privilege, env.Log)
	}

	var spec command.Spec
	switch platform.DetectServiceManager(env.Runner) {
	case platform.Systemd:
		spec = command.New("systemctl", action, name)
	case platform.SysVService:
		if action == "enable" || action == "disable" {
			return command.Exit(1, "Enable/disable not supported with this service manager.")
		}
		spec = command.New("service", name, action)
	default:
		return command.Exit(1, "No service management tool found (systemctl or service).")
	}

	res, err := env.Runner.Run(ctx, spec)
	if err != nil {
		return command.Exit(1, "Failed to execute service command: %w", err)
	}

	if action == "status" {
		logging.Block(env.Log, strings.TrimSpace(res.Stdout))
		logging.Block(env.Log, strings.TrimSpace(res.Stderr))
		if !res.Success() {
			return command.Exit(res.ExitCode, "Service '%s' status check failed (exit code %d).", name, res.ExitCode)
		}
		return nil
	}

	if !res.Success() {
		if strings.TrimSpace(res.Stdout+res.Stderr) == "" {
			return command.Exit(res.ExitCode, "Failed to %s service '%s'. (Exit code %d)", action, name, res.ExitCode)
		}
		return command.Exit(res.ExitCode, "Failed to %s service '%s'. Output:\n%s", action, name, res.ErrorText())
	}
	env.Log.Infof("Service '%s' %s successfully.", name, pastTense[action])
	return nil
}
