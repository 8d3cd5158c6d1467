package tasks

import (
	"context"
	"fmt"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/platform"
)

// userAction maps positional arguments to one account command
type userAction struct {
	usage string
	// min and max positional arguments after the action name
	min, max int
	spec     func(args []string) command.Spec
	done     func(args []string) string
}

var userActions = map[string]userAction{
	"adduser": {
		usage: "adduser <username> [group]", min: 1, max: 2,
		spec: func(a []string) command.Spec {
			if len(a) > 1 {
				return command.New("useradd", "-m", "-G", a[1], a[0])
			}
			return command.New("useradd", "-m", a[0])
		},
		done: func(a []string) string { return fmt.Sprintf("User '%s' added successfully.", a[0]) },
	},
	"deluser": {
		usage: "deluser <username>", min: 1, max: 1,
		spec: func(a []string) command.Spec { return command.New("userdel", "-r", a[0]) },
		done: func(a []string) string { return fmt.Sprintf("User '%s' removed successfully.", a[0]) },
	},
	"addgroup": {
		usage: "addgroup <group>", min: 1, max: 1,
		spec: func(a []string) command.Spec { return command.New("groupadd", a[0]) },
		done: func(a []string) string { return fmt.Sprintf("Group '%s' created successfully.", a[0]) },
	},
	"delgroup": {
		usage: "delgroup <group>", min: 1, max: 1,
		spec: func(a []string) command.Spec { return command.New("groupdel", a[0]) },
		done: func(a []string) string { return fmt.Sprintf("Group '%s' removed successfully.", a[0]) },
	},
	"addtogroup": {
		usage: "addtogroup <username> <group>", min: 2, max: 2,
		spec: func(a []string) command.Spec { return command.New("usermod", "-a", "-G", a[1], a[0]) },
		done: func(a []string) string { return fmt.Sprintf("User '%s' added to group '%s'.", a[0], a[1]) },
	},
	"removefromgroup": {
		usage: "removefromgroup <username> <group>", min: 2, max: 2,
		spec: func(a []string) command.Spec { return command.New("gpasswd", "-d", a[0], a[1]) },
		done: func(a []string) string { return fmt.Sprintf("User '%s' removed from group '%s'.", a[0], a[1]) },
	},
	"lock": {
		usage: "lock <username>", min: 1, max: 1,
		spec: func(a []string) command.Spec { return command.New("usermod", "-L", a[0]) },
		done: func(a []string) string { return fmt.Sprintf("User '%s' account locked.", a[0]) },
	},
	"unlock": {
		usage: "unlock <username>", min: 1, max: 1,
		spec: func(a []string) command.Spec { return command.New("usermod", "-U", a[0]) },
		done: func(a []string) string { return fmt.Sprintf("User '%s' account unlocked.", a[0]) },
	},
}

// User manages accounts and groups: user <action> <name> [extra]
func User(ctx context.Context, env *Env, args []string) error {
	if len(args) < 2 {
		return env.usage("user <action> <name> [extra]")
	}
	act, ok := userActions[args[0]]
	if !ok {
		return command.Exit(1, "Unknown action: %s", args[0])
	}
	rest := args[1:]
	if len(rest) < act.min || len(rest) > act.max {
		return env.usage("user %s", act.usage)
	}

	platform.WarnIfNotRoot(env.Privilege, env.Log)

	spec := act.spec(rest)
	if env.Config.DryRun {
		env.Log.Infof("[dry-run] Would run %s", spec)
		return nil
	}
	if _, err := env.checked(ctx, spec); err != nil {
		return err
	}
	env.Log.Info(act.done(rest))
	return nil
}
