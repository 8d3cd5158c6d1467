package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/ui"
)

const zimbraStamp = "2006-01-02_15-04-05"

// ZimbraBackup exports one mailbox as a tgz through zmmailbox
func ZimbraBackup(ctx context.Context, env *Env, args []string) error {
	if len(args) != 0 {
		return env.usage("zimbra-backup")
	}
	err := zimbraBackup(ctx, env)
	if errors.Is(err, ui.ErrCancelled) {
		env.Log.Info("Operation cancelled by user.")
		return nil
	}
	return err
}

func zimbraBackup(ctx context.Context, env *Env) error {
	cfg := env.Config.Zimbra

	email, err := askEmail(env, "Enter Zimbra username (email address)")
	if err != nil {
		return err
	}
	dir, err := env.Prompter.Ask(ui.Question{Label: "Enter backup directory (absolute path)", Default: cfg.BackupDir})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return command.Exit(1, "Failed to create backup directory %s: %w", dir, err)
	}
	if err := chownTo(dir, cfg.User, cfg.Group); err != nil {
		env.Log.Warnf("Could not change owner of %s to %s:%s (proceeding anyway): %v", dir, cfg.User, cfg.Group, err)
	}

	file := filepath.Join(dir, fmt.Sprintf("%s_%s.tgz", email, env.now().Format(zimbraStamp)))
	ok, err := env.Prompter.Confirm(fmt.Sprintf("Backing up mailbox for %s to %s", email, file))
	if err != nil {
		return err
	}
	if !ok {
		env.Log.Info("Backup cancelled.")
		return nil
	}

	env.Log.Info("Starting backup...")
	spec := command.New("sudo", "-u", cfg.User, cfg.Mailbox, "-z", "-m", email, "getRestURL", "//?fmt=tgz")
	if env.Config.DryRun {
		env.Log.Infof("[dry-run] Would run %s > %s", spec, file)
		return nil
	}

	if err := writeCommandOutput(ctx, env, spec, file); err != nil {
		os.Remove(file)
		return command.Exit(1, "Backup failed. Check if the user exists or zmmailbox is working: %w", err)
	}
	if err := chownTo(file, cfg.User, cfg.Group); err != nil {
		env.Log.WithError(err).Debugf("Leaving %s owned by the current user", file)
	}
	env.Log.Infof("Backup completed: %s", file)
	return nil
}

// writeCommandOutput runs spec with its stdout written to path
func writeCommandOutput(ctx context.Context, env *Env, spec command.Spec, path string) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	spec.Stdout = f
	res, err := env.Runner.Run(ctx, spec)
	if err != nil {
		return err
	}
	if !res.Success() {
		return errors.New(res.ErrorText())
	}
	return f.Sync()
}

// ZimbraRestore imports a tgz produced by ZimbraBackup into a mailbox
func ZimbraRestore(ctx context.Context, env *Env, args []string) error {
	if len(args) != 0 {
		return env.usage("zimbra-restore")
	}
	err := zimbraRestore(ctx, env)
	if errors.Is(err, ui.ErrCancelled) {
		env.Log.Info("Operation cancelled by user.")
		return nil
	}
	return err
}

func zimbraRestore(ctx context.Context, env *Env) error {
	cfg := env.Config.Zimbra

	email, err := askEmail(env, "Enter Zimbra username to restore to (email address)")
	if err != nil {
		return err
	}
	dir, err := env.Prompter.Ask(ui.Question{Label: "Enter backup directory (absolute path)", Default: cfg.BackupDir})
	if err != nil {
		return err
	}
	name, err := env.Prompter.Ask(ui.Question{
		Label:    "Enter the exact filename of the backup to restore (e.g., user@example.com_YYYY-MM-DD_HH-MM-SS.tgz)",
		Required: true,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return command.Exit(1, "Backup file not found: %s", path)
	}

	ok, err := env.Prompter.Confirm(fmt.Sprintf("You are about to restore %s into %s's mailbox.", path, email))
	if err != nil {
		return err
	}
	if !ok {
		env.Log.Info("Restore cancelled.")
		return nil
	}

	env.Log.Info("Restoring backup...")
	spec := command.New("sudo", "-u", cfg.User, cfg.Mailbox, "-z", "-m", email,
		"postRestURL", "/?fmt=tgz&resolve=skip", "--file", path)
	if env.Config.DryRun {
		env.Log.Infof("[dry-run] Would run %s", spec)
		return nil
	}
	if _, err := env.checked(ctx, spec); err != nil {
		return command.Exit(1, "Restore failed. Please verify mailbox exists and backup file integrity: %w", err)
	}
	env.Log.Infof("Restore completed successfully for %s", email)
	return nil
}

func askEmail(env *Env, label string) (string, error) {
	email, err := env.Prompter.Ask(ui.Question{Label: label, Required: true})
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(email, "/\x00") || strings.HasPrefix(email, "-") {
		return "", command.Exit(1, "Invalid mailbox name: %q", email)
	}
	return email, nil
}

func chownTo(path, userName, groupName string) error {
	u, err := user.Lookup(userName)
	if err != nil {
		return err
	}
	g, err := user.LookupGroup(groupName)
	if err != nil {
		return err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return err
	}
	return os.Chown(path, uid, gid)
}
