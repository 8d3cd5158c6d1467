package procs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/fenilsonani/adminkit/internal/command"
)

// Killer terminates processes by PID or exact command name
type Killer struct {
	Log    logrus.FieldLogger
	Runner command.Runner
	Source Source
	// Signal delivers SIGTERM to pid
	Signal func(pid int) error
}

// NewKiller creates a Killer that signals real processes
func NewKiller(log logrus.FieldLogger, runner command.Runner, source Source) *Killer {
	return &Killer{Log: log, Runner: runner, Source: source, Signal: terminate}
}

func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

// Kill terminates target. An all-digit target is a PID; anything else is an
// exact command name, handed to pkill when it is installed.
func (k *Killer) Kill(ctx context.Context, target string) error {
	if pid, err := strconv.Atoi(target); err == nil && pid > 0 {
		if err := k.Signal(pid); err != nil {
			return fmt.Errorf("failed to kill process %d: %w", pid, err)
		}
		k.Log.Infof("Process %d killed.", pid)
		return nil
	}

	if _, ok := k.Runner.LookPath("pkill"); ok {
		return k.pkill(ctx, target)
	}
	return k.killByName(target)
}

func (k *Killer) pkill(ctx context.Context, name string) error {
	res, err := k.Runner.Run(ctx, command.New("pkill", "-x", name))
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("no process '%s' found or kill failed: %w", name, ErrNoProcess)
	}
	k.Log.Infof("Processes named '%s' killed.", name)
	return nil
}

func (k *Killer) killByName(name string) error {
	if k.Source == nil {
		return fmt.Errorf("no process '%s' found or kill failed: %w", name, ErrNoProcess)
	}
	list, err := k.Source.Processes()
	if err != nil {
		return err
	}

	killed := 0
	for _, p := range list {
		if p.Command != name {
			continue
		}
		if err := k.Signal(p.PID); err != nil {
			k.Log.WithError(err).Debugf("Failed to signal %d", p.PID)
			continue
		}
		killed++
	}

	if killed == 0 {
		return fmt.Errorf("no process '%s' found or kill failed: %w", name, ErrNoProcess)
	}
	k.Log.Infof("Processes named '%s' killed.", name)
	return nil
}

// StaticSource serves a fixed process list
type StaticSource []Process

// Processes returns the list
func (s StaticSource) Processes() ([]Process, error) {
	return s, nil
}
