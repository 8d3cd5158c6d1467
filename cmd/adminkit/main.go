package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/config"
	"github.com/fenilsonani/adminkit/internal/logging"
	"github.com/fenilsonani/adminkit/internal/platform"
	"github.com/fenilsonani/adminkit/internal/procs"
	"github.com/fenilsonani/adminkit/internal/reporter"
	"github.com/fenilsonani/adminkit/internal/tasks"
	"github.com/fenilsonani/adminkit/internal/ui"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	logLevel   string
	logFile    string
	dryRun     bool
	clean      bool
	outputFmt  string
	force      bool
)

// env is built once the flags are parsed
var env *tasks.Env

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if env != nil {
			env.Log.Error(err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	if env != nil {
		env.Log.Close()
	}
	os.Exit(command.ExitCode(err))
}

var rootCmd = &cobra.Command{
	Use:   "adminkit",
	Short: "Linux administration toolkit",
	Long: `adminkit bundles the everyday chores of a Linux administrator: backups,
mirrored syncs, disk and log housekeeping, security audits, network and
process reports, service, package and account management, and Zimbra
mailbox backups.`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = dryRun
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}

	log, err := newLogger(cmd, cfg, os.Stdout)
	if err != nil {
		return err
	}

	if _, err := platform.GetInfo(); errors.Is(err, platform.ErrUnsupportedPlatform) {
		log.Warnf("Running on %s: the system tools these commands drive may be missing", runtime.GOOS)
	}

	runner := command.NewExecRunner(log)
	source, err := procs.NewProcFS("")
	if err != nil {
		log.WithError(err).Debug("Process information unavailable")
	}

	env = &tasks.Env{
		Config:    cfg,
		Log:       log,
		Runner:    runner,
		Privilege: platform.EUIDOracle{},
		Prompter:  ui.NewPrompter(os.Stdin, os.Stdout),
		Stdout:    os.Stdout,
		Program:   cmd.Root().Name(),
	}
	if source != nil {
		env.Procs = source
	}
	if cfg.DryRun {
		log.Info("Dry run: nothing will be changed")
	}
	return nil
}

// newLogger builds the logger once. rsync also appends to its own log file;
// when that file cannot be opened the command logs without it.
func newLogger(cmd *cobra.Command, cfg *config.Config, out io.Writer) (*logging.Logger, error) {
	logCfg := logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Color:  useColor(cfg.Log.Color),
	}
	if cfg.Log.File != "" {
		logCfg.Files = []string{cfg.Log.File}
	}
	if cmd != rsyncCmd || cfg.Rsync.LogFile == "" {
		return logging.New(logCfg, out)
	}

	withRsync := logCfg
	withRsync.Files = append(slices.Clone(logCfg.Files), cfg.Rsync.LogFile)
	log, rsyncErr := logging.New(withRsync, out)
	if rsyncErr == nil {
		return log, nil
	}
	log, err := logging.New(logCfg, out)
	if err != nil {
		return nil, err
	}
	log.WithError(rsyncErr).Warnf("Cannot append to %s", cfg.Rsync.LogFile)
	return log, nil
}

func useColor(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}

// run adapts a task to a cobra RunE
func run(task func(ctx context.Context, env *tasks.Env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return task(cmd.Context(), env, args)
	}
}

var backupCmd = &cobra.Command{
	Use:   "backup <source_directory> <destination_directory>",
	Short: "Archive a directory into a dated tar.gz",
	RunE:  run(tasks.Backup),
}

var restoreCmd = &cobra.Command{
	Use:   "restore <archive.tar.gz> [target_directory]",
	Short: "Extract a backup archive",
	RunE:  run(tasks.Restore),
}

var rsyncCmd = &cobra.Command{
	Use:   "rsync [--dry-run] <source> <destination>",
	Short: "Mirror a directory with rsync, keeping replaced files",
	RunE:  run(tasks.Rsync),
}

var diskCmd = &cobra.Command{
	Use:   "disk-cleanup",
	Short: "Report disk usage, or free space with --clean",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		return tasks.Disk(cmd.Context(), env, tasks.DiskOptions{Clean: clean, Output: format}, args)
	},
}

var logRotateCmd = &cobra.Command{
	Use:   "log-rotate [days]",
	Short: "Compress old logs and expire old archives",
	// flags are parsed in RunE so a negative day count stays positional
	DisableFlagParsing: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		args, err := parseFlagsKeepingNumbers(cmd, args)
		if err != nil {
			return err
		}
		if help, _ := cmd.Flags().GetBool("help"); help {
			return cmd.Help()
		}
		if err := setup(cmd, args); err != nil {
			return err
		}
		return tasks.LogRotate(cmd.Context(), env, args)
	},
}

var negativeNumber = regexp.MustCompile(`^-[0-9]+$`)

// parseFlagsKeepingNumbers parses the flags of a command built with
// DisableFlagParsing. Arguments such as -5 are returned as positionals
// instead of being read as shorthand flags.
func parseFlagsKeepingNumbers(cmd *cobra.Command, args []string) ([]string, error) {
	const mark = "\x00"
	escaped := make([]string, len(args))
	for i, arg := range args {
		if negativeNumber.MatchString(arg) {
			arg = mark + arg
		}
		escaped[i] = arg
	}

	cmd.DisableFlagParsing = false
	err := cmd.ParseFlags(escaped)
	cmd.DisableFlagParsing = true
	if err != nil {
		return nil, cmd.FlagErrorFunc()(cmd, err)
	}

	positional := cmd.Flags().Args()
	for i, arg := range positional {
		positional[i] = strings.TrimPrefix(arg, mark)
	}
	return positional, nil
}

var logInspectCmd = &cobra.Command{
	Use:   "log-inspect [search <pattern> | tail <file>]",
	Short: "Search or tail log files",
	RunE:  run(tasks.LogInspect),
}

var auditCmd = &cobra.Command{
	Use:   "security-audit",
	Short: "List risky permissions and listening ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat()
		if err != nil {
			return err
		}
		return tasks.SecurityAudit(cmd.Context(), env, format, args)
	},
}

var networkCmd = &cobra.Command{
	Use:   "network-info",
	Short: "Show interfaces, routes, sockets and firewall rules",
	RunE:  run(tasks.NetworkInfo),
}

var processCmd = &cobra.Command{
	Use:   "process-monitor [kill <process_name|pid>]",
	Short: "Show the busiest processes or terminate one",
	RunE:  run(tasks.ProcessMonitor),
}

var serviceCmd = &cobra.Command{
	Use:   "service <start|stop|restart|status|enable|disable> <service_name>",
	Short: "Control a system service",
	RunE:  run(tasks.Service),
}

var sysMonitorCmd = &cobra.Command{
	Use:   "sys-monitor",
	Short: "Show uptime, memory, disk and process usage",
	RunE:  run(tasks.SysMonitor),
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply available package updates",
	RunE:  run(tasks.Update),
}

var userCmd = &cobra.Command{
	Use:   "user <action> <name> [extra]",
	Short: "Manage users and groups",
	Long: `Actions:
  adduser <username> [group]
  deluser <username>
  addgroup <group>
  delgroup <group>
  addtogroup <username> <group>
  removefromgroup <username> <group>
  lock <username>
  unlock <username>`,
	RunE: run(tasks.User),
}

var zimbraBackupCmd = &cobra.Command{
	Use:   "zimbra-backup",
	Short: "Export a Zimbra mailbox",
	RunE:  run(tasks.ZimbraBackup),
}

var zimbraRestoreCmd = &cobra.Command{
	Use:   "zimbra-restore",
	Short: "Import a Zimbra mailbox backup",
	RunE:  run(tasks.ZimbraRestore),
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := configPath
		if cfgPath == "" {
			var err error
			if cfgPath, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(cfgPath); err == nil && !force {
			return command.Exit(1, "config file %s already exists (use --force to overwrite)", cfgPath)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.WriteExample(cfgPath); err != nil {
			return err
		}
		env.Log.Infof("Config file written: %s", cfgPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(env.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adminkit %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
	},
}

func outputFormat() (reporter.OutputFormat, error) {
	format, err := reporter.ParseFormat(outputFmt)
	if err != nil {
		return "", &command.UsageError{Usage: fmt.Sprintf("--output text|json|yaml (%v)", err)}
	}
	return format, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also append log records to this file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would be changed without changing anything")

	diskCmd.Flags().BoolVar(&clean, "clean", false, "free space instead of reporting")
	diskCmd.Flags().StringVar(&outputFmt, "output", "text", "additional report on stdout (text, json, yaml)")
	auditCmd.Flags().StringVar(&outputFmt, "output", "text", "additional report on stdout (text, json, yaml)")
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(
		backupCmd,
		restoreCmd,
		rsyncCmd,
		diskCmd,
		logRotateCmd,
		logInspectCmd,
		auditCmd,
		networkCmd,
		processCmd,
		serviceCmd,
		sysMonitorCmd,
		updateCmd,
		userCmd,
		zimbraBackupCmd,
		zimbraRestoreCmd,
		configCmd,
		versionCmd,
	)
}
