package tasks

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fenilsonani/adminkit/internal/cleaner"
	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/config"
	"github.com/fenilsonani/adminkit/internal/logging"
	"github.com/fenilsonani/adminkit/internal/platform"
	"github.com/fenilsonani/adminkit/internal/reporter"
	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/pkg/utils"
)

// DiskOptions selects between the report and the cleanup
type DiskOptions struct {
	Clean bool
	// Output adds a machine-readable report on Stdout
	Output reporter.OutputFormat
}

// Disk shows disk usage and the largest files, or with Clean frees space
// from package caches and old temporary files
func Disk(ctx context.Context, env *Env, opts DiskOptions, args []string) error {
	if len(args) != 0 {
		return env.usage("disk-cleanup [--clean]")
	}
	if opts.Clean {
		return diskClean(ctx, env, opts.Output)
	}
	return diskReport(ctx, env, opts.Output)
}

// largestReport is the machine-readable disk report
type largestReport struct {
	Root    string                `json:"root" yaml:"root"`
	Largest []reporter.FileRecord `json:"largest" yaml:"largest"`
	Skipped int                   `json:"skipped" yaml:"skipped"`
}

func diskReport(ctx context.Context, env *Env, output reporter.OutputFormat) error {
	cfg := env.Config.Disk
	exclude, err := env.exclusions()
	if err != nil {
		return err
	}
	minSize, err := utils.ParseSize(cfg.MinReportSize)
	if err != nil {
		return err
	}

	var largest []scanner.FileEntry
	skipped := 0

	sections := []reporter.Section{
		env.toolSection("Disk Usage Overview", "Unable to retrieve disk usage (df not found)",
			command.New("df", "-h", "-x", "tmpfs", "-x", "devtmpfs")),
		{
			Title: fmt.Sprintf("Top %d Largest Files", cfg.TopFiles),
			Run: func(context.Context) (string, error) {
				walk := scanner.NewWalker(exclude).Walk(cfg.ScanRoot)
				files := scanner.Files(walk, func(s scanner.Skip) {
					skipped++
					env.Log.WithError(s.Err).Debugf("Skipping %s", s.Path)
				})
				largest = scanner.Largest(scanner.Filter(files, scanner.MinSize(minSize)), cfg.TopFiles)
				return reporter.LargestFiles(largest), nil
			},
		},
	}

	err = reporter.RunSections(ctx, env.Log, sections)
	env.Log.Infof("\n(To actually free space, run: %s disk-cleanup --clean)", env.Program)

	rep := reporter.New(env.Stdout, output)
	if rep.Enabled() {
		names := reporter.NewOwnerNames()
		doc := largestReport{Root: cfg.ScanRoot, Skipped: skipped, Largest: []reporter.FileRecord{}}
		for _, f := range largest {
			doc.Largest = append(doc.Largest, reporter.NewFileRecord(f, names))
		}
		if rerr := rep.Report(doc); rerr != nil {
			return rerr
		}
	}
	return err
}

func diskClean(ctx context.Context, env *Env, output reporter.OutputFormat) error {
	if err := env.requireRoot("Run as root to perform cleanup."); err != nil {
		return err
	}
	env.Log.Info("Cleaning package caches and temporary files...")

	cleanPackageCache(ctx, env)

	c, err := env.cleaner()
	if err != nil {
		return err
	}
	exclude, err := env.exclusions()
	if err != nil {
		return err
	}

	cfg := env.Config.Disk
	maxAge := config.Days(cfg.TempMaxAgeDays)
	total := &scanner.ScanResult{}

	for _, dir := range cfg.TempDirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}

		files := scanner.NewWalker(exclude).Walk(dir)
		total.Merge(c.Process(files, scanner.AgeExceeds(env.now(), maxAge), cleaner.ActionRemove))

		// Directories are read after the files are gone, deepest first.
		dirWalker := &scanner.Walker{Exclude: exclude, IncludeDirs: true}
		var dirs []scanner.FileEntry
		for e := range dirWalker.Walk(dir) {
			if !e.Skipped() && e.File.IsDir() {
				dirs = append(dirs, e.File)
			}
		}
		slices.Reverse(dirs)
		old := slices.DeleteFunc(dirs, func(d scanner.FileEntry) bool {
			return !scanner.AgeExceeds(env.now(), maxAge)(d)
		})
		total.Merge(c.ApplyAll(old, cleaner.ActionRemoveIfEmpty))
	}

	logging.Section(env.Log, "Cleanup Summary")
	env.Log.Infof("Removed %d entries (%s), %d failed, %d skipped",
		total.Count(scanner.OutcomeActed), utils.FormatBytes(total.Size(scanner.OutcomeActed)),
		total.Count(scanner.OutcomeFailed), len(total.Skipped))
	if summary := cleaner.FormatErrorSummary(cleaner.Failures(total)); summary != "" {
		env.Log.Warn(summary)
	}
	if env.Config.DryRun {
		env.Log.Infof("[dry-run] %d entries would be removed", total.Count(scanner.OutcomeMatched))
	}
	env.Log.Infof("Temporary files older than %d days removed from %s.", cfg.TempMaxAgeDays, strings.Join(cfg.TempDirs, " and "))
	env.Log.Info("Disk cleanup completed.")

	return reporter.New(env.Stdout, output).Report(reporter.Summarize(total, env.now()))
}

func cleanPackageCache(ctx context.Context, env *Env) {
	pm, ok := platform.DetectPackageManager(env.Runner)
	if !ok {
		env.Log.Warn("No supported package manager found; skipping package cache cleanup")
		return
	}
	spec := command.New(pm.Clean[0], pm.Clean[1:]...)
	if env.Config.DryRun {
		env.Log.Infof("[dry-run] Would run %s", spec)
		return
	}
	if _, err := env.checked(ctx, spec); err != nil {
		env.Log.Warnf("Package cache clean command failed: %v", err)
	}
}
