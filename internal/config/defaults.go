package config

import "github.com/fenilsonani/adminkit/internal/platform"

// GetDefault returns the default configuration
func GetDefault() *Config {
	host := platform.Defaults()

	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Color:  "auto",
		},
		Exclude: ExcludeConfig{
			Paths:    host.VirtualFS,
			Patterns: []string{},
		},
		Disk: DiskConfig{
			ScanRoot:       "/",
			TopFiles:       10,
			MinReportSize:  "0",
			TempDirs:       host.TempDirs,
			TempMaxAgeDays: 7,
		},
		Logs: LogsConfig{
			Dir:              host.LogDir,
			Suffix:           ".log",
			Codec:            "gzip",
			RotateAfterDays:  7,
			ExpireAfterDays:  90,
			SystemLogs:       host.SystemLogs,
			TailLines:        100,
			DefaultTailLines: 50,
		},
		Processes: ProcessConfig{
			Top: 5,
		},
		Rsync: RsyncConfig{
			LogFile:     "/var/log/rsync_magic.log",
			ExcludeFile: "/etc/rsync_magic_excludes.txt",
		},
		Zimbra: ZimbraConfig{
			User:      "zimbra",
			Group:     "zimbra",
			Mailbox:   "/opt/zimbra/bin/zmmailbox",
			BackupDir: "/opt/zimbra/backups",
		},
		ProtectedPaths: host.ProtectedPaths,
		DryRun:         false,
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# adminkit configuration
# Every key can also be set from the environment, e.g. ADMINKIT_LOG_LEVEL=debug

log:
  level: info        # debug, info, warn, error
  format: text       # text or json
  color: auto        # auto, always, never
  file: ""           # also append every record to this file

# Directories and glob patterns full-disk walks never enter
exclude:
  paths:
    - /proc
    - /run
    - /sys
    - /dev
  patterns: []       # e.g. "/home/*/.cache/**"

disk:
  scan_root: /
  top_files: 10
  min_report_size: "0"   # ignore files smaller than this in the report, e.g. 1MB
  temp_dirs:
    - /tmp
    - /var/tmp
  temp_max_age_days: 7

logs:
  dir: /var/log
  suffix: .log
  codec: gzip            # gzip (.gz) or zstd (.zst)
  rotate_after_days: 7
  expire_after_days: 90
  system_logs:
    - /var/log/syslog
    - /var/log/messages
  tail_lines: 100
  default_tail_lines: 50

processes:
  top: 5

rsync:
  log_file: /var/log/rsync_magic.log
  exclude_file: /etc/rsync_magic_excludes.txt

zimbra:
  user: zimbra
  group: zimbra
  zmmailbox: /opt/zimbra/bin/zmmailbox
  backup_dir: /opt/zimbra/backups

# Never removed, whatever a cleanup matches
protected_paths:
  - /
  - /bin
  - /boot
  - /dev
  - /etc
  - /home
  - /lib
  - /lib64
  - /opt
  - /proc
  - /root
  - /run
  - /sbin
  - /srv
  - /sys
  - /usr
  - /var

# Report what would be removed or compressed without touching anything
dry_run: false
`
}
