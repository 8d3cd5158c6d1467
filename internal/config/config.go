package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fenilsonani/adminkit/internal/security"
	"github.com/fenilsonani/adminkit/pkg/utils"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ADMINKIT_LOG_LEVEL
const EnvPrefix = "adminkit"

// SystemConfigPath is consulted before the per-user config file
const SystemConfigPath = "/etc/adminkit/config.yaml"

// Config represents the application configuration
type Config struct {
	Log            LogConfig     `yaml:"log"`
	Exclude        ExcludeConfig `yaml:"exclude"`
	Disk           DiskConfig    `yaml:"disk"`
	Logs           LogsConfig    `yaml:"logs"`
	Processes      ProcessConfig `yaml:"processes"`
	Rsync          RsyncConfig   `yaml:"rsync"`
	Zimbra         ZimbraConfig  `yaml:"zimbra"`
	ProtectedPaths []string      `yaml:"protected_paths" split_words:"true"`
	DryRun         bool          `yaml:"dry_run" split_words:"true"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Color  string `yaml:"color"` // auto, always, never
	File   string `yaml:"file"`
}

// ExcludeConfig lists what full-disk walks never enter
type ExcludeConfig struct {
	Paths    []string `yaml:"paths"`
	Patterns []string `yaml:"patterns"`
}

// DiskConfig holds the disk report and temp cleanup settings
type DiskConfig struct {
	ScanRoot       string   `yaml:"scan_root" split_words:"true"`
	TopFiles       int      `yaml:"top_files" split_words:"true"`
	MinReportSize  string   `yaml:"min_report_size" split_words:"true"`
	TempDirs       []string `yaml:"temp_dirs" split_words:"true"`
	TempMaxAgeDays int      `yaml:"temp_max_age_days" split_words:"true"`
}

// LogsConfig holds log rotation and inspection settings
type LogsConfig struct {
	Dir              string   `yaml:"dir"`
	Suffix           string   `yaml:"suffix"`
	Codec            string   `yaml:"codec"` // gzip, zstd
	RotateAfterDays  int      `yaml:"rotate_after_days" split_words:"true"`
	ExpireAfterDays  int      `yaml:"expire_after_days" split_words:"true"`
	SystemLogs       []string `yaml:"system_logs" split_words:"true"`
	TailLines        int      `yaml:"tail_lines" split_words:"true"`
	DefaultTailLines int      `yaml:"default_tail_lines" split_words:"true"`
}

// ProcessConfig holds the process report settings
type ProcessConfig struct {
	Top int `yaml:"top"`
}

// RsyncConfig holds the mirrored sync settings
type RsyncConfig struct {
	LogFile     string `yaml:"log_file" split_words:"true"`
	ExcludeFile string `yaml:"exclude_file" split_words:"true"`
}

// ZimbraConfig holds the mailbox backup settings
type ZimbraConfig struct {
	User      string `yaml:"user"`
	Group     string `yaml:"group"`
	Mailbox   string `yaml:"zmmailbox"`
	BackupDir string `yaml:"backup_dir" split_words:"true"`
}

// Days converts a day count into a duration
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Load loads configuration from a file. A missing file yields the defaults.
// Environment overrides are applied on top of the file.
func Load(configPath string) (*Config, error) {
	config := GetDefault()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeFile(configPath, data)
}

// WriteExample writes the commented example configuration to configPath
func WriteExample(configPath string) error {
	return writeFile(configPath, []byte(GetExampleConfig()))
}

func writeFile(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if !oneOf(c.Log.Format, "text", "json") {
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	if !oneOf(c.Log.Color, "auto", "always", "never") {
		return fmt.Errorf("log color must be auto, always or never, got %q", c.Log.Color)
	}

	// Validate thresholds
	if c.Disk.TempMaxAgeDays < 0 {
		return fmt.Errorf("temp max age must be >= 0")
	}
	if c.Logs.RotateAfterDays < 0 {
		return fmt.Errorf("log rotation age must be >= 0")
	}
	if c.Logs.ExpireAfterDays < 0 {
		return fmt.Errorf("log expiry age must be >= 0")
	}
	if c.Disk.TopFiles <= 0 {
		return fmt.Errorf("disk top files must be > 0")
	}
	if c.Processes.Top <= 0 {
		return fmt.Errorf("process top count must be > 0")
	}
	if c.Logs.TailLines <= 0 || c.Logs.DefaultTailLines <= 0 {
		return fmt.Errorf("tail line counts must be > 0")
	}
	if _, err := utils.ParseSize(c.Disk.MinReportSize); err != nil {
		return fmt.Errorf("disk min report size: %w", err)
	}
	if !oneOf(c.Logs.Codec, "gzip", "zstd") {
		return fmt.Errorf("log codec must be gzip or zstd, got %q", c.Logs.Codec)
	}
	if c.Logs.Suffix == "" {
		return fmt.Errorf("log suffix must not be empty")
	}

	// Validate exclude patterns (glob syntax)
	for _, pattern := range c.Exclude.Patterns {
		if err := security.ValidateGlobPattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	absolute := map[string][]string{
		"exclude path":   c.Exclude.Paths,
		"protected path": c.ProtectedPaths,
		"temp dir":       c.Disk.TempDirs,
		"system log":     c.Logs.SystemLogs,
		"scan root":      {c.Disk.ScanRoot},
		"log dir":        {c.Logs.Dir},
	}
	for kind, paths := range absolute {
		for _, path := range paths {
			if !filepath.IsAbs(path) {
				return fmt.Errorf("%s must be absolute: %q", kind, path)
			}
		}
	}

	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// GetConfigPath returns the system config path when it exists, otherwise
// the per-user one
func GetConfigPath() (string, error) {
	if _, err := os.Stat(SystemConfigPath); err == nil {
		return SystemConfigPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".config", "adminkit", "config.yaml"), nil
}
