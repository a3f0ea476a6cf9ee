package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to unset tunables; most deployments set watch_dir only.
const (
	DefaultCooldown          = time.Minute
	DefaultLockWaitTimeout   = 3 * time.Second
	DefaultLockPollInterval  = 500 * time.Millisecond
	DefaultCopyTimeout       = 20 * time.Minute
	DefaultStatePollInterval = time.Minute
	DefaultSweepInterval     = 10 * time.Minute
	DefaultDebounce          = 500 * time.Millisecond
	DefaultWorkers           = 4
)

// DefaultExtensions is the extension allowlist used when the config file
// does not provide one.
var DefaultExtensions = []string{
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".pdf", ".txt",
}

// Duration decodes YAML scalars like "500ms" or "2m" via time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete daemon configuration
type Config struct {
	// WatchDir is the root of the monitored tree.
	WatchDir string `yaml:"watch_dir"`
	// RulesFile holds one exclusion pattern per line.
	RulesFile string `yaml:"rules_file"`
	// StateFile is the enabled/disabled indicator toggled by the enable
	// and disable commands.
	StateFile string `yaml:"state_file"`
	// Extensions is the allowlist of versionable file extensions.
	Extensions []string `yaml:"extensions"`

	// Cooldown is the minimum interval between successful versions of the
	// same path.
	Cooldown          Duration `yaml:"cooldown"`
	LockWaitTimeout   Duration `yaml:"lock_wait_timeout"`
	LockPollInterval  Duration `yaml:"lock_poll_interval"`
	CopyTimeout       Duration `yaml:"copy_timeout"`
	StatePollInterval Duration `yaml:"state_poll_interval"`
	SweepInterval     Duration `yaml:"sweep_interval"`
	// Debounce is the quiet window applied to change notifications before
	// they enter the pipeline.
	Debounce Duration `yaml:"debounce"`

	// Workers bounds the number of concurrent versioning operations.
	Workers int `yaml:"workers"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.WatchDir = os.ExpandEnv(c.WatchDir)
	c.RulesFile = os.ExpandEnv(c.RulesFile)
	c.StateFile = os.ExpandEnv(c.StateFile)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", "create-file-versions")
		if c.RulesFile == "" {
			c.RulesFile = filepath.Join(configDir, "exclude.rules")
		}
		if c.StateFile == "" {
			c.StateFile = filepath.Join(configDir, "state")
		}
	}

	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}

	if c.Cooldown == 0 {
		c.Cooldown = Duration(DefaultCooldown)
	}
	if c.LockWaitTimeout == 0 {
		c.LockWaitTimeout = Duration(DefaultLockWaitTimeout)
	}
	if c.LockPollInterval == 0 {
		c.LockPollInterval = Duration(DefaultLockPollInterval)
	}
	if c.CopyTimeout == 0 {
		c.CopyTimeout = Duration(DefaultCopyTimeout)
	}
	if c.StatePollInterval == 0 {
		c.StatePollInterval = Duration(DefaultStatePollInterval)
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = Duration(DefaultSweepInterval)
	}
	if c.Debounce == 0 {
		c.Debounce = Duration(DefaultDebounce)
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate paths
	if c.WatchDir == "" {
		return fmt.Errorf("watch_dir is required")
	}
	if !filepath.IsAbs(c.WatchDir) {
		return fmt.Errorf("watch_dir must be an absolute path: %s", c.WatchDir)
	}
	if c.RulesFile == "" {
		return fmt.Errorf("rules_file is required")
	}
	if !filepath.IsAbs(c.RulesFile) {
		return fmt.Errorf("rules_file must be an absolute path: %s", c.RulesFile)
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file is required")
	}
	if !filepath.IsAbs(c.StateFile) {
		return fmt.Errorf("state_file must be an absolute path: %s", c.StateFile)
	}

	// Validate extension allowlist
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid extension %q (must start with a dot)", ext)
		}
	}

	// Validate tunables
	durations := []struct {
		name  string
		value Duration
	}{
		{"cooldown", c.Cooldown},
		{"lock_wait_timeout", c.LockWaitTimeout},
		{"lock_poll_interval", c.LockPollInterval},
		{"copy_timeout", c.CopyTimeout},
		{"state_poll_interval", c.StatePollInterval},
		{"sweep_interval", c.SweepInterval},
		{"debounce", c.Debounce},
	}
	for _, d := range durations {
		if d.value.Std() <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if c.LockPollInterval.Std() >= c.LockWaitTimeout.Std() {
		return fmt.Errorf("lock_poll_interval (%s) must be shorter than lock_wait_timeout (%s)",
			c.LockPollInterval.Std(), c.LockWaitTimeout.Std())
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	return nil
}
