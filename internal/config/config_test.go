package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	content := `
watch_dir: "/data/documents"
rules_file: "/etc/create-file-versions/exclude.rules"
state_file: "/etc/create-file-versions/state"

extensions:
  - ".docx"
  - ".TXT"

cooldown: "2m"
lock_wait_timeout: "5s"
lock_poll_interval: "250ms"
workers: 2
`

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify loaded values
	if cfg.WatchDir != "/data/documents" {
		t.Errorf("expected watch_dir /data/documents, got %s", cfg.WatchDir)
	}
	if cfg.Cooldown.Std() != 2*time.Minute {
		t.Errorf("expected cooldown 2m, got %s", cfg.Cooldown.Std())
	}
	if cfg.LockWaitTimeout.Std() != 5*time.Second {
		t.Errorf("expected lock_wait_timeout 5s, got %s", cfg.LockWaitTimeout.Std())
	}
	if cfg.LockPollInterval.Std() != 250*time.Millisecond {
		t.Errorf("expected lock_poll_interval 250ms, got %s", cfg.LockPollInterval.Std())
	}
	if cfg.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Workers)
	}

	// Extensions are normalized to lowercase
	if len(cfg.Extensions) != 2 || cfg.Extensions[0] != ".docx" || cfg.Extensions[1] != ".txt" {
		t.Errorf("expected extensions [.docx .txt], got %v", cfg.Extensions)
	}

	// Unset tunables fall back to defaults
	if cfg.CopyTimeout.Std() != DefaultCopyTimeout {
		t.Errorf("expected default copy_timeout %s, got %s", DefaultCopyTimeout, cfg.CopyTimeout.Std())
	}
	if cfg.Debounce.Std() != DefaultDebounce {
		t.Errorf("expected default debounce %s, got %s", DefaultDebounce, cfg.Debounce.Std())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	content := `
watch_dir: "/data/documents"
cooldown: "two minutes"
`
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Load(tmpfile.Name())
	if err == nil {
		t.Fatal("expected error for unparseable duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("expected invalid duration error, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	// Minimal valid configuration all cases start from.
	valid := func() Config {
		cfg := Config{WatchDir: "/data"}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing watch_dir",
			mutate:  func(c *Config) { c.WatchDir = "" },
			wantErr: true,
		},
		{
			name:    "relative watch_dir",
			mutate:  func(c *Config) { c.WatchDir = "relative/path" },
			wantErr: true,
		},
		{
			name:    "relative rules_file",
			mutate:  func(c *Config) { c.RulesFile = "exclude.rules" },
			wantErr: true,
		},
		{
			name:    "relative state_file",
			mutate:  func(c *Config) { c.StateFile = "state" },
			wantErr: true,
		},
		{
			name:    "empty extensions",
			mutate:  func(c *Config) { c.Extensions = []string{} },
			wantErr: true,
		},
		{
			name:    "extension without dot",
			mutate:  func(c *Config) { c.Extensions = []string{"docx"} },
			wantErr: true,
		},
		{
			name:    "bare dot extension",
			mutate:  func(c *Config) { c.Extensions = []string{"."} },
			wantErr: true,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Cooldown = Duration(-time.Minute) },
			wantErr: true,
		},
		{
			name:    "zero debounce",
			mutate:  func(c *Config) { c.Debounce = 0 },
			wantErr: true,
		},
		{
			name: "lock poll not shorter than lock wait",
			mutate: func(c *Config) {
				c.LockPollInterval = Duration(3 * time.Second)
				c.LockWaitTimeout = Duration(3 * time.Second)
			},
			wantErr: true,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	if cfg.Cooldown.Std() != DefaultCooldown {
		t.Errorf("applyDefaults() did not set cooldown, got %s, want %s", cfg.Cooldown.Std(), DefaultCooldown)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("applyDefaults() did not set workers, got %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if len(cfg.Extensions) != len(DefaultExtensions) {
		t.Errorf("applyDefaults() did not set extensions, got %v", cfg.Extensions)
	}
	if cfg.RulesFile == "" || !strings.HasSuffix(cfg.RulesFile, filepath.Join(".config", "create-file-versions", "exclude.rules")) {
		t.Errorf("applyDefaults() rules_file = %q, want path under ~/.config/create-file-versions", cfg.RulesFile)
	}
	if cfg.StateFile == "" || !strings.HasSuffix(cfg.StateFile, filepath.Join(".config", "create-file-versions", "state")) {
		t.Errorf("applyDefaults() state_file = %q, want path under ~/.config/create-file-versions", cfg.StateFile)
	}

	// Explicit value must not be overwritten
	cfg2 := Config{Cooldown: Duration(5 * time.Minute), Workers: 1}
	cfg2.applyDefaults()

	if cfg2.Cooldown.Std() != 5*time.Minute {
		t.Errorf("applyDefaults() overwrote explicit cooldown, got %s", cfg2.Cooldown.Std())
	}
	if cfg2.Workers != 1 {
		t.Errorf("applyDefaults() overwrote explicit workers, got %d", cfg2.Workers)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CFV_TEST_HOME", "/home/testuser")

	cfg := Config{
		WatchDir:  "${CFV_TEST_HOME}/documents",
		RulesFile: "${CFV_TEST_HOME}/exclude.rules",
		StateFile: "${CFV_TEST_HOME}/state",
	}

	cfg.expandEnv()

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"WatchDir", cfg.WatchDir, "/home/testuser/documents"},
		{"RulesFile", cfg.RulesFile, "/home/testuser/exclude.rules"},
		{"StateFile", cfg.StateFile, "/home/testuser/state"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("expandEnv() %s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestDurationStd(t *testing.T) {
	d := Duration(90 * time.Second)
	if d.Std() != 90*time.Second {
		t.Errorf("Std() = %s, want 90s", d.Std())
	}
}
