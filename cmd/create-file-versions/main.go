package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ngpepin/create-file-versions/internal/config"
	"github.com/ngpepin/create-file-versions/internal/eligibility"
	"github.com/ngpepin/create-file-versions/internal/exclude"
	"github.com/ngpepin/create-file-versions/internal/ledger"
	"github.com/ngpepin/create-file-versions/internal/metadata"
	"github.com/ngpepin/create-file-versions/internal/monitor"
	"github.com/ngpepin/create-file-versions/internal/purge"
	"github.com/ngpepin/create-file-versions/internal/registry"
	"github.com/ngpepin/create-file-versions/internal/state"
	filever "github.com/ngpepin/create-file-versions/internal/version"
	"github.com/ngpepin/create-file-versions/internal/watch"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dryRun    bool
	olderThan time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "create-file-versions",
	Short: "Create point-in-time versions of changed documents",
	Long: `create-file-versions watches a directory tree and snapshots eligible files
whenever they change. Each snapshot lands next to its source as a hidden,
numbered copy, so earlier states of a document stay recoverable without a
dedicated backup store.

Versioning can be toggled at runtime through a state indicator file, and an
exclusion rules file keeps selected paths out of scope.`,
	SilenceUsage: true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the versioning daemon",
	Long: `Watch monitors the configured directory tree for file changes. Changes that
pass the eligibility checks (engine enabled, not a temporary or generated
file, extension on the allowlist, not excluded by rules) produce a version
copy next to the source file.

The daemon runs until interrupted.`,
	RunE: runWatch,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove old version copies from the watched tree",
	Long: `Purge walks the watched tree and deletes version copies whose modification
time is older than the --older-than cutoff. Source files are never touched.`,
	RunE: runPurge,
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn versioning on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setIndicator(true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn versioning off",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setIndicator(false)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether versioning is currently enabled",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("create-file-versions %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/create-file-versions/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Watch command flags
	watchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be versioned without creating copies")

	// Purge command flags
	purgeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be removed without deleting anything")
	purgeCmd.Flags().DurationVar(&olderThan, "older-than", 720*time.Hour, "remove version copies older than this")

	// Add commands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Setup logger
	logger := setupLogger()

	// Load configuration
	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Create shared structures
	flag := &state.Flag{}
	poller := state.NewPoller(flag, cfg.StateFile, cfg.StatePollInterval.Std(), logger)

	rules, err := exclude.Load(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load exclusion rules: %w", err)
	}
	logger.Info("exclusion rules loaded", "path", cfg.RulesFile, "count", rules.Len())
	logger.Debug("exclusion patterns", "patterns", rules.Patterns())

	filter := eligibility.New(cfg.WatchDir, cfg.Extensions, flag, rules)
	led := ledger.New()
	exec := filever.NewExecutor(cfg, led, metadata.NewOSReplicator(), logger, dryRun)

	watcher, err := watch.New(cfg.WatchDir, cfg.Debounce.Std(), logger)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	// Run monitor
	mon := monitor.New(cfg, watcher, filter, registry.New(), exec, poller, logger)
	if err := mon.Run(ctx); err != nil {
		logger.Error("monitor failed", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p := purge.New(cfg.WatchDir, olderThan, logger, dryRun)
	res, err := p.Run(ctx)
	if err != nil {
		logger.Error("purge failed", "error", err)
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("purge finished with %d errors", len(res.Errors))
	}

	return nil
}

func setIndicator(enabled bool) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := state.WriteIndicator(cfg.StateFile, enabled); err != nil {
		return fmt.Errorf("failed to write state indicator: %w", err)
	}

	if enabled {
		fmt.Println("versioning enabled")
	} else {
		fmt.Println("versioning disabled")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	enabled, err := state.ReadIndicator(cfg.StateFile)
	if err != nil {
		// The daemon treats an unreadable indicator as off.
		fmt.Println("versioning disabled")
		fmt.Fprintf(os.Stderr, "note: %v\n", err)
		return nil
	}

	if enabled {
		fmt.Println("versioning enabled")
	} else {
		fmt.Println("versioning disabled")
	}
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = fmt.Sprintf("%s/.config/create-file-versions/config.yaml", home)
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"watch_dir", cfg.WatchDir,
		"rules_file", cfg.RulesFile,
		"state_file", cfg.StateFile,
		"workers", cfg.Workers)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
