// Package main is the CLI entry point for shotclip.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shotclip/shotclip/internal/config"
	"github.com/shotclip/shotclip/internal/daemon"
	"github.com/shotclip/shotclip/internal/domain"
	"github.com/shotclip/shotclip/internal/infra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// errAlreadyRunning maps to exit code 2: informational, not a failure.
var errAlreadyRunning = errors.New("shotclip is already running")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps the documented exit codes: 1 for configuration errors,
// 2 for already-running, 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, errAlreadyRunning) {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "shotclip",
	Short: "Copies new screenshot paths to the clipboard",
	Long: `shotclip watches your screenshots directory in the background. Whenever a
new screenshot finishes being written, its absolute path is copied to the
clipboard and a notification is shown, ready to paste into a chat tool.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watcher in the foreground",
	Long: `Runs the supervised watch pipeline until interrupted. This is the command
the service manager invokes; it can also be run by hand for debugging.`,
	RunE: runRun,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register shotclip to start automatically on login",
	Long: `Validates the configuration, then registers shotclip with the OS service
manager (launchd LaunchAgent on macOS, systemd user unit on Linux) so the
watcher starts on login and restarts after crashes. Idempotent.`,
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop the watcher and remove auto-start registration",
	RunE:  runUninstall,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher state and last error",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var jsonOutput bool

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := createLogger()
	defer func() { _ = logger.Sync() }()

	registry := infra.NewFileRegistry()
	pm := infra.NewProcessManager()

	// Refuse to double-watch: two instances would race on the clipboard.
	if entry, err := registry.Load(); err == nil && entry != nil {
		if entry.PID != 0 && entry.PID != pm.CurrentPID() && pm.IsRunning(entry.PID) &&
			entry.State != domain.StateStopped {
			fmt.Printf("shotclip is already running (pid %d)\n", entry.PID)
			return errAlreadyRunning
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("shotclip starting",
		zap.String("version", Version),
		zap.Int("pid", os.Getpid()))

	pipeline := func(ctx context.Context, started func(watchDir string)) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		var notifier domain.NotificationSink
		if cfg.Notify {
			notifier = infra.NewDesktopNotifier(cfg.NotifySound)
		}
		p := daemon.NewPipeline(cfg, infra.NewSystemClipboard(), notifier, logger)
		return p.Run(ctx, func() { started(cfg.WatchDir) })
	}

	sup := daemon.NewSupervisor(daemon.DefaultSupervisorConfig(), registry, pipeline, logger, Version)
	return sup.Run(ctx)
}

func runInstall(cmd *cobra.Command, args []string) error {
	// Fail fast with a readable message instead of burying a broken
	// configuration in the service log.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	registry := infra.NewFileRegistry()
	pm := infra.NewProcessManager()
	sm := infra.NewServiceManager()

	if sm.IsInstalled() {
		if entry, err := registry.Load(); err == nil && entry != nil &&
			pm.IsRunning(entry.PID) && entry.State == domain.StateRunning {
			fmt.Println("shotclip is already installed and running")
			return errAlreadyRunning
		}
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	if err := sm.Install(execPath); err != nil {
		return fmt.Errorf("registering service: %w", err)
	}

	fmt.Println("shotclip installed")
	fmt.Printf("  Watching:   %s\n", cfg.WatchDir)
	fmt.Printf("  Extensions: %v\n", cfg.ExtensionList())
	fmt.Printf("  Service:    %s\n", sm.DefinitionPath())
	fmt.Println("\nThe watcher starts on login and restarts after crashes.")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	sm := infra.NewServiceManager()
	registry := infra.NewFileRegistry()

	if err := sm.Uninstall(); err != nil {
		return fmt.Errorf("removing service registration: %w", err)
	}
	if err := registry.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not remove state file: %v\n", err)
	}

	fmt.Println("shotclip uninstalled")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	registry := infra.NewFileRegistry()
	pm := infra.NewProcessManager()
	sm := infra.NewServiceManager()

	fmt.Println("=== shotclip status ===")

	entry, err := registry.Load()
	if err != nil {
		fmt.Printf("State: unknown (cannot read state file: %v)\n", err)
	} else if entry == nil {
		fmt.Println("State: stopped (never started)")
	} else {
		state := entry.State
		if !pm.IsRunning(entry.PID) && state != domain.StateStopped {
			// Stale entry from a killed process.
			state = domain.StateStopped
		}
		fmt.Printf("State: %s\n", state)
		if entry.PID != 0 && pm.IsRunning(entry.PID) {
			fmt.Printf("PID: %d\n", entry.PID)
		}
		if entry.WatchDir != "" {
			fmt.Printf("Watching: %s\n", entry.WatchDir)
		}
		if entry.LastError != "" {
			fmt.Printf("Last error: %s\n", entry.LastError)
		}
		if entry.LastHeartbeat > 0 {
			beat := time.Unix(entry.LastHeartbeat, 0)
			fmt.Printf("Last heartbeat: %s ago\n", time.Since(beat).Round(time.Second))
		}
	}

	if sm.IsInstalled() {
		fmt.Printf("Auto-start: enabled (%s)\n", sm.DefinitionPath())
	} else {
		fmt.Println("Auto-start: disabled")
	}
	fmt.Println("=======================")
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("shotclip %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	}
}

// createLogger writes production JSON logs to the user log location,
// falling back to stderr if the file cannot be opened.
func createLogger() *zap.Logger {
	logPath := defaultLogPath()

	cfg := zap.NewProductionConfig()
	if logPath != "" {
		cfg.OutputPaths = []string{logPath}
		cfg.ErrorOutputPaths = []string{logPath}
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func defaultLogPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(base, "shotclip")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, "shotclip.log")
}
