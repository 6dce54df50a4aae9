package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/entrepeneur4lyf/repairforge/internal/config"
)

var (
	debug      bool
	configFile string
	logFile    *os.File // For cleanup

	// v carries flag bindings into config loading.
	v = viper.New()

	// cfg is loaded before every command runs.
	cfg *config.Config
)

// setupLogging configures the global logger from the log section. A
// configured file receives all output; otherwise logs go to stderr.
func setupLogging(lc config.LogConfig) error {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)
	if lc.Format == "json" {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}

	if lc.File == "" {
		log.SetOutput(os.Stderr)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.File), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err = os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	log.SetOutput(logFile)
	return nil
}

// cleanupLogging closes the log file if it was opened
func cleanupLogging() {
	if logFile != nil {
		log.SetOutput(os.Stderr)
		logFile.Close()
		logFile = nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "repairforge",
	Short: "Heavy-machinery repair diagnosis assistant",
	Long: `RepairForge turns a description of a machine problem, optionally with a
photo or video, into a structured repair guide.

Usage:
  repairforge serve                         # Run the REST and WebSocket API
  repairforge diagnose "boom drifts down"   # Diagnose from the terminal
  repairforge history list                  # Show past diagnoses
  repairforge languages                     # List supported languages

Configuration is read from repairforge.yaml in the current directory,
$HOME/.repairforge or /etc/repairforge, and from REPAIRFORGE_* environment
variables. The Gemini API key may also be given as GEMINI_API_KEY.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configFile, debug)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupLogging(cfg.Log); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		log.Debug("Configuration loaded", "config", v.ConfigFileUsed(), "ephemeral", cfg.Data.Ephemeral)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a configuration file")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep history and drafts in memory only")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for the database and preferences")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")

	_ = v.BindPFlag("data.ephemeral", rootCmd.PersistentFlags().Lookup("ephemeral"))
	_ = v.BindPFlag("data.directory", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// Execute runs the root command with a context that is cancelled on
// SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer func() {
		stop()
		cleanupLogging()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		cleanupLogging()
		stop()
		os.Exit(1)
	}
}
