package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/pcview/internal/config"
	"github.com/KaramelBytes/pcview/internal/logging"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "pcview",
	Short: "pcview: render tabular point data as density images",
	Long: `pcview bins two columns of a CSV/TSV/XLSX table into a density mesh,
renders it as an image, highlights rows matching filters, and reports
weighted statistics for all, highlighted and non-highlighted rows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.pcview/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// currentConfig returns the loaded configuration, loading it on demand when
// the command was executed without Execute.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// setupLogging installs a text handler on stderr so warnings about
// degenerate input always reach the user. --debug wins over --log-level,
// which wins over the configured log_level (default warn).
func setupLogging(cmd *cobra.Command) error {
	name := logLevel
	if name == "" {
		if c, err := currentConfig(); err == nil {
			name = c.LogLevel
		}
	}
	level := slog.LevelWarn
	if name != "" {
		l, ok := logging.ParseLevel(name)
		if !ok {
			return fmt.Errorf("invalid log level %q (use debug|info|warn|error)", name)
		}
		level = l
	}
	if debug {
		level = slog.LevelDebug
	}
	logging.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}
