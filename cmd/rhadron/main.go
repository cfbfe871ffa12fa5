// Package main provides the CLI entrypoint for rhadron.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lpchscp/rhadron/internal/condor"
	"github.com/lpchscp/rhadron/internal/config"
	"github.com/lpchscp/rhadron/internal/hits"
	"github.com/lpchscp/rhadron/internal/logging"
)

const (
	defaultGluinoMass = 1800.0
	defaultLastRuns   = 20
)

var (
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "rhadron",
		Short:        "R-hadron hit analysis and HTCondor signal production",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")

	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCollectionsCmd())
	rootCmd.AddCommand(newSynthCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadConfig reads the config file and builds the logger from the [log] section and the
// persistent flags.
func loadConfig(cmd *cobra.Command) (config.FileConfig, *zap.Logger, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.FileConfig{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts := logging.DefaultOptions()
	opts.Level = logLevel
	opts.Format = logFormat
	opts.File = logFile
	applyStringConfig(cmd, "log-level", &opts.Level, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &opts.Format, fileCfg.Log.Format)
	applyStringConfig(cmd, "log-file", &opts.File, fileCfg.Log.File)
	if fileCfg.Log.MaxSizeMB != nil {
		opts.MaxSizeMB = *fileCfg.Log.MaxSizeMB
	}
	if fileCfg.Log.MaxBackups != nil {
		opts.MaxBackups = *fileCfg.Log.MaxBackups
	}
	if fileCfg.Log.MaxAgeDays != nil {
		opts.MaxAgeDays = *fileCfg.Log.MaxAgeDays
	}
	logger, err := logging.New(opts)
	if err != nil {
		return config.FileConfig{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return fileCfg, logger, nil
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		// Best-effort flush; stderr does not support sync on every platform.
		_ = err
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	d := condor.DefaultConfig()
	return fmt.Sprintf(`# rhadron configuration
# Uncomment a value to enable it. CLI flags override config values.

[submit]
# max-events = %d                 # Events per job
# tarball = %q
# cmssw-dir = %q
# log-dir = %q
# executable = %q
# image = %q
# redirector = %q
# store-base = %q
# dir-prefix = %q
# submit-command = %q
# storage-command = %q
# archive-command = %q
# metrics-file = ""                # node-exporter textfile, empty to disable

[analysis]
# hits = "Gluino1800GeV_Hits.csv"
# energy-cut = 0.0
# gluino-mass = %.1f

[log]
# level = "info"                   # debug, info, warn, error
# format = "console"               # console, json
# file = ""                        # rotated log file, empty for stderr
# max-size-mb = 100
# max-backups = 3
# max-age-days = 28
`,
		d.MaxEvents,
		d.Tarball,
		d.CMSSWDir,
		d.LogDir,
		d.Executable,
		d.Image,
		d.Redirector,
		d.StoreBase,
		d.DirPrefix,
		d.SubmitCommand,
		d.StorageCommand,
		d.ArchiveCommand,
		defaultGluinoMass,
	)
}

// loadHits reads the hit table and applies the detector removal flags.
func loadHits(path string, noMuon, noECAL bool) (*hits.Table, error) {
	if path == "" {
		return nil, fmt.Errorf("--hits is required")
	}
	t, err := hits.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load hits: %w", err)
	}
	if noMuon {
		t = hits.RemoveMuonHits(t)
	}
	if noECAL {
		t = hits.RemoveECALHits(t)
	}
	return t, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
