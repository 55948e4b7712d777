package main

import (
	"fmt"
	"os"

	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries the state every subcommand needs once flags are parsed.
type app struct {
	cfg *viper.Viper
	log *zap.Logger
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand assembles the splitbak command tree.
func NewRootCommand() *cobra.Command {
	var (
		a          = &app{log: zap.NewNop()}
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:           "splitbak",
		Short:         "Back up a directory into fixed-size part files and restore it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(configPath)
			if err != nil {
				return err
			}
			cfg, err := newConfig(path)
			if err != nil {
				return fmt.Errorf("failed to read config %s: %w", path, err)
			}
			if err := bindFlags(cfg, cmd); err != nil {
				return err
			}
			log, err := lib.NewLogger(cfg.GetString(cfgLoggerLevel))
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML configuration file (default ~/"+defaultConfigFile+" if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(NewBackupCommand(a))
	rootCmd.AddCommand(NewRestoreCommand(a))
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewReportCommand(a))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}
