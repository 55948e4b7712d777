package main

import (
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/commands"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/spf13/cobra"
)

func NewReportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "report <origin> <archive-dir>",
		Short:             "Write an integrity report for an existing backup.",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: dirCompletions(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.Report(args[0], args[1], commands.ReportOptions{
				Format: a.cfg.GetString(cfgBackupReportFormat),
				Hash:   lib.HashAlgorithm(a.cfg.GetString(cfgBackupHash)),
				Logger: a.log,
				Out:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().String("format", "json", "Report format (json, yaml)")
	cmd.Flags().String("hash", "sha256", "Hash algorithm (sha256, md5, blake3)")

	return cmd
}
