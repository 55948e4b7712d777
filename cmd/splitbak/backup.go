package main

import (
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/commands"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/lib"
	"github.com/spf13/cobra"
)

func NewBackupCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:               "backup <origin> <destination>",
		Short:             "Back up a directory into numbered part files.",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: dirCompletions(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxPartSize, err := getSize(a.cfg, cfgBackupMaxPartSize)
			if err != nil {
				return err
			}
			chunkSize, err := getChunkSize(a.cfg)
			if err != nil {
				return err
			}
			return commands.Backup(args[0], args[1], commands.BackupOptions{
				MaxPartSize:  maxPartSize,
				ChunkSize:    chunkSize,
				Report:       a.cfg.GetBool(cfgBackupReport),
				ReportFormat: a.cfg.GetString(cfgBackupReportFormat),
				Hash:         lib.HashAlgorithm(a.cfg.GetString(cfgBackupHash)),
				Force:        force,
				Logger:       a.log,
				Out:          cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().String("max-part-size", "512MiB", "Maximum size of each part file (e.g. 512MiB, 1GB, 4096)")
	cmd.Flags().Bool("report", true, "Write an integrity report next to the part files")
	cmd.Flags().String("report-format", "json", "Integrity report format (json, yaml)")
	cmd.Flags().String("hash", "sha256", "Hash algorithm for the integrity report (sha256, md5, blake3)")
	cmd.Flags().String("chunk-size", "1MiB", "Size of the buffer used to copy file contents")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing archive in the destination")

	return cmd
}
