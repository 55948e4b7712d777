package main

import (
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/commands"
	"github.com/spf13/cobra"
)

func NewRestoreCommand(a *app) *cobra.Command {
	var progress bool

	cmd := &cobra.Command{
		Use:   "restore <archive-dir> <destination>",
		Short: "Restore a backup into a destination directory.",
		Long: `Restore replays the part files in archive-dir and recreates the backed up
directory as a child of destination. Existing files are never overwritten.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: dirCompletions(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunkSize, err := getChunkSize(a.cfg)
			if err != nil {
				return err
			}
			return commands.Restore(args[0], args[1], commands.RestoreOptions{
				ChunkSize: chunkSize,
				Progress:  progress,
				Logger:    a.log,
				Out:       cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().String("chunk-size", "1MiB", "Size of the buffer used to copy file contents")
	cmd.Flags().BoolVarP(&progress, "progress", "p", false, "Show a progress bar")

	return cmd
}
