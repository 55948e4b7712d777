package main

import (
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/commands"
	"github.com/spf13/cobra"
)

func NewListCommand() *cobra.Command {
	var showRecords bool

	cmd := &cobra.Command{
		Use:               "list <archive-dir>",
		Short:             "List the part files of a backup.",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: dirCompletions(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.List(args[0], showRecords, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&showRecords, "records", "r", false, "Also print the directory and file records")

	return cmd
}
