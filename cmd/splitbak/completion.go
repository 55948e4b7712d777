package main

import (
	"github.com/spf13/cobra"
)

// NewCompletionCommand creates the 'completion' command, which generates shell
// completion scripts for splitbak.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions for the current session:

  Bash:       $ source <(splitbak completion bash)
  Zsh:        $ source <(splitbak completion zsh)
  Fish:       $ splitbak completion fish | source
  PowerShell: PS> splitbak completion powershell | Out-String | Invoke-Expression

To load them for every new session, write the script to your shell's
completion directory, e.g.:

  $ splitbak completion bash > /etc/bash_completion.d/splitbak
  $ splitbak completion zsh > "${fpath[1]}/_splitbak"
  $ splitbak completion fish > ~/.config/fish/completions/splitbak.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// dirCompletions completes the first maxArgs positional arguments with
// directory names only. Every splitbak path argument is a directory.
func dirCompletions(maxArgs int) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) >= maxArgs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveFilterDirs
	}
}
