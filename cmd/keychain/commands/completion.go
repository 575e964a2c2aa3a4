package commands

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

type completionWriter func(root *cobra.Command, out io.Writer, descriptions bool) error

var completionShells = map[string]completionWriter{
	"bash": func(root *cobra.Command, out io.Writer, descriptions bool) error {
		return root.GenBashCompletionV2(out, descriptions)
	},
	"zsh": func(root *cobra.Command, out io.Writer, descriptions bool) error {
		if descriptions {
			return root.GenZshCompletion(out)
		}
		return root.GenZshCompletionNoDesc(out)
	},
	"fish": func(root *cobra.Command, out io.Writer, descriptions bool) error {
		return root.GenFishCompletion(out, descriptions)
	},
	"powershell": func(root *cobra.Command, out io.Writer, descriptions bool) error {
		if descriptions {
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return root.GenPowerShellCompletion(out)
	},
}

// NewCompletionCommand prints a completion script for the given shell.
func NewCompletionCommand() *cobra.Command {
	var noDescriptions bool

	shells := make([]string, 0, len(completionShells))
	for name := range completionShells {
		shells = append(shells, name)
	}
	sort.Strings(shells)

	cmd := &cobra.Command{
		Use:   "completion SHELL",
		Short: "Print a shell completion script",
		Long: `Print the completion script for bash, zsh, fish or powershell.

  source <(keychain completion bash)
  keychain completion zsh > "${fpath[1]}/_keychain"
  keychain completion fish > ~/.config/fish/completions/keychain.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionShells[args[0]](cmd.Root(), cmd.OutOrStdout(), !noDescriptions)
		},
	}

	cmd.Flags().BoolVar(&noDescriptions, "no-descriptions", false, "Leave command descriptions out of the completions")

	return cmd
}
