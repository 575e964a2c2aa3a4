package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	dserrors "github.com/systmms/keychain/internal/errors"
)

func NewExistsCommand(rt *Runtime) *cobra.Command {
	var (
		item  itemFlags
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether an item exists",
		Long: `Check for an item without reading its payload. Never prompts: an item
that would need user interaction to read still counts as present.

Prints "true" or "false". With --quiet nothing is printed and a missing
item makes the command fail, for use in shell conditions.

Examples:
  keychain exists --account ci-token
  keychain exists --account ci-token --quiet || keychain set --account ci-token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(item.account); err != nil {
				return err
			}

			client, err := rt.Client()
			if err != nil {
				return err
			}
			query, err := item.query(rt)
			if err != nil {
				return err
			}

			found, err := client.Exists(cmd.Context(), query)
			if err != nil {
				return dserrors.FromKeychain("exists", err)
			}

			if quiet {
				if !found {
					return ErrNotFound
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), found)
			return err
		},
	}

	item.register(cmd, "Account of the item (required)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print nothing; fail if the item is missing")

	return cmd
}
