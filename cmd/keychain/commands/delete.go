package commands

import (
	"github.com/spf13/cobra"

	dserrors "github.com/systmms/keychain/internal/errors"
)

func NewDeleteCommand(rt *Runtime) *cobra.Command {
	var (
		item itemFlags
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete items",
		Long: `Delete the item for --account, or with --all every item of the class
in the configured service and access group.

Deleting an item that does not exist succeeds.

Examples:
  keychain delete --account ci-token
  keychain delete --class internet --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if item.account == "" && !all {
				return dserrors.UserError{
					Message:    "Nothing selected for deletion",
					Suggestion: "Use --account <name>, or --all to delete every item of the class",
				}
			}
			if item.account != "" && all {
				return dserrors.UserError{
					Message:    "--account and --all are mutually exclusive",
					Suggestion: "Drop --all to delete a single item",
				}
			}

			client, err := rt.Client()
			if err != nil {
				return err
			}
			query, err := item.query(rt)
			if err != nil {
				return err
			}

			if err := client.Delete(cmd.Context(), query); err != nil {
				return dserrors.FromKeychain("delete", err)
			}

			if all {
				rt.Config.Logger.Info("Deleted all %s items in %s", query.Class, client.Config().Service)
			} else {
				rt.Config.Logger.Info("Deleted %s item %q", query.Class, item.account)
			}
			return nil
		},
	}

	item.register(cmd, "Account of the item to delete")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every item of the class")

	return cmd
}
