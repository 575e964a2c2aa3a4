package commands

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	dserrors "github.com/systmms/keychain/internal/errors"
)

func NewGetCommand(rt *Runtime) *cobra.Command {
	var (
		item       itemFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the payload of an item",
		Long: `Fetch the payload of a single item and write it to stdout.

By default only the raw payload is printed, which makes the command suitable
for scripting. The vault may show an authentication prompt for items that
require user presence.

Examples:
  # Print a password
  keychain get --account deploy-bot

  # Internet password with metadata as JSON
  keychain get --account alice --class internet --json

  # Use in scripts
  export TOKEN=$(keychain get --account ci-token)`,
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

			data, err := client.Fetch(cmd.Context(), query)
			if err != nil {
				return dserrors.FromKeychain("get", err)
			}

			out := cmd.OutOrStdout()
			if !jsonOutput {
				_, err := out.Write(data)
				return err
			}

			output := map[string]interface{}{
				"service": client.Config().Service,
				"account": item.account,
				"class":   query.Class.String(),
			}
			if group := client.Config().AccessGroup; group != "" {
				output["access_group"] = group
			}
			if utf8.Valid(data) {
				output["value"] = string(data)
			} else {
				output["value"] = base64.StdEncoding.EncodeToString(data)
				output["encoding"] = "base64"
			}

			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(output); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
			return nil
		},
	}

	item.register(cmd, "Account of the item (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	return cmd
}
