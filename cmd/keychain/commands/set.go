package commands

import (
	"bytes"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	dserrors "github.com/systmms/keychain/internal/errors"
	"github.com/systmms/keychain/internal/logging"
	"github.com/systmms/keychain/internal/secure"
)

func NewSetCommand(rt *Runtime) *cobra.Command {
	var (
		item          itemFlags
		value         string
		accessibility string
		flags         string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a payload in an item",
		Long: `Store a payload, creating the item or replacing its contents.

The payload is read from --value or, when that flag is absent, from stdin.
One trailing newline on stdin is dropped. Prefer stdin: command line
arguments are visible to other processes.

When --accessibility or --flags (or their defaults in keychain.yaml) are
given, a fresh access control is attached to the item. An item whose
payload can not be read without user interaction is deleted and added
again rather than updated in place.

Examples:
  # Store a token from a file
  keychain set --account ci-token < token.txt

  # Require user presence to read it back
  echo -n "$PASSWORD" | keychain set --account alice --flags userPresence

  # Readable after first unlock, never migrated to another device
  keychain set --account daemon --accessibility afterFirstUnlockThisDeviceOnly --value s3cr3t`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if cmd.Flags().Changed("value") {
				defer func() { err = dserrors.Redact(err, value) }()
			}

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
			ac, err := rt.Config.AccessControl(accessibility, flags)
			if err != nil {
				return err
			}

			payload, err := readPayload(cmd, value)
			if err != nil {
				return err
			}
			defer payload.Destroy()

			data, err := payload.Bytes()
			if err != nil {
				return fmt.Errorf("failed to open payload: %w", err)
			}
			defer wipe(data)

			rt.Config.Logger.Debug("storing %s for %s", logging.SecretBytes(data), item.account)
			if err := client.Set(cmd.Context(), data, query, ac); err != nil {
				return dserrors.FromKeychain("set", err)
			}

			rt.Config.Logger.Info("Stored %s item %q", query.Class, item.account)
			return nil
		},
	}

	item.register(cmd, "Account of the item (required)")
	cmd.Flags().StringVar(&value, "value", "", "Payload to store (default: read stdin)")
	cmd.Flags().StringVar(&accessibility, "accessibility", "", "Protection tier, e.g. whenUnlocked, afterFirstUnlock, whenPasscodeSetThisDeviceOnly")
	cmd.Flags().StringVar(&flags, "flags", "", "Access control flags, e.g. userPresence,or,devicePasscode")

	return cmd
}

// readPayload seals the payload from value or stdin.
func readPayload(cmd *cobra.Command, value string) (*secure.SecureBuffer, error) {
	if cmd.Flags().Changed("value") {
		return secure.NewSecureBuffer([]byte(value))
	}

	locked, err := memguard.NewBufferFromEntireReader(cmd.InOrStdin())
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to read payload from stdin",
			Suggestion: "Pipe the payload into the command or use --value",
			Err:        err,
		}
	}

	raw := locked.Bytes()
	if bytes.HasSuffix(raw, []byte("\n")) {
		defer locked.Destroy()
		return secure.NewSecureBuffer(raw[:len(raw)-1])
	}
	return secure.NewSecureBufferFromLocked(locked), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
