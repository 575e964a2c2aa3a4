package commands

import (
	"github.com/spf13/cobra"

	dserrors "github.com/systmms/keychain/internal/errors"
	"github.com/systmms/keychain/pkg/keychain"
)

// itemFlags are the flags that select an item.
type itemFlags struct {
	account string
	class   string
	generic string
	prompt  string
}

func (f *itemFlags) register(cmd *cobra.Command, accountUsage string) {
	cmd.Flags().StringVar(&f.account, "account", "", accountUsage)
	cmd.Flags().StringVar(&f.class, "class", "", "Item class: generic, internet, certificate, key, identity (default from config)")
	cmd.Flags().StringVar(&f.generic, "generic", "", "User-defined generic attribute to match")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Message shown if the vault asks for authentication")
}

// query builds the item query. An empty account leaves the account out.
func (f *itemFlags) query(rt *Runtime) (keychain.Attributes, error) {
	class, err := rt.Config.ItemClass(f.class)
	if err != nil {
		return keychain.Attributes{}, err
	}

	q := keychain.Attributes{Class: class}
	if f.account != "" {
		q.Account = keychain.String(f.account)
	}
	if f.generic != "" {
		q.Generic = []byte(f.generic)
	}
	if f.prompt != "" {
		q.OperationPrompt = keychain.String(f.prompt)
	}
	return q, nil
}

func requireAccount(account string) error {
	if account == "" {
		return dserrors.UserError{
			Message:    "Account is required",
			Suggestion: "Use --account <name> to select the item",
		}
	}
	return nil
}
