package keychain

import "context"

// Vault is the platform secret store. Implementations own persistence,
// encryption, lock state and user prompting; callers only see statuses.
//
// Every primitive may block while the vault waits for the user. ctx is
// passed through for vaults that can abandon such a wait.
type Vault interface {
	AccessControlFactory

	// CopyMatching returns the items matching query, shaped by its
	// return and match-limit keys. Under MatchLimitOne at most one result
	// is returned.
	CopyMatching(ctx context.Context, query Dictionary) ([]Dictionary, Status)

	// Add stores a new item described by attributes.
	Add(ctx context.Context, attributes Dictionary) Status

	// Update applies changes to every item matching query.
	Update(ctx context.Context, query, changes Dictionary) Status

	// Delete removes every item matching query.
	Delete(ctx context.Context, query Dictionary) Status
}
