// Package keychain provides a typed client for a platform-managed secret vault.
//
// The vault itself (macOS/iOS Keychain, Secret Service, Windows Credential
// Manager, or the in-memory reference vault used by tests) is an opaque
// collaborator reached only through the Vault interface: four item
// primitives plus access-control object creation. This package builds the
// queries for those primitives and interprets the status codes they return.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                    CLI Commands                             │
//	│              (cmd/keychain/commands/)                       │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│         Client: Fetch / Set / Delete / Exists               │
//	│                 (pkg/keychain/)                ◄────────────┤
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │  Dictionary (native key space)
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                 Vault implementations                       │
//	│   internal/vault/keyring        internal/vault/memory       │
//	└─────────────────────────────────────────────────────────────┘
//
// # Attributes
//
// Queries are expressed as Attributes, a struct of named optional fields.
// A nil field is absent and is never sent to the vault. Keys the package
// does not model travel in Attributes.Extra in both directions.
//
//	query := keychain.GenericPasswordItem("alice", nil)
//	query.OperationPrompt = keychain.String("Unlock the deploy token")
//
// # Scope
//
// A Client is bound to one Config{Service, AccessGroup}. Every call
// overwrites those two fields on a private copy of the caller's query, so a
// client cannot read or write another service's items and the caller's
// Attributes value is never modified.
//
// # Set
//
// Set reconciles the vault's add/update primitives into a single
// idempotent write. It first probes the item with authentication UI
// disabled and then:
//
//   - updates the item in place when it is readable,
//   - deletes and re-adds it when it exists but is gated
//     (StatusInteractionNotAllowed), because the update primitive cannot
//     replace an access-control object that is still blocking,
//   - adds it when it is missing,
//   - returns the probe error unchanged for every other status.
//
// The probe and the write are separate vault calls. Two writers racing on
// the same item can interleave between them; the vault serializes each
// primitive but the client adds no locking of its own.
//
// # Blocking
//
// Any call may block for as long as the vault needs to satisfy a user
// presence check (Touch ID, passcode). Run client calls off latency
// sensitive goroutines. The context is handed to the vault unchanged; the
// client defines no timeouts.
//
// # Errors
//
// Failures are returned as *Error carrying the operation kind and the raw
// vault status (or, for access-control creation, the vault's cause):
//
//	if _, err := client.Fetch(ctx, query); keychain.IsNotFound(err) {
//	    // nothing stored yet
//	}
package keychain
