// Package fakes provides test doubles for the keychain vault interfaces.
//
// FakeVault records every call it receives and answers with the statuses
// configured on it, so tests can assert the exact sequence of vault
// operations an action performs. Fakes are written by hand, not generated.
//
// Usage:
//
//	fake := fakes.NewFakeVault([]byte("secret"))
//	fake.CopyStatuses = []keychain.Status{keychain.StatusInteractionNotAllowed}
//	client := keychain.New(fake, keychain.Config{Service: "svc"})
//	// ... call client methods ...
//	assert.Equal(t, []string{"copy", "delete", "add"}, fake.Ops())
package fakes
