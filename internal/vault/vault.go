// Package vault holds pieces shared by the Vault implementations under
// internal/vault: status messages and attribute matching.
package vault

import (
	"bytes"

	"github.com/systmms/keychain/pkg/keychain"
)

var statusMessages = map[keychain.Status]string{
	keychain.StatusSuccess:               "No error.",
	keychain.StatusUnimplemented:         "Function or operation not implemented.",
	keychain.StatusParam:                 "One or more parameters passed to a function were not valid.",
	keychain.StatusAllocate:              "Failed to allocate memory.",
	keychain.StatusUserCanceled:          "User canceled the operation.",
	keychain.StatusNotAvailable:          "No keychain is available. You may need to restart your computer.",
	keychain.StatusAuthFailed:            "The user name or passphrase you entered is not correct.",
	keychain.StatusDuplicateItem:         "The specified item already exists in the keychain.",
	keychain.StatusItemNotFound:          "The specified item could not be found in the keychain.",
	keychain.StatusInteractionNotAllowed: "User interaction is not allowed.",
	keychain.StatusDecode:                "Unable to decode the provided data.",
}

// StatusText implements keychain.StatusDescriber with the platform
// messages for the statuses the vaults in this module return.
type StatusText struct{}

// DescribeStatus implements keychain.StatusDescriber.
func (StatusText) DescribeStatus(status keychain.Status) (string, bool) {
	msg, ok := statusMessages[status]
	return msg, ok
}

// Matches reports whether item satisfies every item attribute in query.
// Control keys, the payload and the access-control object never take part
// in matching.
func Matches(item, query keychain.Dictionary) bool {
	for k, want := range query {
		if keychain.IsControlKey(k) || k == keychain.KeyValueData || k == keychain.KeyAccessControl {
			continue
		}
		got, ok := item[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok || bok {
		return aok && bok && bytes.Equal(ab, bb)
	}
	defer func() { _ = recover() }()
	return a == b
}

// ReturnFlags reads the return-data and return-attributes flags of query.
func ReturnFlags(query keychain.Dictionary) (data, attributes bool) {
	data, _ = query[keychain.KeyReturnData].(bool)
	attributes, _ = query[keychain.KeyReturnAttributes].(bool)
	return data, attributes
}

// Limit returns the match limit of query. Copy-matching defaults to one.
func Limit(query keychain.Dictionary) (n int, all bool) {
	v, ok := query[keychain.KeyMatchLimit]
	if !ok {
		return 1, false
	}
	m, ok := keychain.ParseMatchLimit(v)
	if !ok {
		return 1, false
	}
	if n, ok := m.Limit(); ok {
		return n, false
	}
	return 0, true
}

// AuthenticationUI returns the UI policy of query, defaulting to allow.
func AuthenticationUI(query keychain.Dictionary) keychain.AuthenticationUI {
	ui := keychain.FromNative(keychain.Dictionary{
		keychain.KeyAuthenticationUI: query[keychain.KeyAuthenticationUI],
	}).AuthenticationUI
	if ui == keychain.AuthUIUnset {
		return keychain.AuthUIAllow
	}
	return ui
}
