// Package memory implements keychain.Vault in process memory.
//
// It behaves like a device keychain closely enough to exercise every
// client path: items are matched by attributes, payloads are readable only
// when the item's protection tier and flags are satisfied by the simulated
// device state (lock, first unlock since boot, passcode) and, for presence
// flags, by the configured Prompter. Payloads are held in memguard
// enclaves. Nothing is persisted.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/systmms/keychain/internal/secure"
	"github.com/systmms/keychain/internal/vault"
	"github.com/systmms/keychain/pkg/keychain"
)

// Prompter performs a user presence check and reports whether it passed.
// It is called with the vault lock held and must not call back into the
// vault.
type Prompter func(ctx context.Context, prompt string) bool

// AccessControl is the access-control object created by this vault.
type AccessControl struct {
	id         uint64
	Protection keychain.Accessibility
	Flags      keychain.AccessControlFlags
}

// Policy returns the tier and flags the object was created with.
func (ac *AccessControl) Policy() keychain.AccessControl {
	return keychain.AccessControl{Protection: ac.Protection, Flags: ac.Flags}
}

var (
	errPasscodeNotSet   = errors.New("device passcode is not set")
	errConflictingFlags = errors.New("access control flags or and and are mutually exclusive")
)

type item struct {
	attrs keychain.Dictionary
	data  *secure.SecureBuffer
	acl   *AccessControl
}

func (it *item) protection() keychain.Accessibility {
	if it.acl == nil || it.acl.Protection == keychain.AccessibleUnset {
		return keychain.AccessibleWhenUnlocked
	}
	return it.acl.Protection
}

// Option configures a Vault.
type Option func(*Vault)

// WithPrompter sets the presence check used when authentication UI is
// allowed.
func WithPrompter(p Prompter) Option {
	return func(v *Vault) { v.prompter = p }
}

// WithoutPasscode starts the device with no passcode.
func WithoutPasscode() Option {
	return func(v *Vault) { v.passcodeSet = false }
}

// Vault is an in-memory keychain.Vault. The zero value is not usable; call
// New.
type Vault struct {
	vault.StatusText

	mu                sync.Mutex
	items             []*item
	nextID            uint64
	locked            bool
	unlockedSinceBoot bool
	passcodeSet       bool
	prompter          Prompter
}

// New returns an empty, unlocked vault on a device with a passcode.
func New(opts ...Option) *Vault {
	v := &Vault{
		unlockedSinceBoot: true,
		passcodeSet:       true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Lock locks the simulated device.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locked = true
}

// Unlock unlocks the simulated device.
func (v *Vault) Unlock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locked = false
	v.unlockedSinceBoot = true
}

// Reboot restarts the simulated device: locked, not unlocked since boot.
func (v *Vault) Reboot() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locked = true
	v.unlockedSinceBoot = false
}

// SetPasscode enables or disables the device passcode. Disabling it
// deletes every item protected by AccessibleWhenPasscodeSetThisDeviceOnly.
func (v *Vault) SetPasscode(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.passcodeSet = enabled
	if enabled {
		return
	}
	kept := v.items[:0]
	for _, it := range v.items {
		if it.protection() == keychain.AccessibleWhenPasscodeSetThisDeviceOnly {
			it.data.Destroy()
			continue
		}
		kept = append(kept, it)
	}
	v.items = kept
}

// SetPrompter replaces the presence check.
func (v *Vault) SetPrompter(p Prompter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prompter = p
}

// Len returns the number of stored items.
func (v *Vault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

// CreateAccessControl implements keychain.AccessControlFactory. An unknown
// tier fails without a diagnostic.
func (v *Vault) CreateAccessControl(_ context.Context, protection keychain.Accessibility, flags keychain.AccessControlFlags) (keychain.AccessControlObject, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if protection.Native() == "" {
		return nil, nil
	}
	if flags.Has(keychain.FlagOr) && flags.Has(keychain.FlagAnd) {
		return nil, errConflictingFlags
	}
	needsPasscode := protection == keychain.AccessibleWhenPasscodeSetThisDeviceOnly ||
		flags&(keychain.FlagDevicePasscode|keychain.FlagBiometryAny|keychain.FlagBiometryCurrentSet) != 0
	if needsPasscode && !v.passcodeSet {
		return nil, errPasscodeNotSet
	}

	v.nextID++
	return &AccessControl{id: v.nextID, Protection: protection, Flags: flags}, nil
}

// CopyMatching implements keychain.Vault.
func (v *Vault) CopyMatching(ctx context.Context, query keychain.Dictionary) ([]keychain.Dictionary, keychain.Status) {
	if _, ok := query[keychain.KeyClass]; !ok {
		return nil, keychain.StatusParam
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	wantData, wantAttrs := vault.ReturnFlags(query)
	limit, all := vault.Limit(query)
	ui := vault.AuthenticationUI(query)
	prompt, _ := query[keychain.KeyOperationPrompt].(string)

	var results []keychain.Dictionary
	for _, it := range v.items {
		if !all && len(results) >= limit {
			break
		}
		if !vault.Matches(it.attrs, query) {
			continue
		}

		result := keychain.Dictionary{}
		if wantData {
			status, skip := v.gate(ctx, it, ui, prompt)
			if skip {
				continue
			}
			if status != keychain.StatusSuccess {
				return nil, status
			}
			data, err := it.data.Bytes()
			if err != nil {
				return nil, keychain.StatusAllocate
			}
			result[keychain.KeyValueData] = data
		}
		if wantAttrs {
			for k, val := range it.attrs.Clone() {
				result[k] = val
			}
			if it.acl != nil {
				result[keychain.KeyAccessControl] = it.acl
			}
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return nil, keychain.StatusItemNotFound
	}
	return results, keychain.StatusSuccess
}

// Add implements keychain.Vault.
func (v *Vault) Add(_ context.Context, attributes keychain.Dictionary) keychain.Status {
	if _, ok := attributes[keychain.KeyClass]; !ok {
		return keychain.StatusParam
	}
	data, acl, status := payloadAndACL(attributes)
	if status != keychain.StatusSuccess {
		return status
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	attrs := itemAttributes(attributes)
	for _, it := range v.items {
		if samePrimaryKey(it.attrs, attrs) {
			return keychain.StatusDuplicateItem
		}
	}

	buf, err := secure.NewSecureBuffer(data)
	if err != nil {
		return keychain.StatusAllocate
	}
	v.items = append(v.items, &item{attrs: attrs, data: buf, acl: acl})
	return keychain.StatusSuccess
}

// Update implements keychain.Vault. Changing the payload or the access
// control of a gated item fails with the gate's status; nothing is changed
// unless every matching item can be updated.
func (v *Vault) Update(ctx context.Context, query, changes keychain.Dictionary) keychain.Status {
	if _, ok := query[keychain.KeyClass]; !ok {
		return keychain.StatusParam
	}
	data, acl, status := payloadAndACL(changes)
	if status != keychain.StatusSuccess {
		return status
	}
	_, touchesData := changes[keychain.KeyValueData]
	_, touchesACL := changes[keychain.KeyAccessControl]

	v.mu.Lock()
	defer v.mu.Unlock()

	ui := vault.AuthenticationUI(query)
	prompt, _ := query[keychain.KeyOperationPrompt].(string)

	var matched []*item
	for _, it := range v.items {
		if !vault.Matches(it.attrs, query) {
			continue
		}
		if touchesData || touchesACL {
			status, skip := v.gate(ctx, it, ui, prompt)
			if skip {
				status = keychain.StatusInteractionNotAllowed
			}
			if status != keychain.StatusSuccess {
				return status
			}
		}
		matched = append(matched, it)
	}
	if len(matched) == 0 {
		return keychain.StatusItemNotFound
	}

	for _, it := range matched {
		for k, val := range itemAttributes(changes) {
			if k == keychain.KeyClass {
				continue
			}
			it.attrs[k] = val
		}
		if touchesData {
			buf, err := secure.NewSecureBuffer(data)
			if err != nil {
				return keychain.StatusAllocate
			}
			it.data.Destroy()
			it.data = buf
		}
		if touchesACL {
			it.acl = acl
		}
	}
	return keychain.StatusSuccess
}

// Delete implements keychain.Vault. Deleting never needs the payload, so
// it is not gated.
func (v *Vault) Delete(_ context.Context, query keychain.Dictionary) keychain.Status {
	if _, ok := query[keychain.KeyClass]; !ok {
		return keychain.StatusParam
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	kept := v.items[:0]
	removed := 0
	for _, it := range v.items {
		if vault.Matches(it.attrs, query) {
			it.data.Destroy()
			removed++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(v.items); i++ {
		v.items[i] = nil
	}
	v.items = kept

	if removed == 0 {
		return keychain.StatusItemNotFound
	}
	return keychain.StatusSuccess
}

// gate decides whether the payload of it may be read. skip is set when the
// UI policy asks to silently skip items that would need interaction.
func (v *Vault) gate(ctx context.Context, it *item, ui keychain.AuthenticationUI, prompt string) (status keychain.Status, skip bool) {
	if !v.tierAvailable(it.protection()) {
		if ui == keychain.AuthUISkip {
			return keychain.StatusSuccess, true
		}
		return keychain.StatusInteractionNotAllowed, false
	}
	if it.acl == nil || !it.acl.Flags.RequiresPresence() {
		return keychain.StatusSuccess, false
	}

	switch ui {
	case keychain.AuthUIFail:
		return keychain.StatusInteractionNotAllowed, false
	case keychain.AuthUISkip:
		return keychain.StatusSuccess, true
	}
	if v.prompter == nil || ctx.Err() != nil || !v.prompter(ctx, prompt) {
		return keychain.StatusUserCanceled, false
	}
	return keychain.StatusSuccess, false
}

func (v *Vault) tierAvailable(tier keychain.Accessibility) bool {
	switch tier {
	case keychain.AccessibleAlways, keychain.AccessibleAlwaysThisDeviceOnly:
		return true
	case keychain.AccessibleAfterFirstUnlock, keychain.AccessibleAfterFirstUnlockThisDeviceOnly:
		return v.unlockedSinceBoot
	case keychain.AccessibleWhenPasscodeSetThisDeviceOnly:
		return v.passcodeSet && !v.locked
	}
	return !v.locked
}

// payloadAndACL extracts and type-checks the payload and access-control
// object of an add or update dictionary.
func payloadAndACL(d keychain.Dictionary) ([]byte, *AccessControl, keychain.Status) {
	var data []byte
	if raw, ok := d[keychain.KeyValueData]; ok {
		b, ok := raw.([]byte)
		if !ok {
			return nil, nil, keychain.StatusParam
		}
		data = b
	}
	var acl *AccessControl
	if raw, ok := d[keychain.KeyAccessControl]; ok && raw != nil {
		a, ok := raw.(*AccessControl)
		if !ok {
			return nil, nil, keychain.StatusParam
		}
		acl = a
	}
	return data, acl, keychain.StatusSuccess
}

// itemAttributes keeps the keys of d that describe the item itself.
func itemAttributes(d keychain.Dictionary) keychain.Dictionary {
	out := keychain.Dictionary{}
	for k, val := range d.Clone() {
		if keychain.IsControlKey(k) || k == keychain.KeyValueData || k == keychain.KeyAccessControl {
			continue
		}
		out[k] = val
	}
	return out
}

var primaryKey = []string{keychain.KeyClass, keychain.KeyService, keychain.KeyAccount, keychain.KeyAccessGroup}

func samePrimaryKey(a, b keychain.Dictionary) bool {
	for _, k := range primaryKey {
		av, _ := a[k].(string)
		bv, _ := b[k].(string)
		if av != bv {
			return false
		}
	}
	return true
}

var (
	_ keychain.Vault           = (*Vault)(nil)
	_ keychain.StatusDescriber = (*Vault)(nil)
)
