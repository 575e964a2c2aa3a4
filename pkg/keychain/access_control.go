package keychain

import (
	"context"
	"fmt"
	"strings"
)

// AccessControlObject is an opaque access-control handle produced by a
// vault. It is only meaningful to the vault that created it.
type AccessControlObject interface{}

// Accessibility is the protection tier of an item: when its data can be
// read, and whether it may migrate to another device through backups.
// Tier semantics are defined by the vault.
type Accessibility int

const (
	AccessibleUnset Accessibility = iota
	// AccessibleWhenUnlocked items are readable while the device is
	// unlocked and migrate with encrypted backups.
	AccessibleWhenUnlocked
	// AccessibleAfterFirstUnlock items are readable once the device has
	// been unlocked after a restart and migrate with encrypted backups.
	AccessibleAfterFirstUnlock
	// AccessibleAlways items are readable regardless of lock state.
	AccessibleAlways
	// AccessibleWhenPasscodeSetThisDeviceOnly items need a device passcode,
	// are readable while unlocked and never migrate. Creation fails on
	// devices without a passcode.
	AccessibleWhenPasscodeSetThisDeviceOnly
	AccessibleWhenUnlockedThisDeviceOnly
	AccessibleAfterFirstUnlockThisDeviceOnly
	AccessibleAlwaysThisDeviceOnly
)

type accessibilityInfo struct {
	name   string
	native string
}

var accessibilityTable = map[Accessibility]accessibilityInfo{
	AccessibleWhenUnlocked:                   {"whenUnlocked", "ak"},
	AccessibleAfterFirstUnlock:               {"afterFirstUnlock", "ck"},
	AccessibleAlways:                         {"always", "dk"},
	AccessibleWhenPasscodeSetThisDeviceOnly:  {"whenPasscodeSetThisDeviceOnly", "akpu"},
	AccessibleWhenUnlockedThisDeviceOnly:     {"whenUnlockedThisDeviceOnly", "aku"},
	AccessibleAfterFirstUnlockThisDeviceOnly: {"afterFirstUnlockThisDeviceOnly", "cku"},
	AccessibleAlwaysThisDeviceOnly:           {"alwaysThisDeviceOnly", "dku"},
}

// Native returns the vault's value for the tier, or "" when unset.
func (a Accessibility) Native() string {
	return accessibilityTable[a].native
}

func (a Accessibility) String() string {
	if info, ok := accessibilityTable[a]; ok {
		return info.name
	}
	return "unset"
}

// ThisDeviceOnly reports whether items of this tier never migrate.
func (a Accessibility) ThisDeviceOnly() bool {
	return strings.HasSuffix(a.String(), "ThisDeviceOnly")
}

// ParseAccessibility accepts a tier name ("whenUnlocked") or a native tier
// value ("ak"). Matching on names is case-insensitive.
func ParseAccessibility(s string) (Accessibility, error) {
	trimmed := strings.TrimSpace(s)
	for a, info := range accessibilityTable {
		if strings.EqualFold(trimmed, info.name) || trimmed == info.native {
			return a, nil
		}
	}
	return AccessibleUnset, fmt.Errorf("unknown accessibility %q", s)
}

// AccessControlFlags are the constraints attached to an access-control
// object in addition to its protection tier.
type AccessControlFlags uint32

const (
	FlagUserPresence        AccessControlFlags = 1 << 0
	FlagBiometryAny         AccessControlFlags = 1 << 1
	FlagBiometryCurrentSet  AccessControlFlags = 1 << 3
	FlagDevicePasscode      AccessControlFlags = 1 << 4
	FlagWatch               AccessControlFlags = 1 << 5
	FlagOr                  AccessControlFlags = 1 << 14
	FlagAnd                 AccessControlFlags = 1 << 15
	FlagPrivateKeyUsage     AccessControlFlags = 1 << 30
	FlagApplicationPassword AccessControlFlags = 1 << 31
)

var flagNames = []struct {
	flag AccessControlFlags
	name string
}{
	{FlagUserPresence, "userPresence"},
	{FlagBiometryAny, "biometryAny"},
	{FlagBiometryCurrentSet, "biometryCurrentSet"},
	{FlagDevicePasscode, "devicePasscode"},
	{FlagWatch, "watch"},
	{FlagOr, "or"},
	{FlagAnd, "and"},
	{FlagPrivateKeyUsage, "privateKeyUsage"},
	{FlagApplicationPassword, "applicationPassword"},
}

// Has reports whether all bits of flag are set in f.
func (f AccessControlFlags) Has(flag AccessControlFlags) bool {
	return f&flag == flag
}

// RequiresPresence reports whether reading an item protected by f needs a
// user presence step.
func (f AccessControlFlags) RequiresPresence() bool {
	return f&(FlagUserPresence|FlagBiometryAny|FlagBiometryCurrentSet|FlagDevicePasscode|FlagWatch) != 0
}

func (f AccessControlFlags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseAccessControlFlags parses flag names separated by commas or pipes.
func ParseAccessControlFlags(s string) (AccessControlFlags, error) {
	var flags AccessControlFlags
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		found := false
		for _, fn := range flagNames {
			if strings.EqualFold(part, fn.name) {
				flags |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown access control flag %q", part)
		}
	}
	return flags, nil
}

// AccessControlFactory creates access-control objects. Every Vault is one.
type AccessControlFactory interface {
	CreateAccessControl(ctx context.Context, protection Accessibility, flags AccessControlFlags) (AccessControlObject, error)
}

// AccessControl describes the policy to attach to an item on add or
// update. The vault object is created by Create, right before use.
type AccessControl struct {
	Protection Accessibility
	Flags      AccessControlFlags
}

// Create asks the vault for an access-control object. A vault that can not
// honor the tier and flags yields a KindACLCreationFailed error whose Cause
// is the vault's diagnostic, or nil when it gave none.
func (ac AccessControl) Create(ctx context.Context, factory AccessControlFactory) (AccessControlObject, error) {
	obj, err := factory.CreateAccessControl(ctx, ac.Protection, ac.Flags)
	if err != nil || obj == nil {
		return nil, &Error{Kind: KindACLCreationFailed, Cause: err}
	}
	return obj, nil
}

func (ac AccessControl) String() string {
	if ac.Flags == 0 {
		return ac.Protection.String()
	}
	return ac.Protection.String() + "+" + ac.Flags.String()
}
