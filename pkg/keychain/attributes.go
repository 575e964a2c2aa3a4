package keychain

import (
	"fmt"
	"strings"
)

// ItemClass identifies the kind of item stored in the vault.
type ItemClass int

const (
	// ClassUnset leaves the class out of the query.
	ClassUnset ItemClass = iota
	ClassInternetPassword
	ClassGenericPassword
	ClassCertificate
	ClassKey
	// ClassIdentity is a certificate paired with its private key.
	ClassIdentity
)

var itemClassNative = map[ItemClass]string{
	ClassInternetPassword: "inet",
	ClassGenericPassword:  "genp",
	ClassCertificate:      "cert",
	ClassKey:              "keys",
	ClassIdentity:         "idnt",
}

var itemClassNames = map[ItemClass]string{
	ClassInternetPassword: "internet",
	ClassGenericPassword:  "generic",
	ClassCertificate:      "certificate",
	ClassKey:              "key",
	ClassIdentity:         "identity",
}

// Native returns the vault value for c, or "" for ClassUnset.
func (c ItemClass) Native() string {
	return itemClassNative[c]
}

func (c ItemClass) String() string {
	if name, ok := itemClassNames[c]; ok {
		return name
	}
	return "unset"
}

// ParseItemClass accepts a short name ("generic", "internet", ...) or a
// native class value ("genp", "inet", ...).
func ParseItemClass(s string) (ItemClass, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for c, name := range itemClassNames {
		if s == name || s == itemClassNative[c] {
			return c, nil
		}
	}
	return ClassUnset, fmt.Errorf("unknown item class %q", s)
}

func itemClassFromNative(v string) (ItemClass, bool) {
	for c, native := range itemClassNative {
		if native == v {
			return c, true
		}
	}
	return ClassUnset, false
}

// AuthenticationUI controls whether the vault may prompt the user while
// serving a call. The vault assumes AuthUIAllow when the key is absent.
type AuthenticationUI int

const (
	AuthUIUnset AuthenticationUI = iota
	// AuthUIAllow lets the vault show authentication UI.
	AuthUIAllow
	// AuthUIFail makes the vault return StatusInteractionNotAllowed instead
	// of prompting.
	AuthUIFail
	// AuthUISkip silently skips items that would need UI. Copy-matching only.
	AuthUISkip
)

var authUINative = map[AuthenticationUI]string{
	AuthUIAllow: "u_AuthUIA",
	AuthUIFail:  "u_AuthUIF",
	AuthUISkip:  "u_AuthUIS",
}

// Native returns the vault value for a, or "" for AuthUIUnset.
func (a AuthenticationUI) Native() string {
	return authUINative[a]
}

func authUIFromNative(v string) (AuthenticationUI, bool) {
	for a, native := range authUINative {
		if native == v {
			return a, true
		}
	}
	return AuthUIUnset, false
}

type matchKind int

const (
	matchUnset matchKind = iota
	matchOne
	matchAll
	matchCount
)

// MatchLimit bounds how many items a call returns or acts upon. The zero
// value is unset and leaves the default to the vault.
type MatchLimit struct {
	kind  matchKind
	count int
}

var (
	MatchLimitOne = MatchLimit{kind: matchOne}
	MatchLimitAll = MatchLimit{kind: matchAll}
)

// MatchCount limits results to n items.
func MatchCount(n int) MatchLimit {
	return MatchLimit{kind: matchCount, count: n}
}

// IsSet reports whether m carries a limit.
func (m MatchLimit) IsSet() bool { return m.kind != matchUnset }

// Limit returns the maximum number of results, with ok=false for
// MatchLimitAll or an unset limit.
func (m MatchLimit) Limit() (n int, ok bool) {
	switch m.kind {
	case matchOne:
		return 1, true
	case matchCount:
		return m.count, true
	}
	return 0, false
}

// Native returns the vault value for m, or nil when unset.
func (m MatchLimit) Native() any {
	switch m.kind {
	case matchOne:
		return "m_LimitOne"
	case matchAll:
		return "m_LimitAll"
	case matchCount:
		return m.count
	}
	return nil
}

// ParseMatchLimit decodes a native match limit value.
func ParseMatchLimit(v any) (MatchLimit, bool) {
	switch value := v.(type) {
	case string:
		switch value {
		case "m_LimitOne":
			return MatchLimitOne, true
		case "m_LimitAll":
			return MatchLimitAll, true
		}
	case int:
		return MatchCount(value), true
	case int64:
		return MatchCount(int(value)), true
	}
	return MatchLimit{}, false
}

// Attributes is a typed vault query or item attribute set. Nil fields are
// absent.
type Attributes struct {
	Class            ItemClass
	Service          *string
	Account          *string
	AccessGroup      *string
	Generic          []byte
	Data             []byte // secret payload
	AccessControl    AccessControlObject
	AuthenticationUI AuthenticationUI
	OperationPrompt  *string
	MatchLimit       MatchLimit
	ReturnData       *bool
	ReturnAttributes *bool

	// Extra holds native keys this package does not model. A modeled key
	// in Extra is only sent when the matching field is absent.
	Extra map[string]any
}

// InternetPasswordItem returns a query for an internet password item.
func InternetPasswordItem(account string) Attributes {
	return Attributes{
		Class:   ClassInternetPassword,
		Account: String(account),
	}
}

// GenericPasswordItem returns a query for a generic password item. A nil
// generic leaves the user-defined attribute absent.
func GenericPasswordItem(account string, generic []byte) Attributes {
	return Attributes{
		Class:   ClassGenericPassword,
		Account: String(account),
		Generic: cloneBytes(generic),
	}
}

// Clone returns a deep copy of a.
func (a Attributes) Clone() Attributes {
	out := a
	out.Service = cloneString(a.Service)
	out.Account = cloneString(a.Account)
	out.AccessGroup = cloneString(a.AccessGroup)
	out.OperationPrompt = cloneString(a.OperationPrompt)
	out.ReturnData = cloneBool(a.ReturnData)
	out.ReturnAttributes = cloneBool(a.ReturnAttributes)
	out.Generic = cloneBytes(a.Generic)
	out.Data = cloneBytes(a.Data)
	if a.Extra != nil {
		out.Extra = Dictionary(a.Extra).Clone()
	}
	return out
}

// Native converts a to the vault's key space.
func (a Attributes) Native() Dictionary {
	d := make(Dictionary, len(a.Extra)+8)
	for k, v := range a.Extra {
		d[k] = v
	}
	if a.Class != ClassUnset {
		d[KeyClass] = a.Class.Native()
	}
	putString(d, KeyService, a.Service)
	putString(d, KeyAccount, a.Account)
	putString(d, KeyAccessGroup, a.AccessGroup)
	putString(d, KeyOperationPrompt, a.OperationPrompt)
	if a.Generic != nil {
		d[KeyGeneric] = cloneBytes(a.Generic)
	}
	if a.Data != nil {
		d[KeyValueData] = cloneBytes(a.Data)
	}
	if a.AccessControl != nil {
		d[KeyAccessControl] = a.AccessControl
	}
	if a.AuthenticationUI != AuthUIUnset {
		d[KeyAuthenticationUI] = a.AuthenticationUI.Native()
	}
	if a.MatchLimit.IsSet() {
		d[KeyMatchLimit] = a.MatchLimit.Native()
	}
	if a.ReturnData != nil {
		d[KeyReturnData] = *a.ReturnData
	}
	if a.ReturnAttributes != nil {
		d[KeyReturnAttributes] = *a.ReturnAttributes
	}
	return d
}

// FromNative decodes a native dictionary. Values that do not have the
// expected type, and keys that are not modeled, are kept in Extra.
func FromNative(d Dictionary) Attributes {
	var a Attributes
	extra := func(k string, v any) {
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[k] = v
	}

	for k, v := range d {
		switch k {
		case KeyClass:
			if s, ok := v.(string); ok {
				if c, ok := itemClassFromNative(s); ok {
					a.Class = c
					continue
				}
			}
		case KeyService, KeyAccount, KeyAccessGroup, KeyOperationPrompt:
			if s, ok := v.(string); ok {
				switch k {
				case KeyService:
					a.Service = String(s)
				case KeyAccount:
					a.Account = String(s)
				case KeyAccessGroup:
					a.AccessGroup = String(s)
				case KeyOperationPrompt:
					a.OperationPrompt = String(s)
				}
				continue
			}
		case KeyGeneric:
			if b, ok := v.([]byte); ok {
				a.Generic = cloneBytes(b)
				continue
			}
		case KeyValueData:
			if b, ok := v.([]byte); ok {
				a.Data = cloneBytes(b)
				continue
			}
		case KeyAccessControl:
			if v != nil {
				a.AccessControl = v
				continue
			}
		case KeyAuthenticationUI:
			if s, ok := v.(string); ok {
				if ui, ok := authUIFromNative(s); ok {
					a.AuthenticationUI = ui
					continue
				}
			}
		case KeyMatchLimit:
			if m, ok := ParseMatchLimit(v); ok {
				a.MatchLimit = m
				continue
			}
		case KeyReturnData, KeyReturnAttributes:
			if b, ok := v.(bool); ok {
				if k == KeyReturnData {
					a.ReturnData = Bool(b)
				} else {
					a.ReturnAttributes = Bool(b)
				}
				continue
			}
		}
		extra(k, v)
	}
	return a
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// StringValue returns *p, or "" when p is nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func putString(d Dictionary, key string, v *string) {
	if v != nil {
		d[key] = *v
	}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	return String(*p)
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	return Bool(*p)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
