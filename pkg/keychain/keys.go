package keychain

// Native attribute keys understood by the vault. The values match the
// platform Security framework constants so dictionaries can be handed to a
// native bridge unchanged.
const (
	KeyClass            = "class"
	KeyService          = "svce"
	KeyAccount          = "acct"
	KeyAccessGroup      = "agrp"
	KeyGeneric          = "gena"
	KeyValueData        = "v_Data"
	KeyAccessControl    = "accc"
	KeyAuthenticationUI = "u_AuthUI"
	KeyOperationPrompt  = "u_OpPrompt"
	KeyMatchLimit       = "m_Limit"
	KeyReturnData       = "r_Data"
	KeyReturnAttributes = "r_Attributes"
)

// Dictionary is a query, attribute set or result in the vault's native key
// space. Values are string, []byte, bool, int, AccessControlObject or
// anything a vault chooses to return under an unmodeled key.
type Dictionary map[string]any

// Clone returns a shallow copy of d with byte slices duplicated.
func (d Dictionary) Clone() Dictionary {
	if d == nil {
		return nil
	}
	out := make(Dictionary, len(d))
	for k, v := range d {
		if b, ok := v.([]byte); ok {
			v = append([]byte{}, b...)
		}
		out[k] = v
	}
	return out
}

// IsControlKey reports whether key shapes a call (return flags, match
// limit, UI policy, prompt) rather than describing an item.
func IsControlKey(key string) bool {
	switch key {
	case KeyReturnData, KeyReturnAttributes, KeyMatchLimit, KeyAuthenticationUI, KeyOperationPrompt:
		return true
	}
	return false
}
