package keychain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/keychain/pkg/keychain"
)

func TestItemConstructors(t *testing.T) {
	t.Parallel()

	t.Run("internet password", func(t *testing.T) {
		t.Parallel()
		d := keychain.InternetPasswordItem("a").Native()
		assert.Equal(t, keychain.Dictionary{
			keychain.KeyClass:   "inet",
			keychain.KeyAccount: "a",
		}, d)
	})

	t.Run("generic password with generic", func(t *testing.T) {
		t.Parallel()
		d := keychain.GenericPasswordItem("a", []byte{0x01}).Native()
		assert.Equal(t, keychain.Dictionary{
			keychain.KeyClass:   "genp",
			keychain.KeyAccount: "a",
			keychain.KeyGeneric: []byte{0x01},
		}, d)
	})

	t.Run("generic password without generic", func(t *testing.T) {
		t.Parallel()
		d := keychain.GenericPasswordItem("a", nil).Native()
		_, ok := d[keychain.KeyGeneric]
		assert.False(t, ok)
	})
}

func TestAttributesNative(t *testing.T) {
	t.Parallel()

	acl := &struct{ name string }{"acl"}
	a := keychain.Attributes{
		Class:            keychain.ClassGenericPassword,
		Service:          keychain.String("svc"),
		Account:          keychain.String("acct"),
		AccessGroup:      keychain.String("group"),
		Generic:          []byte("gen"),
		Data:             []byte("payload"),
		AccessControl:    acl,
		AuthenticationUI: keychain.AuthUIFail,
		OperationPrompt:  keychain.String("Unlock"),
		MatchLimit:       keychain.MatchLimitAll,
		ReturnData:       keychain.Bool(true),
		ReturnAttributes: keychain.Bool(false),
	}

	d := a.Native()
	assert.Equal(t, "genp", d[keychain.KeyClass])
	assert.Equal(t, "svc", d[keychain.KeyService])
	assert.Equal(t, "acct", d[keychain.KeyAccount])
	assert.Equal(t, "group", d[keychain.KeyAccessGroup])
	assert.Equal(t, []byte("gen"), d[keychain.KeyGeneric])
	assert.Equal(t, []byte("payload"), d[keychain.KeyValueData])
	assert.Same(t, acl, d[keychain.KeyAccessControl])
	assert.Equal(t, "u_AuthUIF", d[keychain.KeyAuthenticationUI])
	assert.Equal(t, "Unlock", d[keychain.KeyOperationPrompt])
	assert.Equal(t, "m_LimitAll", d[keychain.KeyMatchLimit])
	assert.Equal(t, true, d[keychain.KeyReturnData])
	assert.Equal(t, false, d[keychain.KeyReturnAttributes])

	back := keychain.FromNative(d)
	assert.Equal(t, a, back)
}

func TestAttributesNativeOmitsAbsentFields(t *testing.T) {
	t.Parallel()

	assert.Empty(t, keychain.Attributes{}.Native())
}

func TestAttributesExtra(t *testing.T) {
	t.Parallel()

	a := keychain.Attributes{
		Service: keychain.String("typed"),
		Extra: map[string]any{
			"labl":              "label",
			keychain.KeyService: "untyped",
		},
	}
	d := a.Native()
	assert.Equal(t, "typed", d[keychain.KeyService], "typed field wins over Extra")
	assert.Equal(t, "label", d["labl"])

	back := keychain.FromNative(keychain.Dictionary{
		"labl":            "label",
		keychain.KeyClass: 42,
	})
	assert.Equal(t, keychain.ClassUnset, back.Class)
	assert.Equal(t, map[string]any{"labl": "label", keychain.KeyClass: 42}, back.Extra)
}

func TestAttributesClone(t *testing.T) {
	t.Parallel()

	orig := keychain.GenericPasswordItem("a", []byte("gen"))
	orig.Data = []byte("data")
	orig.Extra = map[string]any{"labl": []byte("x")}

	c := orig.Clone()
	*c.Account = "b"
	c.Generic[0] = 'G'
	c.Data[0] = 'D'
	c.Extra["labl"].([]byte)[0] = 'X'

	assert.Equal(t, "a", *orig.Account)
	assert.Equal(t, []byte("gen"), orig.Generic)
	assert.Equal(t, []byte("data"), orig.Data)
	assert.Equal(t, []byte("x"), orig.Extra["labl"])
}

func TestParseItemClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    keychain.ItemClass
		wantErr bool
	}{
		{"generic", keychain.ClassGenericPassword, false},
		{"genp", keychain.ClassGenericPassword, false},
		{"Internet", keychain.ClassInternetPassword, false},
		{"cert", keychain.ClassCertificate, false},
		{"key", keychain.ClassKey, false},
		{"idnt", keychain.ClassIdentity, false},
		{"password", keychain.ClassUnset, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := keychain.ParseItemClass(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		limit  keychain.MatchLimit
		native any
		n      int
		ok     bool
	}{
		{"unset", keychain.MatchLimit{}, nil, 0, false},
		{"one", keychain.MatchLimitOne, "m_LimitOne", 1, true},
		{"all", keychain.MatchLimitAll, "m_LimitAll", 0, false},
		{"count", keychain.MatchCount(3), 3, 3, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.native, tt.limit.Native())
			n, ok := tt.limit.Limit()
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.ok, ok)

			if tt.native != nil {
				parsed, ok := keychain.ParseMatchLimit(tt.native)
				require.True(t, ok)
				assert.Equal(t, tt.limit, parsed)
			}
		})
	}

	_, ok := keychain.ParseMatchLimit("m_LimitSome")
	assert.False(t, ok)
}

func TestAuthenticationUINative(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "u_AuthUIA", keychain.AuthUIAllow.Native())
	assert.Equal(t, "u_AuthUIF", keychain.AuthUIFail.Native())
	assert.Equal(t, "u_AuthUIS", keychain.AuthUISkip.Native())
	assert.Equal(t, "", keychain.AuthUIUnset.Native())
}

func TestDictionaryClone(t *testing.T) {
	t.Parallel()

	var nilDict keychain.Dictionary
	assert.Nil(t, nilDict.Clone())

	d := keychain.Dictionary{keychain.KeyValueData: []byte("abc"), keychain.KeyAccount: "a"}
	c := d.Clone()
	c[keychain.KeyValueData].([]byte)[0] = 'X'
	c[keychain.KeyAccount] = "b"

	assert.Equal(t, []byte("abc"), d[keychain.KeyValueData])
	assert.Equal(t, "a", d[keychain.KeyAccount])
}

func TestDictionaryCloneKeepsEmptyBytes(t *testing.T) {
	t.Parallel()

	c := keychain.Dictionary{keychain.KeyValueData: []byte{}}.Clone()
	data, ok := c[keychain.KeyValueData].([]byte)
	require.True(t, ok)
	assert.NotNil(t, data, "empty payload must not become absent")
	assert.Empty(t, data)

	decoded := keychain.FromNative(c)
	assert.NotNil(t, decoded.Data)
	assert.Empty(t, decoded.Data)

	attrs := keychain.Attributes{Extra: map[string]any{"custom": []byte{}}}.Clone()
	assert.NotNil(t, attrs.Extra["custom"])
}

func TestIsControlKey(t *testing.T) {
	t.Parallel()

	for _, k := range []string{
		keychain.KeyReturnData, keychain.KeyReturnAttributes, keychain.KeyMatchLimit,
		keychain.KeyAuthenticationUI, keychain.KeyOperationPrompt,
	} {
		assert.True(t, keychain.IsControlKey(k), k)
	}
	for _, k := range []string{keychain.KeyClass, keychain.KeyService, keychain.KeyValueData, keychain.KeyAccessControl} {
		assert.False(t, keychain.IsControlKey(k), k)
	}
}
