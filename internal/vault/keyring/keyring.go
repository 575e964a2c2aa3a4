// Package keyring implements keychain.Vault on top of the operating
// system credential store through github.com/zalando/go-keyring (macOS
// Keychain, Secret Service on Linux, Windows Credential Manager).
//
// go-keyring only stores a string per (service, user) pair, so each item is
// kept as one JSON record:
//
//	service: "<access group>/<service>" or "<service>"
//	user:    "<class>:<account>"
//
// A per-service index entry lists the users so that queries without an
// account (for example a broad delete by class) can be served. Access
// control objects are recorded with the item; enforcing them is up to the
// operating system.
package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/systmms/keychain/internal/vault"
	"github.com/systmms/keychain/pkg/keychain"
)

const indexUser = ".index"

// Policy is the access-control object created by this vault.
type Policy struct {
	Protection keychain.Accessibility
	Flags      keychain.AccessControlFlags
}

type record struct {
	Strings    map[string]string `json:"strings,omitempty"`
	Bytes      map[string][]byte `json:"bytes,omitempty"`
	Data       []byte            `json:"data"`
	Protection string            `json:"protection,omitempty"`
	Flags      uint32            `json:"flags,omitempty"`
}

// Vault is a keychain.Vault backed by the OS keyring.
type Vault struct {
	vault.StatusText

	// mu serializes read-modify-write of records and the index.
	mu sync.Mutex
}

// New returns a Vault using the process-wide go-keyring provider.
func New() *Vault {
	return &Vault{}
}

// CreateAccessControl implements keychain.AccessControlFactory. The policy
// is recorded only; an unknown tier fails without a diagnostic.
func (v *Vault) CreateAccessControl(_ context.Context, protection keychain.Accessibility, flags keychain.AccessControlFlags) (keychain.AccessControlObject, error) {
	if protection.Native() == "" {
		return nil, nil
	}
	if flags.Has(keychain.FlagOr) && flags.Has(keychain.FlagAnd) {
		return nil, errors.New("access control flags or and and are mutually exclusive")
	}
	return &Policy{Protection: protection, Flags: flags}, nil
}

// CopyMatching implements keychain.Vault. The authentication UI policy is
// left to the operating system.
func (v *Vault) CopyMatching(_ context.Context, query keychain.Dictionary) ([]keychain.Dictionary, keychain.Status) {
	v.mu.Lock()
	defer v.mu.Unlock()

	matches, status := v.find(query)
	if status != keychain.StatusSuccess {
		return nil, status
	}

	wantData, wantAttrs := vault.ReturnFlags(query)
	limit, all := vault.Limit(query)
	var results []keychain.Dictionary
	for _, m := range matches {
		if !all && len(results) >= limit {
			break
		}
		result := keychain.Dictionary{}
		if wantData {
			result[keychain.KeyValueData] = append([]byte{}, m.rec.Data...)
		}
		if wantAttrs {
			for k, val := range m.rec.attributes() {
				result[k] = val
			}
			if p := m.rec.policy(); p != nil {
				result[keychain.KeyAccessControl] = p
			}
		}
		results = append(results, result)
	}
	return results, keychain.StatusSuccess
}

// Add implements keychain.Vault.
func (v *Vault) Add(_ context.Context, attributes keychain.Dictionary) keychain.Status {
	service, user, status := entryName(attributes)
	if status != keychain.StatusSuccess {
		return status
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := gokeyring.Get(service, user); err == nil {
		return keychain.StatusDuplicateItem
	} else if !errors.Is(err, gokeyring.ErrNotFound) {
		return statusFromError(err)
	}

	rec := &record{}
	if status := rec.apply(attributes); status != keychain.StatusSuccess {
		return status
	}
	if rec.Data == nil {
		rec.Data = []byte{}
	}
	if status := put(service, user, rec); status != keychain.StatusSuccess {
		return status
	}
	return v.indexAdd(service, user)
}

// Update implements keychain.Vault.
func (v *Vault) Update(_ context.Context, query, changes keychain.Dictionary) keychain.Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	matches, status := v.find(query)
	if status != keychain.StatusSuccess {
		return status
	}
	for _, m := range matches {
		if status := m.rec.apply(changes); status != keychain.StatusSuccess {
			return status
		}
	}
	for _, m := range matches {
		if status := put(m.service, m.user, m.rec); status != keychain.StatusSuccess {
			return status
		}
	}
	return keychain.StatusSuccess
}

// Delete implements keychain.Vault.
func (v *Vault) Delete(_ context.Context, query keychain.Dictionary) keychain.Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	matches, status := v.find(query)
	if status != keychain.StatusSuccess {
		return status
	}
	for _, m := range matches {
		if err := gokeyring.Delete(m.service, m.user); err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
			return statusFromError(err)
		}
		if status := v.indexRemove(m.service, m.user); status != keychain.StatusSuccess {
			return status
		}
	}
	return keychain.StatusSuccess
}

type match struct {
	service string
	user    string
	rec     *record
}

// find loads the records matching query, in index order.
func (v *Vault) find(query keychain.Dictionary) ([]match, keychain.Status) {
	class, _ := query[keychain.KeyClass].(string)
	if class == "" {
		return nil, keychain.StatusParam
	}
	service, status := keyringService(query)
	if status != keychain.StatusSuccess {
		return nil, status
	}

	var users []string
	if account, ok := query[keychain.KeyAccount].(string); ok {
		users = []string{class + ":" + account}
	} else {
		all, status := readIndex(service)
		if status != keychain.StatusSuccess {
			return nil, status
		}
		for _, u := range all {
			if strings.HasPrefix(u, class+":") {
				users = append(users, u)
			}
		}
	}

	var matches []match
	for _, user := range users {
		rec, status := get(service, user)
		if status == keychain.StatusItemNotFound {
			continue
		}
		if status != keychain.StatusSuccess {
			return nil, status
		}
		if !vault.Matches(rec.attributes(), query) {
			continue
		}
		matches = append(matches, match{service: service, user: user, rec: rec})
	}
	if len(matches) == 0 {
		return nil, keychain.StatusItemNotFound
	}
	return matches, keychain.StatusSuccess
}

func (v *Vault) indexAdd(service, user string) keychain.Status {
	users, status := readIndex(service)
	if status != keychain.StatusSuccess {
		return status
	}
	for _, u := range users {
		if u == user {
			return keychain.StatusSuccess
		}
	}
	return writeIndex(service, append(users, user))
}

func (v *Vault) indexRemove(service, user string) keychain.Status {
	users, status := readIndex(service)
	if status != keychain.StatusSuccess {
		return status
	}
	kept := users[:0]
	for _, u := range users {
		if u != user {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		if err := gokeyring.Delete(service, indexUser); err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
			return statusFromError(err)
		}
		return keychain.StatusSuccess
	}
	return writeIndex(service, kept)
}

func readIndex(service string) ([]string, keychain.Status) {
	raw, err := gokeyring.Get(service, indexUser)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return nil, keychain.StatusSuccess
	}
	if err != nil {
		return nil, statusFromError(err)
	}
	var users []string
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, keychain.StatusDecode
	}
	return users, keychain.StatusSuccess
}

func writeIndex(service string, users []string) keychain.Status {
	raw, err := json.Marshal(users)
	if err != nil {
		return keychain.StatusAllocate
	}
	return statusFromError(gokeyring.Set(service, indexUser, string(raw)))
}

func get(service, user string) (*record, keychain.Status) {
	raw, err := gokeyring.Get(service, user)
	if err != nil {
		return nil, statusFromError(err)
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, keychain.StatusDecode
	}
	return &rec, keychain.StatusSuccess
}

func put(service, user string, rec *record) keychain.Status {
	raw, err := json.Marshal(rec)
	if err != nil {
		return keychain.StatusAllocate
	}
	return statusFromError(gokeyring.Set(service, user, string(raw)))
}

// apply copies the item attributes, payload and policy of d into r.
func (r *record) apply(d keychain.Dictionary) keychain.Status {
	for k, val := range d {
		if keychain.IsControlKey(k) {
			continue
		}
		switch k {
		case keychain.KeyValueData:
			b, ok := val.([]byte)
			if !ok {
				return keychain.StatusParam
			}
			r.Data = append([]byte{}, b...)
			continue
		case keychain.KeyAccessControl:
			p, ok := val.(*Policy)
			if !ok {
				return keychain.StatusParam
			}
			r.Protection = p.Protection.Native()
			r.Flags = uint32(p.Flags)
			continue
		}
		switch typed := val.(type) {
		case string:
			if r.Strings == nil {
				r.Strings = map[string]string{}
			}
			r.Strings[k] = typed
		case []byte:
			if r.Bytes == nil {
				r.Bytes = map[string][]byte{}
			}
			r.Bytes[k] = append([]byte{}, typed...)
		default:
			return keychain.StatusParam
		}
	}
	return keychain.StatusSuccess
}

func (r *record) attributes() keychain.Dictionary {
	d := keychain.Dictionary{}
	for k, s := range r.Strings {
		d[k] = s
	}
	for k, b := range r.Bytes {
		d[k] = append([]byte{}, b...)
	}
	return d
}

func (r *record) policy() *Policy {
	if r.Protection == "" {
		return nil
	}
	tier, err := keychain.ParseAccessibility(r.Protection)
	if err != nil {
		return nil
	}
	return &Policy{Protection: tier, Flags: keychain.AccessControlFlags(r.Flags)}
}

func keyringService(d keychain.Dictionary) (string, keychain.Status) {
	service, _ := d[keychain.KeyService].(string)
	if service == "" {
		return "", keychain.StatusParam
	}
	if group, _ := d[keychain.KeyAccessGroup].(string); group != "" {
		return group + "/" + service, keychain.StatusSuccess
	}
	return service, keychain.StatusSuccess
}

func entryName(d keychain.Dictionary) (service, user string, status keychain.Status) {
	class, _ := d[keychain.KeyClass].(string)
	if class == "" {
		return "", "", keychain.StatusParam
	}
	service, status = keyringService(d)
	if status != keychain.StatusSuccess {
		return "", "", status
	}
	account, _ := d[keychain.KeyAccount].(string)
	return service, class + ":" + account, keychain.StatusSuccess
}

// statusFromError maps go-keyring and platform errors to vault statuses.
func statusFromError(err error) keychain.Status {
	switch {
	case err == nil:
		return keychain.StatusSuccess
	case errors.Is(err, gokeyring.ErrNotFound):
		return keychain.StatusItemNotFound
	case errors.Is(err, gokeyring.ErrSetDataTooBig):
		return keychain.StatusParam
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unsupported platform"):
		return keychain.StatusUnimplemented
	case strings.Contains(msg, "locked") || strings.Contains(msg, "interaction not allowed"):
		return keychain.StatusInteractionNotAllowed
	case strings.Contains(msg, "access denied") || strings.Contains(msg, "user denied") || strings.Contains(msg, "canceled"):
		return keychain.StatusUserCanceled
	}
	return keychain.StatusNotAvailable
}

var (
	_ keychain.Vault           = (*Vault)(nil)
	_ keychain.StatusDescriber = (*Vault)(nil)
)
