package fakes

import (
	"context"
	"sync"

	"github.com/systmms/keychain/pkg/keychain"
)

// VaultCall records one primitive invocation on a FakeVault.
type VaultCall struct {
	Op      string // "copy", "add", "update", "delete", "acl"
	Query   keychain.Dictionary
	Changes keychain.Dictionary
}

// FakeVaultACL is the access-control object handed out by FakeVault.
type FakeVaultACL struct {
	Seq        int
	Protection keychain.Accessibility
	Flags      keychain.AccessControlFlags
}

// FakeVault is a scripted keychain.Vault that records every call.
type FakeVault struct {
	mu sync.Mutex

	// CopyStatuses are returned by successive CopyMatching calls. Once
	// exhausted, CopyStatus is returned.
	CopyStatuses []keychain.Status
	CopyStatus   keychain.Status
	// CopyResults is returned with a successful CopyMatching.
	CopyResults []keychain.Dictionary

	AddStatus    keychain.Status
	UpdateStatus keychain.Status
	DeleteStatus keychain.Status

	// ACLErr and ACLNil make CreateAccessControl fail.
	ACLErr error
	ACLNil bool

	// Descriptions backs DescribeStatus.
	Descriptions map[keychain.Status]string

	Calls []VaultCall
	acls  int
}

// NewFakeVault creates a fake whose primitives all succeed and whose
// copy-matching returns payload.
func NewFakeVault(payload []byte) *FakeVault {
	return &FakeVault{
		CopyResults: []keychain.Dictionary{{keychain.KeyValueData: payload}},
	}
}

// CreateAccessControl implements keychain.AccessControlFactory.
func (f *FakeVault) CreateAccessControl(_ context.Context, protection keychain.Accessibility, flags keychain.AccessControlFlags) (keychain.AccessControlObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, VaultCall{Op: "acl"})
	if f.ACLErr != nil {
		return nil, f.ACLErr
	}
	if f.ACLNil {
		return nil, nil
	}
	f.acls++
	return &FakeVaultACL{Seq: f.acls, Protection: protection, Flags: flags}, nil
}

// CopyMatching implements keychain.Vault.
func (f *FakeVault) CopyMatching(_ context.Context, query keychain.Dictionary) ([]keychain.Dictionary, keychain.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, VaultCall{Op: "copy", Query: query.Clone()})
	status := f.CopyStatus
	if len(f.CopyStatuses) > 0 {
		status = f.CopyStatuses[0]
		f.CopyStatuses = f.CopyStatuses[1:]
	}
	if status != keychain.StatusSuccess {
		return nil, status
	}
	return f.CopyResults, status
}

// Add implements keychain.Vault.
func (f *FakeVault) Add(_ context.Context, attributes keychain.Dictionary) keychain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, VaultCall{Op: "add", Query: attributes.Clone()})
	return f.AddStatus
}

// Update implements keychain.Vault.
func (f *FakeVault) Update(_ context.Context, query, changes keychain.Dictionary) keychain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, VaultCall{Op: "update", Query: query.Clone(), Changes: changes.Clone()})
	return f.UpdateStatus
}

// Delete implements keychain.Vault.
func (f *FakeVault) Delete(_ context.Context, query keychain.Dictionary) keychain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, VaultCall{Op: "delete", Query: query.Clone()})
	return f.DeleteStatus
}

// DescribeStatus implements keychain.StatusDescriber.
func (f *FakeVault) DescribeStatus(status keychain.Status) (string, bool) {
	msg, ok := f.Descriptions[status]
	return msg, ok
}

// Ops returns the operation names of the recorded calls, in order.
func (f *FakeVault) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		ops[i] = c.Op
	}
	return ops
}

// LastCall returns the most recent call with the given operation name.
func (f *FakeVault) LastCall(op string) (VaultCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Op == op {
			return f.Calls[i], true
		}
	}
	return VaultCall{}, false
}

var (
	_ keychain.Vault           = (*FakeVault)(nil)
	_ keychain.StatusDescriber = (*FakeVault)(nil)
)
