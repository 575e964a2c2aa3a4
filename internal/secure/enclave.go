package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer holds one item payload encrypted at rest in memory. It
// wraps memguard.Enclave; the plaintext only exists inside locked buffers
// returned by Open, or in the copy returned by Bytes.
type SecureBuffer struct {
	enclave *memguard.Enclave
	size    int
	mu      sync.RWMutex
	// destroyed makes Destroy idempotent and blocks use after destroy
	destroyed bool
}

// NewSecureBuffer seals a copy of data. memguard wipes the slice it is
// given, so the caller's data is left untouched.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	buf := &SecureBuffer{size: len(data)}
	if len(data) == 0 {
		// memguard has no representation for an empty enclave
		return buf, nil
	}

	src := make([]byte, len(data))
	copy(src, data)
	buf.enclave = memguard.NewEnclave(src)
	return buf, nil
}

// NewSecureBufferFromLocked seals the contents of a locked buffer and
// destroys it.
func NewSecureBufferFromLocked(locked *memguard.LockedBuffer) *SecureBuffer {
	buf := &SecureBuffer{size: locked.Size()}
	if locked.Size() == 0 {
		locked.Destroy()
		return buf
	}
	buf.enclave = locked.Seal()
	return buf
}

// Open decrypts the payload into a locked buffer. The caller must Destroy
// the returned buffer.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	secret := locked.Bytes()
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.enclave == nil {
		return memguard.NewBuffer(0), nil
	}
	return s.enclave.Open()
}

// Bytes returns a plain copy of the payload. The copy is ordinary Go
// memory and is owned by the caller.
func (s *SecureBuffer) Bytes() ([]byte, error) {
	locked, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	out := make([]byte, locked.Size())
	copy(out, locked.Bytes())
	return out, nil
}

// Size returns the payload length in bytes.
func (s *SecureBuffer) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return 0
	}
	return s.size
}

// Destroy drops the enclave. Safe to call more than once; afterwards Open
// returns an empty buffer. Call memguard.Purge at exit for a full wipe.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
