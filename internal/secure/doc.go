// Package secure keeps secret payloads encrypted while they sit in process
// memory.
//
// The in-memory vault stores every item payload in a SecureBuffer, and the
// CLI reads payloads from stdin straight into memguard locked buffers. The
// package wraps the memguard library, which provides:
//
//   - Encryption at rest in memory (XSalsa20Poly1305)
//   - Protection from swapping via mlock
//   - Guard pages around decrypted buffers
//   - Wiping of decrypted buffers on Destroy
//
// # Usage
//
//	buf, err := secure.NewSecureBuffer([]byte("my-secret"))
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	secretBytes := locked.Bytes()
//
// # Platform Behavior
//
// Memory locking behavior varies by platform:
//
//   - Linux: Requires RLIMIT_MEMLOCK to be set appropriately
//   - macOS: Works out of the box
//   - Windows: Uses VirtualLock
//
// It does NOT protect against attackers with root access to the running
// process, or hardware-level attacks (cold boot, DMA).
package secure
