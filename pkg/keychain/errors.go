package keychain

import (
	"errors"
	"fmt"
)

// ErrorKind names the operation that failed.
type ErrorKind int

const (
	KindACLCreationFailed ErrorKind = iota + 1
	KindItemCopyFailed
	KindItemAddFailed
	KindItemUpdateFailed
	KindItemDeleteFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindACLCreationFailed:
		return "access control creation"
	case KindItemCopyFailed:
		return "item copy"
	case KindItemAddFailed:
		return "item add"
	case KindItemUpdateFailed:
		return "item update"
	case KindItemDeleteFailed:
		return "item delete"
	}
	return "keychain operation"
}

// Error is returned by every failing Client operation. Status is set for
// item kinds; Cause is the vault diagnostic for KindACLCreationFailed and
// may be nil.
type Error struct {
	Kind   ErrorKind
	Status Status
	Cause  error

	describer StatusDescriber
}

func (e *Error) Error() string {
	if e.Kind == KindACLCreationFailed {
		return e.Description()
	}
	return fmt.Sprintf("keychain %s failed: %s (status %d)", e.Kind, e.Description(), e.Status)
}

// Description renders a human-readable message. It prefers the vault's own
// text for the status and falls back to a generic one.
func (e *Error) Description() string {
	if e.Kind == KindACLCreationFailed {
		if e.Cause != nil {
			return fmt.Sprintf("can't create access control object: %v", e.Cause)
		}
		return "can't create access control object"
	}
	if msg, ok := describeStatus(e.describer, e.Status); ok {
		return msg
	}
	return fallbackDescription(e.Status)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind. A target with a non-zero
// Status must also match the status.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Status == StatusSuccess || t.Status == e.Status
}

// StatusOf returns the vault status carried by err.
func StatusOf(err error) (Status, bool) {
	var kerr *Error
	if errors.As(err, &kerr) && kerr.Kind != KindACLCreationFailed {
		return kerr.Status, true
	}
	return StatusSuccess, false
}

// IsNotFound reports whether err carries StatusItemNotFound.
func IsNotFound(err error) bool {
	s, ok := StatusOf(err)
	return ok && s == StatusItemNotFound
}

// IsInteractionNotAllowed reports whether err carries
// StatusInteractionNotAllowed.
func IsInteractionNotAllowed(err error) bool {
	s, ok := StatusOf(err)
	return ok && s == StatusInteractionNotAllowed
}

// IsACLCreationFailed reports whether err is an access-control creation
// failure.
func IsACLCreationFailed(err error) bool {
	var kerr *Error
	return errors.As(err, &kerr) && kerr.Kind == KindACLCreationFailed
}

func describeStatus(d StatusDescriber, status Status) (msg string, ok bool) {
	if d == nil {
		return "", false
	}
	defer func() {
		if recover() != nil {
			msg, ok = "", false
		}
	}()
	msg, ok = d.DescribeStatus(status)
	return msg, ok && msg != ""
}

func fallbackDescription(status Status) string {
	switch status {
	case StatusItemNotFound:
		return "the specified item could not be found in the keychain"
	case StatusInteractionNotAllowed:
		return "user interaction is not allowed"
	case StatusDecode:
		return "unable to decode the provided data"
	}
	return fmt.Sprintf("keychain status %d", status)
}

func newStatusError(kind ErrorKind, status Status, d StatusDescriber) *Error {
	return &Error{Kind: kind, Status: status, describer: d}
}
