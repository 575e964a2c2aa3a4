package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/keychain/internal/logging"
	"github.com/systmms/keychain/pkg/keychain"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// FromKeychain wraps a keychain client error for display. Errors that are
// not *keychain.Error are returned unchanged.
func FromKeychain(operation string, err error) error {
	if err == nil {
		return nil
	}
	var kerr *keychain.Error
	if !errors.As(err, &kerr) {
		return err
	}

	suggestion := keychainSuggestion(kerr)
	if IsRetryable(kerr) {
		suggestion += ". " + retryHint
	}
	return UserError{
		Message:    fmt.Sprintf("keychain %s failed", operation),
		Details:    kerr.Description(),
		Suggestion: suggestion,
		Err:        err,
	}
}

const retryHint = "The failure is usually temporary, retry after unlocking"

// keychainSuggestion returns a hint for the failure kind and status.
func keychainSuggestion(kerr *keychain.Error) string {
	if kerr.Kind == keychain.KindACLCreationFailed {
		return "The vault rejected the access control. Pick another --accessibility, or set a device passcode for passcode-bound tiers"
	}

	switch kerr.Status {
	case keychain.StatusItemNotFound:
		return "Check --service, --account and --class. Use 'keychain exists' to probe for the item"
	case keychain.StatusInteractionNotAllowed:
		return "Unlock the device or login keyring and try again. Items that need user presence can not be read non-interactively"
	case keychain.StatusUserCanceled:
		return "The authentication prompt was dismissed. Run the command again and approve it"
	case keychain.StatusAuthFailed:
		return "The keyring password was not accepted"
	case keychain.StatusDuplicateItem:
		return "An item with the same class, service, account and access group already exists"
	case keychain.StatusNotAvailable, keychain.StatusUnimplemented:
		return "No OS keyring is reachable from this session. Run 'keychain doctor', or use --backend memory for testing"
	case keychain.StatusDecode:
		return "The stored item has no readable payload. Overwrite it with 'keychain set'"
	case keychain.StatusParam:
		return "The vault rejected the query attributes. Check --class and --generic"
	}
	return ""
}

// Redact scrubs secrets from an error before it is shown. UserError and
// ConfigError keep their type; any other error whose message contains a
// secret is wrapped so that errors.As and errors.Is still reach it.
func Redact(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case UserError:
		e.Message = logging.Redact(e.Message, secrets)
		e.Details = logging.Redact(e.Details, secrets)
		e.Err = Redact(e.Err, secrets...)
		return e
	case ConfigError:
		e.Message = logging.Redact(e.Message, secrets)
		if s, ok := e.Value.(string); ok {
			e.Value = logging.Redact(s, secrets)
		}
		return e
	}
	msg := err.Error()
	if clean := logging.Redact(msg, secrets); clean != msg {
		return redactedError{msg: clean, err: err}
	}
	return err
}

type redactedError struct {
	msg string
	err error
}

func (e redactedError) Error() string { return e.msg }
func (e redactedError) Unwrap() error { return e.err }

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if status, ok := keychain.StatusOf(err); ok {
		switch status {
		case keychain.StatusInteractionNotAllowed, keychain.StatusUserCanceled, keychain.StatusNotAvailable:
			return true
		}
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"locked",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	var kerr *keychain.Error
	if errors.As(err, &kerr) {
		return FromKeychain(kerr.Kind.String(), err)
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
