// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Catalog operations
	OpCatalogOpen   Op = "open catalog"
	OpCatalogList   Op = "list catalog"
	OpCatalogImport Op = "import tracks"
	OpCatalogRemove Op = "remove track"

	// Session operations
	OpTrackLoad   Op = "load track"
	OpCommandSend Op = "send command"
	OpWatch       Op = "watch session"

	// Remote surfaces
	OpServerStart Op = "start control server"
	OpMPRISStart  Op = "register media player"
	OpNotify      Op = "show notification"

	// Initialization
	OpConfigLoad Op = "load configuration"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// Error is an error tagged with the operation that failed. Its message is
// the Format rendering; the cause stays reachable through errors.Is/As.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string { return Format(e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with op. It returns nil when err is nil, so it can wrap a
// call's result directly.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
