package signatures

import "fmt"

// FormatError reports a structurally invalid signature database entry.
// It aborts the whole load; soft problems such as a relationship pointing
// at an unknown technology are logged and dropped instead.
type FormatError struct {
	// Technology is the signature name, empty for file-level problems.
	Technology string
	// Field names the offending signature field, e.g. "headers[server]".
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	switch {
	case e.Technology == "":
		return fmt.Sprintf("signature database: %v", e.Err)
	case e.Field == "":
		return fmt.Sprintf("signature %q: %v", e.Technology, e.Err)
	default:
		return fmt.Sprintf("signature %q, field %s: %v", e.Technology, e.Field, e.Err)
	}
}

func (e *FormatError) Unwrap() error { return e.Err }
