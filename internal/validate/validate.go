package validate

import (
	"regexp"
	"time"
)

// Error is a client-side rule violation. It blocks the action locally
// and is never sent to the backend.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Failf builds an Error for a field.
func Failf(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// Email reports whether s looks like a deliverable address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// DateYMD parses a strict YYYY-MM-DD date.
func DateYMD(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
