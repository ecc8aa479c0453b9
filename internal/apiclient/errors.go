package apiclient

import (
	"encoding/json"
	"fmt"
)

// AuthError means the backend rejected our credentials (401/403).
// It is terminal for the current token: callers must not retry.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unauthorized (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("unauthorized (%d)", e.Status)
}

// NotFoundError means the referenced resource no longer exists (404).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource != "" {
		return e.Resource + " not found"
	}
	return "not found"
}

// FetchError covers transport failures and non-auth server errors.
// Err is nil when the server answered with an error status.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error %d", e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// serverMessage pulls the human-readable message out of an error body.
// The backend answers with {"error": "..."} or {"message": "..."}.
func serverMessage(body []byte) string {
	var out struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return ""
	}
	if out.Error != "" {
		return out.Error
	}
	return out.Message
}
