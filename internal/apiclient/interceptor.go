package apiclient

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestInterceptor mutates an outgoing request before it is sent.
// Interceptors run in the order they were passed to New.
type RequestInterceptor func(*http.Request)

// BearerAuth attaches "Authorization: Bearer <token>" to every request.
// The token is read lazily so rotation takes effect without rebuilding
// the client.
func BearerAuth(token func() string) RequestInterceptor {
	return func(req *http.Request) {
		if tok := token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
}

// RequestID tags each request with a fresh X-Request-ID for tracing.
func RequestID() RequestInterceptor {
	return func(req *http.Request) {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
}
