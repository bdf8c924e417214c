package tts

import (
	"errors"
	"fmt"
	"io"
)

// APIError is a non-200 answer from the speech service outside synthesis
type APIError struct {
	StatusCode int
	Body       string // first bytes of the response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("speech service returned %d: %s", e.StatusCode, e.Body)
}

// IsInvalidKey reports whether the service rejected the subscription key
func (e *APIError) IsInvalidKey() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// AsAPIError extracts *APIError from an error
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

const snippetSize = 200

// readSnippet reads up to 200 bytes from r for inclusion in error messages
func readSnippet(r io.Reader) string {
	buf := make([]byte, snippetSize)
	n, _ := io.ReadFull(r, buf)
	if n == 0 {
		return "(empty body)"
	}
	s := string(buf[:n])
	if n == snippetSize {
		s += "..."
	}
	return s
}
