package common

import (
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// DefaultBodyLimit caps how many bytes are read from a provider response.
const DefaultBodyLimit = 16 * 1024

// DefaultRawBodyLimit defines the maximum number of characters retained from
// a provider response body when attaching it to a persisted record.
const DefaultRawBodyLimit = 1024

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteError is returned when a provider answers with a non-success HTTP
// status. The raw response body is preserved for diagnostics and must never
// be silently discarded by callers.
type RemoteError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ReadBody drains up to limit bytes from the supplied reader. A non-positive
// limit falls back to DefaultBodyLimit.
func ReadBody(rc io.Reader, limit int64) (string, error) {
	if rc == nil {
		return "", nil
	}
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}

// TruncateRaw trims the supplied string to the specified rune limit. If limit
// is zero or negative it returns an empty string.
func TruncateRaw(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	runes := []rune(raw)
	return string(runes[:limit])
}
