package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// APIKeyHeader carries the shared key on inbound honeypot requests.
const APIKeyHeader = "X-API-Key"

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// CheckAPIKey compares a presented key with the expected one in constant
// time. An empty expected key accepts anything.
func CheckAPIKey(expected, presented string) error {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return nil
	}
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return ErrMissingAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}

// APIKey rejects requests whose x-api-key header does not match key.
// An empty key disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	key = strings.TrimSpace(key)
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := CheckAPIKey(key, r.Header.Get(APIKeyHeader)); err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
