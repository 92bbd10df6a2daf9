package httpapi

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor pulls a bearer token out of a request. An empty string
// with a nil error means no token was supplied at all; an error means a
// token was supplied but malformed.
type TokenExtractor func(r *http.Request) (string, error)

var errMalformedAuthHeader = errors.New("authorization header format must be Bearer {token}")

// AuthHeaderTokenExtractor reads the Authorization header.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errMalformedAuthHeader
	}
	return parts[1], nil
}

// ParameterTokenExtractor reads the token from a query parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor tries extractors in order and returns the first
// non-empty token. Errors are returned immediately.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}

// defaultExtractor accepts "Authorization: Bearer <token>" with a
// "token" query-parameter fallback.
var defaultExtractor = MultiTokenExtractor(
	AuthHeaderTokenExtractor,
	ParameterTokenExtractor("token"),
)
