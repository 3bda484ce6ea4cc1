// Package querystring parses the query component of a tracking URL the way
// browsers hand it to request interceptors: raw, percent-encoded, with
// repeated names preserved in order.
package querystring

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// ErrMalformedEncoding is returned when a key or value is not valid
// percent-encoding.
var ErrMalformedEncoding = errors.New("malformed percent-encoding")

// Values maps a parameter name to its values in order of appearance.
// A single value is the scalar case; two or more is the sequence case.
type Values map[string][]string

// Get returns the first value for name.
func (v Values) Get(name string) (string, bool) {
	vals, ok := v[name]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// IsMulti reports whether name occurred more than once.
func (v Values) IsMulti(name string) bool {
	return len(v[name]) > 1
}

// Parse parses the query string that follows the last '?' in rawURL.
//
// A missing '?' or a trailing '?' yields an empty Values. Pairs without '='
// get an empty value, and empty keys are kept. Keys and values are
// percent-decoded without treating '+' as a space.
func Parse(rawURL string) (Values, error) {
	values := make(Values)

	start := strings.LastIndex(rawURL, "?")
	if start == -1 || start == len(rawURL)-1 {
		return values, nil
	}

	for _, pair := range strings.Split(rawURL[start+1:], "&") {
		rawKey, rawValue, _ := strings.Cut(pair, "=")

		key, err := Unescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", rawKey, err)
		}
		value, err := Unescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", key, err)
		}

		values[key] = append(values[key], value)
	}
	return values, nil
}

// Unescape percent-decodes s. Unlike url.QueryUnescape, '+' is left as is,
// and escapes that do not decode to valid UTF-8 are rejected.
func Unescape(s string) (string, error) {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if !utf8.ValidString(decoded) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8 once decoded", ErrMalformedEncoding, s)
	}
	return decoded, nil
}
