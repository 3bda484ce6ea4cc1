// Package extract implements the conventions trackers use to embed the real
// destination inside a redirect URL.
//
// The set of strategies is closed: Parameter, Marker and CallSyntax. Each is a
// pure function of the URL text and holds no per-request state.
package extract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/razvanmacovei/untrack-operator/internal/querystring"
)

// ErrNotFound is returned when the URL does not carry the expected parameter
// or marker, or when what it carries is empty.
var ErrNotFound = errors.New("destination not found")

// ErrMalformedEncoding is returned when the embedded destination cannot be
// decoded.
var ErrMalformedEncoding = querystring.ErrMalformedEncoding

// Kind names a strategy variant in declarative configuration.
type Kind string

const (
	KindParameter Kind = "parameter"
	KindMarker    Kind = "marker"
	KindCall      Kind = "call"
)

const (
	callOpen  = "url("
	callClose = ")"
)

// Strategy extracts the embedded destination from a URL.
type Strategy interface {
	// Extract returns the destination, ErrNotFound, or an error wrapping
	// ErrMalformedEncoding.
	Extract(rawURL string) (string, error)

	kind() Kind
}

// Parameter reads the destination from a named query parameter.
type Parameter struct {
	Name string
	// Base64 decodes the parameter value as base64 after percent-decoding.
	Base64 bool
}

func (p Parameter) kind() Kind { return KindParameter }

// Extract uses the first value when the parameter repeats.
func (p Parameter) Extract(rawURL string) (string, error) {
	values, err := querystring.Parse(rawURL)
	if err != nil {
		return "", err
	}
	value, ok := values.Get(p.Name)
	if !ok || value == "" {
		return "", ErrNotFound
	}
	if values.IsMulti(p.Name) {
		slog.Debug("parameter repeats, using first value", "parameter", p.Name, "count", len(values[p.Name]))
	}
	if !p.Base64 {
		return value, nil
	}

	decoded, err := decodeBase64(value)
	if err != nil {
		return "", fmt.Errorf("%w: parameter %q: %v", ErrMalformedEncoding, p.Name, err)
	}
	if decoded == "" {
		return "", ErrNotFound
	}
	return decoded, nil
}

// Marker takes everything after the last occurrence of a literal marker.
type Marker struct {
	Marker string
}

func (m Marker) kind() Kind { return KindMarker }

func (m Marker) Extract(rawURL string) (string, error) {
	idx := strings.LastIndex(rawURL, m.Marker)
	if m.Marker == "" || idx == -1 {
		return "", ErrNotFound
	}
	return decodeNonEmpty(rawURL[idx+len(m.Marker):])
}

// CallSyntax takes the text between the last "url(" and the last ")".
type CallSyntax struct{}

func (CallSyntax) kind() Kind { return KindCall }

func (CallSyntax) Extract(rawURL string) (string, error) {
	open := strings.LastIndex(rawURL, callOpen)
	closing := strings.LastIndex(rawURL, callClose)
	if open == -1 || closing == -1 {
		return "", ErrNotFound
	}
	start := open + len(callOpen)
	if closing < start {
		return "", ErrNotFound
	}
	return decodeNonEmpty(rawURL[start:closing])
}

func decodeNonEmpty(s string) (string, error) {
	decoded, err := querystring.Unescape(s)
	if err != nil {
		return "", err
	}
	if decoded == "" {
		return "", ErrNotFound
	}
	return decoded, nil
}

func decodeBase64(s string) (string, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if !utf8.Valid(b) {
			return "", fmt.Errorf("base64 value %q is not valid UTF-8", s)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("not base64: %q", s)
}

// Describe returns a short human-readable form of s, e.g. `parameter(url)`.
func Describe(s Strategy) string {
	switch v := s.(type) {
	case Parameter:
		if v.Base64 {
			return fmt.Sprintf("parameter(%s, base64)", v.Name)
		}
		return fmt.Sprintf("parameter(%s)", v.Name)
	case Marker:
		return fmt.Sprintf("marker(%s)", v.Marker)
	case CallSyntax:
		return "call(url(...))"
	}
	return string(s.kind())
}
