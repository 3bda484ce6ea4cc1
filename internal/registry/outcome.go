package registry

import (
	"errors"

	"github.com/razvanmacovei/untrack-operator/internal/extract"
)

// Verdict is the resolver's answer for one URL.
type Verdict int

const (
	// VerdictNone means the resolver has no opinion about the request.
	VerdictNone Verdict = iota
	// VerdictRedirect means the request should go to Outcome.URL instead.
	VerdictRedirect
)

func (v Verdict) String() string {
	if v == VerdictRedirect {
		return "redirect"
	}
	return "none"
}

// Outcome is the result of resolving one URL.
type Outcome struct {
	Verdict Verdict
	// URL is the absolute destination when Verdict is VerdictRedirect.
	URL string
	// Pattern is the matched pattern, empty when nothing matched.
	Pattern string
	// Err says why there is no verdict.
	Err error
}

// Redirect reports whether the outcome carries a destination.
func (o Outcome) Redirect() bool {
	return o.Verdict == VerdictRedirect
}

// Reason returns a short, bounded label for the outcome.
func (o Outcome) Reason() string {
	switch {
	case o.Verdict == VerdictRedirect:
		return "redirect"
	case errors.Is(o.Err, ErrNoPatternMatch):
		return "no_match"
	case errors.Is(o.Err, extract.ErrMalformedEncoding):
		return "malformed_encoding"
	default:
		return "extraction_empty"
	}
}
