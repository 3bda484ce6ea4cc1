// Package registry holds the ordered list of tracker patterns and resolves a
// request URL to a verdict.
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/razvanmacovei/untrack-operator/internal/extract"
)

// ErrNoPatternMatch is reported when no registered pattern matches the URL.
var ErrNoPatternMatch = errors.New("no pattern matches")

// Rule is one declarative (pattern, strategy) association.
type Rule struct {
	Pattern string `json:"pattern"`
	extract.Spec
}

// Entry is a compiled Rule. Entries are immutable once built.
type Entry struct {
	Pattern  string
	Strategy extract.Strategy
	match    *regexp.Regexp
}

// Matches reports whether the whole of rawURL matches the entry's pattern.
func (e *Entry) Matches(rawURL string) bool {
	return e.match.MatchString(rawURL)
}

// Registry is an immutable, ordered set of entries. It is safe for
// concurrent use.
type Registry struct {
	entries []Entry
}

// New compiles rules in order. Declaration order is the match priority.
func New(rules []Rule) (*Registry, error) {
	entries := make([]Entry, 0, len(rules))
	for i, rule := range rules {
		re, err := CompilePattern(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		strategy, err := rule.Spec.Build()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Pattern, err)
		}
		entries = append(entries, Entry{
			Pattern:  rule.Pattern,
			Strategy: strategy,
			match:    re,
		})
	}
	return &Registry{entries: entries}, nil
}

// Default returns a registry with the built-in tracker rules.
func Default() *Registry {
	r, err := New(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("built-in rules: %v", err))
	}
	return r
}

// Match returns the first entry, in declaration order, whose pattern matches
// rawURL.
func (r *Registry) Match(rawURL string) (*Entry, bool) {
	for i := range r.entries {
		if r.entries[i].Matches(rawURL) {
			return &r.entries[i], true
		}
	}
	return nil, false
}

// Resolve finds the entry for rawURL and extracts its destination. It does
// no I/O and never panics on input; every failure yields VerdictNone.
func (r *Registry) Resolve(rawURL string) Outcome {
	entry, ok := r.Match(rawURL)
	if !ok {
		return Outcome{Verdict: VerdictNone, Err: ErrNoPatternMatch}
	}

	dest, err := entry.Strategy.Extract(rawURL)
	if err != nil {
		return Outcome{Verdict: VerdictNone, Pattern: entry.Pattern, Err: err}
	}
	if dest == "" {
		return Outcome{Verdict: VerdictNone, Pattern: entry.Pattern, Err: extract.ErrNotFound}
	}

	return Outcome{
		Verdict: VerdictRedirect,
		URL:     Normalize(dest),
		Pattern: entry.Pattern,
	}
}

// Patterns returns every pattern in declaration order. The union is the
// filter a host uses to decide which requests to hand to Resolve.
func (r *Registry) Patterns() []string {
	patterns := make([]string, len(r.entries))
	for i, e := range r.entries {
		patterns[i] = e.Pattern
	}
	return patterns
}

// Rules returns the declarative form of every entry, in declaration order.
func (r *Registry) Rules() []Rule {
	rules := make([]Rule, len(r.entries))
	for i, e := range r.entries {
		rules[i] = Rule{Pattern: e.Pattern, Spec: extract.SpecOf(e.Strategy)}
	}
	return rules
}

// Entries returns a copy of the compiled entries.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Normalize prefixes s with "http://" unless it already starts with an
// http or https scheme.
func Normalize(s string) string {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	return "http://" + s
}
