package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// wildcard matches zero or more non-whitespace characters.
const wildcard = `\S*`

// CompilePattern compiles a wildcard pattern into a regexp anchored at both
// ends. Each '*' matches zero or more non-whitespace characters; every other
// character matches itself.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if strings.IndexFunc(pattern, unicode.IsSpace) != -1 {
		return nil, fmt.Errorf("pattern %q contains whitespace", pattern)
	}

	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}

	re, err := regexp.Compile("^" + strings.Join(parts, wildcard) + "$")
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return re, nil
}
