package registry

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// RulesFile is the on-disk form of a rule list. YAML and JSON are both
// accepted.
//
//	rules:
//	  - pattern: "*://www.awin1.com/cread.php?*"
//	    strategy: parameter
//	    parameter: p
//	  - pattern: "*://ad.admitad.com/*"
//	    strategy: marker
//	    marker: "ulp="
type RulesFile struct {
	Rules []Rule `json:"rules"`
}

// ParseRules decodes a rules document and validates every rule.
func ParseRules(data []byte) ([]Rule, error) {
	var f RulesFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	// Compile once to surface bad patterns at load time.
	if _, err := New(f.Rules); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

// MarshalRules encodes rules as a YAML rules document that ParseRules reads
// back.
func MarshalRules(rules []Rule) ([]byte, error) {
	data, err := yaml.Marshal(RulesFile{Rules: rules})
	if err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	return data, nil
}

// LoadFile reads and parses a rules file.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}
