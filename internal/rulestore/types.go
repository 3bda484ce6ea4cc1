package rulestore

import "github.com/razvanmacovei/untrack-operator/internal/registry"

// RuleSet is the compiled form of one TrackerRule resource.
type RuleSet struct {
	Name      string
	Namespace string
	// Rules are validated and kept in declaration order.
	Rules []registry.Rule
}

func (rs *RuleSet) key() string {
	return rs.Namespace + "/" + rs.Name
}
