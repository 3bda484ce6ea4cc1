package controller

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	untrackv1alpha1 "github.com/razvanmacovei/untrack-operator/api/v1alpha1"
	"github.com/razvanmacovei/untrack-operator/internal/extract"
	"github.com/razvanmacovei/untrack-operator/internal/registry"
)

// validateRule checks a single rule and reports problems by field.
func validateRule(rule untrackv1alpha1.RedirectRule) error {
	var errs []error

	switch {
	case rule.Pattern == "":
		errs = append(errs, fmt.Errorf("pattern: must not be empty"))
	case strings.IndexFunc(rule.Pattern, unicode.IsSpace) != -1:
		errs = append(errs, fmt.Errorf("pattern: must not contain whitespace (got %q)", rule.Pattern))
	case !strings.Contains(rule.Pattern, "://"):
		errs = append(errs, fmt.Errorf("pattern: must include a scheme or '*://' (got %q)", rule.Pattern))
	}

	if err := specFor(rule).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	}

	return errors.Join(errs...)
}

// compileRules validates every rule and converts the list to registry rules,
// keeping declaration order.
func compileRules(rules []untrackv1alpha1.RedirectRule) ([]registry.Rule, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("rules: at least one rule is required")
	}

	var errs []error
	out := make([]registry.Rule, 0, len(rules))
	for i, rule := range rules {
		if err := validateRule(rule); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d]: %w", i, err))
			continue
		}
		out = append(out, registry.Rule{Pattern: rule.Pattern, Spec: specFor(rule)})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Catch anything the field checks miss before the gateway sees it.
	if _, err := registry.New(out); err != nil {
		return nil, err
	}
	return out, nil
}

func specFor(rule untrackv1alpha1.RedirectRule) extract.Spec {
	return extract.Spec{
		Kind:      extract.Kind(rule.Strategy),
		Parameter: rule.Parameter,
		Marker:    rule.Marker,
		Base64:    rule.Base64,
	}
}
