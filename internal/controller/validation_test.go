package controller

import (
	"strings"
	"testing"

	untrackv1alpha1 "github.com/razvanmacovei/untrack-operator/api/v1alpha1"
	"github.com/razvanmacovei/untrack-operator/internal/extract"
)

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    untrackv1alpha1.RedirectRule
		wantErr string
	}{
		// Valid rules
		{name: "parameter", rule: untrackv1alpha1.RedirectRule{Pattern: "*://www.awin1.com/cread.php?*", Strategy: "parameter", Parameter: "p"}},
		{name: "parameter base64", rule: untrackv1alpha1.RedirectRule{Pattern: "*://go.example/?*", Strategy: "parameter", Parameter: "u", Base64: true}},
		{name: "marker", rule: untrackv1alpha1.RedirectRule{Pattern: "*://ad.admitad.com/*", Strategy: "marker", Marker: "ulp="}},
		{name: "call", rule: untrackv1alpha1.RedirectRule{Pattern: "*://clkuk.tradedoubler.com/click?*", Strategy: "call"}},
		{name: "explicit scheme", rule: untrackv1alpha1.RedirectRule{Pattern: "https://t.example/*", Strategy: "call"}},

		// Invalid patterns
		{name: "empty pattern", rule: untrackv1alpha1.RedirectRule{Strategy: "call"}, wantErr: "pattern: must not be empty"},
		{name: "whitespace", rule: untrackv1alpha1.RedirectRule{Pattern: "*://a.com/ x", Strategy: "call"}, wantErr: "whitespace"},
		{name: "no scheme separator", rule: untrackv1alpha1.RedirectRule{Pattern: "a.com/*", Strategy: "call"}, wantErr: "scheme"},

		// Invalid strategies
		{name: "missing strategy", rule: untrackv1alpha1.RedirectRule{Pattern: "*://a.com/*"}, wantErr: "missing strategy"},
		{name: "unknown strategy", rule: untrackv1alpha1.RedirectRule{Pattern: "*://a.com/*", Strategy: "regex"}, wantErr: "unknown strategy"},
		{name: "parameter without name", rule: untrackv1alpha1.RedirectRule{Pattern: "*://a.com/*", Strategy: "parameter"}, wantErr: "requires a parameter name"},
		{name: "marker without marker", rule: untrackv1alpha1.RedirectRule{Pattern: "*://a.com/*", Strategy: "marker"}, wantErr: "requires a marker"},
		{name: "base64 on marker", rule: untrackv1alpha1.RedirectRule{Pattern: "*://a.com/*", Strategy: "marker", Marker: "/", Base64: true}, wantErr: "base64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRule(tt.rule)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validateRule() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateRule() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCompileRules(t *testing.T) {
	t.Run("keeps order", func(t *testing.T) {
		rules, err := compileRules([]untrackv1alpha1.RedirectRule{
			{Pattern: "*://b.example/*", Strategy: "marker", Marker: "to="},
			{Pattern: "*://a.example/*", Strategy: "parameter", Parameter: "u"},
		})
		if err != nil {
			t.Fatalf("compileRules returned error: %v", err)
		}
		if len(rules) != 2 || rules[0].Pattern != "*://b.example/*" || rules[1].Pattern != "*://a.example/*" {
			t.Fatalf("compileRules = %+v", rules)
		}
		if rules[1].Kind != extract.KindParameter || rules[1].Parameter != "u" {
			t.Errorf("rules[1] spec = %+v", rules[1].Spec)
		}
	})

	t.Run("reports every invalid rule", func(t *testing.T) {
		_, err := compileRules([]untrackv1alpha1.RedirectRule{
			{Pattern: "", Strategy: "call"},
			{Pattern: "*://ok.example/*", Strategy: "call"},
			{Pattern: "*://a.example/*", Strategy: "nope"},
		})
		if err == nil {
			t.Fatal("compileRules returned nil error")
		}
		for _, want := range []string{"rules[0]", "rules[2]"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not mention %s", err, want)
			}
		}
		if strings.Contains(err.Error(), "rules[1]") {
			t.Errorf("error %q mentions the valid rule", err)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		if _, err := compileRules(nil); err == nil {
			t.Error("compileRules(nil) returned nil error")
		}
	})
}
