package extract

import (
	"fmt"
	"strings"
)

// Spec is the declarative form of a Strategy as it appears in rule files and
// TrackerRule resources.
type Spec struct {
	Kind      Kind   `json:"strategy"`
	Parameter string `json:"parameter,omitempty"`
	Marker    string `json:"marker,omitempty"`
	Base64    bool   `json:"base64,omitempty"`
}

// Validate checks that the spec names a known kind and carries the argument
// that kind needs.
func (s Spec) Validate() error {
	switch Kind(strings.ToLower(string(s.Kind))) {
	case KindParameter:
		if s.Parameter == "" {
			return fmt.Errorf("strategy %q requires a parameter name", KindParameter)
		}
	case KindMarker:
		if s.Marker == "" {
			return fmt.Errorf("strategy %q requires a marker", KindMarker)
		}
		if s.Base64 {
			return fmt.Errorf("base64 is only supported by strategy %q", KindParameter)
		}
	case KindCall:
		if s.Base64 {
			return fmt.Errorf("base64 is only supported by strategy %q", KindParameter)
		}
	case "":
		return fmt.Errorf("missing strategy")
	default:
		return fmt.Errorf("unknown strategy %q (valid: %s, %s, %s)", s.Kind, KindParameter, KindMarker, KindCall)
	}
	return nil
}

// Build validates s and returns the Strategy it describes.
func (s Spec) Build() (Strategy, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch Kind(strings.ToLower(string(s.Kind))) {
	case KindParameter:
		return Parameter{Name: s.Parameter, Base64: s.Base64}, nil
	case KindMarker:
		return Marker{Marker: s.Marker}, nil
	default:
		return CallSyntax{}, nil
	}
}

// SpecOf returns the declarative form of st.
func SpecOf(st Strategy) Spec {
	switch v := st.(type) {
	case Parameter:
		return Spec{Kind: KindParameter, Parameter: v.Name, Base64: v.Base64}
	case Marker:
		return Spec{Kind: KindMarker, Marker: v.Marker}
	default:
		return Spec{Kind: KindCall}
	}
}
