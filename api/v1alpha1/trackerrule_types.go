package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TrackerRuleSpec defines the desired state of TrackerRule.
type TrackerRuleSpec struct {
	// Rules are matched in order after the gateway's built-in rules.
	// +kubebuilder:validation:MinItems=1
	Rules []RedirectRule `json:"rules"`
}

// RedirectRule associates a URL pattern with the way the destination is
// embedded in matching URLs.
type RedirectRule struct {
	// Pattern is a wildcard URL pattern matched against the whole request URL.
	// '*' matches zero or more non-whitespace characters.
	Pattern string `json:"pattern"`

	// Strategy is how the destination is embedded: "parameter" (a query
	// parameter), "marker" (everything after a literal marker) or "call"
	// (the text inside url(...)).
	// +kubebuilder:validation:Enum=parameter;marker;call
	Strategy string `json:"strategy"`

	// Parameter is the query parameter name for the "parameter" strategy.
	// +optional
	Parameter string `json:"parameter,omitempty"`

	// Marker is the literal marker for the "marker" strategy.
	// +optional
	Marker string `json:"marker,omitempty"`

	// Base64 decodes the parameter value from base64.
	// +optional
	Base64 bool `json:"base64,omitempty"`
}

// TrackerRuleStatus defines the observed state of TrackerRule.
type TrackerRuleStatus struct {
	// Ready indicates whether the rules compiled and are active in the gateway.
	// +optional
	Ready bool `json:"ready,omitempty"`

	// ActiveRules is the number of rules contributed to the gateway.
	// +optional
	ActiveRules int `json:"activeRules,omitempty"`

	// Conditions represent the latest available observations of the TrackerRule's state.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Ready",type="boolean",JSONPath=".status.ready"
// +kubebuilder:printcolumn:name="Active Rules",type="integer",JSONPath=".status.activeRules"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// TrackerRule is the Schema for the trackerrules API.
type TrackerRule struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   TrackerRuleSpec   `json:"spec,omitempty"`
	Status TrackerRuleStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// TrackerRuleList contains a list of TrackerRule.
type TrackerRuleList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []TrackerRule `json:"items"`
}

func init() {
	SchemeBuilder.Register(&TrackerRule{}, &TrackerRuleList{})
}
