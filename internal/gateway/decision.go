package gateway

import (
	"fmt"
	"strings"

	"github.com/razvanmacovei/untrack-operator/internal/registry"
)

// Policy decides what happens to a request the resolver has no verdict for.
type Policy string

const (
	// PolicyAllow lets the original request through unmodified.
	PolicyAllow Policy = "allow"
	// PolicyCancel blocks the original request.
	PolicyCancel Policy = "cancel"
)

// ParsePolicy converts a flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case PolicyAllow, "":
		return PolicyAllow, nil
	case PolicyCancel:
		return PolicyCancel, nil
	}
	return "", fmt.Errorf("unknown unresolved policy %q (valid: allow, cancel)", s)
}

// Action is what the host should do with the intercepted request.
type Action string

const (
	ActionRedirect Action = "redirect"
	ActionAllow    Action = "allow"
	ActionCancel   Action = "cancel"
	// ActionTunnel is recorded for CONNECT requests, which are relayed
	// without a verdict.
	ActionTunnel Action = "tunnel"
)

// Decision is the verdict for one intercepted request.
type Decision struct {
	Action Action
	// Location is set for ActionRedirect.
	Location string
	Outcome  registry.Outcome
}

func decide(out registry.Outcome, policy Policy) Decision {
	if out.Redirect() {
		return Decision{Action: ActionRedirect, Location: out.URL, Outcome: out}
	}
	if policy == PolicyCancel {
		return Decision{Action: ActionCancel, Outcome: out}
	}
	return Decision{Action: ActionAllow, Outcome: out}
}
