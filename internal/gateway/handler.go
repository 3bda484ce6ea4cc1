package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/razvanmacovei/untrack-operator/internal/metrics"
	"github.com/razvanmacovei/untrack-operator/internal/rulestore"
)

// Handler intercepts proxied requests, resolves tracking links and applies
// the verdict: redirect, pass through, or cancel.
type Handler struct {
	store     *rulestore.Store
	policy    Policy
	transport http.RoundTripper
	dial      func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewHandler creates a new gateway handler.
func NewHandler(store *rulestore.Store, policy Policy) *Handler {
	return &Handler{
		store:  store,
		policy: policy,
		dial:   (&net.Dialer{Timeout: tunnelDialTimeout}).DialContext,
	}
}

// Decide resolves rawURL against the current registry. It does no I/O, so
// it is safe to call inline before a navigation proceeds.
func (h *Handler) Decide(rawURL string) Decision {
	start := time.Now()
	out := h.store.Registry().Resolve(rawURL)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	metrics.ResolutionsTotal.WithLabelValues(out.Pattern, out.Reason()).Inc()

	d := decide(out, h.policy)
	if d.Action == ActionRedirect {
		slog.Info("redirecting", "url", rawURL, "target", d.Location, "pattern", out.Pattern)
	} else {
		slog.Info("could not handle", "url", rawURL, "reason", out.Reason(), "action", d.Action, "error", out.Err)
	}
	metrics.VerdictsTotal.WithLabelValues(string(d.Action)).Inc()
	return d
}

// ServeHTTP implements http.Handler for forward-proxy requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		h.tunnel(w, r)
		return
	}

	target := requestURL(r)
	d := h.Decide(target)

	switch d.Action {
	case ActionRedirect:
		http.Redirect(w, r, d.Location, http.StatusFound)
	case ActionCancel:
		http.Error(w, "request cancelled: no destination found in tracking link", http.StatusForbidden)
	default:
		h.passThrough(w, r)
	}
}

// requestURL returns the absolute URL the client asked for, as sent.
func requestURL(r *http.Request) string {
	if strings.Contains(r.RequestURI, "://") {
		return r.RequestURI
	}
	return r.URL.String()
}
