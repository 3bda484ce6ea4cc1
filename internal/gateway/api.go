package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	URL string `json:"url"`
}

// ResolveResponse is the verdict returned by POST /v1/resolve.
type ResolveResponse struct {
	Action      Action `json:"action"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Reason      string `json:"reason"`
}

const maxResolveBody = 64 << 10

// serveResolve lets hosts that intercept requests themselves, such as a
// browser extension, ask for a verdict without proxying traffic.
func (s *Server) serveResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResolveBody))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	d := s.handler.Decide(req.URL)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ResolveResponse{
		Action:      d.Action,
		RedirectURL: d.Location,
		Pattern:     d.Outcome.Pattern,
		Reason:      d.Outcome.Reason(),
	}); err != nil {
		slog.Error("write resolve response", "error", err)
	}
}
