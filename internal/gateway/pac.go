package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// writePAC writes a proxy auto-config script that sends plain-http URLs
// matching any pattern to proxyAddr and everything else direct. Browsers
// reach https URLs through CONNECT, where the gateway cannot see the URL, so
// those stay direct.
//
// shExpMatch treats '?' as a single-character wildcard, so the PAC filter is
// looser than the registry's; the gateway still decides per request.
func writePAC(w io.Writer, patterns []string, proxyAddr string) error {
	addr, err := json.Marshal("PROXY " + proxyAddr)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "function FindProxyForURL(url, host) {"); err != nil {
		return err
	}
	for _, p := range patterns {
		p, ok := pacPattern(p)
		if !ok {
			continue
		}
		quoted, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  if (shExpMatch(url, %s)) return %s;\n", quoted, addr); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, "  return \"DIRECT\";\n}")
	return err
}

// pacPattern narrows a registry pattern to its http form. It reports false
// for https-only patterns.
func pacPattern(p string) (string, bool) {
	lower := strings.ToLower(p)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return "", false
	case strings.HasPrefix(p, "*://"):
		return "http://" + strings.TrimPrefix(p, "*://"), true
	}
	return p, true
}

func (s *Server) servePAC(w http.ResponseWriter, r *http.Request) {
	proxyAddr := s.pacProxyAddr
	if proxyAddr == "" {
		proxyAddr = r.Host
	}
	w.Header().Set("Content-Type", "application/x-ns-proxy-autoconfig")
	if err := writePAC(w, s.store.Registry().Patterns(), proxyAddr); err != nil {
		slog.Error("write proxy.pac", "error", err)
	}
}
