package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/razvanmacovei/untrack-operator/internal/metrics"
)

const tunnelDialTimeout = 10 * time.Second

// passThrough forwards the request unmodified to the host it was meant for.
func (h *Handler) passThrough(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	target := &url.URL{Scheme: r.URL.Scheme, Host: r.URL.Host}
	if target.Scheme == "" {
		target.Scheme = "http"
	}
	if target.Host == "" {
		target.Host = r.Host
	}
	if target.Host == "" {
		slog.Error("no host to forward to", "uri", r.RequestURI)
		http.Error(w, "no upstream host", http.StatusBadGateway)
		return
	}

	// The server's timeouts are sized for local endpoints and would cut off
	// long downloads and uploads.
	clearDeadlines(w)

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = h.transport
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("pass-through failed", "host", target.Host, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	proxy.ServeHTTP(w, r)
	metrics.PassthroughDuration.Observe(time.Since(start).Seconds())
}

// tunnel relays a CONNECT request as opaque bytes. The payload is TLS the
// gateway cannot read, so no verdict applies and the policy is not consulted.
func (h *Handler) tunnel(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	upstream, err := h.dial(r.Context(), "tcp", host)
	if err != nil {
		slog.Error("tunnel dial failed", "host", host, "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	client, buf, err := http.NewResponseController(w).Hijack()
	if err != nil {
		upstream.Close()
		slog.Error("tunnel hijack failed", "host", host, "error", err)
		http.Error(w, "tunneling not supported", http.StatusInternalServerError)
		return
	}
	defer client.Close()
	defer upstream.Close()

	// Hijacked connections keep the server's deadlines.
	if err := client.SetDeadline(time.Time{}); err != nil {
		slog.Error("tunnel clear deadline", "host", host, "error", err)
		return
	}
	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		slog.Error("tunnel handshake failed", "host", host, "error", err)
		return
	}

	slog.Info("tunneling", "host", host)
	metrics.VerdictsTotal.WithLabelValues(string(ActionTunnel)).Inc()
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		// buf.Reader holds anything the client sent after the CONNECT header.
		io.Copy(upstream, buf.Reader)
		closeWrite(upstream)
	}()
	go func() {
		defer wg.Done()
		io.Copy(client, upstream)
		closeWrite(client)
	}()
	wg.Wait()
	metrics.PassthroughDuration.Observe(time.Since(start).Seconds())
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
		return
	}
	c.Close()
}

func clearDeadlines(w http.ResponseWriter) {
	rc := http.NewResponseController(w)
	for _, set := range []func(time.Time) error{rc.SetReadDeadline, rc.SetWriteDeadline} {
		if err := set(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			slog.Debug("clear pass-through deadline", "error", err)
		}
	}
}
