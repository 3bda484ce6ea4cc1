package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/razvanmacovei/untrack-operator/internal/rulestore"
)

// Server is the gateway HTTP server that implements manager.Runnable.
type Server struct {
	addr         string
	store        *rulestore.Store
	handler      *Handler
	local        *http.ServeMux
	pacProxyAddr string
	srv          *http.Server
}

// NewServer creates a new gateway server. pacProxyAddr is the host:port
// advertised in /proxy.pac; when empty the request's Host is used.
func NewServer(addr string, store *rulestore.Store, policy Policy, pacProxyAddr string) *Server {
	s := &Server{
		addr:         addr,
		store:        store,
		handler:      NewHandler(store, policy),
		local:        http.NewServeMux(),
		pacProxyAddr: pacProxyAddr,
	}

	s.local.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.local.HandleFunc("GET /proxy.pac", s.servePAC)
	s.local.HandleFunc("POST /v1/resolve", s.serveResolve)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// ServeHTTP sends proxy requests (absolute request URI or CONNECT) to the
// interception handler and everything else to the local endpoints.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect || r.URL.IsAbs() {
		s.handler.ServeHTTP(w, r)
		return
	}
	s.local.ServeHTTP(w, r)
}

// Start implements manager.Runnable. It starts the HTTP server and blocks until
// the context is cancelled, then gracefully shuts down.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("starting untrack gateway", "addr", s.addr, "rules", s.store.Len())

	// Shut down gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("gateway graceful shutdown failed", "error", err)
		}
	}()

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway server failed: %w", err)
	}
	slog.Info("gateway server stopped")
	return nil
}
