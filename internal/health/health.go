// Package health exposes the liveness endpoint used by hosting platforms to
// keep the bot process alive.
package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	logx "wirdbot/pkg/logx"
)

const body = "Bot is running"

type Server struct {
	addr  string
	log   logx.Logger
	srv   *http.Server
	bound net.Addr
}

func New(addr string, log logx.Logger) *Server {
	if addr == "" {
		addr = ":8080"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{addr: addr, log: log}
}

// Start binds the listener synchronously so a bad address fails fast, then
// serves in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.bound = ln.Addr()
	s.log.Info("health endpoint listening", logx.String("addr", s.bound.String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health server failed", logx.Err(err))
		}
	}()
	return nil
}

// Addr reports the bound listen address; empty before Start.
func (s *Server) Addr() string {
	if s.bound == nil {
		return ""
	}
	return s.bound.String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
