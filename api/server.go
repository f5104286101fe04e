package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/xlog"
)

type Server struct {
	srv    *http.Server
	logger xlog.XLogger
	addr   net.Addr
	doneC  chan struct{}
	err    error
}

func NewServer(addr string, handler http.Handler, logger xlog.XLogger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listener before returning, so a busy port fails the start.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "listen "+s.srv.Addr)
	}
	s.addr = ln.Addr()
	s.doneC = make(chan struct{})
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		defer close(s.doneC)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.err = err
			s.logger.ErrorStack(infra.WrapErrorStack(err), "http server failed")
		}
	}()
	return nil
}

// Addr is the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Shutdown stops accepting requests and waits for the in flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.doneC == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	<-s.doneC
	if err != nil {
		return infra.WrapErrorStack(err)
	}
	return infra.WrapErrorStack(s.err)
}
