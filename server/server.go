package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server is the TCP front-end. Construct with New, run with
// ListenAndServe; cancel the context for a graceful shutdown.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	catalog *catalog

	mu       sync.Mutex
	listener net.Listener
}

// Options configures optional server collaborators.
type Options struct {
	// Logger receives server and engine logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates a Server with the given configuration.
func New(cfg Config, optFns ...func(o *Options)) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := Options{
		Logger: slog.Default(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	metrics := NewMetrics()

	return &Server{
		cfg:     cfg,
		logger:  opts.Logger,
		metrics: metrics,
		catalog: newCatalog(cfg, opts.Logger, metrics),
	}, nil
}

// Addr returns the listener address, or "" before ListenAndServe.
// Useful with "addr: 127.0.0.1:0" in tests.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ListenAndServe accepts connections until ctx is canceled, then stops
// accepting, waits for in-flight connections (bounded by
// ShutdownTimeout) and closes every open database.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)

	// Closes the listener when shutdown begins, unblocking Accept.
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	var conns sync.WaitGroup
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			conns.Add(1)
			go func() {
				defer conns.Done()
				s.handleConn(gctx, conn)
			}()
		}
	})

	if s.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return s.serveMetrics(gctx)
		})
	}

	err = g.Wait()

	// Bounded drain of in-flight connections before closing engines.
	done := make(chan struct{})
	go func() {
		conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Duration(s.cfg.ShutdownTimeout)):
		s.logger.Warn("shutdown timeout, abandoning open connections")
	}

	if closeErr := s.catalog.closeAll(); closeErr != nil && err == nil {
		err = closeErr
	}

	s.logger.Info("server stopped")
	return err
}

func (s *Server) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())

	srv := &http.Server{
		Addr:    s.cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeout))
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	s.logger.Info("metrics listening", "addr", s.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
