// Package httpserver exposes the payment webhook, a landing page and a health
// probe over HTTP.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/vtubot/core/logger"
)

const component = "http"

// DefaultAddr is used when Options.Addr is empty.
const DefaultAddr = ":3000"

const landingText = "VTU bot is running. Open Telegram to buy airtime and data.\n"

// Options configure the server.
type Options struct {
	Addr           string
	StaticDir      string
	Webhook        http.Handler
	Ready          func(ctx context.Context) error
	RequestTimeout time.Duration
}

// Server wraps an http.Server with a chi router.
type Server struct {
	srv *http.Server

	mu   sync.Mutex
	ln   net.Listener
	done chan struct{}
}

// New builds the router and server; it does not start listening.
func New(opts Options) *Server {
	if strings.TrimSpace(opts.Addr) == "" {
		opts.Addr = DefaultAddr
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      opts.RequestTimeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewRouter returns the route table.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	if opts.Webhook != nil {
		r.Method(http.MethodPost, "/webhook", opts.Webhook)
	}
	r.Get("/healthz", healthHandler(opts.Ready))

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	} else {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(landingText))
		})
	}
	return r
}

func healthHandler(ready func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				logger.Warn(r.Context(), component, "health.fail", slog.String("err", err.Error()))
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if rid := chimw.GetReqID(ctx); rid != "" {
			ctx = logger.WithRID(ctx, rid)
			r = r.WithContext(ctx)
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Event(ctx, component, level, "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("ip", r.RemoteAddr),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

// Start binds the listener and serves in the background. It returns once the
// address is bound so bind failures surface to the caller.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	logger.Info(context.Background(), component, "http.listen", slog.String("addr", ln.Addr().String()))
	go func() {
		defer close(done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), component, "http.serve.fail", slog.String("err", err.Error()))
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.srv.Addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	logger.Info(ctx, component, "http.shutdown")
	return err
}
