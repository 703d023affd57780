// =============================================================================
// hdon2xlsx - HTTP Server
// =============================================================================
//
// Routes:
//
//   GET  /health                  liveness and version
//   GET  /schema                  the active schema's name and headers
//   POST /pipeline/xml-to-xlsx    multipart "files" -> Data.xlsx or excels.zip
//
// Middleware order: request ID, logging, recovery, CORS. The rate limiter
// guards only the conversion route.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/hdon2xlsx/internal/converter"
	"github.com/ginjaninja78/hdon2xlsx/internal/logger"
	"github.com/ginjaninja78/hdon2xlsx/internal/validation"
)

// Options configures a Server.
type Options struct {
	Addr    string
	Version string

	Limits validation.Limits

	// RequestTimeout bounds one conversion request. Zero means no limit.
	RequestTimeout time.Duration

	AllowedOrigins []string

	// Package names and encodes the response; Merge is taken from the
	// request.
	Package converter.PackageOptions

	Logger *zerolog.Logger
}

// Server serves conversions over HTTP.
type Server struct {
	conv    *converter.Converter
	limiter *RateLimiter
	opts    Options
	log     zerolog.Logger
	router  *gin.Engine
}

// New builds the router. A nil limiter disables rate limiting.
func New(conv *converter.Converter, limiter *RateLimiter, opts Options) *Server {
	s := &Server{conv: conv, limiter: limiter, opts: opts}
	if opts.Logger != nil {
		s.log = *opts.Logger
	} else {
		s.log = logger.WithComponent("server")
	}

	r := gin.New()
	r.Use(requestID())
	r.Use(requestLogger(s.log))
	r.Use(recovery(s.log))
	r.Use(cors(opts.AllowedOrigins))

	r.GET("/health", s.health)
	r.GET("/schema", s.schema)
	r.POST("/pipeline/xml-to-xlsx", rateLimit(limiter), s.xmlToXLSX)

	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "Not Found")
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully. The rate
// limiter's janitor runs for the server's lifetime.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.limiter != nil {
		go s.limiter.Run(ctx, 0, s.log)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.opts.Addr).Str("version", s.opts.Version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
