// Package server exposes the session manager over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/abhisek/skillpath/internal/observability"
	"github.com/abhisek/skillpath/internal/session"
)

// LearnerHeader names the learner a request acts for.
const LearnerHeader = "X-Learner"

// Options configures a Server. Manager is required.
type Options struct {
	Manager        *session.Manager
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	DefaultLearner string
	AllowedOrigins []string
	Tracing        bool
	Version        string
}

// Server routes HTTP requests to the session manager.
type Server struct {
	mgr            *session.Manager
	metrics        *observability.Metrics
	logger         *slog.Logger
	defaultLearner string
	version        string
	engine         *gin.Engine
}

var jsonFieldNames sync.Once

// useJSONFieldNames makes binding errors name fields as clients send them.
func useJSONFieldNames() {
	jsonFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// New builds the gin engine and registers every route.
func New(opts Options) *Server {
	useJSONFieldNames()
	s := &Server{
		mgr:            opts.Manager,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		defaultLearner: opts.DefaultLearner,
		version:        opts.Version,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Tracing {
		r.Use(otelgin.Middleware(observability.ServiceName))
	}
	r.Use(s.requestLogger(), s.observeLatency(), apiCORS(opts.AllowedOrigins))

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/next-question", s.nextQuestion)
		api.POST("/submit-answer", s.submitAnswer)
		api.POST("/reset-session", s.resetSession)
		api.GET("/standings", s.standings)
		api.DELETE("/session", s.endSession)
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.LogAttrs(c.Request.Context(), slog.LevelDebug, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) observeLatency() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.metrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// apiCORS applies CORS headers to /api/* only.
func apiCORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", LearnerHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	h := cors.New(cfg)

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			h(c)
		}
	}
}
