// Package server exposes the reconciliation pipeline over HTTP: column
// preview, validation uploads, stored results, CSV export and the optional
// narrative endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/loader"
	"github.com/sells-group/recon-cli/internal/rootcause"
	"github.com/sells-group/recon-cli/internal/schema"
	"github.com/sells-group/recon-cli/internal/store"
	"github.com/sells-group/recon-cli/internal/summarize"
)

// Options configures request handling.
type Options struct {
	Threshold      float64
	MaxParallel    int
	MaxUploadBytes int64
	Schema         schema.Options
	Loader         loader.Options
	Rules          rootcause.Config
	AllowedOrigins []string
	Timeout        time.Duration
}

// DefaultOptions returns the server defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:      3,
		MaxParallel:    4,
		MaxUploadBytes: 50 << 20,
		Schema:         schema.DefaultOptions(),
		Loader:         loader.DefaultOptions(),
		Rules:          rootcause.DefaultConfig(),
		AllowedOrigins: []string{"*"},
		Timeout:        2 * time.Minute,
	}
}

// Server holds the collaborators behind the HTTP handlers. A nil summarizer
// disables the insight and chat endpoints.
type Server struct {
	store      store.Store
	summarizer summarize.Summarizer
	opts       Options
}

// New creates a Server.
func New(st store.Store, sum summarize.Summarizer, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultOptions().MaxUploadBytes
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = DefaultOptions().AllowedOrigins
	}
	return &Server{store: st, summarizer: sum, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.opts.Timeout > 0 {
		r.Use(middleware.Timeout(s.opts.Timeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/preview-columns", s.handlePreview)
	r.Post("/validate", s.handleValidate)

	r.Route("/results", func(r chi.Router) {
		r.Get("/", s.handleListResults)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetResult)
			r.Delete("/", s.handleDeleteResult)
			r.Get("/export/csv", s.handleExportCSV)
			r.Get("/insight", s.handleInsight)
			r.Post("/chat", s.handleChat)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
