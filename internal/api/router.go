package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/api/middleware"
	"github.com/slidrapp/slidr/internal/config"
	"github.com/slidrapp/slidr/internal/handlers"
	"github.com/slidrapp/slidr/internal/realtime"
	"github.com/slidrapp/slidr/internal/storage"
	"github.com/slidrapp/slidr/internal/store"
	"github.com/slidrapp/slidr/internal/upload"
)

// jsonBodyLimit caps every non-upload request body.
const jsonBodyLimit = 64 * 1024

// Deps are the services the router exposes.
type Deps struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Store    store.DocumentStore
	Redis    *store.RedisStore // optional
	Bucket   *storage.FileBucket
	Pipeline *upload.Pipeline
	Realtime *realtime.Server
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting needs Redis; single-process dev servers run without it.
	if d.Redis != nil {
		limiter := middleware.NewRateLimiter(d.Redis.Client(), d.Logger, middleware.RateLimiterConfig{
			Whitelist:        d.Config.RateLimitWhitelist,
			AutoBlockEnabled: d.Config.AutoBlockEnabled,
		})
		r.Use(limiter.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderUser},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(handlers.Options{
		Store:     d.Store,
		Redis:     d.Redis,
		Pipeline:  d.Pipeline,
		Logger:    d.Logger,
		PublicURL: d.Config.PublicURL,
		MaxUpload: d.Config.MaxUploadBytes,
	})
	auth := middleware.NewAuthMiddleware(d.Store)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Realtime sync
	r.Get("/ws/{slug}", d.Realtime.HandleWebSocket)

	// Page images and originals
	r.Handle("/files/*", http.StripPrefix("/files", d.Bucket.Handler()))

	// Link previews for crawlers, redirect to the app for everyone else
	r.Get("/{prefix:[pfis]}", h.RenderForBot)
	r.Get("/{prefix:[pfis]}/*", h.RenderForBot)

	// Single-page app
	spa := spaHandler(d.Config.StaticDir)
	r.Get("/", spa.ServeHTTP)
	r.Handle("/r", http.StripPrefix("/r", spa))
	r.Handle("/r/*", http.StripPrefix("/r", spa))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(d.Config.StaticDir))))

	// JSON API
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(jsonBodyLimit))

		r.Get("/api", h.Root)
		r.Get("/health", h.Health)
		r.Get("/stats", h.Stats)

		r.Post("/users", h.Register)
		r.Get("/users/{id}", h.Who)

		r.Get("/presentations", h.ListPresentations)
		r.Get("/presentations/{id}", h.GetPresentation)
		r.Get("/presentations/{id}/status", h.UploadStatus)
		r.Get("/presentations/{id}/reactions", h.GetReactions)

		r.With(auth.RequireAuth).Put("/presentations/{id}/preferences", h.UpdatePreferences)
	})

	// Uploads carry the whole PDF
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(d.Config.MaxUploadBytes))
		r.Use(auth.RequireAuth)

		r.Post("/presentations", h.UploadPresentation)
	})

	return r
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes resolve.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/")
		if p != "" {
			if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p))); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
