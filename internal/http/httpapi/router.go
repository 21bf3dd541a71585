package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"atelier/internal/http/handlers"
	"atelier/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS([]string{"http://localhost:3000", "http://localhost:5173"}),
	)

	r.Get("/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		if app.Cfg != nil && app.Cfg.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))
		}

		r.Post("/photos/analyze", app.PhotosAnalyze)
		r.Post("/uploads", app.UploadPhoto)

		r.Route("/tryon", func(r chi.Router) {
			r.Post("/", app.TryOnCreate)
			r.Get("/{id}", app.TryOnGet)
		})

		r.Route("/studio", func(r chi.Router) {
			r.Post("/preview", app.StudioPreview)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", app.StudioSession)
				r.Post("/finalize", app.StudioFinalize)
				r.Post("/reroll", app.StudioReroll)
				r.Post("/recreate", app.StudioRecreate)
				r.Get("/export", app.StudioExport)
			})
		})

		r.Get("/jobs", app.JobsRecent)
		r.Get("/jobs/stats", app.JobsStats)
	})

	if app.Cfg != nil && app.Cfg.StorageDriver == "file" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(app.Cfg.StoragePath)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
