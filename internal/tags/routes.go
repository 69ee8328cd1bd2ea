package tags

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/middleware"
)

// SetupRoutes mounts the tagging API. Submissions are rate limited per
// device; admin operations sit behind the session middleware.
func SetupRoutes(h *Handler, fetcher middleware.SessionFetcher) http.Handler {
	r := chi.NewRouter()

	limiter := middleware.NewRateLimiter(h.svc.Config().SubmitRatePerMinute, h.DeviceID)

	r.With(limiter.Middleware).Post("/", h.SubmitTagHandler)
	r.Get("/machines", h.MachinesHandler)
	r.Get("/machines/{id}", h.MachineDetailHandler)
	r.Get("/stats", h.StatsHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(fetcher))
		r.Get("/machines/pending", h.PendingHandler)
		r.Post("/machines/{id}/confirm", h.ConfirmHandler)
		r.Delete("/machines/{id}", h.DeleteHandler)
		r.Get("/export", h.ExportHandler)
		r.Post("/import", h.ImportHandler)
	})

	return r
}
