package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes returns the http.Handler with all routes and middleware configured
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(g.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(g.securityHeadersMiddleware)
	r.Use(g.rateLimitMiddleware)
	if g.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(g.config.RequestTimeout))
	}

	r.Get("/health", g.healthHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", g.healthHandler)
		r.Get("/discovery", g.handlers.DiscoveryHandler)
		r.Post("/join", g.handlers.JoinHandler)
		r.Post("/leave", g.handlers.LeaveHandler)
		r.Get("/list", g.handlers.ListHandler)
		r.Post("/publish", g.handlers.PublishHandler)
		r.Post("/read", g.handlers.ReadHandler)
		r.Post("/read-all", g.handlers.ReadAllHandler)
		r.Post("/filter-peerid", g.handlers.FilterPeerIDHandler)
	})

	return r
}
