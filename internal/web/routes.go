package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-compare/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	faceHandler := handlers.NewFaceHandler(s.deps.Sessions, s.deps.Jobs, s.deps.Registrar, s.deps.Processor, s.logger)
	healthHandler := handlers.NewHealthHandler(s.deps.Sessions, s.deps.Jobs, s.deps.Version)

	s.router.Get("/health", healthHandler.Get)

	s.router.Route("/face", func(r chi.Router) {
		r.Post("/register", faceHandler.Register)
		r.Post("/compare-batch", faceHandler.CompareBatch)

		// Jobs
		r.Get("/job-status/{jobId}", faceHandler.JobStatus)
		r.Get("/job-status/{jobId}/events", faceHandler.JobEvents)
		r.Delete("/job/{jobId}", faceHandler.DeleteJob)

		// Sessions
		r.Get("/session/{sessionId}", faceHandler.GetSession)
		r.Delete("/session/{sessionId}", faceHandler.DeleteSession)
	})
}
