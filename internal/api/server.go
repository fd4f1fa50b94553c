// The API server: routes set up with chi, linked to handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonathanprocter/insight-atlas-server/internal/core"
	"github.com/jonathanprocter/insight-atlas-server/internal/store"
)

// Server holds the dependencies for the API.
type Server struct {
	app   *core.App
	db    *sql.DB
	store *store.Store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		db:    app.DB(),
		store: app.Store(),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Generation runs in the background; requests themselves are short.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/users/login", s.handleLogin)
	r.Get("/api/version", s.handleGetVersion)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/api/users/logout", s.handleLogout)
		r.Get("/api/users/me", s.handleGetMe)

		r.Route("/api", func(r chi.Router) {
			r.Route("/generation", func(r chi.Router) {
				r.Post("/start", s.handleStartGeneration)
				r.Post("/cancel", s.handleCancelGeneration)
				r.Get("/progress", s.handleGetProgress)
				r.Get("/result", s.handleGetResult)
				r.Get("/interrupted", s.handleGetInterrupted)
				r.Post("/resume", s.handleResumeInterrupted)
				r.Delete("/interrupted", s.handleDiscardInterrupted)
				r.Post("/audio/retry", s.handleRetryAudio)
			})

			r.Get("/guides", s.handleListGuides)
			r.Get("/guides/{guideID}", s.handleGetGuide)
			r.Delete("/guides/{guideID}", s.handleDeleteGuide)
			r.Get("/guides/{guideID}/toc", s.handleGetGuideTOC)
			r.Get("/guides/{guideID}/quality", s.handleGetGuideQuality)
			r.Get("/guides/{guideID}/audio", s.handleGetGuideAudio)

			r.Get("/guides/{guideID}/bookmarks", s.handleListBookmarks)
			r.Post("/guides/{guideID}/bookmarks", s.handleAddBookmark)
			r.Delete("/guides/{guideID}/bookmarks/{bookmarkID}", s.handleDeleteBookmark)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminOnlyMiddleware)

				r.Get("/jobs/status", s.handleGetAdminJobsStatus)
				r.Post("/jobs/run", s.handleRunAdminJob)
			})
		})
	})

	// WebSocket route for progress updates.
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
