package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jonathanprocter/insight-atlas-server/internal/models"
	"github.com/jonathanprocter/insight-atlas-server/internal/quality"
	"github.com/jonathanprocter/insight-atlas-server/internal/store"
	"github.com/jonathanprocter/insight-atlas-server/internal/toc"
)

func (s *Server) handleListGuides(w http.ResponseWriter, r *http.Request) {
	guides, err := s.store.ListGuides()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list guides")
		return
	}
	RespondWithJSON(w, http.StatusOK, guides)
}

func (s *Server) handleGetGuide(w http.ResponseWriter, r *http.Request) {
	guide, ok := s.guideFromURL(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, guide)
}

func (s *Server) handleDeleteGuide(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "guideID")
	if !ok {
		return
	}
	if err := s.store.DeleteGuide(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Guide not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete guide")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGuideTOC(w http.ResponseWriter, r *http.Request) {
	guide, ok := s.guideFromURL(w, r)
	if !ok {
		return
	}
	entries := toc.Parse(guide.Content)
	if entries == nil {
		entries = []toc.Entry{}
	}
	RespondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetGuideQuality(w http.ResponseWriter, r *http.Request) {
	guide, ok := s.guideFromURL(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, quality.Audit(guide.Content, guide.SummaryDepth))
}

func (s *Server) handleGetGuideAudio(w http.ResponseWriter, r *http.Request) {
	guide, ok := s.guideFromURL(w, r)
	if !ok {
		return
	}
	if guide.AudioPath == "" {
		RespondWithError(w, http.StatusNotFound, "Guide has no narration")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, guide.AudioPath)
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	guide, ok := s.guideFromURL(w, r)
	if !ok {
		return
	}
	bookmarks, err := s.store.ListBookmarks(guide.ID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list bookmarks")
		return
	}
	if bookmarks == nil {
		bookmarks = []*models.Bookmark{}
	}
	RespondWithJSON(w, http.StatusOK, bookmarks)
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	guide, ok := s.guideFromURL(w, r)
	if !ok {
		return
	}
	var payload struct {
		Position int    `json:"position"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Position < 0 || payload.Position > len(guide.Content) {
		RespondWithError(w, http.StatusBadRequest, "Bookmark position out of range")
		return
	}
	bookmark, err := s.store.AddBookmark(guide.ID, payload.Position, payload.Note)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to add bookmark")
		return
	}
	RespondWithJSON(w, http.StatusCreated, bookmark)
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "bookmarkID")
	if !ok {
		return
	}
	if err := s.store.DeleteBookmark(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Bookmark not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete bookmark")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// guideFromURL loads the guide named by the guideID URL parameter,
// writing the error response itself when the lookup fails.
func (s *Server) guideFromURL(w http.ResponseWriter, r *http.Request) (*models.Guide, bool) {
	id, ok := idParam(w, r, "guideID")
	if !ok {
		return nil, false
	}
	guide, err := s.store.GetGuide(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Guide not found")
		} else {
			RespondWithError(w, http.StatusInternalServerError, "Failed to load guide")
		}
		return nil, false
	}
	return guide, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
