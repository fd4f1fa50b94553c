package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonathanprocter/insight-atlas-server/internal/generator"
	"github.com/jonathanprocter/insight-atlas-server/internal/models"
)

// Uploaded source documents are capped at 32 MB.
const maxDocumentSize = 32 << 20

// handleStartGeneration accepts a multipart form with the source
// document and generation settings, and starts a run. The response
// returns as soon as the run is accepted; progress is observed via
// /api/generation/progress or the websocket.
func (s *Server) handleStartGeneration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Missing document file")
		return
	}
	defer file.Close()
	document, err := io.ReadAll(io.LimitReader(file, maxDocumentSize+1))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to read document")
		return
	}
	if len(document) > maxDocumentSize {
		RespondWithError(w, http.StatusRequestEntityTooLarge, "Document too large")
		return
	}

	fileKind := r.FormValue("file_kind")
	if fileKind == "" {
		fileKind = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}

	req := models.GenerationRequest{
		Title:    r.FormValue("title"),
		Author:   r.FormValue("author"),
		FileKind: fileKind,
		Document: document,
		Settings: models.GenerationSettings{
			Mode:         r.FormValue("mode"),
			Tone:         r.FormValue("tone"),
			Format:       r.FormValue("format"),
			SummaryDepth: r.FormValue("summary_depth"),
		},
		Voice: r.FormValue("voice"),
	}
	if v := r.FormValue("target_guide_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid target_guide_id")
			return
		}
		req.TargetGuideID = id
	}

	id, err := s.app.Coordinator().Start(req)
	if err != nil {
		if errors.Is(err, generator.ErrAlreadyRunning) {
			RespondWithError(w, http.StatusConflict, "A generation is already running")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{"request_id": id})
}

func (s *Server) handleCancelGeneration(w http.ResponseWriter, r *http.Request) {
	s.app.Coordinator().Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Coordinator().Progress())
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result := s.app.Coordinator().LastResult()
	if result == nil {
		RespondWithError(w, http.StatusNotFound, "No finished generation")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetInterrupted(w http.ResponseWriter, r *http.Request) {
	entry, err := s.app.Coordinator().InterruptedInfo()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to read recovery state")
		return
	}
	if entry == nil {
		RespondWithError(w, http.StatusNotFound, "No interrupted generation")
		return
	}
	RespondWithJSON(w, http.StatusOK, entry)
}

func (s *Server) handleResumeInterrupted(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Settings *models.GenerationSettings `json:"settings"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	id, err := s.app.Coordinator().ResumeInterrupted(payload.Settings)
	if err != nil {
		switch {
		case errors.Is(err, generator.ErrNoInterruptedRun):
			RespondWithError(w, http.StatusNotFound, "No interrupted generation")
		case errors.Is(err, generator.ErrAlreadyRunning):
			RespondWithError(w, http.StatusConflict, "A generation is already running")
		default:
			RespondWithError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"request_id": id})
}

func (s *Server) handleDiscardInterrupted(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Coordinator().DiscardInterrupted(); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to discard recovery state")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetryAudio(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Voice string `json:"voice"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	outcome, err := s.app.Coordinator().RetryAudio(r.Context(), payload.Voice)
	if err != nil {
		if errors.Is(err, generator.ErrAlreadyRunning) {
			RespondWithError(w, http.StatusConflict, "A generation or audio retry is already running")
			return
		}
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, outcome)
}
