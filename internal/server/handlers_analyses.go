package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.GetAnalyses(r.Context(), userID(r), 0)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list analyses")
		s.respondError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if analyses == nil {
		analyses = []models.Analysis{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

func (s *Server) handleSaveAnalysis(w http.ResponseWriter, r *http.Request) {
	var analysis models.Analysis
	if !s.decodeJSON(w, r, &analysis) {
		return
	}
	if !analysis.Complete() {
		s.respondError(w, http.StatusBadRequest, "analysis is missing required fields")
		return
	}

	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}

	if err := s.store.SaveAnalysis(r.Context(), userID(r), &analysis); err != nil {
		s.log.Error().Err(err).Msg("Failed to save analysis")
		s.respondError(w, http.StatusInternalServerError, "failed to save analysis")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Analysis saved",
		"analysis": analysis,
	})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteAnalysis(r.Context(), userID(r), id); err != nil {
		if apperrors.Is(err, apperrors.ErrAnalysisNotFound) {
			s.respondError(w, http.StatusNotFound, "analysis not found")
			return
		}
		s.log.Error().Err(err).Msg("Failed to delete analysis")
		s.respondError(w, http.StatusInternalServerError, "failed to delete analysis")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Analysis deleted",
	})
}
