package server

import (
	"net/http"
	"time"

	"tradelog/internal/analytics"
	"tradelog/internal/models"
	"tradelog/internal/store"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUserByID(r.Context(), userID(r))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "user not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.GetTrades(r.Context(), userID(r), store.TradeFilter{})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load dashboard trades")
		s.respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	window := analytics.ParseWindow(r.URL.Query().Get("window"))
	snapshot := analytics.Compute(trades, window, time.Now().UTC())
	streaks := analytics.ComputeStreaks(trades)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Dashboard data",
		"data": map[string]interface{}{
			"trades":    trades,
			"analytics": snapshot,
			"streaks":   streaks,
		},
	})
}
