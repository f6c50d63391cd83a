package server

import (
	"net/http"
	"time"

	"tradelog/internal/analytics"
	"tradelog/internal/store"
)

func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.GetTrades(r.Context(), userID(r), store.TradeFilter{})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load trades for analytics")
		s.respondError(w, http.StatusInternalServerError, "failed to compute analytics")
		return
	}

	window := analytics.ParseWindow(r.URL.Query().Get("window"))
	snapshot := analytics.Compute(trades, window, time.Now().UTC())

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"winRate":       snapshot.WinRate,
		"profitFactor":  snapshot.ProfitFactor,
		"totalTrades":   snapshot.TotalTrades,
		"winningTrades": snapshot.WinCount,
		"losingTrades":  snapshot.LossCount,
	})
}
