package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
	"tradelog/internal/store"
)

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	filter := store.TradeFilter{
		Instrument: r.URL.Query().Get("instrument"),
		Strategy:   r.URL.Query().Get("strategy"),
	}

	trades, err := s.store.GetTrades(r.Context(), userID(r), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list trades")
		s.respondError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if !s.decodeJSON(w, r, &trade) {
		return
	}

	trade.Instrument = strings.TrimSpace(trade.Instrument)
	if trade.Instrument == "" {
		s.respondError(w, http.StatusBadRequest, "instrument is required")
		return
	}
	if trade.Direction != models.Buy && trade.Direction != models.Sell {
		s.respondError(w, http.StatusBadRequest, "direction must be Buy or Sell")
		return
	}
	if trade.EntryPrice <= 0 {
		s.respondError(w, http.StatusBadRequest, "entryPrice must be positive")
		return
	}

	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.Date.IsZero() {
		trade.Date = time.Now().UTC()
	}
	trade.CreatedAt = time.Now().UTC()

	if err := s.store.SaveTrade(r.Context(), userID(r), &trade); err != nil {
		s.log.Error().Err(err).Msg("Failed to save trade")
		s.respondError(w, http.StatusInternalServerError, "failed to save trade")
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Trade recorded",
		"trade":   trade,
	})
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteTrade(r.Context(), userID(r), id); err != nil {
		if apperrors.Is(err, apperrors.ErrTradeNotFound) {
			s.respondError(w, http.StatusNotFound, "trade not found")
			return
		}
		s.log.Error().Err(err).Msg("Failed to delete trade")
		s.respondError(w, http.StatusInternalServerError, "failed to delete trade")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Trade deleted",
	})
}
