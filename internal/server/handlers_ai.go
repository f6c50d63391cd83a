package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"tradelog/internal/ai"
	"tradelog/internal/models"
)

type analyzeRequest struct {
	Instrument string `json:"instrument"`
	TradeType  string `json:"tradeType"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	req.Instrument = strings.TrimSpace(req.Instrument)
	if req.Instrument == "" {
		s.respondError(w, http.StatusBadRequest, "instrument is required")
		return
	}
	if req.TradeType == "" {
		req.TradeType = "Buy"
	}

	var analysis *models.Analysis
	if len(s.providers) > 0 {
		generated, err := ai.GenerateAnalysis(r.Context(), s.providers, s.log, req.Instrument, req.TradeType)
		if err != nil {
			s.log.Warn().Err(err).Str("instrument", req.Instrument).Msg("All providers failed, synthesizing locally")
		} else {
			analysis = generated
		}
	}
	if analysis == nil {
		analysis = s.synth.Synthesize(req.Instrument, req.TradeType)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": analysis,
	})
}

type dailyStrategyRequest struct {
	Focus string `json:"focus"`
}

const dailyStrategySystemPrompt = "You are a trading desk strategist. " +
	"Answer with strict JSON only, using exactly these keys: bias, focus, keyLevels, notes."

func (s *Server) handleDailyStrategy(w http.ResponseWriter, r *http.Request) {
	var req dailyStrategyRequest
	s.decodeJSONOptional(r, &req)
	if req.Focus == "" {
		req.Focus = "major FX pairs"
	}

	strategy := s.generateDailyStrategy(r, req.Focus)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategy": strategy,
	})
}

func (s *Server) generateDailyStrategy(r *http.Request, focus string) *models.DailyStrategy {
	today := time.Now().UTC().Format("2006-01-02")

	for _, p := range s.providers {
		text, err := p.Complete(r.Context(), dailyStrategySystemPrompt,
			"Produce today's trading strategy briefing focused on "+focus+".")
		if err != nil {
			s.log.Warn().Err(err).Str("provider", p.Name()).Msg("Daily strategy provider failed")
			continue
		}
		if strategy := parseDailyStrategy(text); strategy != nil {
			strategy.Date = today
			strategy.Source = p.Name()
			return strategy
		}
		s.log.Warn().Str("provider", p.Name()).Msg("Daily strategy response was malformed")
	}

	// Offline briefing, same register as the synthesized analyses.
	return &models.DailyStrategy{
		Date:      today,
		Bias:      "Neutral until the first session establishes direction.",
		Focus:     focus,
		KeyLevels: "Yesterday's high and low remain the reference levels.",
		Notes:     ai.DemoMarker + " Generated locally; no strategy provider was reachable.",
		Source:    "local",
	}
}

// decodeJSONOptional tolerates an empty or absent body.
func (s *Server) decodeJSONOptional(r *http.Request, out interface{}) {
	if r.Body == nil {
		return
	}
	json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}

// parseDailyStrategy decodes a provider answer, tolerating markdown
// fences around the JSON.
func parseDailyStrategy(text string) *models.DailyStrategy {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var strategy models.DailyStrategy
	if err := json.Unmarshal([]byte(trimmed), &strategy); err != nil {
		return nil
	}
	if strategy.Bias == "" && strategy.KeyLevels == "" {
		return nil
	}
	return &strategy
}
