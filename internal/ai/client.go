package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradelog/internal/logging"
	"tradelog/internal/models"
)

// Client requests trade-strategy analyses from the backend. Any
// failure — transport error, non-2xx status, malformed payload —
// falls back to the local synthesizer, so Analyze always returns a
// usable analysis and never an error.
type Client struct {
	baseURL string
	httpc   *http.Client
	synth   *Synthesizer
	log     zerolog.Logger
}

// analyzeRequest is the wire body sent to the backend.
type analyzeRequest struct {
	Instrument string `json:"instrument"`
	TradeType  string `json:"tradeType"`
}

// analyzeResponse is the expected wire shape of a successful answer.
type analyzeResponse struct {
	Success  bool             `json:"success"`
	Analysis *models.Analysis `json:"analysis"`
}

// NewClient creates an analysis client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		synth:   NewSynthesizer(),
		log:     log.With().Str("component", "ai_client").Logger(),
	}
}

// Analyze requests an analysis for the instrument/trade-type pair.
// One attempt, no retry; every failure path resolves to a synthesized
// analysis.
func (c *Client) Analyze(ctx context.Context, instrument, tradeType string) *models.Analysis {
	start := time.Now()
	analysis, err := c.fetch(ctx, instrument, tradeType)
	logging.LogAPICall(c.log, http.MethodPost, "/api/v1/ai/analyze", time.Since(start), err)

	if err != nil {
		c.log.Warn().Err(err).
			Str("instrument", instrument).
			Msg("Remote analysis failed, falling back to demo mode")
		result := c.synth.Synthesize(instrument, tradeType)
		logging.LogAnalysis(c.log, instrument, tradeType, true)
		return result
	}

	logging.LogAnalysis(c.log, instrument, tradeType, false)
	return analysis
}

func (c *Client) fetch(ctx context.Context, instrument, tradeType string) (*models.Analysis, error) {
	body, err := json.Marshal(analyzeRequest{Instrument: instrument, TradeType: tradeType})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := c.baseURL + "/api/v1/ai/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if !decoded.Success || decoded.Analysis == nil {
		return nil, fmt.Errorf("response did not report success")
	}
	if !decoded.Analysis.Complete() {
		return nil, fmt.Errorf("response missing required analysis fields")
	}

	analysis := decoded.Analysis
	if analysis.Instrument == "" {
		analysis.Instrument = instrument
	}
	if analysis.TradeType == "" {
		analysis.TradeType = tradeType
	}
	if !strings.Contains(analysis.RiskWarning, LiveMarker) && !strings.Contains(analysis.RiskWarning, DemoMarker) {
		analysis.RiskWarning = strings.TrimSpace(analysis.RiskWarning + " " + LiveMarker)
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}
	return analysis, nil
}

// Synthesizer exposes the local fallback, used by the server to build
// its own offline answers from the same tables.
func (c *Client) Synthesizer() *Synthesizer {
	return c.synth
}
