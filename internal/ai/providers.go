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
	openai "github.com/sashabaranov/go-openai"

	"tradelog/internal/config"
	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
	"tradelog/pkg/utils"
)

// Provider is a chat-completion backend used by the server to produce
// live strategy text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// openAICompatProvider speaks any OpenAI-compatible chat endpoint
// (OpenRouter, Kimi/Moonshot).
type openAICompatProvider struct {
	name   string
	model  string
	client *openai.Client
}

// NewOpenRouterProvider creates a provider backed by OpenRouter.
func NewOpenRouterProvider(apiKey string) Provider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://openrouter.ai/api/v1"
	return &openAICompatProvider{
		name:   "openrouter",
		model:  "openai/gpt-4o-mini",
		client: openai.NewClientWithConfig(cfg),
	}
}

// NewKimiProvider creates a provider backed by Moonshot's Kimi API.
func NewKimiProvider(apiKey string) Provider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://api.moonshot.cn/v1"
	return &openAICompatProvider{
		name:   "kimi",
		model:  "moonshot-v1-8k",
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *openAICompatProvider) Name() string {
	return p.name
}

func (p *openAICompatProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", apperrors.NewProviderError(p.name, 0, "completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewProviderError(p.name, 0, "empty completion", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// geminiProvider speaks the Google Generative Language REST API.
type geminiProvider struct {
	apiKey string
	model  string
	httpc  *http.Client
}

// NewGeminiProvider creates a provider backed by Google Gemini.
func NewGeminiProvider(apiKey string) Provider {
	return &geminiProvider{
		apiKey: apiKey,
		model:  "gemini-1.5-flash",
		httpc:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *geminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	url := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		p.model, p.apiKey,
	)

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: systemPrompt + "\n\n" + userPrompt}}},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.NewProviderError("gemini", 0, "encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewProviderError("gemini", 0, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return "", apperrors.NewProviderError("gemini", 0, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperrors.NewProviderError("gemini", resp.StatusCode, "reading response", err)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", apperrors.NewProviderError("gemini", resp.StatusCode, "decoding response", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := "unexpected status"
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", apperrors.NewProviderError("gemini", resp.StatusCode, msg, nil)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", apperrors.NewProviderError("gemini", resp.StatusCode, "empty candidates", nil)
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// FromCredentials builds the configured provider chain in preference
// order: OpenRouter, then Kimi, then Gemini.
func FromCredentials(creds config.Credentials) []Provider {
	var providers []Provider
	if creds.OpenRouterKey != "" {
		providers = append(providers, NewOpenRouterProvider(creds.OpenRouterKey))
	}
	if creds.KimiAPIKey != "" {
		providers = append(providers, NewKimiProvider(creds.KimiAPIKey))
	}
	if creds.GoogleAIKey != "" {
		providers = append(providers, NewGeminiProvider(creds.GoogleAIKey))
	}
	return providers
}

const analysisSystemPrompt = "You are a trading strategy assistant. " +
	"Answer with strict JSON only, no markdown fences, using exactly these keys: " +
	"fundamentalBias, technicalBias, marketContext, plan, entryZone, stopLoss, takeProfit, riskWarning. " +
	"entryZone, stopLoss and takeProfit must be decimal price strings with 4 decimal places."

// completionRetry retries transient provider failures before moving on
// to the next provider in the chain.
var completionRetry = utils.RetryConfig{
	MaxAttempts:   2,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      2 * time.Second,
	BackoffFactor: 2.0,
}

// GenerateAnalysis asks the provider chain for a full seven-field
// analysis, returning the first well-formed answer.
func GenerateAnalysis(ctx context.Context, providers []Provider, log zerolog.Logger, instrument, tradeType string) (*models.Analysis, error) {
	prompt := fmt.Sprintf("Produce a %s trade strategy analysis for %s.", tradeType, instrument)

	var lastErr error
	for _, p := range providers {
		text, err := utils.RetryWithResult(ctx, completionRetry, func() (string, error) {
			return p.Complete(ctx, analysisSystemPrompt, prompt)
		})
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("Provider completion failed")
			lastErr = err
			continue
		}

		analysis, err := parseAnalysisJSON(text)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("Provider returned malformed analysis")
			lastErr = err
			continue
		}

		analysis.Instrument = instrument
		analysis.TradeType = tradeType
		analysis.CreatedAt = time.Now().UTC()
		if !strings.Contains(analysis.RiskWarning, LiveMarker) {
			analysis.RiskWarning = strings.TrimSpace(analysis.RiskWarning + " " + LiveMarker)
		}
		return analysis, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, lastErr
}

// parseAnalysisJSON tolerates answers wrapped in markdown fences.
func parseAnalysisJSON(text string) (*models.Analysis, error) {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			trimmed = trimmed[start : end+1]
		}
	}

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(trimmed), &analysis); err != nil {
		return nil, fmt.Errorf("parsing analysis JSON: %w", err)
	}
	if !analysis.Complete() {
		return nil, fmt.Errorf("analysis missing required fields")
	}
	return &analysis, nil
}
