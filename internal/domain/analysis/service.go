package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/asase/envreport/internal/domain/environment"
	"github.com/asase/envreport/internal/infra/llm/chatgpt"
	"github.com/asase/envreport/internal/observability"
	"github.com/asase/envreport/pkg/metrics"
)

// Service turns fused signals into a land health score and narrative.
type Service interface {
	// Summarize always returns a fully populated Result, falling back to a
	// canned analysis when the model is unconfigured or misbehaves.
	Summarize(ctx context.Context, location, country string, signals environment.Signals) Result
}

// ChatClient is the subset of the chat API used by the summarizer.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// TokenCounter estimates prompt size when the API reports no usage.
type TokenCounter interface {
	CountTokens(text string) int
}

var errNotConfigured = errors.New("llm api key not configured")

type service struct {
	cfg     Config
	client  ChatClient
	counter TokenCounter
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService wires the summarizer. A nil client means no credential is
// configured and every call yields the fallback analysis.
func NewService(cfg Config, client ChatClient, counter TokenCounter, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &service{
		cfg:     cfg,
		client:  client,
		counter: counter,
		clock:   clock,
		metrics: metrics,
		logger:  logger.With("component", "analysis.service"),
	}
}

func (s *service) Summarize(ctx context.Context, location, country string, signals environment.Signals) Result {
	now := s.clock.Now()
	result, err := s.generate(ctx, location, country, signals, now)
	if err != nil {
		s.logger.Warn("ai analysis failed, using fallback", "location", location, "country", country, "error", err)
		fallback := fallbackResult(location, country, now)
		fallback.TokenUsage = result.TokenUsage
		s.metrics.ObserveAnalysis(promptTokens(fallback.TokenUsage), true)
		return fallback
	}
	s.metrics.ObserveAnalysis(promptTokens(result.TokenUsage), false)
	return result
}

// generate returns the usage it gathered even when it fails.
func (s *service) generate(ctx context.Context, location, country string, signals environment.Signals, now time.Time) (Result, error) {
	if s.client == nil {
		return Result{}, errNotConfigured
	}

	prompt := buildPrompt(location, country, signals, now)
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatgpt.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    s.cfg.Temperature,
		ResponseFormat: chatgpt.JSONObject,
	})
	s.metrics.ObserveUpstream("llm", start)
	usage := s.usage(completion.Usage, prompt)
	if err != nil {
		return Result{TokenUsage: usage}, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Result{TokenUsage: usage}, errors.New("model returned no choices")
	}

	content := completion.Choices[0].Message.Content
	s.logger.Debug("ai analysis received", "location", location, "content", content)

	parsed, err := parseAnalysis(content)
	if err != nil {
		return Result{TokenUsage: usage}, fmt.Errorf("model response malformed: %w", err)
	}

	report := parsed.Analysis
	if report.Title == "" {
		report.Title = reportTitle(location, country)
	}
	if report.Timestamp == "" {
		report.Timestamp = reportTimestamp(now)
	}
	if report.Subject == "" {
		report.Subject = reportSubject
	}
	return Result{
		LandHealthScore: parsed.Score,
		Analysis:        report,
		TokenUsage:      usage,
	}, nil
}

func (s *service) usage(reported *chatgpt.Usage, prompt string) *metrics.TokenUsage {
	if reported != nil && reported.TotalTokens > 0 {
		return &metrics.TokenUsage{
			PromptTokens:     reported.PromptTokens,
			CompletionTokens: reported.CompletionTokens,
			TotalTokens:      reported.TotalTokens,
		}
	}
	if s.counter == nil {
		return nil
	}
	n := s.counter.CountTokens(systemPrompt) + s.counter.CountTokens(prompt)
	return &metrics.TokenUsage{PromptTokens: n, TotalTokens: n, Estimated: true}
}

func promptTokens(u *metrics.TokenUsage) int {
	if u == nil {
		return 0
	}
	return u.PromptTokens
}

type parsedAnalysis struct {
	Score    int
	Analysis Report
}

func parseAnalysis(raw string) (parsedAnalysis, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))

	var wire struct {
		Score    json.RawMessage `json:"inferred_land_health_score"`
		Analysis *Report         `json:"professional_analysis"`
	}
	if err := json.Unmarshal([]byte(sanitized), &wire); err != nil {
		return parsedAnalysis{}, err
	}
	score, err := coerceScore(wire.Score)
	if err != nil {
		return parsedAnalysis{}, err
	}
	if wire.Analysis == nil {
		return parsedAnalysis{}, errors.New("professional_analysis missing")
	}
	report := trimReport(*wire.Analysis)
	if report.Assessment == "" || report.SDG15Compliance == "" || report.Recommendations == "" {
		return parsedAnalysis{}, errors.New("professional_analysis incomplete")
	}
	return parsedAnalysis{Score: score, Analysis: report}, nil
}

// coerceScore accepts a JSON number or numeric string in 1..10.
func coerceScore(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("inferred_land_health_score missing")
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("inferred_land_health_score not numeric: %w", err)
	}
	score := int(value)
	if float64(score) != value || score < 1 || score > 10 {
		return 0, fmt.Errorf("inferred_land_health_score %v outside 1-10", value)
	}
	return score, nil
}

func trimReport(r Report) Report {
	return Report{
		Title:           strings.TrimSpace(r.Title),
		Timestamp:       strings.TrimSpace(r.Timestamp),
		Subject:         strings.TrimSpace(r.Subject),
		Assessment:      strings.TrimSpace(r.Assessment),
		SDG15Compliance: strings.TrimSpace(r.SDG15Compliance),
		Recommendations: strings.TrimSpace(r.Recommendations),
	}
}
