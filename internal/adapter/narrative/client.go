// Package narrative implements domain.Narrator against an OpenAI-compatible
// chat-completions API.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/couchcryptid/weather-insights/internal/observability"
)

const (
	serviceName = "narrative"

	defaultBaseURL   = "https://api.openai.com"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 500

	completionsPath = "/v1/chat/completions"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

// systemPrompt frames the model as a weather analyst. The input data is
// already aggregated, so the model only has to write prose.
const systemPrompt = "You are a meteorologist writing a short plain-text summary of a weather analysis. " +
	"Describe the overall conditions, notable trends, anomalous days, and any weather-related risks. " +
	"Use only the figures provided. Answer in one paragraph without markup."

// Config holds the settings for the narrative client.
type Config struct {
	APIKey    string
	BaseURL   string        // defaults to the OpenAI endpoint
	Model     string        // defaults to gpt-4o-mini
	Timeout   time.Duration // per-request timeout
	MaxTokens int           // response token cap, defaults to 500
}

// Client calls a chat-completions endpoint to narrate a report. A circuit
// breaker sheds requests after repeated failures so a degraded service does
// not stall every report; callers fall back to the template narrative.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a narrative client.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    serviceName,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		metrics:    metrics,
		logger:     logger,
	}
}

// Narrate implements domain.Narrator. Transient failures are retried once;
// anything that still fails surfaces as an ExternalServiceError.
func (c *Client) Narrate(ctx context.Context, input domain.NarrativeInput) (string, error) {
	start := time.Now()
	text, err := c.narrateOnce(ctx, input)
	if err != nil && retryable(err) {
		c.logger.Debug("narrative request failed, retrying once", "error", err)
		text, err = c.narrateOnce(ctx, input)
	}
	c.metrics.NarrativeAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.NarrativeRequests.WithLabelValues(outcomeError).Inc()
		return "", &domain.ExternalServiceError{Service: serviceName, Err: err}
	}
	c.metrics.NarrativeRequests.WithLabelValues(outcomeSuccess).Inc()
	return text, nil
}

func (c *Client) narrateOnce(ctx context.Context, input domain.NarrativeInput) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, input)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) doRequest(ctx context.Context, input domain.NarrativeInput) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: promptFrom(input)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// promptFrom flattens the computed report sections into the user message.
func promptFrom(in domain.NarrativeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis window: %s to %s (%d days).\n",
		in.RangeStart.Format(domain.DateLayout), in.RangeEnd.Format(domain.DateLayout), in.Records)
	for _, s := range in.Stats {
		if domain.IsMissing(s.Mean) {
			continue
		}
		fmt.Fprintf(&b, "%s: mean %.1f, median %.1f, min %.1f, max %.1f.\n",
			s.Feature, s.Mean, s.Median, s.Min, s.Max)
	}
	for _, tr := range in.Trends {
		if tr.Direction == domain.TrendFlat {
			continue
		}
		fmt.Fprintf(&b, "%s trend: %s at %.3f per day.\n", tr.Feature, tr.Direction, tr.SlopePerDay)
	}
	fmt.Fprintf(&b, "Total precipitation %.1f mm over %d rainy days (%d heavy).\n",
		in.TotalPrecipitation, in.RainyDays, in.HeavyRainDays)
	fmt.Fprintf(&b, "Anomalous days flagged: %d of %d.\n", in.Anomalies.Flagged, in.Anomalies.Records)
	for _, a := range in.Anomalies.Top {
		fmt.Fprintf(&b, "Most unusual: %s (score %.2f).\n", a.Date.Format(domain.DateLayout), a.Score)
	}
	return b.String()
}

// statusError distinguishes HTTP status failures so only server-side errors
// are retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("narrative API error: status %d: %s", e.code, e.body)
}

// retryable reports whether a second attempt could plausibly succeed:
// transport errors and 5xx responses, but never client errors or an open
// breaker.
func retryable(err error) bool {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if se, ok := err.(*statusError); ok {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

// Chat-completions API types.

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}
