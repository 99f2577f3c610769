package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"

	"google.golang.org/genai"
)

// AIClient wraps the Gemini client with the fixed model pair used for
// itinerary drafting. The fallback model is tried exactly once when the
// primary model rejects the request for plan/tier reasons.
type AIClient struct {
	client        *genai.Client
	model         string
	fallbackModel string
	logger        *slog.Logger
}

func NewAIClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &AIClient{
		client:        client,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		logger:        logger,
	}, nil
}

// GenerateContent sends the prompt to the primary model and returns the raw
// completion text. A plan-restriction rejection triggers one transparent retry
// against the fallback model; every other error surfaces to the caller.
func (ai *AIClient) GenerateContent(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	start := time.Now()
	txt, err := ai.generate(ctx, ai.model, prompt, cfg)
	if err != nil || isPlanRestricted(txt) {
		if !planRestrictionErr(err) && !isPlanRestricted(txt) {
			return "", err
		}
		ai.logger.WarnContext(ctx, "Primary model rejected request, retrying with fallback",
			slog.String("model", ai.model),
			slog.String("fallback_model", ai.fallbackModel),
		)
		txt, err = ai.generate(ctx, ai.fallbackModel, prompt, cfg)
		if err != nil {
			return "", fmt.Errorf("fallback model %s failed: %w", ai.fallbackModel, err)
		}
	}
	metrics.Get().LLMRequestSeconds.Record(ctx, time.Since(start).Seconds())
	return txt, nil
}

func (ai *AIClient) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	result, err := ai.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content with %s: %w", model, err)
	}
	txt := result.Text()
	if txt == "" {
		return "", fmt.Errorf("empty completion from model %s", model)
	}
	return txt, nil
}

// planRestrictionErr reports whether an upstream error indicates the model is
// outside the account's plan rather than a transient or input failure.
func planRestrictionErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not part of") ||
		strings.Contains(msg, "not available for your plan") ||
		strings.Contains(msg, "tier")
}

// Some endpoints report the restriction inside an otherwise successful
// completion body instead of an error status.
func isPlanRestricted(txt string) bool {
	return strings.Contains(txt, "is currently not part of")
}
