package conversation

import (
	"context"

	"github.com/healthcareplus/clinic-assistant/internal/observability/metrics"
	"github.com/healthcareplus/clinic-assistant/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with a fallback provider.
// If the primary fails, it retries once with the fallback.
type FallbackLLMClient struct {
	primary      LLMClient
	fallback     LLMClient
	primaryName  string
	fallbackName string
	logger       *logging.Logger
	metrics      *metrics.ConversationMetrics
}

// NewFallbackLLMClient creates a fallback-enabled LLM client. fallback may be
// nil, in which case only the primary is used.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger, m *metrics.ConversationMetrics) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:      primary,
		fallback:     fallback,
		primaryName:  "gemini",
		fallbackName: "openai",
		logger:       logger.Named("llm_fallback"),
		metrics:      m,
	}
}

// Complete tries the primary provider, then the fallback.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	c.metrics.ObserveLLMFailure(c.primaryName)
	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.metrics.ObserveLLMFailure(c.fallbackName)
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}
