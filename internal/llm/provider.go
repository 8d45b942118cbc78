package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"

	"go.uber.org/zap"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type       ProviderType  `yaml:"type"`
	APIKey     string        `yaml:"api_key"`
	ModelName  string        `yaml:"model_name"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider interface for any conversation-generation backend
type Provider interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// RateLimitedProvider wraps a provider with rate limiting
type RateLimitedProvider struct {
	provider Provider
	limiter  *RateLimiter
	logger   *zap.Logger
}

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	mu              sync.Mutex
	tokens          int
	maxTokens       int
	refillRate      time.Duration
	lastRefill      time.Time
	requestsThisMin int
	minuteResetTime time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		tokens:          requestsPerMinute,
		maxTokens:       requestsPerMinute,
		refillRate:      time.Minute / time.Duration(requestsPerMinute),
		lastRefill:      time.Now(),
		minuteResetTime: time.Now().Add(time.Minute),
	}
}

// Wait blocks until a token is available
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Reset counter every minute
	now := time.Now()
	if now.After(rl.minuteResetTime) {
		rl.requestsThisMin = 0
		rl.minuteResetTime = now.Add(time.Minute)
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
	}

	// Refill tokens based on time passed
	elapsed := now.Sub(rl.lastRefill)
	tokensToAdd := int(elapsed / rl.refillRate)
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	// If no tokens available, wait
	if rl.tokens <= 0 {
		waitTime := rl.refillRate
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
			rl.mu.Lock()
			rl.tokens = 1
			rl.lastRefill = time.Now()
		case <-ctx.Done():
			rl.mu.Lock()
			return ctx.Err()
		}
	}

	// Consume a token
	rl.tokens--
	rl.requestsThisMin++

	return nil
}

// NewRateLimitedProvider wraps a provider with rate limiting
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewRateLimiter(requestsPerMinute),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	// Wait for rate limit
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	return p.provider.Generate(ctx, req)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	return p.provider.GetModelInfo()
}
