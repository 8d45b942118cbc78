package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamyarZeinalipour/Dialog-FA-UI/internal/models"

	"go.uber.org/zap"
)

// Client talks to an OpenAI-compatible chat-completions endpoint
type Client struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for OpenAI client
type Config struct {
	APIKey     string
	BaseURL    string // Default: "https://api.openai.com/v1"
	ModelName  string // Default: "chatgpt-4o-latest"
	MaxRetries int
	RetryDelay time.Duration
}

// chatRequest represents the request to the chat completions API
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	N           int           `json:"n,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents the response from the chat completions API
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates a new OpenAI client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "chatgpt-4o-latest"
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	logger.Info("OpenAI client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the OpenAI client
func (c *Client) Close() error {
	return nil
}

// Generate produces a candidate conversation for one record
func (c *Client) Generate(ctx context.Context, genReq models.GenerationRequest) (string, error) {
	prompt := BuildPrompt(genReq)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying OpenAI request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			time.Sleep(c.retryDelay)
		}

		reqBody := chatRequest{
			Model: c.modelName,
			Messages: []chatMessage{
				{
					Role:    "system",
					Content: SystemInstruction,
				},
				{
					Role:    "user",
					Content: prompt,
				},
			},
			Temperature: 0.7,
			MaxTokens:   1000,
			N:           1,
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			lastErr = fmt.Errorf("failed to marshal request: %w", err)
			continue
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("openai API error: %w", err)
			c.logger.Error("OpenAI API error", zap.Error(err), zap.Int("attempt", attempt+1))
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("openai API returned status %d: %s", resp.StatusCode, string(body))
			c.logger.Error("OpenAI API error",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
				zap.Int("attempt", attempt+1))
			continue
		}

		var chatResp chatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			lastErr = fmt.Errorf("failed to parse response: %w", err)
			c.logger.Error("Failed to parse JSON response",
				zap.Error(err),
				zap.String("body", string(body)),
				zap.Int("attempt", attempt+1))
			continue
		}

		if len(chatResp.Choices) == 0 {
			lastErr = fmt.Errorf("empty response from openai")
			c.logger.Error("Empty response from OpenAI", zap.Int("attempt", attempt+1))
			continue
		}

		content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
		if content == "" {
			lastErr = fmt.Errorf("blank candidate from openai")
			continue
		}

		c.logger.Debug("Successfully generated conversation with OpenAI",
			zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
			zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
			zap.Int("attempt", attempt+1))

		return content, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "openai",
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
