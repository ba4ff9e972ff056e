// Package ai wraps the model-completion endpoint with bounded retries,
// timeouts and streaming.
package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	aierrors "github.com/hrygo/tempo/internal/errors"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// ModelConfig holds per-request sampling parameters.
type ModelConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// JSONMode forces the model to emit a single JSON object.
	JSONMode bool
}

// Usage reports token counts for one model invocation.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a synchronous model call.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// StreamChunk is one element of a streaming completion. The terminal chunk
// has Final set and carries the accumulated usage.
type StreamChunk struct {
	Delta string
	Final bool
	Usage Usage
}

// Config holds the completion client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	DefaultModel   string
	MaxRetries     int
	RequestTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.openai.com/v1",
		DefaultModel:   "gpt-4o-mini",
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
	}
}

// Client invokes the language model with bounded retries and backoff.
// Retries are private to the client: one logical request yields at most one
// successful completion visible to the caller.
type Client struct {
	api    *openai.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a completion client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: slog.Default(),
	}
}

// Complete performs a synchronous chat completion. Transient failures
// (timeouts, rate limiting, 5xx) are retried with exponential backoff up to
// the retry ceiling; auth and invalid-request failures surface immediately.
// An empty assistant reply is an explicit error, never an empty success.
func (c *Client) Complete(ctx context.Context, messages []Message, cfg ModelConfig) (*Completion, error) {
	req := c.buildRequest(messages, cfg)

	var result *Completion
	err := c.doWithRetry(ctx, func(attemptCtx context.Context) error {
		resp, err := c.api.CreateChatCompletion(attemptCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return aierrors.EmptyCompletion()
		}
		result = &Completion{
			Content: resp.Choices[0].Message.Content,
			Model:   resp.Model,
			Usage: Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stream performs a streaming chat completion. Each call creates a fresh,
// finite, non-restartable stream; canceling ctx closes the underlying
// transport and no further chunks are delivered. The terminal chunk carries
// the usage for the whole call.
func (c *Client) Stream(ctx context.Context, messages []Message, cfg ModelConfig) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errs := make(chan error, 1)

	req := c.buildRequest(messages, cfg)
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	go func() {
		defer close(chunks)
		defer close(errs)

		var stream *openai.ChatCompletionStream
		var streamCancel context.CancelFunc
		err := c.doWithRetry(ctx, func(attemptCtx context.Context) error {
			// Establishing the connection is bounded by the attempt
			// timeout; the established stream must outlive it, so it
			// runs on its own child of the parent context.
			connCtx, cancel := context.WithCancel(ctx)
			type connResult struct {
				stream *openai.ChatCompletionStream
				err    error
			}
			done := make(chan connResult, 1)
			go func() {
				s, err := c.api.CreateChatCompletionStream(connCtx, req)
				done <- connResult{s, err}
			}()
			select {
			case r := <-done:
				if r.err != nil {
					cancel()
					return r.err
				}
				stream = r.stream
				streamCancel = cancel
				return nil
			case <-attemptCtx.Done():
				cancel()
				if r := <-done; r.err == nil {
					r.stream.Close()
				}
				return attemptCtx.Err()
			}
		})
		if err != nil {
			errs <- err
			return
		}
		defer streamCancel()
		defer stream.Close()

		var usage Usage
		sawContent := false
		for {
			resp, err := stream.Recv()
			if err != nil {
				if isStreamDone(err) {
					break
				}
				if ctx.Err() != nil {
					errs <- aierrors.ContextCanceled(ctx.Err())
					return
				}
				errs <- aierrors.TransientModel("stream interrupted", err)
				return
			}

			if resp.Usage != nil {
				usage = Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			sawContent = true
			select {
			case chunks <- StreamChunk{Delta: delta}:
			case <-ctx.Done():
				errs <- aierrors.ContextCanceled(ctx.Err())
				return
			}
		}

		if !sawContent {
			errs <- aierrors.EmptyCompletion()
			return
		}
		select {
		case chunks <- StreamChunk{Final: true, Usage: usage}:
		case <-ctx.Done():
			errs <- aierrors.ContextCanceled(ctx.Err())
		}
	}()

	return chunks, errs
}

func (c *Client) buildRequest(messages []Message, cfg ModelConfig) openai.ChatCompletionRequest {
	model := cfg.Model
	if model == "" {
		model = c.config.DefaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

// doWithRetry executes fn with exponential backoff. Each attempt gets its
// own timeout; exceeding it counts as a transient failure. Non-transient
// failures and parent-context cancellation stop the loop immediately.
func (c *Client) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return aierrors.ContextCanceled(ctx.Err())
		}
		if aierrors.IsCode(err, aierrors.ErrCodeEmptyCompletion) {
			return err
		}
		if !IsTransient(err) {
			return aierrors.ModelAuthOrRequest("model request rejected", err)
		}

		lastErr = err
		if attempt < c.config.MaxRetries-1 {
			wait := backoffDelay(attempt)
			c.logger.Debug("model request failed, retrying",
				"attempt", attempt+1,
				"wait", wait,
				"error", err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return aierrors.ContextCanceled(ctx.Err())
			}
		}
	}
	return aierrors.TransientModel("model request failed after retries", lastErr)
}

func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func isStreamDone(err error) bool {
	return errors.Is(err, io.EOF)
}

// Helpers for assembling prompts.

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: openai.ChatMessageRoleAssistant, Content: content}
}
