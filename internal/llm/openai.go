package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

const defaultModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI-compatible provider. BaseURL points it at
// OpenRouter, Gemini's OpenAI endpoint or a local server.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	OrgID       string
	Model       string
	Temperature float64
	MaxTokens   int
	Retry       RetryConfig
}

// OpenAIProvider implements Provider with go-openai.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
	logger *observability.Logger
}

// NewOpenAIProvider creates a provider. An API key is required.
func NewOpenAIProvider(config OpenAIConfig, logger *observability.Logger) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Retry.MaxBackoff == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = observability.Nop()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger,
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends one chat completion request, retrying transient failures.
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Reply, error) {
	start := time.Now()

	messages, err := convertMessages(req)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: float32(p.config.Temperature),
		MaxTokens:   p.config.MaxTokens,
		Tools:       convertTools(req.Tools),
	}

	var resp openai.ChatCompletionResponse
	err = p.retryWithBackoff(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, chatReq)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	reply := &Reply{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	p.logger.WithContext(ctx).Debug().
		Str("model", resp.Model).
		Int("tool_calls", len(reply.ToolCalls)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("latency", time.Since(start)).
		Msg("Chat completion received")

	return reply, nil
}

func convertMessages(req *Request) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:       convertRole(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, err := encodeArguments(tc.Arguments)
			if err != nil {
				return nil, fmt.Errorf("encode arguments of %s: %w", tc.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		out = append(out, msg)
	}

	return out, nil
}

func convertRole(role string) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant, "model":
		return openai.ChatMessageRoleAssistant
	case RoleTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}

func convertTools(specs []ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}

	tools := make([]openai.Tool, len(specs))
	for i, s := range specs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}
	return tools
}

// encodeArguments returns arguments as the JSON text the API expects.
func encodeArguments(args interface{}) (string, error) {
	switch v := args.(type) {
	case nil:
		return "{}", nil
	case string:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
