package assistant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI-compatible chat completion endpoints.
const (
	groqBaseURL       = "https://api.groq.com/openai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIProvider implements LLMProvider for any OpenAI-wire backend
// (OpenAI itself, Groq, OpenRouter, local Ollama).
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func newOpenAICompatClient(apiKey, baseURL string) *openai.Client {
	// HTTP client with proper timeouts; the per-attempt deadline comes from
	// the cascade's context.
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = httpClient
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}

// NewOpenAIProvider creates a provider for the OpenAI API
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT5Mini
	}
	return &OpenAIProvider{
		client: newOpenAICompatClient(apiKey, ""),
		model:  model,
	}
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible API
func NewGroqProvider(apiKey string, model string) *OpenAIProvider {
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}
	return &OpenAIProvider{
		client: newOpenAICompatClient(apiKey, groqBaseURL),
		model:  model,
	}
}

// NewOpenRouterProvider creates a provider for OpenRouter's OpenAI-compatible API
func NewOpenRouterProvider(apiKey string, model string) *OpenAIProvider {
	if model == "" {
		model = "mistralai/mistral-7b-instruct:free"
	}
	return &OpenAIProvider{
		client: newOpenAICompatClient(apiKey, openRouterBaseURL),
		model:  model,
	}
}

// NewOllamaProvider creates a provider for a local Ollama server
func NewOllamaProvider(host string, model string) *OpenAIProvider {
	if host == "" {
		host = "http://localhost:11434/v1"
	}
	if model == "" {
		model = "llama3"
	}
	// API key is ignored by Ollama
	return &OpenAIProvider{
		client: newOpenAICompatClient("ollama", host),
		model:  model,
	}
}

// Chat sends messages to the LLM and returns the response
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, functions []FunctionSpec) (*Message, error) {
	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleTool:
			role = openai.ChatMessageRoleTool
		}

		var toolCalls []openai.ToolCall
		if len(msg.ToolCalls) > 0 {
			toolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				toolCalls[j] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolType(tc.Type),
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
		}

		// Tool messages must not have null content on the OpenAI wire.
		content := msg.Content
		if role == openai.ChatMessageRoleTool && content == "" {
			content = "{}"
		}

		apiMessages[i] = openai.ChatCompletionMessage{
			Role:       role,
			Content:    content,
			Name:       msg.Name,
			ToolCalls:  toolCalls,
			ToolCallID: msg.ToolCallID,
		}
	}

	var apiTools []openai.Tool
	if len(functions) > 0 {
		apiTools = make([]openai.Tool, len(functions))
		for i, f := range functions {
			apiTools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        f.Name,
					Description: f.Description,
					Parameters:  f.Parameters,
				},
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: apiMessages,
		Tools:    apiTools,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	result := &Message{
		Role:    RoleAssistant,
		Content: msg.Content,
	}
	if len(msg.ToolCalls) > 0 {
		result.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			result.ToolCalls[i] = ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	return result, nil
}
