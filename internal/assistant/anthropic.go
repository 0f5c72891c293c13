package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements LLMProvider using the Anthropic API
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(apiKey string, model string) *AnthropicProvider {
	if model == "" {
		model = string(anthropic.ModelClaude3Dot5Sonnet20240620)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey, anthropic.WithHTTPClient(httpClient)),
		model:  model,
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, functions []FunctionSpec) (*Message, error) {
	var anthropicMessages []anthropic.Message
	var systemPrompt string

	// The system prompt rides on the request, not in the message list;
	// tool results become user messages with tool_result content blocks.
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			systemPrompt += msg.Content + "\n"
			continue
		}

		role := anthropic.RoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}

		var content []anthropic.MessageContent
		if msg.Content != "" && msg.Role != RoleTool {
			content = append(content, anthropic.NewTextMessageContent(msg.Content))
		}

		if len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.NewToolUseMessageContent(
					tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
			}
		}

		if msg.Role == RoleTool {
			content = []anthropic.MessageContent{
				anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, false),
			}
		}

		anthropicMessages = append(anthropicMessages, anthropic.Message{
			Role:    role,
			Content: content,
		})
	}

	var anthropicTools []anthropic.ToolDefinition
	for _, f := range functions {
		var params map[string]interface{}
		if err := json.Unmarshal(f.Parameters, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters schema for %s: %w", f.Name, err)
		}
		anthropicTools = append(anthropicTools, anthropic.ToolDefinition{
			Name:        f.Name,
			Description: f.Description,
			InputSchema: params,
		})
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		Messages:  anthropicMessages,
		Tools:     anthropicTools,
		MaxTokens: 4096,
		System:    systemPrompt,
	}

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion error: %w", err)
	}

	result := &Message{
		Role: RoleAssistant,
	}

	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText {
			result.Content += *content.Text
		} else if content.Type == anthropic.MessagesContentTypeToolUse {
			argsBytes, _ := json.Marshal(content.Input)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:   content.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      content.Name,
					Arguments: string(argsBytes),
				},
			})
		}
	}

	return result, nil
}
