package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// toGenaiSchema converts a JSON Schema document into the genai.Schema the SDK
// requires. Only the subset our function specs use is mapped: object, string,
// number, integer, boolean, array, enum, required.
func toGenaiSchema(raw json.RawMessage) (*genai.Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return mapSchema(doc), nil
}

func mapSchema(doc map[string]any) *genai.Schema {
	s := &genai.Schema{}
	switch doc["type"] {
	case "object":
		s.Type = genai.TypeObject
		if props, ok := doc["properties"].(map[string]any); ok {
			s.Properties = make(map[string]*genai.Schema, len(props))
			for name, p := range props {
				if pm, ok := p.(map[string]any); ok {
					s.Properties[name] = mapSchema(pm)
				}
			}
		}
		if req, ok := doc["required"].([]any); ok {
			for _, r := range req {
				if name, ok := r.(string); ok {
					s.Required = append(s.Required, name)
				}
			}
		}
	case "array":
		s.Type = genai.TypeArray
		if items, ok := doc["items"].(map[string]any); ok {
			s.Items = mapSchema(items)
		}
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		s.Type = genai.TypeString
	}
	if desc, ok := doc["description"].(string); ok {
		s.Description = desc
	}
	if enum, ok := doc["enum"].([]any); ok {
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}
	return s
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, functions []FunctionSpec) (*Message, error) {
	model := p.client.GenerativeModel(p.model)

	// Convert function specs
	if len(functions) > 0 {
		var funcDecls []*genai.FunctionDeclaration
		for _, f := range functions {
			params, err := toGenaiSchema(f.Parameters)
			if err != nil {
				return nil, fmt.Errorf("converting schema for %s: %w", f.Name, err)
			}
			funcDecls = append(funcDecls, &genai.FunctionDeclaration{
				Name:        f.Name,
				Description: f.Description,
				Parameters:  params,
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: funcDecls}}
	}

	cs := model.StartChat()

	// Replay history. Gemini takes the system prompt on the model, not in the
	// chat history; tool results travel as function-role parts.
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}

		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		} else if msg.Role == RoleTool {
			role = "function"
		}

		var parts []genai.Part
		if msg.Content != "" && msg.Role != RoleTool {
			parts = append(parts, genai.Text(msg.Content))
		}

		if len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				var args map[string]interface{}
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				parts = append(parts, genai.FunctionCall{
					Name: tc.Function.Name,
					Args: args,
				})
			}
		}

		if msg.Role == RoleTool {
			var response map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]interface{}{"result": msg.Content}
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     msg.Name,
				Response: response,
			})
		}

		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: parts,
		})
	}

	// The chat session sends the last message itself, so pop it off the
	// replayed history and submit its parts.
	if len(cs.History) == 0 {
		return nil, fmt.Errorf("empty conversation")
	}
	lastMsg := cs.History[len(cs.History)-1]
	if lastMsg.Role == "model" {
		return nil, fmt.Errorf("last message was not from user")
	}
	cs.History = cs.History[:len(cs.History)-1]
	resp, err := cs.SendMessage(ctx, lastMsg.Parts...)
	if err != nil {
		return nil, err
	}
	return p.parseResponse(resp)
}

func (p *GeminiProvider) parseResponse(resp *genai.GenerateContentResponse) (*Message, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return nil, fmt.Errorf("candidate has no content")
	}

	result := &Message{
		Role: RoleAssistant,
	}

	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			result.Content += string(txt)
		} else if fc, ok := part.(genai.FunctionCall); ok {
			argsBytes, _ := json.Marshal(fc.Args)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:   "", // Gemini does not assign call IDs; the cascade synthesizes one
				Type: "function",
				Function: FunctionCall{
					Name:      fc.Name,
					Arguments: string(argsBytes),
				},
			})
		}
	}

	return result, nil
}
