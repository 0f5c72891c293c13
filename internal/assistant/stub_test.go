package assistant

import (
	"context"
	"fmt"
)

// scriptedProvider returns its scripted messages one per call.
type scriptedProvider struct {
	responses []*Message
	calls     int
	seen      [][]Message
}

func (p *scriptedProvider) Chat(_ context.Context, messages []Message, _ []FunctionSpec) (*Message, error) {
	p.seen = append(p.seen, append([]Message(nil), messages...))
	if p.calls >= len(p.responses) {
		return nil, fmt.Errorf("scripted provider exhausted after %d calls", p.calls)
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

// failingProvider always errors.
type failingProvider struct {
	reason string
	calls  int
}

func (p *failingProvider) Chat(context.Context, []Message, []FunctionSpec) (*Message, error) {
	p.calls++
	return nil, fmt.Errorf("%s", p.reason)
}

// blockingProvider never answers; it waits for the context to die.
type blockingProvider struct {
	calls int
}

func (p *blockingProvider) Chat(ctx context.Context, _ []Message, _ []FunctionSpec) (*Message, error) {
	p.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

// repeatingProvider proposes the same function call forever.
type repeatingProvider struct {
	call  ToolCall
	calls int
}

func (p *repeatingProvider) Chat(context.Context, []Message, []FunctionSpec) (*Message, error) {
	p.calls++
	return &Message{Role: RoleAssistant, ToolCalls: []ToolCall{p.call}}, nil
}

func callMsg(id, name, args string) *Message {
	return &Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{{
			ID:       id,
			Type:     "function",
			Function: FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func finalMsg(text string) *Message {
	return &Message{Role: RoleAssistant, Content: text}
}

func singleCascade(p LLMProvider) *Cascade {
	return NewCascade(ConfiguredProvider{Name: "stub", Provider: p})
}
