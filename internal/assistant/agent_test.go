package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T, cascade *Cascade, maxRounds int) *Agent {
	t.Helper()
	registry, err := NewTriageRegistry()
	require.NoError(t, err)
	return NewAgent(cascade, registry, TriageSystemPrompt, maxRounds)
}

func TestTriage_HappyPath(t *testing.T) {
	provider := &scriptedProvider{responses: []*Message{
		callMsg("call-1", "extract_incident_details",
			`{"incident_description": "Production database is down. Connection timeout on port 5432."}`),
		callMsg("call-2", "get_standard_mitigation",
			`{"incident_type": "service_outage", "severity": "critical"}`),
		finalMsg("Critical service outage on the production database. Restart and escalate."),
	}}
	agent := newTestAgent(t, singleCascade(provider), 0)

	res := agent.Triage(context.Background(), "Production database is down. Connection timeout on port 5432.")

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 3, res.Rounds)
	require.Len(t, res.ExecutionLog, 2)
	assert.Equal(t, "extract_incident_details", res.ExecutionLog[0].Function)
	assert.Equal(t, "get_standard_mitigation", res.ExecutionLog[1].Function)
	assert.Equal(t, StatusSuccess, res.ExecutionLog[0].Status)
	assert.Equal(t, StatusSuccess, res.ExecutionLog[1].Status)
	assert.Equal(t, "stub", res.ExecutionLog[0].Provider)
	assert.Equal(t, 1, res.ExecutionLog[0].Round)
	assert.Equal(t, 2, res.ExecutionLog[1].Round)

	assert.Contains(t, res.Payload, "incident_details")
	assert.Contains(t, res.Payload, "mitigation_plan")
	assert.Equal(t, "Critical service outage on the production database. Restart and escalate.", res.FinalResponse)

	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Valid)
	assert.Empty(t, res.Report.Issues)
}

func TestTriage_ConversationInvariants(t *testing.T) {
	provider := &scriptedProvider{responses: []*Message{
		callMsg("call-1", "extract_incident_details", `{"incident_description": "API latency spike"}`),
		finalMsg("Performance degradation, monitor and scale."),
	}}
	agent := newTestAgent(t, singleCascade(provider), 0)

	res := agent.Triage(context.Background(), "API latency spike")

	require.NotEmpty(t, res.Conversation)
	assert.Equal(t, RoleSystem, res.Conversation[0].Role)
	assert.Equal(t, RoleUser, res.Conversation[1].Role)

	// Every tool-result message must immediately follow the assistant message
	// that proposed exactly that call.
	for i, msg := range res.Conversation {
		if msg.Role != RoleTool {
			continue
		}
		require.Greater(t, i, 0)
		prev := res.Conversation[i-1]
		require.Equal(t, RoleAssistant, prev.Role)
		require.Len(t, prev.ToolCalls, 1)
		assert.Equal(t, prev.ToolCalls[0].ID, msg.ToolCallID)
		assert.Equal(t, prev.ToolCalls[0].Function.Name, msg.Name)
	}

	// The provider must see the conversation replayed verbatim: each request
	// is a strict prefix of the next.
	require.Len(t, provider.seen, 2)
	first, second := provider.seen[0], provider.seen[1]
	require.Greater(t, len(second), len(first))
	for i := range first {
		assert.Equal(t, first[i].Role, second[i].Role)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func TestTriage_AllProvidersFail(t *testing.T) {
	p1 := &failingProvider{reason: "rate limited"}
	p2 := &failingProvider{reason: "invalid api key"}
	p3 := &failingProvider{reason: "connection refused"}
	cascade := NewCascade(
		ConfiguredProvider{Name: "gemini", Provider: p1},
		ConfiguredProvider{Name: "groq", Provider: p2},
		ConfiguredProvider{Name: "openrouter", Provider: p3},
	)
	agent := newTestAgent(t, cascade, 0)

	res := agent.Triage(context.Background(), "Disk full on build server")

	assert.Equal(t, StateFailed, res.State)
	require.Len(t, res.FailureReasons, 3)
	assert.Contains(t, res.FailureReasons[0], "gemini")
	assert.Contains(t, res.FailureReasons[0], "rate limited")
	assert.Contains(t, res.FailureReasons[1], "groq")
	assert.Contains(t, res.FailureReasons[2], "openrouter")
	assert.Empty(t, res.ExecutionLog)
	assert.Equal(t, 1, res.Rounds)

	require.NotNil(t, res.Report)
	assert.False(t, res.Report.Valid)
}

func TestTriage_RoundLimitExceeded(t *testing.T) {
	provider := &repeatingProvider{call: ToolCall{
		ID:       "loop",
		Type:     "function",
		Function: FunctionCall{Name: "extract_incident_details", Arguments: `{"incident_description": "still looking"}`},
	}}
	agent := newTestAgent(t, singleCascade(provider), 4)

	res := agent.Triage(context.Background(), "Something is wrong")

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 4, res.Rounds)
	assert.Equal(t, 4, provider.calls)
	require.Len(t, res.FailureReasons, 1)
	assert.Contains(t, res.FailureReasons[0], "round limit exceeded")

	// Partial progress is surfaced, not discarded.
	assert.Len(t, res.ExecutionLog, 4)
	assert.Contains(t, res.Payload, "incident_details")
	assert.NotEmpty(t, res.Conversation)
	assert.NotEmpty(t, res.FinalResponse)
}

func TestTriage_UnknownFunctionSelfCorrects(t *testing.T) {
	provider := &scriptedProvider{responses: []*Message{
		callMsg("call-1", "lookup_oncall_schedule", `{"team": "sre"}`),
		finalMsg("Could not look up the schedule; here is the triage."),
	}}
	agent := newTestAgent(t, singleCascade(provider), 0)

	res := agent.Triage(context.Background(), "Pager storm in us-east-1")

	// The unknown function consumes a round but does not fail the invocation.
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 2, res.Rounds)
	require.Len(t, res.ExecutionLog, 1)
	assert.Equal(t, StatusError, res.ExecutionLog[0].Status)

	var toolMsg *Message
	for i := range res.Conversation {
		if res.Conversation[i].Role == RoleTool {
			toolMsg = &res.Conversation[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Contains(t, toolMsg.Content, "unknown function")
}

func TestTriage_InvalidArgumentsReported(t *testing.T) {
	provider := &scriptedProvider{responses: []*Message{
		callMsg("call-1", "extract_incident_details", `{"incident_description": 42}`),
		finalMsg("Done."),
	}}
	agent := newTestAgent(t, singleCascade(provider), 0)

	res := agent.Triage(context.Background(), "Web tier slow")

	assert.Equal(t, StateCompleted, res.State)
	require.Len(t, res.ExecutionLog, 1)
	assert.Equal(t, StatusError, res.ExecutionLog[0].Status)
	assert.NotContains(t, res.Payload, "incident_details")
}

func TestTriage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{responses: []*Message{finalMsg("never reached")}}
	agent := newTestAgent(t, singleCascade(provider), 0)

	res := agent.Triage(ctx, "whatever")

	assert.Equal(t, StateFailed, res.State)
	require.NotEmpty(t, res.FailureReasons)
	assert.True(t, strings.Contains(res.FailureReasons[0], "cancelled"))
	assert.Zero(t, provider.calls)
}
