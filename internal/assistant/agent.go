package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkerrigan/triagent/internal/logger"
)

// DefaultMaxRounds bounds the propose/execute/append cycle per invocation.
const DefaultMaxRounds = 10

// State of one triage invocation.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ExecutionEntry records one executed function call, for observability only.
type ExecutionEntry struct {
	Round     int             `json:"round"`
	Provider  string          `json:"provider"`
	Function  string          `json:"function"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// TriageResult is the structured record handed back to the caller. It is
// always produced, including for failed invocations: the partial conversation,
// payload, and execution log are surfaced rather than discarded.
type TriageResult struct {
	Description    string           `json:"incident_description"`
	State          State            `json:"state"`
	Payload        map[string]any   `json:"payload"`
	FinalResponse  string           `json:"final_response"`
	FailureReasons []string         `json:"failure_reasons,omitempty"`
	ExecutionLog   []ExecutionEntry `json:"execution_log"`
	Conversation   []Message        `json:"conversation"`
	Rounds         int              `json:"total_rounds"`
	Timestamp      time.Time        `json:"timestamp"`
	Report         *Report          `json:"validation"`
}

// StatusUpdate represents a real-time update from the agent
type StatusUpdate struct {
	Message string
}

// Agent drives the triage loop: it owns the per-invocation conversation,
// asks the cascade for exactly one proposal per round, executes proposed
// function calls against the registry, and folds results back in until a
// final answer arrives or the round budget runs out.
type Agent struct {
	cascade   *Cascade
	registry  *Registry
	system    string
	maxRounds int
	updates   chan StatusUpdate // Channel for sending updates to UI
}

// NewAgent creates a new agent instance
func NewAgent(cascade *Cascade, registry *Registry, systemPrompt string, maxRounds int) *Agent {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Agent{
		cascade:   cascade,
		registry:  registry,
		system:    systemPrompt,
		maxRounds: maxRounds,
		updates:   make(chan StatusUpdate, 10), // Buffered channel
	}
}

// MaxRounds returns the configured round budget.
func (a *Agent) MaxRounds() int {
	return a.maxRounds
}

// Updates returns the channel for status updates
func (a *Agent) Updates() <-chan StatusUpdate {
	return a.updates
}

// sendUpdate sends a status update non-blocking
func (a *Agent) sendUpdate(msg string) {
	select {
	case a.updates <- StatusUpdate{Message: msg}:
	default:
		// Drop if channel full or no listener
	}
}

// Triage runs the bounded loop for one incident description. The conversation
// is local to the call, so independent invocations may run concurrently on
// the same Agent. The returned result is never nil; transient provider
// failures are absorbed by the cascade and only total exhaustion or round
// exhaustion end in StateFailed. Cancellation is honored at round boundaries
// and passed through to in-flight provider calls.
func (a *Agent) Triage(ctx context.Context, description string) *TriageResult {
	logger.Info("Starting triage: %.100s", description)
	a.sendUpdate("Analysing incident...")

	result := &TriageResult{
		Description: description,
		State:       StateRunning,
		Payload:     make(map[string]any),
		Timestamp:   time.Now().UTC(),
	}

	// The first message is always the system message; the conversation is
	// append-only from here on.
	messages := []Message{
		{Role: RoleSystem, Content: a.system},
		{Role: RoleUser, Content: "Please triage this incident:\n\n" + description},
	}
	specs := a.registry.Specs()
	resultKeys := make(map[string]string, len(specs))
	for _, s := range specs {
		resultKeys[s.Name] = s.ResultKey
	}

	for round := 1; round <= a.maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			result.State = StateFailed
			result.FailureReasons = append(result.FailureReasons, fmt.Sprintf("cancelled: %v", err))
			break
		}
		result.Rounds = round
		logger.Debug("Triage round %d/%d", round, a.maxRounds)
		a.sendUpdate(fmt.Sprintf("Thinking (round %d)...", round))

		resp, provider, err := a.cascade.Propose(ctx, messages, specs)
		if err != nil {
			result.State = StateFailed
			if ce, ok := err.(*CascadeError); ok {
				result.FailureReasons = ce.Reasons()
			} else {
				result.FailureReasons = append(result.FailureReasons, err.Error())
			}
			a.sendUpdate("All providers failed")
			break
		}

		messages = append(messages, *resp)

		// No function call means the provider produced the final answer.
		if len(resp.ToolCalls) == 0 {
			logger.Info("Final response received from %s after %d round(s)", provider, round)
			result.FinalResponse = resp.Content
			result.State = StateCompleted
			a.sendUpdate("Done")
			break
		}

		tc := resp.ToolCalls[0]
		logger.Info("Function call requested: %s(%s)", tc.Function.Name, tc.Function.Arguments)
		a.sendUpdate("Running " + tc.Function.Name + "...")

		fr := a.registry.Execute(tc.Function.Name, json.RawMessage(tc.Function.Arguments))
		if fr.Status == StatusError {
			// Reported back to the provider so it can self-correct next
			// round; this consumes one round of the budget.
			logger.Info("Function %s errored: %s", tc.Function.Name, fr.Error)
			a.sendUpdate("Error in " + tc.Function.Name)
		} else if key := resultKeys[tc.Function.Name]; key != "" {
			result.Payload[key] = fr.Payload
		}

		body, err := json.Marshal(fr)
		if err != nil {
			body = []byte(fmt.Sprintf(`{"status":"error","error":%q}`, err.Error()))
		}
		messages = append(messages, Message{
			Role:       RoleTool,
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
			Content:    string(body),
		})

		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			// Keep malformed argument text loggable without poisoning the
			// JSON encoding of the whole result.
			args, _ = json.Marshal(tc.Function.Arguments)
		}
		result.ExecutionLog = append(result.ExecutionLog, ExecutionEntry{
			Round:     round,
			Provider:  provider,
			Function:  tc.Function.Name,
			Arguments: args,
			Status:    fr.Status,
			Timestamp: time.Now().UTC(),
		})
	}

	if result.State == StateRunning {
		logger.Info("Round limit reached")
		result.State = StateFailed
		result.FailureReasons = append(result.FailureReasons,
			fmt.Sprintf("round limit exceeded: no final answer after %d rounds", a.maxRounds))
		result.FinalResponse = "Incident analysis incomplete. Maximum rounds reached."
		a.sendUpdate("Round limit reached")
	}

	result.Conversation = messages
	result.Report = Validate(a.registry, result)
	return result
}
