package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkerrigan/triagent/internal/logger"
)

// DefaultProviderTimeout bounds a single provider attempt so one unresponsive
// backend cannot stall the fallback cascade.
const DefaultProviderTimeout = 60 * time.Second

// ConfiguredProvider pairs an LLMProvider with its priority-ordered identity.
type ConfiguredProvider struct {
	Name     string
	Provider LLMProvider
	Timeout  time.Duration
}

// ProviderFailure records why one provider attempt failed.
type ProviderFailure struct {
	Provider string
	Err      error
}

func (f ProviderFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Provider, f.Err)
}

// CascadeError is returned when every configured provider failed. Failures
// are ordered by provider priority, one entry per provider tried.
type CascadeError struct {
	Failures []ProviderFailure
}

func (e *CascadeError) Error() string {
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = f.String()
	}
	return "all providers failed: " + strings.Join(reasons, "; ")
}

// Reasons returns the per-provider failure reasons in priority order.
func (e *CascadeError) Reasons() []string {
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = f.String()
	}
	return reasons
}

// Cascade tries providers in priority order until one produces a usable
// response. There is no retry within a single provider; moving on to the next
// provider is the sole resilience mechanism, bounded to one pass per call.
type Cascade struct {
	providers []ConfiguredProvider
}

// NewCascade creates a cascade over the given providers. Order is priority.
func NewCascade(providers ...ConfiguredProvider) *Cascade {
	return &Cascade{providers: providers}
}

// Providers returns the configured provider names in priority order.
func (c *Cascade) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name
	}
	return names
}

// Propose sends the conversation to the first provider that answers. It
// returns the provider's message with tool calls truncated to the first
// proposal, and the name of the provider that served it. If every provider
// fails, the error is a *CascadeError carrying all per-provider reasons.
// Cancellation of ctx aborts the cascade instead of cascading onward.
func (c *Cascade) Propose(ctx context.Context, messages []Message, functions []FunctionSpec) (*Message, string, error) {
	if len(c.providers) == 0 {
		return nil, "", fmt.Errorf("no providers configured")
	}

	var failures []ProviderFailure
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		timeout := p.Timeout
		if timeout <= 0 {
			timeout = DefaultProviderTimeout
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := p.Provider.Chat(attemptCtx, messages, functions)
		cancel()

		if err == nil && resp == nil {
			err = fmt.Errorf("provider returned empty response")
		}
		if err == nil && resp.Content == "" && len(resp.ToolCalls) == 0 {
			err = fmt.Errorf("provider returned neither answer nor function call")
		}
		if err != nil {
			// A dead parent context is the caller's abort, not this provider's fault.
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			logger.Info("Provider %s failed: %v", p.Name, err)
			failures = append(failures, ProviderFailure{Provider: p.Name, Err: err})
			continue
		}

		// One call per round: providers that propose several simultaneous
		// calls are reduced to their first proposal.
		if len(resp.ToolCalls) > 1 {
			logger.Debug("Provider %s proposed %d calls, keeping the first", p.Name, len(resp.ToolCalls))
			resp.ToolCalls = resp.ToolCalls[:1]
		}
		if len(resp.ToolCalls) == 1 && resp.ToolCalls[0].ID == "" {
			resp.ToolCalls[0].ID = uuid.NewString()
		}

		return resp, p.Name, nil
	}

	return nil, "", &CascadeError{Failures: failures}
}
