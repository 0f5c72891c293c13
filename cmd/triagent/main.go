package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mkerrigan/triagent/internal/assistant"
	"github.com/mkerrigan/triagent/internal/configuration"
	"github.com/mkerrigan/triagent/internal/logger"
	"github.com/mkerrigan/triagent/internal/report"
	"github.com/mkerrigan/triagent/internal/ui"
)

// buildProvider constructs the LLMProvider for a configured provider name.
func buildProvider(ctx context.Context, name string, cfg *configuration.Config) (assistant.LLMProvider, error) {
	switch strings.ToLower(name) {
	case "gemini":
		return assistant.NewGeminiProvider(ctx, cfg.LLM.GeminiKey, cfg.LLM.GeminiModel)
	case "groq":
		return assistant.NewGroqProvider(cfg.LLM.GroqKey, cfg.LLM.GroqModel), nil
	case "openrouter":
		return assistant.NewOpenRouterProvider(cfg.LLM.OpenRouterKey, cfg.LLM.OpenRouterModel), nil
	case "anthropic":
		return assistant.NewAnthropicProvider(cfg.LLM.AnthropicKey, cfg.LLM.AnthropicModel), nil
	case "openai":
		return assistant.NewOpenAIProvider(cfg.LLM.OpenAIKey, cfg.LLM.OpenAIModel), nil
	case "ollama":
		return assistant.NewOllamaProvider(cfg.LLM.OllamaHost, cfg.LLM.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: gemini, groq, openrouter, anthropic, openai, ollama)", name)
	}
}

// buildCascade wires every configured provider that has credentials, in
// priority order.
func buildCascade(ctx context.Context, cfg *configuration.Config) (*assistant.Cascade, error) {
	timeout := time.Duration(cfg.Agent.ProviderTimeoutSeconds) * time.Second
	var providers []assistant.ConfiguredProvider
	for _, name := range cfg.LLM.Providers {
		if !cfg.CredentialFor(name) {
			fmt.Fprintf(os.Stderr, "warning: skipping provider %s: no credential configured\n", name)
			continue
		}
		p, err := buildProvider(ctx, name, cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, assistant.ConfiguredProvider{
			Name:     name,
			Provider: p,
			Timeout:  timeout,
		})
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no usable providers: set GEMINI_API_KEY, GROQ_API_KEY, or OPENROUTER_API_KEY")
	}
	return assistant.NewCascade(providers...), nil
}

func printResult(res *assistant.TriageResult) {
	line := strings.Repeat("=", 70)
	fmt.Println("\n" + line)
	fmt.Println("TRIAGE RESULTS")
	fmt.Println(line + "\n")

	if details, ok := res.Payload["incident_details"].(map[string]any); ok {
		fmt.Println("INCIDENT CLASSIFICATION:")
		fmt.Printf("  Severity:   %v\n", details["severity"])
		fmt.Printf("  Type:       %v\n", details["incident_type"])
		fmt.Printf("  Affected:   %v\n", details["affected_systems"])
		fmt.Printf("  Confidence: %v\n\n", details["confidence"])
	}

	if plan, ok := res.Payload["mitigation_plan"].(map[string]any); ok {
		fmt.Println("RESPONSE PLAN:")
		fmt.Printf("  Target Response Time: %v\n", plan["target_response_time"])
		fmt.Printf("  Est. Resolution:      %v\n\n", plan["estimated_resolution_time"])

		printSteps := func(title string, key string) {
			var steps []string
			switch v := plan[key].(type) {
			case []string:
				steps = v
			case []any:
				for _, s := range v {
					steps = append(steps, fmt.Sprint(s))
				}
			default:
				return
			}
			fmt.Println(title + ":")
			for i, step := range steps {
				fmt.Printf("  %d. %s\n", i+1, step)
			}
			fmt.Println()
		}
		printSteps("IMMEDIATE ACTIONS", "immediate_actions")
		printSteps("INVESTIGATION STEPS", "investigation_steps")
		fmt.Printf("ESCALATION CRITERIA:\n  %v\n\n", plan["escalation_criteria"])
	}

	if res.FinalResponse != "" {
		fmt.Println("AGENT SUMMARY:")
		fmt.Printf("  %s\n\n", res.FinalResponse)
	}

	if res.State == assistant.StateFailed {
		fmt.Println("FAILURES:")
		for _, reason := range res.FailureReasons {
			fmt.Printf("  - %s\n", reason)
		}
		fmt.Println()
	}

	fmt.Println("EXECUTION METRICS:")
	fmt.Printf("  State:          %s\n", res.State)
	fmt.Printf("  Total Rounds:   %d\n", res.Rounds)
	fmt.Printf("  Function Calls: %d\n", len(res.ExecutionLog))
	if res.Report != nil {
		fmt.Printf("  Validation:     valid=%t", res.Report.Valid)
		if len(res.Report.Issues) > 0 {
			fmt.Printf(" (%s)", strings.Join(res.Report.Issues, "; "))
		}
		fmt.Println()
	}
	fmt.Println(line + "\n")
}

func runOnce(agent *assistant.Agent, store *report.Store, description, outPath string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res := agent.Triage(ctx, description)
	printResult(res)

	if outPath != "" {
		if err := store.SaveTo(outPath, res); err != nil {
			fmt.Fprintf(os.Stderr, "error: saving result: %v\n", err)
			return
		}
		fmt.Printf("Results saved to: %s\n", outPath)
	}
}

func runBatch(agent *assistant.Agent, store *report.Store, path string, save bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	n := 0
	for scanner.Scan() {
		description := strings.TrimSpace(scanner.Text())
		if description == "" {
			continue
		}
		n++
		fmt.Printf("--- Incident %d ---\n", n)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		res := agent.Triage(ctx, description)
		cancel()

		printResult(res)
		if save {
			path, err := store.Save(res)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: saving result: %v\n", err)
			} else {
				fmt.Printf("Results saved to: %s\n", path)
			}
		}
	}
	return scanner.Err()
}

func main() {
	incident := flag.String("incident", "", "triage a single incident description and exit")
	batchFile := flag.String("batch", "", "triage each line of the given file as an independent incident")
	outPath := flag.String("out", "", "write the full result record to this file (single incident mode)")
	save := flag.Bool("save", false, "persist result records to the results directory")
	flag.Parse()

	cfg, err := configuration.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	if cfg.Agent.Debug {
		logger.DebugMode = true
	}
	if logger.DebugMode {
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			fmt.Println("fatal: could not open debug.log:", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
		logger.Debug("Logger initialized")
	}

	ctx := context.Background()
	cascade, err := buildCascade(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Provider cascade: %s", strings.Join(cascade.Providers(), " -> "))

	registry, err := assistant.NewTriageRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building function registry: %v\n", err)
		os.Exit(1)
	}

	agent := assistant.NewAgent(cascade, registry, assistant.TriageSystemPrompt, cfg.Agent.MaxRounds)

	store, err := report.NewStore(cfg.Agent.ResultsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing result store: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *incident != "":
		runOnce(agent, store, *incident, *outPath)
	case *batchFile != "":
		if err := runBatch(agent, store, *batchFile, *save); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		p := tea.NewProgram(ui.NewModel(agent), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Printf("Error running triagent: %v\n", err)
			os.Exit(1)
		}
	}
}
