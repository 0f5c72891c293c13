package assistant

import (
	"fmt"
	"time"
)

// Report is the validator's verdict on a terminal payload. Issues are
// missing required fields; Warnings are advisory only. A failed validation
// never changes the loop's own state.
type Report struct {
	Valid     bool      `json:"valid"`
	Issues    []string  `json:"issues"`
	Warnings  []string  `json:"warnings"`
	Timestamp time.Time `json:"timestamp"`
}

var knownSeverities = map[string]bool{
	"critical": true,
	"high":     true,
	"medium":   true,
	"low":      true,
}

// Validate checks the result's terminal payload against the required-field
// contracts declared by the registry's function specs: every ResultKey must
// be present, and each stored payload must contain its spec's ResultFields.
// The final response is required as well.
func Validate(registry *Registry, result *TriageResult) *Report {
	report := &Report{
		Valid:     true,
		Issues:    []string{},
		Warnings:  []string{},
		Timestamp: time.Now().UTC(),
	}

	if result.FinalResponse == "" {
		report.Issues = append(report.Issues, "missing final_response")
	}

	for _, spec := range registry.Specs() {
		if spec.ResultKey == "" {
			continue
		}
		raw, ok := result.Payload[spec.ResultKey]
		if !ok {
			report.Issues = append(report.Issues, "missing "+spec.ResultKey)
			continue
		}
		payload, ok := raw.(map[string]any)
		if !ok {
			report.Issues = append(report.Issues, spec.ResultKey+" is not a structured payload")
			continue
		}
		for _, field := range spec.ResultFields {
			if _, ok := payload[field]; !ok {
				report.Issues = append(report.Issues, fmt.Sprintf("%s missing field: %s", spec.ResultKey, field))
			}
		}
		if sev, ok := payload["severity"].(string); ok && !knownSeverities[sev] {
			report.Warnings = append(report.Warnings, "unusual severity: "+sev)
		}
	}

	if len(result.ExecutionLog) == 0 {
		report.Warnings = append(report.Warnings, "empty execution log")
	} else if len(result.ExecutionLog) > 5 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("many function calls: %d", len(result.ExecutionLog)))
	}

	report.Valid = len(report.Issues) == 0
	return report
}
