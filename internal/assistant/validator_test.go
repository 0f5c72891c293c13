package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDetails() map[string]any {
	return map[string]any{
		"severity":         "critical",
		"incident_type":    "service_outage",
		"affected_systems": []any{"production"},
	}
}

func fullPlan() map[string]any {
	return map[string]any{
		"immediate_actions":   []any{"restart"},
		"investigation_steps": []any{"check logs"},
		"escalation_criteria": "15 minutes",
	}
}

func validationRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewTriageRegistry()
	require.NoError(t, err)
	return r
}

func completedResult(payload map[string]any, logLen int) *TriageResult {
	res := &TriageResult{
		State:         StateCompleted,
		Payload:       payload,
		FinalResponse: "summary",
		Timestamp:     time.Now().UTC(),
	}
	for i := 0; i < logLen; i++ {
		res.ExecutionLog = append(res.ExecutionLog, ExecutionEntry{Round: i + 1, Status: StatusSuccess})
	}
	return res
}

func TestValidate_CompletePayload(t *testing.T) {
	r := validationRegistry(t)
	res := completedResult(map[string]any{
		"incident_details": fullDetails(),
		"mitigation_plan":  fullPlan(),
	}, 2)

	report := Validate(r, res)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
}

func TestValidate_MissingMitigationPlan(t *testing.T) {
	r := validationRegistry(t)
	res := completedResult(map[string]any{"incident_details": fullDetails()}, 1)

	report := Validate(r, res)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "missing mitigation_plan", report.Issues[0])

	// A validation failure never retroactively fails the loop.
	assert.Equal(t, StateCompleted, res.State)
}

func TestValidate_MissingNestedField(t *testing.T) {
	r := validationRegistry(t)
	plan := fullPlan()
	delete(plan, "escalation_criteria")
	res := completedResult(map[string]any{
		"incident_details": fullDetails(),
		"mitigation_plan":  plan,
	}, 2)

	report := Validate(r, res)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "mitigation_plan missing field: escalation_criteria", report.Issues[0])
}

func TestValidate_MissingFinalResponse(t *testing.T) {
	r := validationRegistry(t)
	res := completedResult(map[string]any{
		"incident_details": fullDetails(),
		"mitigation_plan":  fullPlan(),
	}, 2)
	res.FinalResponse = ""

	report := Validate(r, res)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Issues, "missing final_response")
}

func TestValidate_Warnings(t *testing.T) {
	r := validationRegistry(t)

	details := fullDetails()
	details["severity"] = "catastrophic"
	res := completedResult(map[string]any{
		"incident_details": details,
		"mitigation_plan":  fullPlan(),
	}, 0)

	report := Validate(r, res)
	assert.True(t, report.Valid)
	assert.Contains(t, report.Warnings, "unusual severity: catastrophic")
	assert.Contains(t, report.Warnings, "empty execution log")

	res = completedResult(map[string]any{
		"incident_details": fullDetails(),
		"mitigation_plan":  fullPlan(),
	}, 6)
	report = Validate(r, res)
	assert.Contains(t, report.Warnings, "many function calls: 6")
}

func TestValidate_IssuesAreOrdered(t *testing.T) {
	r := validationRegistry(t)
	res := completedResult(map[string]any{}, 1)
	res.FinalResponse = ""

	report := Validate(r, res)
	require.Len(t, report.Issues, 3)
	assert.Equal(t, "missing final_response", report.Issues[0])
	assert.Equal(t, "missing incident_details", report.Issues[1])
	assert.Equal(t, "missing mitigation_plan", report.Issues[2])
}
