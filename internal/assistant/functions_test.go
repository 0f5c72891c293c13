package assistant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, description string) map[string]any {
	t.Helper()
	args, err := json.Marshal(map[string]string{"incident_description": description})
	require.NoError(t, err)
	payload, err := (&ExtractIncidentDetails{}).Call(args)
	require.NoError(t, err)
	return payload
}

func TestExtractIncidentDetails_Outage(t *testing.T) {
	payload := extract(t, "Production database is down. Connection timeout on port 5432.")
	assert.Equal(t, "critical", payload["severity"])
	assert.Equal(t, "service_outage", payload["incident_type"])
	assert.Equal(t, "high", payload["confidence"])
	assert.Contains(t, payload["affected_systems"], "production")
}

func TestExtractIncidentDetails_SecurityBreach(t *testing.T) {
	payload := extract(t, "Unauthorized access detected on the auth service, possible breach")
	assert.Equal(t, "critical", payload["severity"])
	assert.Equal(t, "security_breach", payload["incident_type"])
}

func TestExtractIncidentDetails_Degradation(t *testing.T) {
	payload := extract(t, "Checkout is slow for some users, high latency on the payments api")
	assert.Equal(t, "high", payload["severity"])
	assert.Equal(t, "performance_degradation", payload["incident_type"])
}

func TestExtractIncidentDetails_UnknownDefaults(t *testing.T) {
	payload := extract(t, "Something odd happened")
	assert.Equal(t, "medium", payload["severity"])
	assert.Equal(t, "unknown", payload["incident_type"])
	assert.Equal(t, "low", payload["confidence"])
	assert.Equal(t, []string{"system_unknown"}, payload["affected_systems"])
}

func TestExtractIncidentDetails_LowSeverity(t *testing.T) {
	payload := extract(t, "Minor cosmetic glitch in the footer")
	assert.Equal(t, "low", payload["severity"])
}

func TestExtractIncidentDetails_SummaryTruncated(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	payload := extract(t, string(long))
	assert.Len(t, payload["description_summary"], 200)
}

func TestGetStandardMitigation_Playbook(t *testing.T) {
	args := json.RawMessage(`{"incident_type": "service_outage", "severity": "critical", "affected_systems": ["production"]}`)
	payload, err := (&GetStandardMitigation{}).Call(args)
	require.NoError(t, err)

	assert.Equal(t, "5 minutes", payload["target_response_time"])
	assert.Equal(t, "15 minutes - 2 hours", payload["estimated_resolution_time"])
	actions, ok := payload["immediate_actions"].([]string)
	require.True(t, ok)
	assert.Len(t, actions, 4)
	assert.NotEmpty(t, payload["escalation_criteria"])
}

func TestGetStandardMitigation_UnknownTypeFallsBack(t *testing.T) {
	args := json.RawMessage(`{"incident_type": "alien_invasion", "severity": "weird"}`)
	payload, err := (&GetStandardMitigation{}).Call(args)
	require.NoError(t, err)

	assert.Equal(t, playbooks["unknown"].EscalationCriteria, payload["escalation_criteria"])
	assert.Equal(t, "1 hour", payload["target_response_time"])
	assert.Equal(t, "Unknown", payload["estimated_resolution_time"])
}

func TestGetStandardMitigation_SchemaRejectsBadEnum(t *testing.T) {
	r, err := NewTriageRegistry()
	require.NoError(t, err)
	res := r.Execute("get_standard_mitigation", json.RawMessage(`{"incident_type": "alien_invasion", "severity": "critical"}`))
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "invalid arguments")
}

func TestNewTriageRegistry(t *testing.T) {
	r, err := NewTriageRegistry()
	require.NoError(t, err)
	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "extract_incident_details", specs[0].Name)
	assert.Equal(t, "get_standard_mitigation", specs[1].Name)
	assert.Equal(t, "incident_details", specs[0].ResultKey)
	assert.Equal(t, "mitigation_plan", specs[1].ResultKey)
}
