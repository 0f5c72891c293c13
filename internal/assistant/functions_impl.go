package assistant

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"
)

// TriageSystemPrompt is the fixed instruction set seeding every conversation.
const TriageSystemPrompt = `You are an expert IT incident triage agent. Your role is to:

1. Analyze incident descriptions to extract structured information (severity, type, affected systems)
2. Recommend standard mitigation procedures based on the incident classification
3. Provide clear, actionable guidance for incident responders

You have access to the following functions:
- extract_incident_details: Analyzes incident text to determine severity, type, and affected systems
- get_standard_mitigation: Retrieves standard mitigation playbooks based on incident classification

Process for triaging an incident:
1. First, call extract_incident_details to analyze the incident description
2. Then, use the extracted information to call get_standard_mitigation
3. Finally, provide a clear summary with:
   - Incident classification (severity and type)
   - Affected systems
   - Immediate actions to take
   - Investigation steps
   - Escalation criteria

Be concise, precise, and focus on actionable information.`

// --- Classification Function ---

// ExtractIncidentDetails classifies an incident description into severity,
// incident type, and affected systems using keyword and pattern rules.
type ExtractIncidentDetails struct{}

type extractArgs struct {
	IncidentDescription string `json:"incident_description"`
}

func (t *ExtractIncidentDetails) Spec() FunctionSpec {
	return FunctionSpec{
		Name:        "extract_incident_details",
		Description: "Analyzes an incident description to determine severity, incident type, and affected systems",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"incident_description": {
					"type": "string",
					"description": "The raw incident description text to analyze"
				}
			},
			"required": ["incident_description"]
		}`),
		ResultKey:    "incident_details",
		ResultFields: []string{"severity", "incident_type", "affected_systems"},
	}
}

var severityKeywords = []struct {
	level string
	words []string
}{
	{"critical", []string{"down", "outage", "critical", "complete failure", "all users affected"}},
	{"critical", []string{"breach", "security", "unauthorized", "compromised", "exploit"}},
	{"high", []string{"slow", "degraded", "intermittent", "some users"}},
	{"low", []string{"minor", "cosmetic", "low impact"}},
}

var incidentTypeKeywords = []struct {
	name  string
	words []string
}{
	{"service_outage", []string{"down", "outage", "unavailable", "not responding"}},
	{"security_breach", []string{"breach", "security", "unauthorized", "hack", "compromised"}},
	{"performance_degradation", []string{"slow", "degraded", "latency", "timeout", "performance"}},
	{"data_loss", []string{"data loss", "deleted", "missing data", "corrupted"}},
	{"network_issue", []string{"network", "connectivity", "dns", "routing"}},
	{"configuration_error", []string{"config", "misconfiguration", "settings", "deployment failed"}},
	{"capacity_issue", []string{"capacity", "disk full", "memory", "cpu", "resource"}},
}

var systemPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\w+)\s+(?:service|server|database|api|application)`),
	regexp.MustCompile(`(?:service|server|db|api)[\s-](\w+)`),
}

func (t *ExtractIncidentDetails) Call(args json.RawMessage) (map[string]any, error) {
	var in extractArgs
	if err := ParseArgs(args, &in); err != nil {
		return nil, err
	}
	description := strings.ToLower(in.IncidentDescription)

	containsAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(description, w) {
				return true
			}
		}
		return false
	}

	severity := "medium"
	for _, sk := range severityKeywords {
		if containsAny(sk.words) {
			severity = sk.level
			break
		}
	}

	incidentType := "unknown"
	for _, tk := range incidentTypeKeywords {
		if containsAny(tk.words) {
			incidentType = tk.name
			break
		}
	}

	seen := make(map[string]bool)
	var affected []string
	for _, pattern := range systemPatterns {
		for _, m := range pattern.FindAllStringSubmatch(description, -1) {
			name := strings.TrimSpace(m[1])
			if name != "" && !seen[name] {
				seen[name] = true
				affected = append(affected, name)
			}
		}
	}
	sort.Strings(affected)
	if len(affected) == 0 {
		affected = []string{"system_unknown"}
	}

	summary := in.IncidentDescription
	if len(summary) > 200 {
		summary = summary[:200]
	}
	confidence := "high"
	if incidentType == "unknown" {
		confidence = "low"
	}

	return map[string]any{
		"severity":            severity,
		"incident_type":       incidentType,
		"affected_systems":    affected,
		"description_summary": summary,
		"analyzed_at":         time.Now().UTC().Format(time.RFC3339),
		"confidence":          confidence,
	}, nil
}

// --- Mitigation Function ---

// GetStandardMitigation looks up the standard mitigation playbook for a
// classified incident and scales response targets by severity.
type GetStandardMitigation struct{}

type mitigationArgs struct {
	IncidentType    string   `json:"incident_type"`
	Severity        string   `json:"severity"`
	AffectedSystems []string `json:"affected_systems"`
}

func (t *GetStandardMitigation) Spec() FunctionSpec {
	return FunctionSpec{
		Name:        "get_standard_mitigation",
		Description: "Retrieves the standard mitigation playbook for a classified incident",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"incident_type": {
					"type": "string",
					"description": "The classified incident type",
					"enum": ["service_outage", "security_breach", "performance_degradation", "data_loss", "network_issue", "configuration_error", "capacity_issue", "unknown"]
				},
				"severity": {
					"type": "string",
					"description": "The incident severity level",
					"enum": ["critical", "high", "medium", "low"]
				},
				"affected_systems": {
					"type": "array",
					"description": "Systems affected by the incident",
					"items": {"type": "string"}
				}
			},
			"required": ["incident_type", "severity"]
		}`),
		ResultKey:    "mitigation_plan",
		ResultFields: []string{"immediate_actions", "investigation_steps", "escalation_criteria"},
	}
}

type playbook struct {
	ImmediateActions   []string
	InvestigationSteps []string
	EscalationCriteria string
}

var playbooks = map[string]playbook{
	"service_outage": {
		ImmediateActions: []string{
			"Verify service status via monitoring dashboards",
			"Check recent deployments or configuration changes",
			"Attempt service restart if safe to do so",
			"Activate incident response team",
		},
		InvestigationSteps: []string{
			"Review application logs for errors",
			"Check infrastructure health (CPU, memory, disk)",
			"Verify database connectivity and performance",
			"Check for upstream/downstream service dependencies",
		},
		EscalationCriteria: "If service not restored within 15 minutes or impact >1000 users",
	},
	"security_breach": {
		ImmediateActions: []string{
			"Isolate affected systems from network",
			"Preserve logs and evidence",
			"Notify security team and management immediately",
			"Begin incident response protocol",
		},
		InvestigationSteps: []string{
			"Identify attack vector and entry point",
			"Assess scope of compromise",
			"Review access logs and authentication events",
			"Check for data exfiltration or unauthorized access",
		},
		EscalationCriteria: "Immediate escalation to CISO and legal team",
	},
	"performance_degradation": {
		ImmediateActions: []string{
			"Monitor current resource utilization",
			"Check for unusual traffic patterns or load",
			"Review recent code or configuration changes",
			"Consider scaling resources if needed",
		},
		InvestigationSteps: []string{
			"Analyze application performance metrics",
			"Review slow query logs and database performance",
			"Check for memory leaks or resource exhaustion",
			"Verify CDN and caching layer health",
		},
		EscalationCriteria: "If degradation persists >30 minutes or worsens",
	},
	"data_loss": {
		ImmediateActions: []string{
			"Stop all write operations if possible",
			"Identify scope and timeframe of data loss",
			"Locate most recent backup",
			"Notify data owners and stakeholders",
		},
		InvestigationSteps: []string{
			"Determine root cause of data loss",
			"Verify backup integrity and completeness",
			"Plan restoration procedure",
			"Document affected records or transactions",
		},
		EscalationCriteria: "Immediate escalation if customer data affected",
	},
	"network_issue": {
		ImmediateActions: []string{
			"Verify network connectivity to critical systems",
			"Check DNS resolution and routing tables",
			"Review firewall and security group rules",
			"Contact network operations team",
		},
		InvestigationSteps: []string{
			"Trace network path and identify failure point",
			"Check for ISP or cloud provider incidents",
			"Review recent network configuration changes",
			"Verify BGP routes and peering status",
		},
		EscalationCriteria: "If network unavailable >10 minutes",
	},
	"configuration_error": {
		ImmediateActions: []string{
			"Identify recent configuration changes",
			"Rollback to last known good configuration",
			"Verify rollback restored functionality",
			"Document the problematic change",
		},
		InvestigationSteps: []string{
			"Compare current vs previous configuration",
			"Test configuration in staging environment",
			"Review change approval and validation",
			"Update configuration management procedures",
		},
		EscalationCriteria: "If rollback unsuccessful or impact unclear",
	},
	"capacity_issue": {
		ImmediateActions: []string{
			"Free up resources (clear cache, remove temp files)",
			"Scale up infrastructure if auto-scaling enabled",
			"Identify largest resource consumers",
			"Implement rate limiting if needed",
		},
		InvestigationSteps: []string{
			"Analyze resource growth trends",
			"Identify capacity planning gaps",
			"Review resource allocation and quotas",
			"Plan for capacity expansion",
		},
		EscalationCriteria: "If resources reach 90%+ utilization",
	},
	"unknown": {
		ImmediateActions: []string{
			"Gather detailed incident information",
			"Engage incident response team",
			"Monitor system health metrics",
			"Document all symptoms and observations",
		},
		InvestigationSteps: []string{
			"Review all recent changes (code, config, infra)",
			"Check monitoring dashboards for anomalies",
			"Correlate with external incidents or outages",
			"Consult subject matter experts",
		},
		EscalationCriteria: "Escalate within 15 minutes for classification",
	},
}

var responseTimes = map[string]string{
	"critical": "5 minutes",
	"high":     "15 minutes",
	"medium":   "1 hour",
	"low":      "4 hours",
}

var resolutionEstimates = map[string]string{
	"critical": "15 minutes - 2 hours",
	"high":     "1 - 4 hours",
	"medium":   "4 - 24 hours",
	"low":      "1 - 3 days",
}

func (t *GetStandardMitigation) Call(args json.RawMessage) (map[string]any, error) {
	var in mitigationArgs
	if err := ParseArgs(args, &in); err != nil {
		return nil, err
	}

	pb, ok := playbooks[in.IncidentType]
	if !ok {
		pb = playbooks["unknown"]
	}

	responseTime, ok := responseTimes[in.Severity]
	if !ok {
		responseTime = "1 hour"
	}
	resolution, ok := resolutionEstimates[in.Severity]
	if !ok {
		resolution = "Unknown"
	}

	affected := in.AffectedSystems
	if affected == nil {
		affected = []string{}
	}

	return map[string]any{
		"incident_type":             in.IncidentType,
		"severity":                  in.Severity,
		"affected_systems":          affected,
		"immediate_actions":         pb.ImmediateActions,
		"investigation_steps":       pb.InvestigationSteps,
		"escalation_criteria":       pb.EscalationCriteria,
		"target_response_time":      responseTime,
		"estimated_resolution_time": resolution,
		"generated_at":              time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// NewTriageRegistry returns a registry with the standard triage functions.
func NewTriageRegistry() (*Registry, error) {
	registry := NewRegistry()
	if err := registry.Register(&ExtractIncidentDetails{}); err != nil {
		return nil, err
	}
	if err := registry.Register(&GetStandardMitigation{}); err != nil {
		return nil, err
	}
	return registry, nil
}
