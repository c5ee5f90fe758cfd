package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for format.
func FormatPayload(format string, ev Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(ev)
	case "pagerduty":
		return formatPagerDuty(ev)
	default:
		return json.Marshal(ev)
	}
}

func formatSlack(ev Event) ([]byte, error) {
	title := fmt.Sprintf("agentgate: %s", ev.Decision)
	if ev.Kind == KindDegraded || ev.Kind == KindKillSwitch {
		title = fmt.Sprintf("agentgate: %s", ev.Kind)
	}
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{"type": "plain_text", "text": title},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Agent:* %s", orDash(ev.AgentID))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Tool:* %s", orDash(ev.Tool))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Risk:* %d (%s)", ev.Risk, severityFor(ev.Risk))},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Policy:* %s", orDash(ev.Policy))},
				},
			},
			map[string]any{
				"type": "context",
				"elements": []any{
					map[string]any{"type": "mrkdwn", "text": orDash(ev.Explanation)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(ev Event) ([]byte, error) {
	payload := map[string]any{
		"event_action": "trigger",
		"dedup_key":    ev.ReceiptID,
		"payload": map[string]any{
			"summary":  fmt.Sprintf("agentgate %s: %s (%s)", ev.Decision, orDash(ev.Tool), orDash(ev.Policy)),
			"severity": severityFor(ev.Risk),
			"source":   "agentgate",
			"custom_details": map[string]any{
				"agent_id":    ev.AgentID,
				"session_id":  ev.SessionID,
				"tool":        ev.Tool,
				"risk":        ev.Risk,
				"policy":      ev.Policy,
				"explanation": ev.Explanation,
			},
		},
	}
	return json.Marshal(payload)
}

func severityFor(risk int) string {
	switch {
	case risk >= 90:
		return "critical"
	case risk >= 70:
		return "error"
	case risk >= 40:
		return "warning"
	default:
		return "info"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
